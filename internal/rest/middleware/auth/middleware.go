package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// Middleware checks the shared secret sent as a Bearer token.
type Middleware struct {
	secret string
	logger *zap.Logger
}

// New creates a new auth middleware. An empty secret lets every request through.
func New(secret string, logger *zap.Logger) *Middleware {
	return &Middleware{
		secret: secret,
		logger: logger.Named("auth_middleware"),
	}
}

// AsRESTMiddleware returns a bunrouter middleware handler.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		if m.secret == "" || m.authorized(req.Header.Get("Authorization")) {
			return next(w, req)
		}

		m.logger.Warn("Rejected unauthorized request",
			zap.String("addr", req.RemoteAddr),
			zap.String("path", req.URL.Path))

		http.Error(w, "Unauthorized", http.StatusUnauthorized)

		return nil
	}
}

func (m *Middleware) authorized(header string) bool {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(m.secret)) == 1
}
