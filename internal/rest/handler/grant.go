package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/amethyx/accessbot/internal/database/types"
	"github.com/amethyx/accessbot/internal/grant"
	restTypes "github.com/amethyx/accessbot/internal/rest/types"
	"github.com/bytedance/sonic"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// maxBodySize caps the request body.
const maxBodySize = 64 << 10

// Granter schedules grant events.
type Granter interface {
	Grant(ctx context.Context, req grant.Request) error
}

// GrantHandler handles the inbound grant endpoint.
type GrantHandler struct {
	granter Granter
	logger  *zap.Logger
}

// NewGrantHandler creates a new grant handler.
func NewGrantHandler(granter Granter, logger *zap.Logger) *GrantHandler {
	return &GrantHandler{
		granter: granter,
		logger:  logger.Named("grant_handler"),
	}
}

// AddAccessRole schedules a grant and answers before it is applied.
func (h *GrantHandler) AddAccessRole(w http.ResponseWriter, req bunrouter.Request) error {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodySize))
	if err != nil {
		http.Error(w, restTypes.ResponseInvalidJSON, http.StatusBadRequest)
		return nil
	}

	var request restTypes.AddAccessRoleRequest
	if err := sonic.Unmarshal(body, &request); err != nil {
		h.logger.Debug("Rejected malformed grant body", zap.Error(err))
		http.Error(w, restTypes.ResponseInvalidJSON, http.StatusBadRequest)

		return nil
	}

	if !request.Valid() {
		http.Error(w, restTypes.ResponseInvalid, http.StatusBadRequest)
		return nil
	}

	err = h.granter.Grant(req.Context(), grant.Request{
		GuildID:  uint64(request.GuildID),
		MemberID: uint64(request.UserID),
		Tier:     types.Tier(request.Type),
	})

	switch {
	case err == nil:
		return text(w, restTypes.ResponseSuccess)
	case errors.Is(err, grant.ErrInvalidRequest):
		http.Error(w, restTypes.ResponseInvalid, http.StatusBadRequest)
	case errors.Is(err, grant.ErrQueueFull):
		h.logger.Warn("Failed to schedule grant",
			zap.Uint64("guild_id", uint64(request.GuildID)),
			zap.Uint64("member_id", uint64(request.UserID)),
			zap.Error(err))
		http.Error(w, restTypes.ResponseBusy, http.StatusServiceUnavailable)
	case errors.Is(err, grant.ErrStopped):
		http.Error(w, restTypes.ResponseUnavailable, http.StatusServiceUnavailable)
	default:
		h.logger.Error("Failed to schedule grant", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}

	return nil
}

// Health reports that the server is accepting requests.
func Health(w http.ResponseWriter, _ bunrouter.Request) error {
	return text(w, restTypes.ResponseOK)
}

func text(w http.ResponseWriter, body string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := io.WriteString(w, body)
	return err
}
