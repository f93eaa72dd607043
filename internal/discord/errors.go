package discord

import (
	"errors"
	"net/http"

	"github.com/disgoorg/disgo/rest"
)

// ErrMemberNotFound is returned when the member is no longer in the guild.
var ErrMemberNotFound = errors.New("member not found")

// JSON error codes returned by the Discord API.
const (
	CodeUnknownChannel = 10003
	CodeUnknownMember  = 10007
	CodeUnknownMessage = 10008
	CodeUnknownRole    = 10011
)

// IsUnknown reports whether err is a Discord API error carrying one of codes.
func IsUnknown(err error, codes ...int) bool {
	var restErr *rest.Error
	if !errors.As(err, &restErr) {
		return false
	}

	for _, code := range codes {
		if int(restErr.Code) == code {
			return true
		}
	}

	return false
}

// IsNotFound reports whether err is a Discord API 404 response.
func IsNotFound(err error) bool {
	var restErr *rest.Error
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return false
	}

	return restErr.Response.StatusCode == http.StatusNotFound
}
