package types

import (
	"bytes"
	"errors"
	"strconv"
)

// ErrInvalidID is returned for an ID that is neither a number nor a numeric string.
var ErrInvalidID = errors.New("invalid snowflake id")

// ID is a Discord snowflake sent either as a JSON number or a JSON string.
type ID uint64

// UnmarshalJSON accepts 123, "123" and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}

	data = bytes.Trim(data, `"`)

	value, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return ErrInvalidID
	}

	*id = ID(value)

	return nil
}

// AddAccessRoleRequest is the body of POST /add-access-role.
type AddAccessRoleRequest struct {
	GuildID ID     `json:"guild_id"`
	UserID  ID     `json:"user_id"`
	Type    string `json:"type"`
}

// Valid reports whether both IDs are present.
func (r AddAccessRoleRequest) Valid() bool {
	return r.GuildID != 0 && r.UserID != 0
}

// Response bodies.
const (
	ResponseSuccess     = "success"
	ResponseInvalidJSON = "Invalid JSON"
	ResponseInvalid     = "Invalid request"
	ResponseBusy        = "Too many pending grants"
	ResponseUnavailable = "Shutting down"
	ResponseOK          = "ok"
)
