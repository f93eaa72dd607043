package types_test

import (
	"testing"

	"github.com/amethyx/accessbot/internal/rest/types"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAccessRoleRequestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    types.AddAccessRoleRequest
		valid   bool
		wantErr bool
	}{
		{
			name:  "numeric ids",
			body:  `{"guild_id": 1, "user_id": 7, "type": "emulator"}`,
			want:  types.AddAccessRoleRequest{GuildID: 1, UserID: 7, Type: "emulator"},
			valid: true,
		},
		{
			name:  "string ids",
			body:  `{"guild_id": "1234567890123456789", "user_id": "42"}`,
			want:  types.AddAccessRoleRequest{GuildID: 1234567890123456789, UserID: 42},
			valid: true,
		},
		{
			name: "missing user",
			body: `{"guild_id": 1}`,
			want: types.AddAccessRoleRequest{GuildID: 1},
		},
		{
			name: "null ids",
			body: `{"guild_id": null, "user_id": null}`,
		},
		{
			name:    "non numeric id",
			body:    `{"guild_id": "abc", "user_id": 7}`,
			wantErr: true,
		},
		{
			name:    "negative id",
			body:    `{"guild_id": -1, "user_id": 7}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got types.AddAccessRoleRequest

			err := sonic.Unmarshal([]byte(tt.body), &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.valid, got.Valid())
		})
	}
}
