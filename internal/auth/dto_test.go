// AngelaMos | 2026
// dto_test.go

package auth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/forum/internal/core"
)

func TestAuthResponseWireNames(t *testing.T) {
	raw, err := json.Marshal(AuthResponse{
		User: PrincipalResponse{ID: "u-1", AvatarURL: "https://cdn.example.com/a.png"},
		Tokens: TokenResponse{
			AccessToken:  "a",
			RefreshToken: "r",
			TokenType:    "Bearer",
			ExpiresIn:    900,
			ExpiresAt:    time.Unix(0, 0).UTC(),
		},
	})
	require.NoError(t, err)

	var got struct {
		User   map[string]any `json:"user"`
		Tokens map[string]any `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Contains(t, got.User, "avatarUrl")
	for _, key := range []string{"accessToken", "refreshToken", "tokenType", "expiresIn", "expiresAt"} {
		assert.Contains(t, got.Tokens, key)
	}
	assert.NotContains(t, string(raw), "_")
}

func TestRefreshRequestReadsCamelCase(t *testing.T) {
	var req RefreshRequest
	require.NoError(t, json.Unmarshal([]byte(`{"refreshToken":"r-1"}`), &req))
	assert.Equal(t, "r-1", req.RefreshToken)

	require.NoError(t, core.NewValidator().Struct(req))
}
