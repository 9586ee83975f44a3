// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

// RefreshToken is one link of a rotation chain. Presenting a link that was
// already rotated revokes every link sharing its FamilyID.
type RefreshToken struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	TokenHash    string     `db:"token_hash"`
	FamilyID     string     `db:"family_id"`
	ExpiresAt    time.Time  `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
	RotatedAt    *time.Time `db:"rotated_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	ReplacedByID *string    `db:"replaced_by_id"`
}

type tokenState int

const (
	tokenActive tokenState = iota
	tokenRotated
	tokenRevoked
	tokenExpired
)

func (t *RefreshToken) state(now time.Time) tokenState {
	switch {
	case t.RotatedAt != nil:
		return tokenRotated
	case t.RevokedAt != nil:
		return tokenRevoked
	case now.After(t.ExpiresAt):
		return tokenExpired
	default:
		return tokenActive
	}
}
