// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Name         string     `db:"name"`
	AvatarURL    string     `db:"avatar_url"`
	Role         string     `db:"role"`
	Tier         string     `db:"tier"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == forum.RoleAdmin
}

func (u *User) RoleRecord() forum.RoleRecord {
	return forum.RoleRecord{
		PrincipalID: u.ID,
		Role:        u.Role,
		Tier:        u.Tier,
	}
}

// RoleCounts is the role and tier breakdown shown on the admin dashboard.
type RoleCounts struct {
	Admins   int `db:"admins"   json:"admins"`
	Members  int `db:"members"  json:"members"`
	Elevated int `db:"elevated" json:"elevated"`
}
