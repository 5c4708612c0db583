package domain

import (
	"time"

	"github.com/pulsefeed/pulse/pkg/idx"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User is the stored credential record. PasswordHash is a PHC-format
// argon2id string and never leaves the service.
type User struct {
	ID           idx.ID
	Email        string
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the wire projection of a User, with the password hash
// stripped.
type PublicUser struct {
	ID       idx.ID `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
	}
}
