package service

import (
	"time"

	"github.com/smallbiznis/fintrack-auth/internal/domain"
)

// RegisterInput is the payload accepted by Register.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput is the payload accepted by Login.
type LoginInput struct {
	Email    string
	Password string
	// ClientIP scopes the lockout counter. Empty means per email only.
	ClientIP string
}

// AuthResult is returned by both Register and Login.
type AuthResult struct {
	User      UserViewModel `json:"user"`
	AuthToken string        `json:"authToken"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// UserViewModel is the client-facing user; it never carries the password hash.
type UserViewModel struct {
	ID        int64     `json:"id,string"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserViewModel(user domain.User) UserViewModel {
	return UserViewModel{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}
}
