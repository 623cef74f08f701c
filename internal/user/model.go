package user

import (
	"time"
)

type User struct {
	ID                  int64      `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"` // Never expose password hash in JSON
	IsVerified          bool       `json:"is_verified"`
	VerificationToken   *string    `json:"-"`
	VerificationExpires *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
