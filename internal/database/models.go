package database

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the bun table model for the users table.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                  int64      `bun:"id,pk,autoincrement"`
	Username            string     `bun:"username,notnull"`
	Email               string     `bun:"email,notnull"`
	PasswordHash        string     `bun:"password_hash,notnull"`
	IsVerified          bool       `bun:"is_verified,notnull,default:false"`
	VerificationToken   *string    `bun:"verification_token"`
	VerificationExpires *time.Time `bun:"verification_expires"`
	CreatedAt           time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt           time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// Project is the bun table model for the projects table.
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:p"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UserID      int64     `bun:"user_id,notnull"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description"`
	Status      string    `bun:"status,notnull"`
	StartDate   time.Time `bun:"start_date,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Post is the bun table model for the posts table.
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:po"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UserID      int64     `bun:"user_id,notnull"`
	Content     string    `bun:"content,notnull"`
	PublishedAt time.Time `bun:"published_at,notnull,default:current_timestamp"`
}
