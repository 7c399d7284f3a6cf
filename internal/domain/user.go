package domain

import (
	"context"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered user of the application.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	// TZ is the IANA zone every civil date and time of the user is read in.
	TZ                 string
	Role               string
	SearchDefaultRange string
	RecentLogsScope    string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsAdmin reports whether the user may manage event types.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateSettings(ctx context.Context, user *User) error
}
