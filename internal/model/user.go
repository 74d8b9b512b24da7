package model

import (
	"strings"
	"time"
)

// User is a registered account. Passwords are stored and compared as
// plaintext; this is a documented limitation, not a security boundary.
type User struct {
	Email     string `json:"email"`
	Pass      string `json:"pass"`
	CreatedAt int64  `json:"createdAt"`
}

// NormalizeEmail trims and lowercases an email so the same address
// always maps to the same account key.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NewUser creates an account record stamped with the current time.
func NewUser(email, pass string, now time.Time) User {
	return User{
		Email:     NormalizeEmail(email),
		Pass:      pass,
		CreatedAt: now.UnixMilli(),
	}
}
