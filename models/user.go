package models

import (
	"time"
)

// User represents a registered account
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// APIKey represents an opaque bearer credential owned by a user
type APIKey struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	KeyValue   string     `json:"key_value"`
	Name       string     `json:"name,omitempty"`
	IsActive   bool       `json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Identity is the resolved caller of a request. A zero Identity is anonymous.
type Identity struct {
	UserID  int64
	IsAdmin bool
}

// Anonymous reports whether no identity was resolved for the request.
func (id Identity) Anonymous() bool {
	return id.UserID == 0
}

// RegisterRequest represents the body of /api/auth/register
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest represents the body of /api/auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents the body of /api/auth/password
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// AIConfig holds the chat-completion provider settings from system_config
type AIConfig struct {
	APIURL string `json:"api_url"`
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

// Configured reports whether all three AI settings are present.
func (c AIConfig) Configured() bool {
	return c.APIURL != "" && c.APIKey != "" && c.Model != ""
}
