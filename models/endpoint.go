package models

import (
	"time"
)

// Visibility tiers shared by endpoints and repositories
const (
	VisibilityPublic     = "public"
	VisibilityRestricted = "restricted"
	VisibilityPrivate    = "private"
)

// ValidVisibility reports whether v is one of the three known tiers.
func ValidVisibility(v string) bool {
	return v == VisibilityPublic || v == VisibilityRestricted || v == VisibilityPrivate
}

// Endpoint represents a user-authored script endpoint
type Endpoint struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	UserID      int64                  `json:"user_id"`
	Description string                 `json:"description,omitempty"`
	CodeKey     string                 `json:"code_key,omitempty"`
	Code        string                 `json:"code,omitempty"`
	Visibility  string                 `json:"visibility"`
	IsActive    bool                   `json:"is_active"`
	CallCount   int64                  `json:"call_count"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// EndpointListItem represents an endpoint in list view (without code)
type EndpointListItem struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Visibility  string    `json:"visibility"`
	IsActive    bool      `json:"is_active"`
	CallCount   int64     `json:"call_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateEndpointRequest represents the request body for creating an endpoint
type CreateEndpointRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Code        string                 `json:"code"`
	Visibility  string                 `json:"visibility"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// UpdateEndpointRequest represents the request body for updating an endpoint.
// Nil fields are left unchanged.
type UpdateEndpointRequest struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	Code        *string                `json:"code"`
	Visibility  *string                `json:"visibility"`
	Metadata    map[string]interface{} `json:"metadata"`
}
