package models

import (
	"time"
)

// Repository represents a quote repository
type Repository struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	UserID      int64     `json:"user_id"`
	Description string    `json:"description,omitempty"`
	Visibility  string    `json:"visibility"`
	APICalls    int64     `json:"api_calls"`
	CreatedAt   time.Time `json:"created_at"`
}

// RepositoryWithStats adds owner and aggregate counts for detail views
type RepositoryWithStats struct {
	Repository
	Username   string `json:"username,omitempty"`
	QuoteCount int64  `json:"quote_count"`
}

// Quote represents a single quote inside a repository
type Quote struct {
	ID           int64     `json:"id"`
	RepositoryID int64     `json:"repository_id"`
	Content      string    `json:"content"`
	UsageCount   int64     `json:"usage_count"`
	PageViews    int64     `json:"page_views"`
	CreatedAt    time.Time `json:"created_at"`
}

// RandomQuoteResponse is the public payload of /api/random/:repoName
type RandomQuoteResponse struct {
	Content string `json:"content"`
	Link    string `json:"link"`
}

// CreateRepositoryRequest represents the request body for creating a repository
type CreateRepositoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

// CreateQuoteRequest represents the request body for adding a quote
type CreateQuoteRequest struct {
	Content string `json:"content"`
}
