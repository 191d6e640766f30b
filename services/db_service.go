package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"quoteapi-server/models"

	_ "github.com/lib/pq"
)

type DBService struct {
	db *sql.DB
}

func NewDBService(host string, port int, user, password, dbname string) (*DBService, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &DBService{db: db}, nil
}

func (s *DBService) Close() error {
	return s.db.Close()
}

// InitSchema creates tables if they don't exist
func (s *DBService) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(100) UNIQUE NOT NULL,
		password TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS endpoints (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) UNIQUE NOT NULL,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		description TEXT,
		code_key TEXT NOT NULL,
		visibility VARCHAR(20) NOT NULL DEFAULT 'public',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		call_count BIGINT NOT NULL DEFAULT 0,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS repositories (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) UNIQUE NOT NULL,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		description TEXT,
		visibility VARCHAR(20) NOT NULL DEFAULT 'public',
		api_calls BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS quotes (
		id BIGSERIAL PRIMARY KEY,
		repository_id BIGINT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		usage_count BIGINT NOT NULL DEFAULT 0,
		page_views BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS api_keys (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		key_value VARCHAR(100) UNIQUE NOT NULL,
		name VARCHAR(100),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_used_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS system_config (
		config_key VARCHAR(100) PRIMARY KEY,
		config_value TEXT,
		description TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS access_logs (
		id BIGSERIAL PRIMARY KEY,
		repository_id BIGINT REFERENCES repositories(id) ON DELETE CASCADE,
		quote_id BIGINT REFERENCES quotes(id) ON DELETE SET NULL,
		referer TEXT,
		ip_address VARCHAR(64),
		user_agent TEXT,
		accessed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_endpoints_user ON endpoints(user_id);
	CREATE INDEX IF NOT EXISTS idx_repos_user ON repositories(user_id);
	CREATE INDEX IF NOT EXISTS idx_quotes_repo ON quotes(repository_id);
	CREATE INDEX IF NOT EXISTS idx_logs_repo ON access_logs(repository_id);
	CREATE INDEX IF NOT EXISTS idx_logs_time ON access_logs(accessed_at DESC);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// CreateEndpoint inserts a new endpoint row
func (s *DBService) CreateEndpoint(ctx context.Context, ep *models.Endpoint) (*models.Endpoint, error) {
	metadataJSON, _ := json.Marshal(ep.Metadata)

	var id int64
	var createdAt, updatedAt time.Time
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO endpoints (name, user_id, description, code_key, visibility, is_active, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, ep.Name, ep.UserID, ep.Description, ep.CodeKey, ep.Visibility, ep.IsActive, metadataJSON).
		Scan(&id, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	ep.ID = id
	ep.CreatedAt = createdAt
	ep.UpdatedAt = updatedAt

	return ep, nil
}

func scanEndpoint(row *sql.Row) (*models.Endpoint, error) {
	ep := &models.Endpoint{}
	var description sql.NullString
	var metadataJSON []byte

	err := row.Scan(&ep.ID, &ep.Name, &ep.UserID, &description, &ep.CodeKey,
		&ep.Visibility, &ep.IsActive, &ep.CallCount, &metadataJSON, &ep.CreatedAt, &ep.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if description.Valid {
		ep.Description = description.String
	}
	if metadataJSON != nil {
		json.Unmarshal(metadataJSON, &ep.Metadata)
	}

	return ep, nil
}

// GetEndpoint retrieves an endpoint by ID
func (s *DBService) GetEndpoint(ctx context.Context, id int64) (*models.Endpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, user_id, description, code_key, visibility, is_active, call_count, metadata, created_at, updated_at
		FROM endpoints WHERE id = $1
	`, id)
	return scanEndpoint(row)
}

// GetEndpointByName retrieves an endpoint by its unique name
func (s *DBService) GetEndpointByName(ctx context.Context, name string) (*models.Endpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, user_id, description, code_key, visibility, is_active, call_count, metadata, created_at, updated_at
		FROM endpoints WHERE name = $1
	`, name)
	return scanEndpoint(row)
}

// ListEndpointsByUser returns a user's endpoints without code
func (s *DBService) ListEndpointsByUser(ctx context.Context, userID int64) ([]models.EndpointListItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, visibility, is_active, call_count, created_at, updated_at
		FROM endpoints WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []models.EndpointListItem
	for rows.Next() {
		var ep models.EndpointListItem
		var description sql.NullString
		err := rows.Scan(&ep.ID, &ep.Name, &description, &ep.Visibility, &ep.IsActive, &ep.CallCount, &ep.CreatedAt, &ep.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if description.Valid {
			ep.Description = description.String
		}
		endpoints = append(endpoints, ep)
	}

	return endpoints, rows.Err()
}

// ListAllEndpoints returns every endpoint without code, newest first
func (s *DBService) ListAllEndpoints(ctx context.Context) ([]models.Endpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, user_id, description, visibility, is_active, call_count, created_at, updated_at
		FROM endpoints ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []models.Endpoint
	for rows.Next() {
		var ep models.Endpoint
		var description sql.NullString
		err := rows.Scan(&ep.ID, &ep.Name, &ep.UserID, &description, &ep.Visibility,
			&ep.IsActive, &ep.CallCount, &ep.CreatedAt, &ep.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if description.Valid {
			ep.Description = description.String
		}
		endpoints = append(endpoints, ep)
	}

	return endpoints, rows.Err()
}

// UpdateEndpoint updates the mutable endpoint fields
func (s *DBService) UpdateEndpoint(ctx context.Context, ep *models.Endpoint) error {
	metadataJSON, _ := json.Marshal(ep.Metadata)

	_, err := s.db.ExecContext(ctx, `
		UPDATE endpoints
		SET name = $2, description = $3, code_key = $4, visibility = $5, is_active = $6, metadata = $7, updated_at = now()
		WHERE id = $1
	`, ep.ID, ep.Name, ep.Description, ep.CodeKey, ep.Visibility, ep.IsActive, metadataJSON)
	return err
}

// SetEndpointVisibility updates only the visibility tier
func (s *DBService) SetEndpointVisibility(ctx context.Context, id int64, visibility string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE endpoints SET visibility = $2, updated_at = now() WHERE id = $1
	`, id, visibility)
	return err
}

// SetEndpointActive flips the active flag
func (s *DBService) SetEndpointActive(ctx context.Context, id int64, active bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE endpoints SET is_active = $2, updated_at = now() WHERE id = $1
	`, id, active)
	return err
}

// IncrementEndpointCallCount adds one to the call counter. The single
// UPDATE relies on the database's own write serialization.
func (s *DBService) IncrementEndpointCallCount(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE endpoints SET call_count = call_count + 1 WHERE id = $1
	`, id)
	return err
}

// DeleteEndpoint removes an endpoint row
func (s *DBService) DeleteEndpoint(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM endpoints WHERE id = $1`, id)
	return err
}
