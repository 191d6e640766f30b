package services

import (
	"context"
	"database/sql"

	"quoteapi-server/models"
)

// CreateUser inserts a new user with an already-hashed password
func (s *DBService) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password, is_admin)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, u.Username, u.Password, u.IsAdmin).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByUsername retrieves a user by unique username
func (s *DBService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password, is_admin, created_at
		FROM users WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.Password, &u.IsAdmin, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser retrieves a user by ID
func (s *DBService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password, is_admin, created_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.Password, &u.IsAdmin, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUserPassword replaces the stored password hash
func (s *DBService) UpdateUserPassword(ctx context.Context, id int64, hashed string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password = $2 WHERE id = $1`, id, hashed)
	return err
}

// ListUsers returns every account, newest first
func (s *DBService) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, is_admin, created_at
		FROM users ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.IsAdmin, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// CountUsers returns the total user count (used for default admin bootstrap)
func (s *DBService) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CreateAPIKey inserts a new API key row
func (s *DBService) CreateAPIKey(ctx context.Context, k *models.APIKey) (*models.APIKey, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO api_keys (user_id, key_value, name)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id, is_active, created_at
	`, k.UserID, k.KeyValue, k.Name).Scan(&k.ID, &k.IsActive, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	return k, nil
}

// ListAPIKeysByUser returns a user's API keys
func (s *DBService) ListAPIKeysByUser(ctx context.Context, userID int64) ([]models.APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, key_value, name, is_active, last_used_at, created_at
		FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []models.APIKey
	for rows.Next() {
		var k models.APIKey
		var name sql.NullString
		var lastUsed sql.NullTime
		if err := rows.Scan(&k.ID, &k.UserID, &k.KeyValue, &name, &k.IsActive, &lastUsed, &k.CreatedAt); err != nil {
			return nil, err
		}
		if name.Valid {
			k.Name = name.String
		}
		if lastUsed.Valid {
			k.LastUsedAt = &lastUsed.Time
		}
		keys = append(keys, k)
	}

	return keys, rows.Err()
}

// GetAPIKey retrieves a key row by ID
func (s *DBService) GetAPIKey(ctx context.Context, id int64) (*models.APIKey, error) {
	k := &models.APIKey{}
	var name sql.NullString
	var lastUsed sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, key_value, name, is_active, last_used_at, created_at
		FROM api_keys WHERE id = $1
	`, id).Scan(&k.ID, &k.UserID, &k.KeyValue, &name, &k.IsActive, &lastUsed, &k.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if name.Valid {
		k.Name = name.String
	}
	if lastUsed.Valid {
		k.LastUsedAt = &lastUsed.Time
	}
	return k, nil
}

// ResolveAPIKey maps an active key value to its owner identity and
// touches last_used_at. Unknown or inactive keys resolve to nil.
func (s *DBService) ResolveAPIKey(ctx context.Context, keyValue string) (*models.Identity, error) {
	var keyID int64
	var ident models.Identity
	err := s.db.QueryRowContext(ctx, `
		SELECT ak.id, u.id, u.is_admin
		FROM api_keys ak
		JOIN users u ON ak.user_id = u.id
		WHERE ak.key_value = $1 AND ak.is_active = TRUE
	`, keyValue).Scan(&keyID, &ident.UserID, &ident.IsAdmin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = now() WHERE id = $1`, keyID)

	return &ident, nil
}

// SetAPIKeyActive flips the active flag
func (s *DBService) SetAPIKeyActive(ctx context.Context, id int64, active bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE api_keys SET is_active = $2 WHERE id = $1`, id, active)
	return err
}

// RenameAPIKey sets the display name
func (s *DBService) RenameAPIKey(ctx context.Context, id int64, name string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE api_keys SET name = NULLIF($2, '') WHERE id = $1`, id, name)
	return err
}

// DeleteAPIKey removes a key
func (s *DBService) DeleteAPIKey(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	return err
}

// GetConfigValue reads one system_config entry; missing keys return ""
func (s *DBService) GetConfigValue(ctx context.Context, key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT config_value FROM system_config WHERE config_key = $1
	`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// SetConfigValue upserts one system_config entry
func (s *DBService) SetConfigValue(ctx context.Context, key, value, description string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_config (config_key, config_value, description, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), now())
		ON CONFLICT (config_key) DO UPDATE SET
			config_value = EXCLUDED.config_value,
			description = COALESCE(EXCLUDED.description, system_config.description),
			updated_at = now()
	`, key, value, description)
	return err
}
