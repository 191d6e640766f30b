package services

import (
	"context"
	"database/sql"

	"quoteapi-server/models"
)

// CreateRepository inserts a new repository row
func (s *DBService) CreateRepository(ctx context.Context, repo *models.Repository) (*models.Repository, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO repositories (name, user_id, description, visibility)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, repo.Name, repo.UserID, repo.Description, repo.Visibility).Scan(&repo.ID, &repo.CreatedAt)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func scanRepository(row *sql.Row) (*models.Repository, error) {
	repo := &models.Repository{}
	var description sql.NullString

	err := row.Scan(&repo.ID, &repo.Name, &repo.UserID, &description, &repo.Visibility, &repo.APICalls, &repo.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if description.Valid {
		repo.Description = description.String
	}

	return repo, nil
}

// GetRepository retrieves a repository by ID
func (s *DBService) GetRepository(ctx context.Context, id int64) (*models.Repository, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, user_id, description, visibility, api_calls, created_at
		FROM repositories WHERE id = $1
	`, id)
	return scanRepository(row)
}

// GetRepositoryByName retrieves a repository by its unique name
func (s *DBService) GetRepositoryByName(ctx context.Context, name string) (*models.Repository, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, user_id, description, visibility, api_calls, created_at
		FROM repositories WHERE name = $1
	`, name)
	return scanRepository(row)
}

// ListAllRepositories returns every repository with owner and quote count
func (s *DBService) ListAllRepositories(ctx context.Context) ([]models.RepositoryWithStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.user_id, r.description, r.visibility, r.api_calls, r.created_at,
		       u.username, COUNT(q.id)
		FROM repositories r
		LEFT JOIN users u ON r.user_id = u.id
		LEFT JOIN quotes q ON q.repository_id = r.id
		GROUP BY r.id, u.username
		ORDER BY r.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repos []models.RepositoryWithStats
	for rows.Next() {
		var repo models.RepositoryWithStats
		var description, username sql.NullString
		err := rows.Scan(&repo.ID, &repo.Name, &repo.UserID, &description, &repo.Visibility,
			&repo.APICalls, &repo.CreatedAt, &username, &repo.QuoteCount)
		if err != nil {
			return nil, err
		}
		if description.Valid {
			repo.Description = description.String
		}
		if username.Valid {
			repo.Username = username.String
		}
		repos = append(repos, repo)
	}

	return repos, rows.Err()
}

// GetRepositoryWithStats joins owner name and quote count for detail views
func (s *DBService) GetRepositoryWithStats(ctx context.Context, id int64) (*models.RepositoryWithStats, error) {
	repo := &models.RepositoryWithStats{}
	var description, username sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.name, r.user_id, r.description, r.visibility, r.api_calls, r.created_at,
		       u.username, COUNT(q.id)
		FROM repositories r
		LEFT JOIN users u ON r.user_id = u.id
		LEFT JOIN quotes q ON q.repository_id = r.id
		WHERE r.id = $1
		GROUP BY r.id, u.username
	`, id).Scan(&repo.ID, &repo.Name, &repo.UserID, &description, &repo.Visibility,
		&repo.APICalls, &repo.CreatedAt, &username, &repo.QuoteCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if description.Valid {
		repo.Description = description.String
	}
	if username.Valid {
		repo.Username = username.String
	}

	return repo, nil
}

// ListRepositoriesByUser returns a user's repositories
func (s *DBService) ListRepositoriesByUser(ctx context.Context, userID int64) ([]models.Repository, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, user_id, description, visibility, api_calls, created_at
		FROM repositories WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repos []models.Repository
	for rows.Next() {
		var repo models.Repository
		var description sql.NullString
		if err := rows.Scan(&repo.ID, &repo.Name, &repo.UserID, &description, &repo.Visibility, &repo.APICalls, &repo.CreatedAt); err != nil {
			return nil, err
		}
		if description.Valid {
			repo.Description = description.String
		}
		repos = append(repos, repo)
	}

	return repos, rows.Err()
}

// UpdateRepository updates name/description
func (s *DBService) UpdateRepository(ctx context.Context, repo *models.Repository) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE repositories SET name = $2, description = $3 WHERE id = $1
	`, repo.ID, repo.Name, repo.Description)
	return err
}

// SetRepositoryVisibility updates only the visibility tier
func (s *DBService) SetRepositoryVisibility(ctx context.Context, id int64, visibility string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE repositories SET visibility = $2 WHERE id = $1
	`, id, visibility)
	return err
}

// DeleteRepository removes a repository (cascades to quotes)
func (s *DBService) DeleteRepository(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = $1`, id)
	return err
}

// IncrementRepositoryAPICalls adds one to the repository api_calls counter
func (s *DBService) IncrementRepositoryAPICalls(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE repositories SET api_calls = api_calls + 1 WHERE id = $1
	`, id)
	return err
}

// CreateQuote inserts a new quote
func (s *DBService) CreateQuote(ctx context.Context, q *models.Quote) (*models.Quote, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO quotes (repository_id, content)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, q.RepositoryID, q.Content).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetQuote retrieves a quote by ID
func (s *DBService) GetQuote(ctx context.Context, id int64) (*models.Quote, error) {
	q := &models.Quote{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, repository_id, content, usage_count, page_views, created_at
		FROM quotes WHERE id = $1
	`, id).Scan(&q.ID, &q.RepositoryID, &q.Content, &q.UsageCount, &q.PageViews, &q.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetRandomQuote picks a uniformly random quote from a repository
func (s *DBService) GetRandomQuote(ctx context.Context, repositoryID int64) (*models.Quote, error) {
	q := &models.Quote{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, repository_id, content, usage_count, page_views, created_at
		FROM quotes WHERE repository_id = $1
		ORDER BY random() LIMIT 1
	`, repositoryID).Scan(&q.ID, &q.RepositoryID, &q.Content, &q.UsageCount, &q.PageViews, &q.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListQuotesByRepository returns all quotes of a repository
func (s *DBService) ListQuotesByRepository(ctx context.Context, repositoryID int64) ([]models.Quote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repository_id, content, usage_count, page_views, created_at
		FROM quotes WHERE repository_id = $1 ORDER BY created_at DESC
	`, repositoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []models.Quote
	for rows.Next() {
		var q models.Quote
		if err := rows.Scan(&q.ID, &q.RepositoryID, &q.Content, &q.UsageCount, &q.PageViews, &q.CreatedAt); err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}

	return quotes, rows.Err()
}

// UpdateQuoteContent replaces a quote's text
func (s *DBService) UpdateQuoteContent(ctx context.Context, id int64, content string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE quotes SET content = $2 WHERE id = $1`, id, content)
	return err
}

// DeleteQuote removes a quote
func (s *DBService) DeleteQuote(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	return err
}

// IncrementQuoteUsage adds one to usage_count
func (s *DBService) IncrementQuoteUsage(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE quotes SET usage_count = usage_count + 1 WHERE id = $1`, id)
	return err
}

// IncrementQuotePageViews adds one to page_views
func (s *DBService) IncrementQuotePageViews(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE quotes SET page_views = page_views + 1 WHERE id = $1`, id)
	return err
}

// CreateAccessLog records a public API access
func (s *DBService) CreateAccessLog(ctx context.Context, repositoryID, quoteID int64, referer, ip, userAgent string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_logs (repository_id, quote_id, referer, ip_address, user_agent)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
	`, repositoryID, quoteID, referer, ip, userAgent)
	return err
}
