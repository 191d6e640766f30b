package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"quoteapi-server/models"
)

var (
	ErrRepoNotFound  = errors.New("仓库不存在")
	ErrRepoNameTaken = errors.New("仓库名已存在")
	ErrRepoEmpty     = errors.New("仓库中没有语句")
	ErrQuoteNotFound = errors.New("语句不存在")
)

// QuoteService owns repositories, quotes and the public random-quote API
type QuoteService struct {
	db *DBService
}

func NewQuoteService(db *DBService) *QuoteService {
	return &QuoteService{db: db}
}

// RandomQuote serves the public random-quote API. The same gate that
// guards endpoint runs decides repository access; usage counters and
// the access log are only touched on an allowed request.
func (s *QuoteService) RandomQuote(ctx context.Context, repoName string, meta models.RequestMeta, caller models.Identity) (*models.RandomQuoteResponse, error) {
	repo, err := s.db.GetRepositoryByName(ctx, repoName)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, ErrRepoNotFound
	}

	if err := Authorize(RepositoryResource(repo), caller).Err(); err != nil {
		return nil, err
	}

	quote, err := s.db.GetRandomQuote(ctx, repo.ID)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, ErrRepoEmpty
	}

	if err := s.db.IncrementQuoteUsage(ctx, quote.ID); err != nil {
		log.Printf("quote %d: usage increment failed: %v", quote.ID, err)
	}
	if err := s.db.IncrementRepositoryAPICalls(ctx, repo.ID); err != nil {
		log.Printf("repository %d: api_calls increment failed: %v", repo.ID, err)
	}
	if err := s.db.CreateAccessLog(ctx, repo.ID, quote.ID, meta.Referer, meta.IP, meta.UserAgent); err != nil {
		log.Printf("repository %d: access log failed: %v", repo.ID, err)
	}

	return &models.RandomQuoteResponse{
		Content: quote.Content,
		Link:    fmt.Sprintf("/quote/%d", quote.ID),
	}, nil
}

// QuoteDetails returns one quote with its repository, counting the view
func (s *QuoteService) QuoteDetails(ctx context.Context, id int64, meta models.RequestMeta, caller models.Identity) (*models.Quote, *models.Repository, error) {
	quote, err := s.db.GetQuote(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if quote == nil {
		return nil, nil, ErrQuoteNotFound
	}

	repo, err := s.db.GetRepository(ctx, quote.RepositoryID)
	if err != nil {
		return nil, nil, err
	}

	if err := Authorize(RepositoryResource(repo), caller).Err(); err != nil {
		return nil, nil, err
	}

	if err := s.db.IncrementQuotePageViews(ctx, id); err != nil {
		log.Printf("quote %d: page view increment failed: %v", id, err)
	}
	if err := s.db.CreateAccessLog(ctx, repo.ID, quote.ID, "", meta.IP, meta.UserAgent); err != nil {
		log.Printf("quote %d: access log failed: %v", id, err)
	}

	return quote, repo, nil
}

// CreateRepository registers a new repository for userID
func (s *QuoteService) CreateRepository(ctx context.Context, userID int64, req *models.CreateRepositoryRequest) (*models.Repository, error) {
	existing, err := s.db.GetRepositoryByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRepoNameTaken
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !models.ValidVisibility(visibility) {
		return nil, fmt.Errorf("无效的可见性: %s", visibility)
	}

	return s.db.CreateRepository(ctx, &models.Repository{
		Name:        req.Name,
		UserID:      userID,
		Description: req.Description,
		Visibility:  visibility,
	})
}

// ListRepositories returns the caller's repositories
func (s *QuoteService) ListRepositories(ctx context.Context, userID int64) ([]models.Repository, error) {
	return s.db.ListRepositoriesByUser(ctx, userID)
}

// RepositoryStats returns a repository with owner and quote count
func (s *QuoteService) RepositoryStats(ctx context.Context, id int64, caller models.Identity) (*models.RepositoryWithStats, error) {
	repo, err := s.db.GetRepositoryWithStats(ctx, id)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, ErrRepoNotFound
	}

	if err := Authorize(Resource{Exists: true, Visibility: repo.Visibility, OwnerID: repo.UserID}, caller).Err(); err != nil {
		return nil, err
	}

	return repo, nil
}

// UpdateRepository applies owner changes to name/description
func (s *QuoteService) UpdateRepository(ctx context.Context, id, userID int64, name, description string) error {
	repo, err := s.ownedRepository(ctx, id, userID)
	if err != nil {
		return err
	}

	if name != "" && name != repo.Name {
		existing, err := s.db.GetRepositoryByName(ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrRepoNameTaken
		}
		repo.Name = name
	}
	if description != "" {
		repo.Description = description
	}

	return s.db.UpdateRepository(ctx, repo)
}

// DeleteRepository removes an owned repository
func (s *QuoteService) DeleteRepository(ctx context.Context, id, userID int64) error {
	if _, err := s.ownedRepository(ctx, id, userID); err != nil {
		return err
	}
	return s.db.DeleteRepository(ctx, id)
}

// CreateQuote adds a quote to an owned repository
func (s *QuoteService) CreateQuote(ctx context.Context, repositoryID, userID int64, content string) (*models.Quote, error) {
	if _, err := s.ownedRepository(ctx, repositoryID, userID); err != nil {
		return nil, err
	}

	return s.db.CreateQuote(ctx, &models.Quote{
		RepositoryID: repositoryID,
		Content:      content,
	})
}

// ListQuotes returns the quotes of an owned repository
func (s *QuoteService) ListQuotes(ctx context.Context, repositoryID, userID int64) ([]models.Quote, error) {
	if _, err := s.ownedRepository(ctx, repositoryID, userID); err != nil {
		return nil, err
	}
	return s.db.ListQuotesByRepository(ctx, repositoryID)
}

// UpdateQuote replaces quote text, checking repository ownership
func (s *QuoteService) UpdateQuote(ctx context.Context, id, userID int64, content string) error {
	quote, err := s.db.GetQuote(ctx, id)
	if err != nil {
		return err
	}
	if quote == nil {
		return ErrQuoteNotFound
	}
	if _, err := s.ownedRepository(ctx, quote.RepositoryID, userID); err != nil {
		return err
	}
	return s.db.UpdateQuoteContent(ctx, id, content)
}

// DeleteQuote removes a quote, checking repository ownership
func (s *QuoteService) DeleteQuote(ctx context.Context, id, userID int64) error {
	quote, err := s.db.GetQuote(ctx, id)
	if err != nil {
		return err
	}
	if quote == nil {
		return ErrQuoteNotFound
	}
	if _, err := s.ownedRepository(ctx, quote.RepositoryID, userID); err != nil {
		return err
	}
	return s.db.DeleteQuote(ctx, id)
}

func (s *QuoteService) ownedRepository(ctx context.Context, id, userID int64) (*models.Repository, error) {
	repo, err := s.db.GetRepository(ctx, id)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, ErrRepoNotFound
	}
	if repo.UserID != userID {
		return nil, ErrNotOwner
	}
	return repo, nil
}
