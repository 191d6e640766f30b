package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"quoteapi-server/models"
)

var (
	ErrUsernameTaken     = errors.New("用户名已存在")
	ErrInvalidCredential = errors.New("用户名或密码错误")
	ErrKeyNotFound       = errors.New("API Key 不存在")
)

const tokenLifetime = 7 * 24 * time.Hour

// AuthService owns accounts, session tokens and API keys
type AuthService struct {
	db        *DBService
	jwtSecret []byte
}

func NewAuthService(db *DBService, jwtSecret string) *AuthService {
	return &AuthService{db: db, jwtSecret: []byte(jwtSecret)}
}

// EnsureDefaultAdmin creates the bootstrap admin account on an empty
// user table.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context) error {
	n, err := s.db.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.db.CreateUser(ctx, &models.User{
		Username: "admin",
		Password: string(hashed),
		IsAdmin:  true,
	})
	return err
}

// Register creates a new account and returns it with a session token
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, string, error) {
	existing, err := s.db.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user, err := s.db.CreateUser(ctx, &models.User{
		Username: username,
		Password: string(hashed),
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(user)
	return user, token, err
}

// Login verifies credentials and returns the user with a session token
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	user, err := s.db.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", ErrInvalidCredential
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, "", ErrInvalidCredential
	}

	token, err := s.issueToken(user)
	return user, token, err
}

// ChangePassword verifies the old password and stores a new hash
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.db.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidCredential
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return ErrInvalidCredential
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.db.UpdateUserPassword(ctx, userID, string(hashed))
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"is_admin": user.IsAdmin,
		"exp":      time.Now().Add(tokenLifetime).Unix(),
		"iat":      time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// VerifyToken resolves a session token into an identity
func (s *AuthService) VerifyToken(tokenString string) (models.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return models.Identity{}, errors.New("无效的认证令牌")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Identity{}, errors.New("无效的认证令牌")
	}

	sub, ok := claims["sub"].(float64)
	if !ok {
		return models.Identity{}, errors.New("无效的认证令牌")
	}

	isAdmin, _ := claims["is_admin"].(bool)

	return models.Identity{UserID: int64(sub), IsAdmin: isAdmin}, nil
}

// ResolveAPIKey maps a bearer API key to an identity; unknown keys
// resolve to anonymous.
func (s *AuthService) ResolveAPIKey(ctx context.Context, keyValue string) (models.Identity, error) {
	ident, err := s.db.ResolveAPIKey(ctx, keyValue)
	if err != nil {
		return models.Identity{}, err
	}
	if ident == nil {
		return models.Identity{}, nil
	}
	return *ident, nil
}

// CreateAPIKey mints a new key for userID
func (s *AuthService) CreateAPIKey(ctx context.Context, userID int64, name string) (*models.APIKey, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}

	return s.db.CreateAPIKey(ctx, &models.APIKey{
		UserID:   userID,
		KeyValue: "qak_" + base64.RawURLEncoding.EncodeToString(raw),
		Name:     name,
	})
}

// ListAPIKeys returns the caller's keys
func (s *AuthService) ListAPIKeys(ctx context.Context, userID int64) ([]models.APIKey, error) {
	return s.db.ListAPIKeysByUser(ctx, userID)
}

// ToggleAPIKey flips a key's active flag, checking ownership
func (s *AuthService) ToggleAPIKey(ctx context.Context, id, userID int64) (bool, error) {
	key, err := s.ownedKey(ctx, id, userID)
	if err != nil {
		return false, err
	}
	if err := s.db.SetAPIKeyActive(ctx, id, !key.IsActive); err != nil {
		return false, err
	}
	return !key.IsActive, nil
}

// RenameAPIKey sets a key's display name, checking ownership
func (s *AuthService) RenameAPIKey(ctx context.Context, id, userID int64, name string) error {
	if _, err := s.ownedKey(ctx, id, userID); err != nil {
		return err
	}
	return s.db.RenameAPIKey(ctx, id, name)
}

// DeleteAPIKey removes a key, checking ownership
func (s *AuthService) DeleteAPIKey(ctx context.Context, id, userID int64) error {
	if _, err := s.ownedKey(ctx, id, userID); err != nil {
		return err
	}
	return s.db.DeleteAPIKey(ctx, id)
}

func (s *AuthService) ownedKey(ctx context.Context, id, userID int64) (*models.APIKey, error) {
	key, err := s.db.GetAPIKey(ctx, id)
	if err != nil {
		return nil, err
	}
	if key == nil || key.UserID != userID {
		return nil, ErrKeyNotFound
	}
	return key, nil
}
