package services

import (
	"context"

	"quoteapi-server/models"
)

// AIConfigProvider supplies the chat-completion provider settings for
// script contexts. Injected explicitly so nothing reads a process-wide
// configuration singleton.
type AIConfigProvider interface {
	GetAIConfig(ctx context.Context) (models.AIConfig, error)
}

const (
	configKeyAIURL   = "ai_api_url"
	configKeyAIKey   = "ai_api_key"
	configKeyAIModel = "ai_model"
)

// ConfigService reads system_config through a short-lived redis cache
type ConfigService struct {
	db    *DBService
	redis *RedisService
}

func NewConfigService(db *DBService, redis *RedisService) *ConfigService {
	return &ConfigService{db: db, redis: redis}
}

// GetAIConfig returns the AI settings, preferring the cache
func (s *ConfigService) GetAIConfig(ctx context.Context) (models.AIConfig, error) {
	if cached := s.redis.GetCachedAIConfig(ctx); cached != nil {
		return *cached, nil
	}

	var cfg models.AIConfig
	var err error
	if cfg.APIURL, err = s.db.GetConfigValue(ctx, configKeyAIURL); err != nil {
		return cfg, err
	}
	if cfg.APIKey, err = s.db.GetConfigValue(ctx, configKeyAIKey); err != nil {
		return cfg, err
	}
	if cfg.Model, err = s.db.GetConfigValue(ctx, configKeyAIModel); err != nil {
		return cfg, err
	}

	s.redis.CacheAIConfig(ctx, cfg)

	return cfg, nil
}

// SetAIConfig stores the AI settings and invalidates the cache
func (s *ConfigService) SetAIConfig(ctx context.Context, cfg models.AIConfig) error {
	if err := s.db.SetConfigValue(ctx, configKeyAIURL, cfg.APIURL, "AI API base URL"); err != nil {
		return err
	}
	if err := s.db.SetConfigValue(ctx, configKeyAIKey, cfg.APIKey, "AI API key"); err != nil {
		return err
	}
	if err := s.db.SetConfigValue(ctx, configKeyAIModel, cfg.Model, "AI model name"); err != nil {
		return err
	}

	s.redis.InvalidateAIConfig(ctx)

	return nil
}
