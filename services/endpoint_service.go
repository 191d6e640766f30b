package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"quoteapi-server/models"
)

var (
	ErrEndpointNotFound = errors.New("端口不存在")
	ErrEndpointDisabled = errors.New("端口已禁用")
	ErrNameTaken        = errors.New("端口名称已存在")
	ErrNotOwner         = errors.New("无权操作此端口")
)

// MaxCallDepth bounds recursive self-calls made through the helper
// library; the depth travels in the X-Endpoint-Call-Depth header.
const MaxCallDepth = 5

// AccessError is a denial produced by the authorization gate
type AccessError struct {
	Status  int
	Message string
}

func (e *AccessError) Error() string { return e.Message }

// Err converts a Decision into an error, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &AccessError{Status: d.Status, Message: d.Message}
}

// EndpointRegistry is the persistence surface the orchestrator needs
type EndpointRegistry interface {
	CreateEndpoint(ctx context.Context, ep *models.Endpoint) (*models.Endpoint, error)
	GetEndpoint(ctx context.Context, id int64) (*models.Endpoint, error)
	GetEndpointByName(ctx context.Context, name string) (*models.Endpoint, error)
	ListEndpointsByUser(ctx context.Context, userID int64) ([]models.EndpointListItem, error)
	UpdateEndpoint(ctx context.Context, ep *models.Endpoint) error
	SetEndpointActive(ctx context.Context, id int64, active bool) error
	IncrementEndpointCallCount(ctx context.Context, id int64) error
	DeleteEndpoint(ctx context.Context, id int64) error
}

// ScriptRunner executes an assembled script
type ScriptRunner interface {
	Run(ctx context.Context, script models.Script, timeout time.Duration) (json.RawMessage, error)
}

// EndpointService owns endpoint lifecycle and execution
type EndpointService struct {
	registry    EndpointRegistry
	storage     CodeStorage
	builder     *ContextBuilder
	assembler   *ScriptAssembler
	runner      ScriptRunner
	execTimeout time.Duration
}

func NewEndpointService(registry EndpointRegistry, storage CodeStorage, builder *ContextBuilder, runner ScriptRunner, execTimeout time.Duration) *EndpointService {
	return &EndpointService{
		registry:    registry,
		storage:     storage,
		builder:     builder,
		assembler:   NewScriptAssembler(),
		runner:      runner,
		execTimeout: execTimeout,
	}
}

// Execute runs a named endpoint for one request. The order is fixed:
// lookup, active check, authorization, call counter, then the engine.
// Nothing is spawned and nothing is counted for a denied request.
func (s *EndpointService) Execute(ctx context.Context, name string, meta models.RequestMeta, params map[string]interface{}, caller models.Identity) (json.RawMessage, error) {
	if meta.CallDepth > MaxCallDepth {
		return nil, &AccessError{Status: 403, Message: "调用层级过深"}
	}

	ep, err := s.registry.GetEndpointByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if ep == nil {
		return nil, ErrEndpointNotFound
	}

	if !ep.IsActive {
		return nil, ErrEndpointDisabled
	}

	if err := Authorize(EndpointResource(ep), caller).Err(); err != nil {
		return nil, err
	}

	// Counts the attempt, not the outcome: a later script error still
	// leaves the counter incremented.
	if err := s.registry.IncrementEndpointCallCount(ctx, ep.ID); err != nil {
		log.Printf("endpoint %s: call count increment failed: %v", ep.Name, err)
	}

	code, err := s.storage.Load(ctx, ep.CodeKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfrastructure, err)
	}

	runCtx := s.builder.Build(ctx, meta, params, ep.UserID)

	script, err := s.assembler.Assemble(runCtx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfrastructure, err)
	}

	return s.runner.Run(ctx, script, s.execTimeout)
}

// Create registers a new endpoint owned by userID
func (s *EndpointService) Create(ctx context.Context, userID int64, req *models.CreateEndpointRequest) (*models.Endpoint, error) {
	existing, err := s.registry.GetEndpointByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrNameTaken
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !models.ValidVisibility(visibility) {
		return nil, fmt.Errorf("无效的可见性: %s", visibility)
	}

	ep := &models.Endpoint{
		Name:        req.Name,
		UserID:      userID,
		Description: req.Description,
		CodeKey:     "pending",
		Visibility:  visibility,
		IsActive:    true,
		Metadata:    req.Metadata,
	}

	created, err := s.registry.CreateEndpoint(ctx, ep)
	if err != nil {
		return nil, err
	}

	codeKey := EndpointCodeKey(created.ID)
	if err := s.storage.Save(ctx, codeKey, req.Code); err != nil {
		return nil, err
	}

	created.CodeKey = codeKey
	if err := s.registry.UpdateEndpoint(ctx, created); err != nil {
		return nil, err
	}
	created.Code = req.Code

	return created, nil
}

// Get returns an endpoint with its code, for the owner or an admin
func (s *EndpointService) Get(ctx context.Context, id int64, caller models.Identity) (*models.Endpoint, error) {
	ep, err := s.registry.GetEndpoint(ctx, id)
	if err != nil {
		return nil, err
	}
	if ep == nil {
		return nil, ErrEndpointNotFound
	}

	if ep.UserID != caller.UserID && !caller.IsAdmin {
		return nil, ErrNotOwner
	}

	code, err := s.storage.Load(ctx, ep.CodeKey)
	if err != nil {
		return nil, err
	}
	ep.Code = code

	return ep, nil
}

// ListByUser returns the caller's endpoints
func (s *EndpointService) ListByUser(ctx context.Context, userID int64) ([]models.EndpointListItem, error) {
	return s.registry.ListEndpointsByUser(ctx, userID)
}

// Update applies an owner's changes; rename re-checks name uniqueness
func (s *EndpointService) Update(ctx context.Context, id, userID int64, req *models.UpdateEndpointRequest) (*models.Endpoint, error) {
	ep, err := s.registry.GetEndpoint(ctx, id)
	if err != nil {
		return nil, err
	}
	if ep == nil {
		return nil, ErrEndpointNotFound
	}
	if ep.UserID != userID {
		return nil, ErrNotOwner
	}

	if req.Name != nil && *req.Name != ep.Name {
		existing, err := s.registry.GetEndpointByName(ctx, *req.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrNameTaken
		}
		ep.Name = *req.Name
	}
	if req.Description != nil {
		ep.Description = *req.Description
	}
	if req.Visibility != nil {
		if !models.ValidVisibility(*req.Visibility) {
			return nil, fmt.Errorf("无效的可见性: %s", *req.Visibility)
		}
		ep.Visibility = *req.Visibility
	}
	if req.Metadata != nil {
		ep.Metadata = req.Metadata
	}

	if req.Code != nil {
		if *req.Code == "" {
			return nil, fmt.Errorf("代码不能为空")
		}
		if err := s.storage.Save(ctx, ep.CodeKey, *req.Code); err != nil {
			return nil, err
		}
	}

	if err := s.registry.UpdateEndpoint(ctx, ep); err != nil {
		return nil, err
	}

	return ep, nil
}

// Toggle flips the active flag for the owner
func (s *EndpointService) Toggle(ctx context.Context, id, userID int64) (bool, error) {
	ep, err := s.registry.GetEndpoint(ctx, id)
	if err != nil {
		return false, err
	}
	if ep == nil {
		return false, ErrEndpointNotFound
	}
	if ep.UserID != userID {
		return false, ErrNotOwner
	}

	if err := s.registry.SetEndpointActive(ctx, id, !ep.IsActive); err != nil {
		return false, err
	}

	return !ep.IsActive, nil
}

// Delete removes an endpoint for its owner or an admin
func (s *EndpointService) Delete(ctx context.Context, id int64, caller models.Identity) error {
	ep, err := s.registry.GetEndpoint(ctx, id)
	if err != nil {
		return err
	}
	if ep == nil {
		return ErrEndpointNotFound
	}
	if ep.UserID != caller.UserID && !caller.IsAdmin {
		return ErrNotOwner
	}

	// Stored code is best-effort cleanup; the row is authoritative.
	if err := s.storage.Delete(ctx, ep.CodeKey); err != nil {
		log.Printf("endpoint %s: code cleanup failed: %v", ep.Name, err)
	}

	return s.registry.DeleteEndpoint(ctx, id)
}
