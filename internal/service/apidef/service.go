package apidef

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/apiforge/apiforge/internal/domain"
	"github.com/apiforge/apiforge/internal/repository"
	"github.com/apiforge/apiforge/internal/service/authz"
	"github.com/apiforge/apiforge/pkg/validate"
)

// Input carries an API definition payload. The params, body, headers
// and authorization documents plus both scripts pass through opaque;
// only presence and shape are checked here.
type Input struct {
	ProjectID          string          `json:"project_id" validate:"required"`
	Name               string          `json:"name" validate:"omitempty,min=3,max=50"`
	Description        string          `json:"description" validate:"omitempty,min=3,max=255"`
	Endpoint           string          `json:"endpoint" validate:"required"`
	Method             string          `json:"method" validate:"required"`
	Params             json.RawMessage `json:"params"`
	Body               json.RawMessage `json:"body"`
	Headers            json.RawMessage `json:"headers"`
	Authorization      json.RawMessage `json:"authorization"`
	PreRequestScript   string          `json:"pre_request_script"`
	PostResponseScript string          `json:"post_response_script"`
	Tags               []string        `json:"tags"`
	Versions           []string        `json:"versions"`
	Order              int             `json:"order"`
	Status             string          `json:"status"`
}

// Roles allowed to create and edit API definitions on a project.
var editorRoles = domain.RolesWith(domain.ActionCreateAPI)

// Service manages API definitions under projects.
type Service struct {
	apis   repository.APIRepository
	guard  authz.Service
	logger *slog.Logger
}

// New constructs a Service.
func New(apis repository.APIRepository, guard authz.Service, logger *slog.Logger) Service {
	return Service{apis: apis, guard: guard, logger: logger}
}

func (s Service) buildAPI(id string, input Input, now time.Time) (*domain.API, error) {
	method, err := domain.ParseHTTPMethod(input.Method)
	if err != nil {
		return nil, &validate.Error{Field: "Method", Constraint: "oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"}
	}
	var status domain.APIStatus
	if input.Status != "" {
		status, err = domain.ParseAPIStatus(input.Status)
		if err != nil {
			return nil, &validate.Error{Field: "Status", Constraint: "oneof=draft active deprecated"}
		}
	}
	return &domain.API{
		ID:                 id,
		ProjectID:          input.ProjectID,
		Name:               input.Name,
		Description:        input.Description,
		Endpoint:           input.Endpoint,
		Method:             method,
		Params:             input.Params,
		Body:               input.Body,
		Headers:            input.Headers,
		Authorization:      input.Authorization,
		PreRequestScript:   input.PreRequestScript,
		PostResponseScript: input.PostResponseScript,
		Tags:               input.Tags,
		Versions:           input.Versions,
		Order:              input.Order,
		Status:             status,
		UpdatedAt:          now,
	}, nil
}

// Create stores a definition under the target project. The check is
// scoped to that project: owner or maintainer there, nowhere else.
func (s Service) Create(ctx context.Context, userID string, input Input) (*domain.API, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	api, err := s.buildAPI(uuid.NewString(), input, now)
	if err != nil {
		return nil, err
	}
	api.CreatedAt = now
	if err := s.guard.Authorize(ctx, userID, domain.ProjectScope(input.ProjectID), editorRoles...); err != nil {
		return nil, err
	}
	affected, err := s.apis.CreateAPI(ctx, api, userID, editorRoles)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, authz.ErrNotFoundOrDenied
	}
	s.logger.Info("api created", "api_id", api.ID, "project_id", api.ProjectID, "user_id", userID)
	return api, nil
}

// List returns definitions visible to the user, optionally restricted
// to one project.
func (s Service) List(ctx context.Context, userID, projectID string) ([]domain.API, error) {
	if projectID != "" {
		if err := s.guard.Authorize(ctx, userID, domain.ProjectScope(projectID)); err != nil {
			return nil, err
		}
	}
	return s.apis.ListAPIsForUser(ctx, userID, projectID)
}

// Show returns a single definition the user may see.
func (s Service) Show(ctx context.Context, userID, apiID string) (*domain.API, error) {
	api, err := s.apis.GetAPIForUser(ctx, apiID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, authz.ErrNotFoundOrDenied
		}
		return nil, err
	}
	return api, nil
}

// Update patches a definition. Owner or maintainer of the owning
// project.
func (s Service) Update(ctx context.Context, userID, apiID string, input Input) error {
	if err := validate.Struct(input); err != nil {
		return err
	}
	api, err := s.buildAPI(apiID, input, time.Now().UTC())
	if err != nil {
		return err
	}
	// The guard scope comes from the stored row, never from the
	// payload: the owning project is immutable and callers do not get
	// to pick which scope the check runs against.
	stored, err := s.apis.GetAPIForUser(ctx, apiID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return authz.ErrNotFoundOrDenied
		}
		return err
	}
	if err := s.guard.Authorize(ctx, userID, domain.ProjectScope(stored.ProjectID), editorRoles...); err != nil {
		return err
	}
	affected, err := s.apis.UpdateAPI(ctx, api, userID, editorRoles)
	if err != nil {
		return err
	}
	if affected == 0 {
		return authz.ErrNotFoundOrDenied
	}
	s.logger.Info("api updated", "api_id", apiID, "user_id", userID)
	return nil
}

// Delete removes a definition. Owner or maintainer of the owning
// project.
func (s Service) Delete(ctx context.Context, userID, apiID string) error {
	affected, err := s.apis.DeleteAPI(ctx, apiID, userID, editorRoles)
	if err != nil {
		return err
	}
	if affected == 0 {
		return authz.ErrNotFoundOrDenied
	}
	s.logger.Info("api deleted", "api_id", apiID, "user_id", userID)
	return nil
}
