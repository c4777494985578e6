package project

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/apiforge/apiforge/internal/domain"
	"github.com/apiforge/apiforge/internal/repository"
	"github.com/apiforge/apiforge/internal/service/authz"
	"github.com/apiforge/apiforge/pkg/validate"
)

// CreateInput encapsulates project creation attributes.
type CreateInput struct {
	TeamID      string `json:"team_id" validate:"required"`
	Name        string `json:"name" validate:"required,min=3,max=50"`
	Description string `json:"description" validate:"required,min=3,max=255"`
	Visibility  string `json:"visibility" validate:"required"`
}

// UpdateInput carries a project patch.
type UpdateInput struct {
	Name        string `json:"name" validate:"required,min=3,max=50"`
	Description string `json:"description" validate:"required,min=3,max=255"`
	Visibility  string `json:"visibility" validate:"required"`
}

var projectMutationRoles = domain.RolesWith(domain.ActionMutateScope)

// Service orchestrates project management.
type Service struct {
	projects repository.ProjectRepository
	guard    authz.Service
	logger   *slog.Logger
}

// New returns a project service.
func New(projects repository.ProjectRepository, guard authz.Service, logger *slog.Logger) Service {
	return Service{projects: projects, guard: guard, logger: logger}
}

// Create registers a project under a team the caller owns and makes
// the caller the project's owner in the same transaction as the
// project row.
func (s Service) Create(ctx context.Context, userID string, input CreateInput) (*domain.Project, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	visibility, err := domain.ParseVisibility(input.Visibility)
	if err != nil {
		return nil, &validate.Error{Field: "Visibility", Constraint: "oneof=PUBLIC PRIVATE"}
	}
	if err := s.guard.Authorize(ctx, userID, domain.TeamScope(input.TeamID), projectMutationRoles...); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	project := &domain.Project{
		ID:          uuid.NewString(),
		TeamID:      input.TeamID,
		Name:        input.Name,
		Description: input.Description,
		Visibility:  visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	owner := &domain.Membership{
		UserID:    userID,
		ScopeKind: domain.ScopeProject,
		ScopeID:   project.ID,
		Role:      domain.RoleOwner,
		CreatedAt: now,
	}
	affected, err := s.projects.CreateProjectWithOwner(ctx, project, owner, projectMutationRoles)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, authz.ErrNotFoundOrDenied
	}
	s.logger.Info("project created", "project_id", project.ID, "team_id", project.TeamID, "owner_id", userID)
	return project, nil
}

// List returns projects the user belongs to, optionally restricted to
// one team.
func (s Service) List(ctx context.Context, userID, teamID string) ([]domain.Project, error) {
	return s.projects.ListProjectsForUser(ctx, userID, teamID)
}

// Show returns a single project the user belongs to.
func (s Service) Show(ctx context.Context, userID, projectID string) (*domain.Project, error) {
	if err := s.guard.Authorize(ctx, userID, domain.ProjectScope(projectID)); err != nil {
		return nil, err
	}
	project, err := s.projects.GetProjectForUser(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, authz.ErrNotFoundOrDenied
		}
		return nil, err
	}
	return project, nil
}

// Update patches the project. Owner only.
func (s Service) Update(ctx context.Context, userID, projectID string, input UpdateInput) error {
	if err := validate.Struct(input); err != nil {
		return err
	}
	visibility, err := domain.ParseVisibility(input.Visibility)
	if err != nil {
		return &validate.Error{Field: "Visibility", Constraint: "oneof=PUBLIC PRIVATE"}
	}
	if err := s.guard.Authorize(ctx, userID, domain.ProjectScope(projectID), projectMutationRoles...); err != nil {
		return err
	}
	project := &domain.Project{
		ID:          projectID,
		Name:        input.Name,
		Description: input.Description,
		Visibility:  visibility,
		UpdatedAt:   time.Now().UTC(),
	}
	affected, err := s.projects.UpdateProject(ctx, project, userID, projectMutationRoles)
	if err != nil {
		return err
	}
	if affected == 0 {
		return authz.ErrNotFoundOrDenied
	}
	s.logger.Info("project updated", "project_id", projectID, "user_id", userID)
	return nil
}

// Delete removes the project and its API definitions. Owner only.
func (s Service) Delete(ctx context.Context, userID, projectID string) error {
	if err := s.guard.Authorize(ctx, userID, domain.ProjectScope(projectID), projectMutationRoles...); err != nil {
		return err
	}
	affected, err := s.projects.DeleteProject(ctx, projectID, userID, projectMutationRoles)
	if err != nil {
		return err
	}
	if affected == 0 {
		return authz.ErrNotFoundOrDenied
	}
	s.logger.Info("project deleted", "project_id", projectID, "user_id", userID)
	return nil
}
