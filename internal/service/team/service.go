package team

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

// CreateInput encapsulates team creation attributes.
type CreateInput struct {
	Name        string `json:"name" validate:"required,min=3,max=50"`
	Description string `json:"description" validate:"omitempty,max=255"`
}

// UpdateInput carries a team patch.
type UpdateInput struct {
	Name        string `json:"name" validate:"required,min=3,max=50"`
	Description string `json:"description" validate:"omitempty,max=255"`
}

var teamMutationRoles = domain.RolesWith(domain.ActionMutateScope)

// Service handles team workflows.
type Service struct {
	teams  repository.TeamRepository
	guard  authz.Service
	logger *slog.Logger
}

// New constructs a Service.
func New(teams repository.TeamRepository, guard authz.Service, logger *slog.Logger) Service {
	return Service{teams: teams, guard: guard, logger: logger}
}

// Create registers a team and makes the creator its owner. Both rows
// land in one transaction.
func (s Service) Create(ctx context.Context, userID string, input CreateInput) (*domain.Team, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	team := &domain.Team{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	owner := &domain.Membership{
		UserID:    userID,
		ScopeKind: domain.ScopeTeam,
		ScopeID:   team.ID,
		Role:      domain.RoleOwner,
		CreatedAt: now,
	}
	if err := s.teams.CreateTeamWithOwner(ctx, team, owner); err != nil {
		return nil, err
	}
	s.logger.Info("team created", "team_id", team.ID, "owner_id", userID)
	return team, nil
}

// List returns teams the user belongs to.
func (s Service) List(ctx context.Context, userID string) ([]domain.Team, error) {
	return s.teams.ListTeamsForUser(ctx, userID)
}

// Show returns a single team the user belongs to.
func (s Service) Show(ctx context.Context, userID, teamID string) (*domain.Team, error) {
	if err := s.guard.Authorize(ctx, userID, domain.TeamScope(teamID)); err != nil {
		return nil, err
	}
	team, err := s.teams.GetTeamForUser(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, authz.ErrNotFoundOrDenied
		}
		return nil, err
	}
	return team, nil
}

// Update renames the team. Owner only; zero affected rows surface as
// the not-found outcome.
func (s Service) Update(ctx context.Context, userID, teamID string, input UpdateInput) error {
	if err := validate.Struct(input); err != nil {
		return err
	}
	if err := s.guard.Authorize(ctx, userID, domain.TeamScope(teamID), teamMutationRoles...); err != nil {
		return err
	}
	team := &domain.Team{
		ID:          teamID,
		Name:        input.Name,
		Description: input.Description,
		UpdatedAt:   time.Now().UTC(),
	}
	affected, err := s.teams.UpdateTeam(ctx, team, userID, teamMutationRoles)
	if err != nil {
		return err
	}
	if affected == 0 {
		return authz.ErrNotFoundOrDenied
	}
	s.logger.Info("team updated", "team_id", teamID, "user_id", userID)
	return nil
}

// Delete removes the team and everything under it. Owner only.
func (s Service) Delete(ctx context.Context, userID, teamID string) error {
	if err := s.guard.Authorize(ctx, userID, domain.TeamScope(teamID), teamMutationRoles...); err != nil {
		return err
	}
	affected, err := s.teams.DeleteTeam(ctx, teamID, userID, teamMutationRoles)
	if err != nil {
		return err
	}
	if affected == 0 {
		return authz.ErrNotFoundOrDenied
	}
	s.logger.Info("team deleted", "team_id", teamID, "user_id", userID)
	return nil
}
