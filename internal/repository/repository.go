package repository

import (
	"context"

	"github.com/apiforge/apiforge/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// MembershipRepository is the source of truth for authorization
// decisions. Every check is a fresh lookup; nothing is cached.
type MembershipRepository interface {
	FindMembership(ctx context.Context, userID string, scope domain.Scope) (*domain.Membership, error)
	HasRole(ctx context.Context, userID string, scope domain.Scope, roles []domain.Role) (bool, error)
	CreateMembership(ctx context.Context, membership *domain.Membership) error
}

// TeamRepository manages teams. Creation inserts the team and the
// creator's owner membership in one transaction; scoped reads and
// role-gated writes carry the membership predicate in the statement
// itself.
type TeamRepository interface {
	CreateTeamWithOwner(ctx context.Context, team *domain.Team, owner *domain.Membership) error
	GetTeamForUser(ctx context.Context, teamID, userID string) (*domain.Team, error)
	ListTeamsForUser(ctx context.Context, userID string) ([]domain.Team, error)
	UpdateTeam(ctx context.Context, team *domain.Team, userID string, roles []domain.Role) (int64, error)
	DeleteTeam(ctx context.Context, teamID, userID string, roles []domain.Role) (int64, error)
}

// ProjectRepository manages projects with the same membership-filtered
// contract as TeamRepository. Unlike teams, a project is born inside an
// existing scope, so its insert carries the team membership predicate
// too: zero rows means the creator no longer holds a listed role on the
// team.
type ProjectRepository interface {
	CreateProjectWithOwner(ctx context.Context, project *domain.Project, owner *domain.Membership, teamRoles []domain.Role) (int64, error)
	GetProjectForUser(ctx context.Context, projectID, userID string) (*domain.Project, error)
	ListProjectsForUser(ctx context.Context, userID, teamID string) ([]domain.Project, error)
	UpdateProject(ctx context.Context, project *domain.Project, userID string, roles []domain.Role) (int64, error)
	DeleteProject(ctx context.Context, projectID, userID string, roles []domain.Role) (int64, error)
}

// APIRepository manages API definitions. APIs have no memberships of
// their own; predicates resolve through the owning project.
type APIRepository interface {
	CreateAPI(ctx context.Context, api *domain.API, userID string, roles []domain.Role) (int64, error)
	GetAPIForUser(ctx context.Context, apiID, userID string) (*domain.API, error)
	ListAPIsForUser(ctx context.Context, userID, projectID string) ([]domain.API, error)
	UpdateAPI(ctx context.Context, api *domain.API, userID string, roles []domain.Role) (int64, error)
	DeleteAPI(ctx context.Context, apiID, userID string, roles []domain.Role) (int64, error)
}
