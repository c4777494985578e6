package project

import (
	"context"
	"io"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiforge/apiforge/internal/domain"
	"github.com/apiforge/apiforge/internal/repository"
	"github.com/apiforge/apiforge/internal/service/authz"
	"github.com/apiforge/apiforge/pkg/validate"
)

type memStore struct {
	projects    map[string]domain.Project
	memberships map[string]domain.Membership
}

func newMemStore() *memStore {
	return &memStore{
		projects:    make(map[string]domain.Project),
		memberships: make(map[string]domain.Membership),
	}
}

func key(userID string, scope domain.Scope) string {
	return userID + "|" + string(scope.Kind) + "|" + scope.ID
}

func (s *memStore) FindMembership(ctx context.Context, userID string, scope domain.Scope) (*domain.Membership, error) {
	m, ok := s.memberships[key(userID, scope)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (s *memStore) HasRole(ctx context.Context, userID string, scope domain.Scope, roles []domain.Role) (bool, error) {
	m, ok := s.memberships[key(userID, scope)]
	if !ok {
		return false, nil
	}
	for _, role := range roles {
		if m.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateMembership(ctx context.Context, membership *domain.Membership) error {
	k := key(membership.UserID, membership.Scope())
	if _, ok := s.memberships[k]; ok {
		return repository.ErrDuplicateMembership
	}
	s.memberships[k] = *membership
	return nil
}

func (s *memStore) CreateProjectWithOwner(ctx context.Context, project *domain.Project, owner *domain.Membership, teamRoles []domain.Role) (int64, error) {
	ok, _ := s.HasRole(ctx, owner.UserID, domain.TeamScope(project.TeamID), teamRoles)
	if !ok {
		return 0, nil
	}
	if err := s.CreateMembership(ctx, owner); err != nil {
		return 0, err
	}
	s.projects[project.ID] = *project
	return 1, nil
}

// revokingStore drops the creator's team membership right before the
// insert, standing in for a concurrent revocation landing between the
// guard check and the write.
type revokingStore struct {
	*memStore
}

func (s revokingStore) CreateProjectWithOwner(ctx context.Context, project *domain.Project, owner *domain.Membership, teamRoles []domain.Role) (int64, error) {
	delete(s.memberships, key(owner.UserID, domain.TeamScope(project.TeamID)))
	return s.memStore.CreateProjectWithOwner(ctx, project, owner, teamRoles)
}

func (s *memStore) GetProjectForUser(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	if _, ok := s.memberships[key(userID, domain.ProjectScope(projectID))]; !ok {
		return nil, repository.ErrNotFound
	}
	project, ok := s.projects[projectID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &project, nil
}

func (s *memStore) ListProjectsForUser(ctx context.Context, userID, teamID string) ([]domain.Project, error) {
	projects := make([]domain.Project, 0)
	for _, project := range s.projects {
		if teamID != "" && project.TeamID != teamID {
			continue
		}
		if _, ok := s.memberships[key(userID, domain.ProjectScope(project.ID))]; ok {
			projects = append(projects, project)
		}
	}
	return projects, nil
}

func (s *memStore) UpdateProject(ctx context.Context, project *domain.Project, userID string, roles []domain.Role) (int64, error) {
	ok, _ := s.HasRole(ctx, userID, domain.ProjectScope(project.ID), roles)
	if !ok {
		return 0, nil
	}
	stored, exists := s.projects[project.ID]
	if !exists {
		return 0, nil
	}
	stored.Name = project.Name
	stored.Description = project.Description
	stored.Visibility = project.Visibility
	stored.UpdatedAt = project.UpdatedAt
	s.projects[project.ID] = stored
	return 1, nil
}

func (s *memStore) DeleteProject(ctx context.Context, projectID, userID string, roles []domain.Role) (int64, error) {
	ok, _ := s.HasRole(ctx, userID, domain.ProjectScope(projectID), roles)
	if !ok {
		return 0, nil
	}
	if _, exists := s.projects[projectID]; !exists {
		return 0, nil
	}
	delete(s.projects, projectID)
	return 1, nil
}

func testService(store *memStore) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, authz.New(store, log), log)
}

func grantTeamOwner(store *memStore, userID, teamID string) {
	store.memberships[key(userID, domain.TeamScope(teamID))] = domain.Membership{
		UserID: userID, ScopeKind: domain.ScopeTeam, ScopeID: teamID, Role: domain.RoleOwner,
	}
}

func validInput(teamID string) CreateInput {
	return CreateInput{
		TeamID:      teamID,
		Name:        "checkout",
		Description: "checkout service APIs",
		Visibility:  "PRIVATE",
	}
}

func TestCreateRequiresTeamOwner(t *testing.T) {
	store := newMemStore()
	svc := testService(store)

	_, err := svc.Create(context.Background(), "user-1", validInput("team-1"))
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)
}

func TestCreateAssignsProjectOwnerMembership(t *testing.T) {
	store := newMemStore()
	grantTeamOwner(store, "user-1", "team-1")
	svc := testService(store)

	created, err := svc.Create(context.Background(), "user-1", validInput("team-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityPrivate, created.Visibility)

	m, err := store.FindMembership(context.Background(), "user-1", domain.ProjectScope(created.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, m.Role)
}

func TestCreateRevokedTeamRoleSurfacesNotFound(t *testing.T) {
	store := newMemStore()
	grantTeamOwner(store, "user-1", "team-1")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(revokingStore{store}, authz.New(store, log), log)

	// the guard sees the ownership, the store no longer does
	_, err := svc.Create(context.Background(), "user-1", validInput("team-1"))
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)
	assert.Empty(t, store.projects)

	projects, err := svc.List(context.Background(), "user-1", "")
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestCreateRejectsUnknownVisibility(t *testing.T) {
	store := newMemStore()
	grantTeamOwner(store, "user-1", "team-1")
	svc := testService(store)

	input := validInput("team-1")
	input.Visibility = "internal"
	_, err := svc.Create(context.Background(), "user-1", input)
	require.Error(t, err)
	assert.True(t, validate.IsValidation(err))
}

func TestListExcludesProjectsWithoutMembership(t *testing.T) {
	store := newMemStore()
	grantTeamOwner(store, "user-1", "team-1")
	svc := testService(store)

	created, err := svc.Create(context.Background(), "user-1", validInput("team-1"))
	require.NoError(t, err)

	mine, err := svc.List(context.Background(), "user-1", "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	// user-2 has no membership anywhere, the private project stays hidden
	theirs, err := svc.List(context.Background(), "user-2", "")
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestMemberCanShowButNotUpdate(t *testing.T) {
	store := newMemStore()
	grantTeamOwner(store, "user-1", "team-1")
	svc := testService(store)

	created, err := svc.Create(context.Background(), "user-1", validInput("team-1"))
	require.NoError(t, err)

	require.NoError(t, store.CreateMembership(context.Background(), &domain.Membership{
		UserID: "user-2", ScopeKind: domain.ScopeProject, ScopeID: created.ID, Role: domain.RoleMember,
	}))

	found, err := svc.Show(context.Background(), "user-2", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	err = svc.Update(context.Background(), "user-2", created.ID, UpdateInput{
		Name: "renamed", Description: "renamed description", Visibility: "PRIVATE",
	})
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)
}

func TestShowRoundTripPreservesFields(t *testing.T) {
	store := newMemStore()
	grantTeamOwner(store, "user-1", "team-1")
	svc := testService(store)

	input := validInput("team-1")
	created, err := svc.Create(context.Background(), "user-1", input)
	require.NoError(t, err)

	found, err := svc.Show(context.Background(), "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, input.Name, found.Name)
	assert.Equal(t, input.Description, found.Description)
	assert.Equal(t, domain.VisibilityPrivate, found.Visibility)
}

func TestDeleteByOwnerRemovesProject(t *testing.T) {
	store := newMemStore()
	grantTeamOwner(store, "user-1", "team-1")
	svc := testService(store)

	created, err := svc.Create(context.Background(), "user-1", validInput("team-1"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "user-1", created.ID))

	_, err = svc.Show(context.Background(), "user-1", created.ID)
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)
}
