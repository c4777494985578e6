package team

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

// memStore backs both the team repository and the guard's membership
// lookups for tests.
type memStore struct {
	teams       map[string]domain.Team
	memberships map[string]domain.Membership
	updateRows  int64
	deleteRows  int64
}

func newMemStore() *memStore {
	return &memStore{
		teams:       make(map[string]domain.Team),
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

func (s *memStore) CreateTeamWithOwner(ctx context.Context, team *domain.Team, owner *domain.Membership) error {
	if err := s.CreateMembership(ctx, owner); err != nil {
		return err
	}
	s.teams[team.ID] = *team
	return nil
}

func (s *memStore) GetTeamForUser(ctx context.Context, teamID, userID string) (*domain.Team, error) {
	if _, ok := s.memberships[key(userID, domain.TeamScope(teamID))]; !ok {
		return nil, repository.ErrNotFound
	}
	team, ok := s.teams[teamID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &team, nil
}

func (s *memStore) ListTeamsForUser(ctx context.Context, userID string) ([]domain.Team, error) {
	teams := make([]domain.Team, 0)
	for _, team := range s.teams {
		if _, ok := s.memberships[key(userID, domain.TeamScope(team.ID))]; ok {
			teams = append(teams, team)
		}
	}
	return teams, nil
}

func (s *memStore) UpdateTeam(ctx context.Context, team *domain.Team, userID string, roles []domain.Role) (int64, error) {
	ok, _ := s.HasRole(ctx, userID, domain.TeamScope(team.ID), roles)
	if !ok {
		return 0, nil
	}
	return s.updateRows, nil
}

func (s *memStore) DeleteTeam(ctx context.Context, teamID, userID string, roles []domain.Role) (int64, error) {
	ok, _ := s.HasRole(ctx, userID, domain.TeamScope(teamID), roles)
	if !ok {
		return 0, nil
	}
	return s.deleteRows, nil
}

func testService(store *memStore) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, authz.New(store, log), log)
}

func TestCreateAssignsOwnerMembership(t *testing.T) {
	store := newMemStore()
	svc := testService(store)

	created, err := svc.Create(context.Background(), "user-1", CreateInput{Name: "platform"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	m, err := store.FindMembership(context.Background(), "user-1", domain.TeamScope(created.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, m.Role)
	assert.Equal(t, domain.ScopeTeam, m.ScopeKind)
}

func TestCreateRejectsShortName(t *testing.T) {
	svc := testService(newMemStore())

	_, err := svc.Create(context.Background(), "user-1", CreateInput{Name: "ab"})
	require.Error(t, err)
	assert.True(t, validate.IsValidation(err))
}

func TestShowHidesTeamFromNonMembers(t *testing.T) {
	store := newMemStore()
	svc := testService(store)

	created, err := svc.Create(context.Background(), "user-1", CreateInput{Name: "platform"})
	require.NoError(t, err)

	found, err := svc.Show(context.Background(), "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, found.Name)

	_, err = svc.Show(context.Background(), "stranger", created.ID)
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)
}

func TestListReturnsOnlyMemberTeams(t *testing.T) {
	store := newMemStore()
	svc := testService(store)

	created, err := svc.Create(context.Background(), "user-1", CreateInput{Name: "platform"})
	require.NoError(t, err)

	mine, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	theirs, err := svc.List(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestUpdateRequiresOwnerRole(t *testing.T) {
	store := newMemStore()
	store.updateRows = 1
	svc := testService(store)

	created, err := svc.Create(context.Background(), "user-1", CreateInput{Name: "platform"})
	require.NoError(t, err)

	require.NoError(t, store.CreateMembership(context.Background(), &domain.Membership{
		UserID: "user-2", ScopeKind: domain.ScopeTeam, ScopeID: created.ID, Role: domain.RoleMember,
	}))

	err = svc.Update(context.Background(), "user-2", created.ID, UpdateInput{Name: "renamed"})
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)

	require.NoError(t, svc.Update(context.Background(), "user-1", created.ID, UpdateInput{Name: "renamed"}))
}

func TestDeleteZeroRowsSurfacesNotFound(t *testing.T) {
	store := newMemStore()
	svc := testService(store)

	created, err := svc.Create(context.Background(), "user-1", CreateInput{Name: "platform"})
	require.NoError(t, err)

	// store reports no rows affected even for the owner
	store.deleteRows = 0
	err = svc.Delete(context.Background(), "user-1", created.ID)
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)
}
