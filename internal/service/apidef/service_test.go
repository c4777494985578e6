package apidef

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
	apis        map[string]domain.API
	memberships map[string]domain.Membership
}

func newMemStore() *memStore {
	return &memStore{
		apis:        make(map[string]domain.API),
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

func (s *memStore) CreateAPI(ctx context.Context, api *domain.API, userID string, roles []domain.Role) (int64, error) {
	ok, _ := s.HasRole(ctx, userID, domain.ProjectScope(api.ProjectID), roles)
	if !ok {
		return 0, nil
	}
	s.apis[api.ID] = *api
	return 1, nil
}

func (s *memStore) GetAPIForUser(ctx context.Context, apiID, userID string) (*domain.API, error) {
	api, ok := s.apis[apiID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if _, member := s.memberships[key(userID, domain.ProjectScope(api.ProjectID))]; !member {
		return nil, repository.ErrNotFound
	}
	return &api, nil
}

func (s *memStore) ListAPIsForUser(ctx context.Context, userID, projectID string) ([]domain.API, error) {
	apis := make([]domain.API, 0)
	for _, api := range s.apis {
		if projectID != "" && api.ProjectID != projectID {
			continue
		}
		if _, member := s.memberships[key(userID, domain.ProjectScope(api.ProjectID))]; member {
			apis = append(apis, api)
		}
	}
	return apis, nil
}

func (s *memStore) UpdateAPI(ctx context.Context, api *domain.API, userID string, roles []domain.Role) (int64, error) {
	stored, exists := s.apis[api.ID]
	if !exists {
		return 0, nil
	}
	ok, _ := s.HasRole(ctx, userID, domain.ProjectScope(stored.ProjectID), roles)
	if !ok {
		return 0, nil
	}
	api.ProjectID = stored.ProjectID
	api.CreatedAt = stored.CreatedAt
	s.apis[api.ID] = *api
	return 1, nil
}

func (s *memStore) DeleteAPI(ctx context.Context, apiID, userID string, roles []domain.Role) (int64, error) {
	stored, exists := s.apis[apiID]
	if !exists {
		return 0, nil
	}
	ok, _ := s.HasRole(ctx, userID, domain.ProjectScope(stored.ProjectID), roles)
	if !ok {
		return 0, nil
	}
	delete(s.apis, apiID)
	return 1, nil
}

func testService(store *memStore) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, authz.New(store, log), log)
}

func grant(store *memStore, userID, projectID string, role domain.Role) {
	store.memberships[key(userID, domain.ProjectScope(projectID))] = domain.Membership{
		UserID: userID, ScopeKind: domain.ScopeProject, ScopeID: projectID, Role: role,
	}
}

func validInput(projectID string) Input {
	return Input{
		ProjectID: projectID,
		Name:      "list users",
		Endpoint:  "https://api.example.com/users",
		Method:    "GET",
		Tags:      []string{"users"},
		Versions:  []string{"v1"},
		Order:     1,
	}
}

func TestCreateRequiresEditorRoleOnTargetProject(t *testing.T) {
	store := newMemStore()
	svc := testService(store)

	// no membership anywhere
	_, err := svc.Create(context.Background(), "user-1", validInput("proj-1"))
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)

	// member role is not enough
	grant(store, "user-2", "proj-1", domain.RoleMember)
	_, err = svc.Create(context.Background(), "user-2", validInput("proj-1"))
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)

	// editor role on an unrelated project does not carry over
	grant(store, "user-3", "proj-other", domain.RoleMaintainer)
	_, err = svc.Create(context.Background(), "user-3", validInput("proj-1"))
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)
}

func TestCreateSucceedsForOwnerAndMaintainer(t *testing.T) {
	store := newMemStore()
	svc := testService(store)

	grant(store, "owner", "proj-1", domain.RoleOwner)
	grant(store, "maintainer", "proj-1", domain.RoleMaintainer)

	byOwner, err := svc.Create(context.Background(), "owner", validInput("proj-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.MethodGet, byOwner.Method)

	byMaintainer, err := svc.Create(context.Background(), "maintainer", validInput("proj-1"))
	require.NoError(t, err)
	assert.NotEqual(t, byOwner.ID, byMaintainer.ID)
}

func TestCreateRejectsUnknownMethodAndStatus(t *testing.T) {
	store := newMemStore()
	grant(store, "owner", "proj-1", domain.RoleOwner)
	svc := testService(store)

	input := validInput("proj-1")
	input.Method = "TRACE"
	_, err := svc.Create(context.Background(), "owner", input)
	require.Error(t, err)
	assert.True(t, validate.IsValidation(err))

	input = validInput("proj-1")
	input.Status = "retired"
	_, err = svc.Create(context.Background(), "owner", input)
	require.Error(t, err)
	assert.True(t, validate.IsValidation(err))
}

func TestOpaquePayloadsPassThrough(t *testing.T) {
	store := newMemStore()
	grant(store, "owner", "proj-1", domain.RoleOwner)
	svc := testService(store)

	input := validInput("proj-1")
	input.Headers = []byte(`{"X-Trace":"1"}`)
	input.PreRequestScript = "ctx.headers.set('X-Stamp', now())"

	created, err := svc.Create(context.Background(), "owner", input)
	require.NoError(t, err)

	found, err := svc.Show(context.Background(), "owner", created.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"X-Trace":"1"}`, string(found.Headers))
	assert.Equal(t, input.PreRequestScript, found.PreRequestScript)
}

func TestShowHiddenWithoutProjectMembership(t *testing.T) {
	store := newMemStore()
	grant(store, "owner", "proj-1", domain.RoleOwner)
	svc := testService(store)

	created, err := svc.Create(context.Background(), "owner", validInput("proj-1"))
	require.NoError(t, err)

	_, err = svc.Show(context.Background(), "stranger", created.ID)
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)
}

func TestListScopedToProject(t *testing.T) {
	store := newMemStore()
	grant(store, "owner", "proj-1", domain.RoleOwner)
	grant(store, "owner", "proj-2", domain.RoleOwner)
	svc := testService(store)

	_, err := svc.Create(context.Background(), "owner", validInput("proj-1"))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "owner", validInput("proj-2"))
	require.NoError(t, err)

	all, err := svc.List(context.Background(), "owner", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := svc.List(context.Background(), "owner", "proj-1")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "proj-1", scoped[0].ProjectID)

	_, err = svc.List(context.Background(), "stranger", "proj-1")
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)
}

func TestUpdateAuthorizesAgainstStoredProject(t *testing.T) {
	store := newMemStore()
	grant(store, "owner", "proj-b", domain.RoleOwner)
	svc := testService(store)

	created, err := svc.Create(context.Background(), "owner", validInput("proj-b"))
	require.NoError(t, err)

	// editor elsewhere, member here; the payload names the editable
	// project but the check must follow the row's owning project
	grant(store, "user-2", "proj-a", domain.RoleMaintainer)
	grant(store, "user-2", "proj-b", domain.RoleMember)

	patch := validInput("proj-a")
	patch.Endpoint = "https://api.example.com/hijacked"
	err = svc.Update(context.Background(), "user-2", created.ID, patch)
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)

	found, err := svc.Show(context.Background(), "owner", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/users", found.Endpoint)
}

func TestUpdateAndDeleteFollowEditorRoles(t *testing.T) {
	store := newMemStore()
	grant(store, "owner", "proj-1", domain.RoleOwner)
	grant(store, "member", "proj-1", domain.RoleMember)
	svc := testService(store)

	created, err := svc.Create(context.Background(), "owner", validInput("proj-1"))
	require.NoError(t, err)

	patch := validInput("proj-1")
	patch.Endpoint = "https://api.example.com/v2/users"

	err = svc.Update(context.Background(), "member", created.ID, patch)
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)

	require.NoError(t, svc.Update(context.Background(), "owner", created.ID, patch))

	err = svc.Delete(context.Background(), "member", created.ID)
	assert.ErrorIs(t, err, authz.ErrNotFoundOrDenied)

	require.NoError(t, svc.Delete(context.Background(), "owner", created.ID))
}
