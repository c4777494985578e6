package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/apiforge/apiforge/internal/domain"
	"github.com/apiforge/apiforge/internal/repository"
)

const apiColumns = `id, project_id, name, description, endpoint, method,
	params, body, headers, authorization, pre_request_script, post_response_script,
	tags, versions, sort_order, status, created_at, updated_at`

func scanAPI(row pgx.Row) (*domain.API, error) {
	var api domain.API
	var status *string
	err := row.Scan(&api.ID, &api.ProjectID, &api.Name, &api.Description, &api.Endpoint, &api.Method,
		&api.Params, &api.Body, &api.Headers, &api.Authorization,
		&api.PreRequestScript, &api.PostResponseScript,
		&api.Tags, &api.Versions, &api.Order, &status, &api.CreatedAt, &api.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if status != nil {
		api.Status = domain.APIStatus(*status)
	}
	return &api, nil
}

func statusParam(status domain.APIStatus) *string {
	if status == "" {
		return nil
	}
	s := string(status)
	return &s
}

// CreateAPI inserts the definition only when the user holds one of the
// roles on the owning project. The INSERT carries the membership
// predicate itself, so a revoked role cannot race past the guard.
func (r *Repository) CreateAPI(ctx context.Context, api *domain.API, userID string, roles []domain.Role) (int64, error) {
	const query = `INSERT INTO apis (id, project_id, name, description, endpoint, method,
			params, body, headers, authorization, pre_request_script, post_response_script,
			tags, versions, sort_order, status, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		WHERE EXISTS (
			SELECT 1 FROM memberships m
			WHERE m.scope_kind = 'project' AND m.scope_id = $2
				AND m.user_id = $19 AND m.role = ANY($20)
		)`
	tag, err := r.pool.Exec(ctx, query,
		api.ID, api.ProjectID, api.Name, api.Description, api.Endpoint, string(api.Method),
		api.Params, api.Body, api.Headers, api.Authorization,
		api.PreRequestScript, api.PostResponseScript,
		api.Tags, api.Versions, api.Order, statusParam(api.Status),
		api.CreatedAt, api.UpdatedAt,
		userID, roleStrings(roles))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetAPIForUser returns the definition only when the user holds a
// membership on the owning project.
func (r *Repository) GetAPIForUser(ctx context.Context, apiID, userID string) (*domain.API, error) {
	const query = `SELECT ` + apiColumns + `
		FROM apis
		WHERE id = $1 AND EXISTS (
			SELECT 1 FROM memberships m
			WHERE m.scope_kind = 'project' AND m.scope_id = apis.project_id
				AND m.user_id = $2
		)`
	api, err := scanAPI(r.pool.QueryRow(ctx, query, apiID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return api, nil
}

// ListAPIsForUser returns definitions under projects the user belongs
// to, optionally restricted to one project. Ordered by the
// caller-assigned position.
func (r *Repository) ListAPIsForUser(ctx context.Context, userID, projectID string) ([]domain.API, error) {
	const query = `SELECT ` + apiColumns + `
		FROM apis
		WHERE ($2 = '' OR project_id = $2) AND EXISTS (
			SELECT 1 FROM memberships m
			WHERE m.scope_kind = 'project' AND m.scope_id = apis.project_id
				AND m.user_id = $1
		)
		ORDER BY sort_order, created_at`
	rows, err := r.pool.Query(ctx, query, userID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apis := make([]domain.API, 0)
	for rows.Next() {
		api, err := scanAPI(rows)
		if err != nil {
			return nil, err
		}
		apis = append(apis, *api)
	}
	return apis, rows.Err()
}

// UpdateAPI applies the patch gated by the owning project's membership
// and role predicate.
func (r *Repository) UpdateAPI(ctx context.Context, api *domain.API, userID string, roles []domain.Role) (int64, error) {
	const query = `UPDATE apis SET name = $1, description = $2, endpoint = $3, method = $4,
			params = $5, body = $6, headers = $7, authorization = $8,
			pre_request_script = $9, post_response_script = $10,
			tags = $11, versions = $12, sort_order = $13, status = $14, updated_at = $15
		WHERE id = $16 AND EXISTS (
			SELECT 1 FROM memberships m
			WHERE m.scope_kind = 'project' AND m.scope_id = apis.project_id
				AND m.user_id = $17 AND m.role = ANY($18)
		)`
	tag, err := r.pool.Exec(ctx, query,
		api.Name, api.Description, api.Endpoint, string(api.Method),
		api.Params, api.Body, api.Headers, api.Authorization,
		api.PreRequestScript, api.PostResponseScript,
		api.Tags, api.Versions, api.Order, statusParam(api.Status), api.UpdatedAt,
		api.ID, userID, roleStrings(roles))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteAPI removes the definition gated by the owning project's
// membership and role predicate.
func (r *Repository) DeleteAPI(ctx context.Context, apiID, userID string, roles []domain.Role) (int64, error) {
	const query = `DELETE FROM apis
		WHERE id = $1 AND EXISTS (
			SELECT 1 FROM memberships m
			WHERE m.scope_kind = 'project' AND m.scope_id = apis.project_id
				AND m.user_id = $2 AND m.role = ANY($3)
		)`
	tag, err := r.pool.Exec(ctx, query, apiID, userID, roleStrings(roles))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
