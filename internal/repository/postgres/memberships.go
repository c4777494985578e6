package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/apiforge/apiforge/internal/domain"
	"github.com/apiforge/apiforge/internal/repository"
)

// FindMembership returns the membership for (user, scope), or ErrNotFound.
func (r *Repository) FindMembership(ctx context.Context, userID string, scope domain.Scope) (*domain.Membership, error) {
	const query = `SELECT user_id, scope_kind, scope_id, role, created_at
		FROM memberships
		WHERE user_id = $1 AND scope_kind = $2 AND scope_id = $3`
	row := r.pool.QueryRow(ctx, query, userID, string(scope.Kind), scope.ID)
	var m domain.Membership
	if err := row.Scan(&m.UserID, &m.ScopeKind, &m.ScopeID, &m.Role, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// HasRole reports whether the user holds one of the roles in the scope.
func (r *Repository) HasRole(ctx context.Context, userID string, scope domain.Scope, roles []domain.Role) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM memberships
		WHERE user_id = $1 AND scope_kind = $2 AND scope_id = $3 AND role = ANY($4)
	)`
	row := r.pool.QueryRow(ctx, query, userID, string(scope.Kind), scope.ID, roleStrings(roles))
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateMembership inserts a membership row. A second membership for
// the same (user, scope) fails with ErrDuplicateMembership.
func (r *Repository) CreateMembership(ctx context.Context, membership *domain.Membership) error {
	const query = `INSERT INTO memberships (user_id, scope_kind, scope_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query,
		membership.UserID, string(membership.ScopeKind), membership.ScopeID,
		string(membership.Role), membership.CreatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicateMembership
	}
	return err
}

// insertMembership mirrors CreateMembership inside a transaction.
func insertMembership(ctx context.Context, tx pgx.Tx, membership *domain.Membership) error {
	const query = `INSERT INTO memberships (user_id, scope_kind, scope_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.Exec(ctx, query,
		membership.UserID, string(membership.ScopeKind), membership.ScopeID,
		string(membership.Role), membership.CreatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicateMembership
	}
	return err
}
