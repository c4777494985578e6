package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/apiforge/apiforge/internal/domain"
	"github.com/apiforge/apiforge/internal/repository"
)

// CreateTeamWithOwner inserts the team and the creator's owner
// membership in a single transaction. Neither row exists without the
// other.
func (r *Repository) CreateTeamWithOwner(ctx context.Context, team *domain.Team, owner *domain.Membership) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const query = `INSERT INTO teams (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.Exec(ctx, query, team.ID, team.Name, team.Description, team.CreatedAt, team.UpdatedAt); err != nil {
		return fmt.Errorf("insert team: %w", err)
	}
	if err := insertMembership(ctx, tx, owner); err != nil {
		return fmt.Errorf("insert owner membership: %w", err)
	}
	return tx.Commit(ctx)
}

// GetTeamForUser returns the team only when the user holds a
// membership on it.
func (r *Repository) GetTeamForUser(ctx context.Context, teamID, userID string) (*domain.Team, error) {
	const query = `SELECT t.id, t.name, t.description, t.created_at, t.updated_at
		FROM teams t
		INNER JOIN memberships m ON m.scope_kind = 'team' AND m.scope_id = t.id
		WHERE t.id = $1 AND m.user_id = $2`
	row := r.pool.QueryRow(ctx, query, teamID, userID)
	var team domain.Team
	if err := row.Scan(&team.ID, &team.Name, &team.Description, &team.CreatedAt, &team.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &team, nil
}

// ListTeamsForUser returns teams the user belongs to.
func (r *Repository) ListTeamsForUser(ctx context.Context, userID string) ([]domain.Team, error) {
	const query = `SELECT t.id, t.name, t.description, t.created_at, t.updated_at
		FROM teams t
		INNER JOIN memberships m ON m.scope_kind = 'team' AND m.scope_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.Description, &team.CreatedAt, &team.UpdatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// UpdateTeam applies the patch only when the user holds one of the
// roles on the team. The predicate rides in the statement so a role
// change between check and write cannot slip through.
func (r *Repository) UpdateTeam(ctx context.Context, team *domain.Team, userID string, roles []domain.Role) (int64, error) {
	const query = `UPDATE teams SET name = $1, description = $2, updated_at = $3
		WHERE id = $4 AND EXISTS (
			SELECT 1 FROM memberships m
			WHERE m.scope_kind = 'team' AND m.scope_id = teams.id
				AND m.user_id = $5 AND m.role = ANY($6)
		)`
	tag, err := r.pool.Exec(ctx, query, team.Name, team.Description, team.UpdatedAt, team.ID, userID, roleStrings(roles))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteTeam removes the team, its projects (by cascade) and every
// membership attached to the team or its projects, gated by the same
// in-statement role predicate.
func (r *Repository) DeleteTeam(ctx context.Context, teamID, userID string, roles []domain.Role) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	// Project memberships go first, resolved by subquery while the
	// project rows still exist. The team cascade below removes the
	// projects themselves; rollback undoes this statement if the gated
	// delete affects nothing.
	const projectMembershipsQuery = `DELETE FROM memberships
		WHERE scope_kind = 'project'
			AND scope_id IN (SELECT id FROM projects WHERE team_id = $1)`
	if _, err := tx.Exec(ctx, projectMembershipsQuery, teamID); err != nil {
		return 0, err
	}

	const deleteQuery = `DELETE FROM teams
		WHERE id = $1 AND EXISTS (
			SELECT 1 FROM memberships m
			WHERE m.scope_kind = 'team' AND m.scope_id = teams.id
				AND m.user_id = $2 AND m.role = ANY($3)
		)`
	tag, err := tx.Exec(ctx, deleteQuery, teamID, userID, roleStrings(roles))
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, nil
	}

	const teamMembershipsQuery = `DELETE FROM memberships
		WHERE scope_kind = 'team' AND scope_id = $1`
	if _, err := tx.Exec(ctx, teamMembershipsQuery, teamID); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
