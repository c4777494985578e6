package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/apiforge/apiforge/internal/domain"
	"github.com/apiforge/apiforge/internal/repository"
)

// CreateProjectWithOwner inserts the project and the creator's owner
// membership in a single transaction. The INSERT carries the team
// membership predicate itself, so a team role revoked between the
// guard check and the write cannot commit a project into a scope the
// creator no longer owns. Zero rows means exactly that.
func (r *Repository) CreateProjectWithOwner(ctx context.Context, project *domain.Project, owner *domain.Membership, teamRoles []domain.Role) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	const query = `INSERT INTO projects (id, team_id, name, description, visibility, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (
			SELECT 1 FROM memberships m
			WHERE m.scope_kind = 'team' AND m.scope_id = $2
				AND m.user_id = $8 AND m.role = ANY($9)
		)`
	tag, err := tx.Exec(ctx, query,
		project.ID, project.TeamID, project.Name, project.Description,
		string(project.Visibility), project.CreatedAt, project.UpdatedAt,
		owner.UserID, roleStrings(teamRoles))
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, nil
	}
	if err := insertMembership(ctx, tx, owner); err != nil {
		return 0, fmt.Errorf("insert owner membership: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetProjectForUser returns the project only when the user holds a
// membership on it.
func (r *Repository) GetProjectForUser(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	const query = `SELECT p.id, p.team_id, p.name, p.description, p.visibility, p.created_at, p.updated_at
		FROM projects p
		INNER JOIN memberships m ON m.scope_kind = 'project' AND m.scope_id = p.id
		WHERE p.id = $1 AND m.user_id = $2`
	row := r.pool.QueryRow(ctx, query, projectID, userID)
	var project domain.Project
	if err := row.Scan(&project.ID, &project.TeamID, &project.Name, &project.Description,
		&project.Visibility, &project.CreatedAt, &project.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// ListProjectsForUser returns projects the user belongs to, optionally
// restricted to one team.
func (r *Repository) ListProjectsForUser(ctx context.Context, userID, teamID string) ([]domain.Project, error) {
	const query = `SELECT p.id, p.team_id, p.name, p.description, p.visibility, p.created_at, p.updated_at
		FROM projects p
		INNER JOIN memberships m ON m.scope_kind = 'project' AND m.scope_id = p.id
		WHERE m.user_id = $1 AND ($2 = '' OR p.team_id = $2)
		ORDER BY p.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		var project domain.Project
		if err := rows.Scan(&project.ID, &project.TeamID, &project.Name, &project.Description,
			&project.Visibility, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// UpdateProject applies the patch gated by the in-statement membership
// and role predicate.
func (r *Repository) UpdateProject(ctx context.Context, project *domain.Project, userID string, roles []domain.Role) (int64, error) {
	const query = `UPDATE projects SET name = $1, description = $2, visibility = $3, updated_at = $4
		WHERE id = $5 AND EXISTS (
			SELECT 1 FROM memberships m
			WHERE m.scope_kind = 'project' AND m.scope_id = projects.id
				AND m.user_id = $6 AND m.role = ANY($7)
		)`
	tag, err := r.pool.Exec(ctx, query,
		project.Name, project.Description, string(project.Visibility), project.UpdatedAt,
		project.ID, userID, roleStrings(roles))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteProject removes the project, its APIs (by cascade) and its
// memberships, gated by the in-statement role predicate.
func (r *Repository) DeleteProject(ctx context.Context, projectID, userID string, roles []domain.Role) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	const deleteQuery = `DELETE FROM projects
		WHERE id = $1 AND EXISTS (
			SELECT 1 FROM memberships m
			WHERE m.scope_kind = 'project' AND m.scope_id = projects.id
				AND m.user_id = $2 AND m.role = ANY($3)
		)`
	tag, err := tx.Exec(ctx, deleteQuery, projectID, userID, roleStrings(roles))
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, nil
	}

	const membershipsQuery = `DELETE FROM memberships WHERE scope_kind = 'project' AND scope_id = $1`
	if _, err := tx.Exec(ctx, membershipsQuery, projectID); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
