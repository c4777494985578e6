package domain

import "time"

// ScopeKind distinguishes the two membership-bearing resource kinds.
type ScopeKind string

const (
	ScopeTeam    ScopeKind = "team"
	ScopeProject ScopeKind = "project"
)

// Scope identifies the unit a membership attaches to.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// TeamScope builds a team scope.
func TeamScope(teamID string) Scope {
	return Scope{Kind: ScopeTeam, ID: teamID}
}

// ProjectScope builds a project scope.
func ProjectScope(projectID string) Scope {
	return Scope{Kind: ScopeProject, ID: projectID}
}

// Membership links a user to a scope with a role. At most one exists
// per (user, scope).
type Membership struct {
	UserID    string
	ScopeKind ScopeKind
	ScopeID   string
	Role      Role
	CreatedAt time.Time
}

// Scope returns the membership's scope.
func (m Membership) Scope() Scope {
	return Scope{Kind: m.ScopeKind, ID: m.ScopeID}
}
