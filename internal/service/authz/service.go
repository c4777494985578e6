package authz

import (
	"context"
	"errors"

	"log/slog"

	"github.com/apiforge/apiforge/internal/domain"
	"github.com/apiforge/apiforge/internal/repository"
)

// ErrNotFoundOrDenied collapses "resource absent" and "access denied"
// into one outcome so callers cannot probe for resources they cannot
// see.
var ErrNotFoundOrDenied = errors.New("authz: not found")

// Service is the single authorization policy point. Every check is a
// fresh membership lookup against the store.
type Service struct {
	memberships repository.MembershipRepository
	logger      *slog.Logger
}

// New constructs a Service.
func New(memberships repository.MembershipRepository, logger *slog.Logger) Service {
	return Service{memberships: memberships, logger: logger}
}

// Authorize approves when userID holds one of the required roles on
// the scope. With no roles given, any membership suffices. Denials
// always surface as ErrNotFoundOrDenied.
func (s Service) Authorize(ctx context.Context, userID string, scope domain.Scope, roles ...domain.Role) error {
	required := roles
	if len(required) == 0 {
		required = domain.AllRoles
	}
	ok, err := s.memberships.HasRole(ctx, userID, scope, required)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Debug("authorization denied",
			"user_id", userID, "scope_kind", scope.Kind, "scope_id", scope.ID)
		return ErrNotFoundOrDenied
	}
	return nil
}
