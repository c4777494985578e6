package domain

import (
	"errors"
	"fmt"
	"time"
)

// Visibility controls how a project is presented. Reads remain
// membership-scoped either way; the flag is stored, not interpreted
// by the authorization path.
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

// ErrInvalidVisibility reports a visibility value outside the enumerated set.
var ErrInvalidVisibility = errors.New("domain: invalid visibility")

// ParseVisibility validates a raw visibility string.
func ParseVisibility(raw string) (Visibility, error) {
	switch Visibility(raw) {
	case VisibilityPublic, VisibilityPrivate:
		return Visibility(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVisibility, raw)
}

// Project groups API definitions under a team. The owning team is
// fixed at creation; there is no re-parenting operation.
type Project struct {
	ID          string
	TeamID      string
	Name        string
	Description string
	Visibility  Visibility
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
