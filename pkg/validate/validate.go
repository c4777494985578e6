package validate

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var v = validator.New(validator.WithRequiredStructEnabled())

// Error describes the first failed constraint on an input struct.
type Error struct {
	Field      string
	Constraint string
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Constraint)
}

// Struct checks the tagged constraints on input and reports the first
// violation as an *Error.
func Struct(input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		constraint := fe.Tag()
		if fe.Param() != "" {
			constraint = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		return &Error{Field: fe.Field(), Constraint: constraint}
	}
	return err
}

// IsValidation reports whether err carries a constraint violation.
func IsValidation(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}
