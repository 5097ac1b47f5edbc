package apperrors

import (
	"errors"
	"fmt"
)

// Error categories used across the service. Handlers translate these into
// HTTP status codes; nothing below the handlers retries on its own.
var (
	ErrValidation    = errors.New("bad request")
	ErrForbidden     = errors.New("permission denied")
	ErrNotFound      = errors.New("not found")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrUnavailable   = errors.New("service unavailable")
)

func NewValidation(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, a...)...)
}

func NewForbidden(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrForbidden}, a...)...)
}

func NewNotFound(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, a...)...)
}

func NewInvalidConfig(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfig}, a...)...)
}

func NewUnavailable(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrUnavailable}, a...)...)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
