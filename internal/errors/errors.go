package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session client
var (
	// Credential errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingPhone       = errors.New("phone is required")
	ErrMissingCode        = errors.New("verification code is required")

	// Session errors
	ErrMissingToken = errors.New("login response carried no token")
	ErrNotLoggedIn  = errors.New("not logged in")

	// General errors
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
