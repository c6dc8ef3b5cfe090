package access

import (
	"errors"
	"fmt"
)

var ErrUnknownRole = errors.New("unknown role")

// ConfigurationError means the deployment hands out roles this build does not know.
// It must stop the operation; never map it to a default route.
type ConfigurationError struct {
	Role Role
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("access configuration: role %q: %v", e.Role, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func unknownRole(r Role) error {
	return &ConfigurationError{Role: r, Err: ErrUnknownRole}
}

func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
