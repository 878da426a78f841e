package core

import (
	"errors"
	"fmt"
)

// ErrNilPlan is returned when RunPlan is invoked without a plan. This is a
// programmer error, not an expected failure mode.
var ErrNilPlan = errors.New("execution plan is nil")

// ConfigError marks an execution plan rejected before any agent ran:
// unregistered agent identifiers, malformed strategy configuration and
// similar. A rejected run performs no partial execution.
type ConfigError struct {
	Reason string
}

// NewConfigError formats a ConfigError.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "invalid execution plan: " + e.Reason
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
