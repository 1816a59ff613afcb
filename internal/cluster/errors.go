package cluster

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration failure reported at
// initialization time.
var ErrInvalidConfig = errors.New("cluster: invalid configuration")

// FieldError names the configuration field that failed validation.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("cluster: invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidConfig
}
