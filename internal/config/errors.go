package config

import "fmt"

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Path    string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s=%v: %s", e.Path, e.Value, e.Message)
}
