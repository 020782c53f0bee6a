package model

import "fmt"

// ConfigError reports malformed or unknown configuration. It always fires
// before the first tick executes; the runtime never tolerates one mid-run.
type ConfigError struct {
	Field  string
	Detail string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Detail)
}

func NewConfigError(field, format string, args ...any) ConfigError {
	return ConfigError{Field: field, Detail: fmt.Sprintf(format, args...)}
}

// StateInvariantError reports a violated simulation invariant. It is fatal
// and carries the tick at which the invariant broke.
type StateInvariantError struct {
	Tick   int
	Detail string
}

func (e StateInvariantError) Error() string {
	return fmt.Sprintf("state invariant violated at tick %d: %s", e.Tick, e.Detail)
}

// ReplayMismatchError reports one tick whose re-executed snapshot hash
// differs from the recorded one. It is non-fatal: replay keeps checking the
// remaining requested ticks and reports every mismatch.
type ReplayMismatchError struct {
	Tick     int
	WantHash string
	GotHash  string
}

func (e ReplayMismatchError) Error() string {
	return fmt.Sprintf("replay mismatch at tick %d: got=%s want=%s", e.Tick, e.GotHash, e.WantHash)
}
