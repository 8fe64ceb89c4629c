package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError rejects a malformed request before any stage runs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
	}
	return "validation: " + e.Message
}

// TransientProviderError marks a provider failure worth retrying:
// network errors, timeouts, 429s and 5xx responses.
type TransientProviderError struct {
	Provider string
	Err      error
}

func (e *TransientProviderError) Error() string {
	return fmt.Sprintf("%s: transient: %v", e.Provider, e.Err)
}

func (e *TransientProviderError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientProviderError.
func Transient(provider string, err error) error {
	return &TransientProviderError{Provider: provider, Err: err}
}

// IsTransient reports whether err should be retried by the stage loop.
func IsTransient(err error) bool {
	var t *TransientProviderError
	return errors.As(err, &t)
}

// FatalProviderError marks a provider failure that retrying cannot fix:
// bad credentials, exhausted quota.
type FatalProviderError struct {
	Provider string
	Err      error
}

func (e *FatalProviderError) Error() string {
	return fmt.Sprintf("%s: fatal: %v", e.Provider, e.Err)
}

func (e *FatalProviderError) Unwrap() error { return e.Err }

// Fatal wraps err as a FatalProviderError.
func Fatal(provider string, err error) error {
	return &FatalProviderError{Provider: provider, Err: err}
}

// PipelineInvariantError means a later stage found a required earlier
// artifact missing. That is an ordering bug, never retried.
type PipelineInvariantError struct {
	Stage  string
	Detail string
}

func (e *PipelineInvariantError) Error() string {
	return fmt.Sprintf("invariant violated in stage %s: %s", e.Stage, e.Detail)
}

// StuckTimeoutError is raised by the sweeper for projects stalled in a
// non-terminal stage past the wall-clock timeout.
type StuckTimeoutError struct {
	ProjectID string
	Since     time.Time
}

func (e *StuckTimeoutError) Error() string {
	return fmt.Sprintf("project %s stuck since %s", e.ProjectID, e.Since.Format(time.RFC3339))
}

// StageError attributes a failure to a pipeline stage and, when scene
// work failed, to a scene order. Scene is 0 for stage-wide failures.
type StageError struct {
	Stage string
	Scene int
	Err   error
}

func (e *StageError) Error() string {
	if e.Scene > 0 {
		return fmt.Sprintf("stage %s: scene %d: %v", e.Stage, e.Scene, e.Err)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
