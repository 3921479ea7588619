package resource

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the remote store holds no document for an identifier.
	ErrNotFound = errors.New("resource: not found")
	// ErrDuplicateResource indicates a snapshot holds more than one element with the same identifier.
	ErrDuplicateResource = errors.New("resource: duplicate identifier in snapshot")

	errMissingCache   = errors.New("snapshot cache is required")
	errMissingGateway = errors.New("remote gateway is required")
	errMissingCodec   = errors.New("document codec is required")
	errMissingBuilder = errors.New("resource builder is required")
	errMissingID      = errors.New("resource identifier is required")
	errEmptyRemoteID  = errors.New("remote store returned an empty identifier")
)

// PipelineError carries a dotted code such as "places.add.remote_failed" and the underlying cause.
type PipelineError struct {
	code string
	err  error
}

func (e *PipelineError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *PipelineError) Unwrap() error {
	return e.err
}

// Code returns the dotted error code.
func (e *PipelineError) Code() string {
	return e.code
}

func newPipelineError(collection, operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s.%s", collection, operation, reason)
	return &PipelineError{code: code, err: cause}
}
