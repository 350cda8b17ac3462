package orchestrator

import (
	"errors"
	"fmt"

	"github.com/artpar/switchyard/internal/core/slot"
)

// =============================================================================
// Error Taxonomy
// =============================================================================

var (
	// ErrDeploymentInFlight means another orchestration run for the same
	// service is in progress. The trigger is rejected, never interleaved.
	ErrDeploymentInFlight = errors.New("deployment already in progress for service")

	// ErrImagePull means the candidate image could not be retrieved. The
	// previously active slot is untouched.
	ErrImagePull = errors.New("image pull failed")

	// ErrContainerStart means the runtime rejected the start request (for
	// example a port conflict). The previously active slot is untouched.
	ErrContainerStart = errors.New("container start failed")

	// ErrUnhealthy means the new slot exhausted its probe attempts without
	// a single success. The container is left running for inspection but
	// never receives traffic.
	ErrUnhealthy = errors.New("slot failed health gate")
)

// StageError reports which pipeline stage failed, with service and color
// context for the operator channel.
type StageError struct {
	Stage   Stage
	Service string
	Color   slot.Color
	Err     error
}

func (e *StageError) Error() string {
	if e.Color != "" {
		return fmt.Sprintf("stage %s (%s/%s): %v", e.Stage, e.Service, e.Color, e.Err)
	}
	return fmt.Sprintf("stage %s (%s): %v", e.Stage, e.Service, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, service string, color slot.Color, err error) *StageError {
	return &StageError{Stage: stage, Service: service, Color: color, Err: err}
}
