package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/switchyard/internal/core/slot"
	"github.com/artpar/switchyard/internal/shell/docker"
)

// =============================================================================
// Retirement Manager
// =============================================================================

// retire stops and removes the former active slot's container. Only called
// after the traffic switch is confirmed. Retiring an empty slot is a no-op;
// on a first deployment the previous slot never existed.
func (o *Orchestrator) retire(ctx context.Context, old slot.Slot) error {
	if old.IsEmpty() {
		return nil
	}

	timeout := 10 * time.Second
	if err := o.docker.StopContainer(old.ContainerID, &timeout); err != nil {
		if !errors.Is(err, docker.ErrContainerNotFound) && !errors.Is(err, docker.ErrContainerNotRunning) {
			return err
		}
	}

	if err := o.docker.RemoveContainer(old.ContainerID, docker.RemoveOptions{Force: true}); err != nil {
		if !errors.Is(err, docker.ErrContainerNotFound) {
			return err
		}
	}

	o.logger.Info("retired previous slot",
		"color", old.Color,
		"container_id", shortID(old.ContainerID),
	)
	return nil
}
