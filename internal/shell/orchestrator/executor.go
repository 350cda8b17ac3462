package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/artpar/switchyard/internal/core/slot"
	"github.com/artpar/switchyard/internal/shell/docker"
)

// =============================================================================
// Deployment Executor
// =============================================================================

// deployToSlot starts the requested image in the inactive slot and returns
// the slot in StatusStarting. Any leftover container in the slot (a failed
// previous candidate kept for inspection) is replaced first.
func (o *Orchestrator) deployToSlot(ctx context.Context, req Request, inactive slot.Slot, logger *slog.Logger) (slot.Slot, error) {
	name := req.Service.Name
	imageRef := req.ImageRef()

	if inactive.ContainerID != "" {
		logger.Info("removing leftover container from inactive slot",
			"color", inactive.Color,
			"container_id", shortID(inactive.ContainerID),
		)
		timeout := 10 * time.Second
		_ = o.docker.StopContainer(inactive.ContainerID, &timeout)
		if err := o.docker.RemoveContainer(inactive.ContainerID, docker.RemoveOptions{Force: true}); err != nil {
			if !errors.Is(err, docker.ErrContainerNotFound) {
				return slot.Slot{}, fmt.Errorf("remove leftover container: %w", err)
			}
		}
	}

	// Pull the image. When a copy already exists locally a failed pull is
	// tolerated so a registry outage does not block redeploying a cached
	// image.
	exists, _ := o.docker.ImageExists(imageRef)
	if err := o.docker.PullImage(imageRef, docker.PullOptions{}); err != nil {
		if !exists {
			return slot.Slot{}, fmt.Errorf("%w: %s", ErrImagePull, imageRef)
		}
		logger.Warn("image pull failed, using local copy", "image", imageRef)
	}

	containerName := slot.ContainerName(name, inactive.Color)
	spec := docker.ContainerSpec{
		Name:  containerName,
		Image: imageRef,
		Env:   req.Runtime.Env(),
		Labels: map[string]string{
			slot.LabelManaged: "true",
			slot.LabelService: name,
			slot.LabelColor:   string(inactive.Color),
		},
		Ports: []docker.PortBinding{
			{
				ContainerPort: req.Service.ContainerPort,
				HostPort:      inactive.Port,
				Protocol:      "tcp",
			},
		},
		RestartPolicy: docker.RestartPolicy{Name: "unless-stopped"},
	}

	containerID, err := o.docker.CreateContainer(spec)
	if err != nil {
		return slot.Slot{}, fmt.Errorf("%w: create %s: %v", ErrContainerStart, containerName, err)
	}

	if err := o.docker.StartContainer(containerID); err != nil {
		// A container that never started is not worth keeping around.
		_ = o.docker.RemoveContainer(containerID, docker.RemoveOptions{Force: true})
		return slot.Slot{}, fmt.Errorf("%w: start %s: %v", ErrContainerStart, containerName, err)
	}

	logger.Info("slot container started",
		"color", inactive.Color,
		"container_id", shortID(containerID),
		"port", inactive.Port,
	)

	inactive.ContainerID = containerID
	inactive.Image = imageRef
	inactive.Status = slot.StatusStarting
	return inactive, nil
}

// shortID truncates a container ID for logging.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
