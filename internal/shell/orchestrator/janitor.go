package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artpar/switchyard/internal/core/service"
	"github.com/artpar/switchyard/internal/core/slot"
	"github.com/artpar/switchyard/internal/shell/docker"
)

// =============================================================================
// Image Janitor
// =============================================================================

// pruneImages removes superseded images of the service's repository, keeping
// the newest KeepImages and never touching an image a running container of
// the service still uses. Individual removal failures are logged and skipped;
// pruning never fails a deployment.
func (o *Orchestrator) pruneImages(ctx context.Context, spec service.Spec, candidate slot.Slot, logger *slog.Logger) (int, error) {
	images, err := o.docker.ListImages(spec.Repository)
	if err != nil {
		return 0, fmt.Errorf("list images: %w", err)
	}
	if len(images) <= spec.KeepImages {
		return 0, nil
	}

	inUse := map[string]bool{}
	if candidate.Image != "" {
		inUse[candidate.Image] = true
	}
	containers, err := o.docker.ListContainers(docker.ListOptions{
		All: false,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", slot.LabelService, spec.Name),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("list containers: %w", err)
	}
	for _, c := range containers {
		inUse[c.Image] = true
	}

	referenced := func(img docker.ImageInfo) bool {
		for ref := range inUse {
			if img.HasRef(ref) || img.ID == ref {
				return true
			}
		}
		return false
	}

	// Images arrive newest first; everything past the keep window is a
	// candidate for removal.
	pruned := 0
	for _, img := range images[spec.KeepImages:] {
		if referenced(img) {
			continue
		}
		if err := o.docker.RemoveImage(img.ID, false); err != nil {
			logger.Warn("failed to prune image",
				"image_id", shortID(img.ID),
				"tags", img.Tags,
				"error", err,
			)
			continue
		}
		logger.Info("pruned image", "image_id", shortID(img.ID), "tags", img.Tags)
		pruned++
	}
	return pruned, nil
}
