// Package orchestrator runs the blue-green deployment pipeline: resolve
// slots, start the new version in the inactive slot, gate on the health
// probe, switch traffic, retire the old slot, and prune superseded images.
// Each stage gates the next; any failure before the traffic switch leaves
// the system in its pre-deployment state.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	coreproxy "github.com/artpar/switchyard/internal/core/proxy"
	"github.com/artpar/switchyard/internal/core/service"
	"github.com/artpar/switchyard/internal/core/slot"
	"github.com/artpar/switchyard/internal/shell/docker"
	"github.com/artpar/switchyard/internal/shell/notify"
	"github.com/artpar/switchyard/internal/shell/probe"
)

// =============================================================================
// Stages
// =============================================================================

// Stage names one step of the deployment pipeline.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageDeploy  Stage = "deploy"
	StageProbe   Stage = "probe"
	StageSwitch  Stage = "switch"
	StageRetire  Stage = "retire"
	StagePrune   Stage = "prune"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// TrafficSwitch is the proxy controller surface the pipeline needs.
type TrafficSwitch interface {
	State(ctx context.Context, configPath string) (coreproxy.State, error)
	Switch(ctx context.Context, service, configPath string, fromPort, toPort int) error
}

// HealthProber is the readiness gate surface the pipeline needs.
type HealthProber interface {
	Probe(ctx context.Context, url string, cfg probe.Config) (probe.Result, error)
}

// =============================================================================
// Request / Report
// =============================================================================

// Request triggers one deployment of a service.
type Request struct {
	// Service is the manifest spec of the service to deploy.
	Service service.Spec

	// ImageTag is the tag or digest of the image to deploy; combined with
	// the service's repository.
	ImageTag string

	// Runtime carries the opaque runtime settings for the new container.
	Runtime service.RuntimeConfig
}

// ImageRef returns the full image reference for the request.
func (r Request) ImageRef() string {
	if strings.HasPrefix(r.ImageTag, "sha256:") {
		return r.Service.Repository + "@" + r.ImageTag
	}
	return r.Service.Repository + ":" + r.ImageTag
}

// Report summarizes a completed (or failed) run.
type Report struct {
	RunID         string        `json:"run_id"`
	Service       string        `json:"service"`
	ImageRef      string        `json:"image_ref"`
	Color         slot.Color    `json:"color"`           // slot the new version went to
	Port          int           `json:"port"`            // port now receiving traffic
	RetiredColor  slot.Color    `json:"retired_color"`   // "" when nothing was retired
	ProbeAttempts int           `json:"probe_attempts"`  // attempts the health gate used
	PrunedImages  int           `json:"pruned_images"`
	Duration      time.Duration `json:"duration"`
}

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator executes deployment runs, one per service at a time.
type Orchestrator struct {
	docker   docker.Client
	proxy    TrafficSwitch
	prober   HealthProber
	notifier notify.Notifier
	logger   *slog.Logger

	probeCfg probe.Config
	slotHost string // host where slot ports are reachable, default 127.0.0.1

	mu       sync.Mutex
	inflight map[string]bool
}

// Config holds orchestrator configuration.
type Config struct {
	// Probe bounds the health gate. Zero fields take probe defaults.
	Probe probe.Config

	// SlotHost is the host the prober reaches slot ports on.
	// Default: 127.0.0.1.
	SlotHost string
}

// New creates an orchestrator.
func New(d docker.Client, proxy TrafficSwitch, prober HealthProber, notifier notify.Notifier, cfg Config, logger *slog.Logger) *Orchestrator {
	if notifier == nil {
		notifier = notify.NewNoopNotifier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SlotHost == "" {
		cfg.SlotHost = "127.0.0.1"
	}
	return &Orchestrator{
		docker:   d,
		proxy:    proxy,
		prober:   prober,
		notifier: notifier,
		logger:   logger.With("component", "orchestrator"),
		probeCfg: cfg.Probe,
		slotHost: cfg.SlotHost,
		inflight: make(map[string]bool),
	}
}

// =============================================================================
// Deploy Pipeline
// =============================================================================

// Deploy runs the full pipeline for one service. A second trigger for the
// same service while a run is active is rejected with ErrDeploymentInFlight.
func (o *Orchestrator) Deploy(ctx context.Context, req Request) (*Report, error) {
	name := req.Service.Name
	if !o.acquire(name) {
		return nil, fmt.Errorf("%w: %s", ErrDeploymentInFlight, name)
	}
	defer o.release(name)

	started := time.Now()
	runID := uuid.NewString()
	logger := o.logger.With("run_id", runID, "service", name)

	logger.Info("starting deployment", "image", req.ImageRef())

	// Stage 1: resolve the active and inactive slots. activePort is the
	// proxy's current upstream port, 0 before the first deployment; the
	// synthesized absent active slot carries its configured port, so the
	// switch must use activePort as its from-port, not active.Port.
	active, inactive, activePort, err := o.resolveSlots(ctx, req.Service)
	if err != nil {
		serr := stageErr(StageResolve, name, "", err)
		o.notifyFailure(ctx, serr, "slot resolution failed")
		return nil, serr
	}

	logger.Info("slots resolved",
		"active_color", active.Color,
		"inactive_color", inactive.Color,
		"first_deployment", active.IsEmpty(),
	)
	o.notify(ctx, inactive.Color, "started",
		fmt.Sprintf("%s: [%s] deploying %s to %s slot", name, StageResolve, req.ImageRef(), inactive.Color))

	// Stage 2: start the new version in the inactive slot.
	candidate, err := o.deployToSlot(ctx, req, inactive, logger)
	if err != nil {
		serr := stageErr(StageDeploy, name, inactive.Color, err)
		o.notifyFailure(ctx, serr, "deployment failed, previous slot untouched")
		return nil, serr
	}
	o.notify(ctx, candidate.Color, "success",
		fmt.Sprintf("%s: [%s] container started in %s slot (port %d)", name, StageDeploy, candidate.Color, candidate.Port))

	// Stage 3: health gate. The new slot gets traffic only on a probed
	// success; on exhaustion the container stays up for inspection.
	url := fmt.Sprintf("http://%s:%d%s", o.slotHost, candidate.Port, req.Service.HealthPath)
	result, err := o.prober.Probe(ctx, url, o.probeCfg)
	if err != nil {
		serr := stageErr(StageProbe, name, candidate.Color, err)
		o.notifyFailure(ctx, serr, "health probe aborted")
		return nil, serr
	}
	if !result.Healthy {
		serr := stageErr(StageProbe, name, candidate.Color, ErrUnhealthy)
		o.notifyFailure(ctx, serr,
			fmt.Sprintf("health gate failed after %d attempts, traffic stays on %s", result.Attempts, active.Color))
		return nil, serr
	}
	candidate.Status = slot.StatusHealthy
	logger.Info("health gate passed", "attempts", result.Attempts, "version", result.Version)
	o.notify(ctx, candidate.Color, "success",
		fmt.Sprintf("%s: [%s] health gate passed after %d attempts", name, StageProbe, result.Attempts))

	// Stage 4: switch traffic with verified reload.
	if err := o.proxy.Switch(ctx, name, req.Service.ProxyConfig, activePort, candidate.Port); err != nil {
		serr := stageErr(StageSwitch, name, candidate.Color, err)
		o.notifyFailure(ctx, serr, "traffic switch failed")
		return nil, serr
	}
	o.notify(ctx, candidate.Color, "success",
		fmt.Sprintf("%s: [%s] traffic switched to %s (port %d)", name, StageSwitch, candidate.Color, candidate.Port))

	report := &Report{
		RunID:         runID,
		Service:       name,
		ImageRef:      req.ImageRef(),
		Color:         candidate.Color,
		Port:          candidate.Port,
		ProbeAttempts: result.Attempts,
	}

	// Stage 5: retire the previous slot. Traffic is already on the new
	// slot, so a failure here is deferred cleanup, not a rollback.
	if err := o.retire(ctx, active); err != nil {
		logger.Warn("failed to retire previous slot", "color", active.Color, "error", err)
		o.notify(ctx, active.Color, "failure",
			fmt.Sprintf("%s: [%s] retirement of %s slot failed, cleanup deferred", name, StageRetire, active.Color))
	} else if !active.IsEmpty() {
		report.RetiredColor = active.Color
		o.notify(ctx, active.Color, "success",
			fmt.Sprintf("%s: [%s] retired %s slot", name, StageRetire, active.Color))
	} else {
		o.notify(ctx, active.Color, "success",
			fmt.Sprintf("%s: [%s] nothing to retire", name, StageRetire))
	}

	// Stage 6: prune superseded images, best effort.
	pruned, err := o.pruneImages(ctx, req.Service, candidate, logger)
	if err != nil {
		logger.Warn("image pruning failed", "error", err)
		o.notify(ctx, candidate.Color, "failure",
			fmt.Sprintf("%s: [%s] image pruning failed: %v", name, StagePrune, err))
	} else {
		o.notify(ctx, candidate.Color, "success",
			fmt.Sprintf("%s: [%s] removed %d superseded images", name, StagePrune, pruned))
	}
	report.PrunedImages = pruned

	report.Duration = time.Since(started)
	logger.Info("deployment complete",
		"color", candidate.Color,
		"port", candidate.Port,
		"pruned_images", pruned,
		"duration", report.Duration,
	)
	return report, nil
}

// =============================================================================
// Slot Resolution
// =============================================================================

// Slots resolves the current active and inactive slots for a service
// without deploying. Re-running it on an unchanged runtime is idempotent.
func (o *Orchestrator) Slots(ctx context.Context, spec service.Spec) (active, inactive slot.Slot, err error) {
	active, inactive, _, err = o.resolveSlots(ctx, spec)
	return active, inactive, err
}

// resolveSlots also returns the proxy's current active port, which is 0
// before the first deployment even though the synthesized active slot
// carries its configured port.
func (o *Orchestrator) resolveSlots(ctx context.Context, spec service.Spec) (active, inactive slot.Slot, activePort int, err error) {
	state, err := o.proxy.State(ctx, spec.ProxyConfig)
	if err != nil {
		return slot.Slot{}, slot.Slot{}, 0, err
	}

	containers, err := o.docker.ListContainers(docker.ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", slot.LabelService, spec.Name),
		},
	})
	if err != nil {
		return slot.Slot{}, slot.Slot{}, 0, fmt.Errorf("list containers: %w", err)
	}

	var blue, green *slot.ContainerState
	for _, c := range containers {
		color := slot.Color(c.Labels[slot.LabelColor])
		if !color.Valid() {
			// Fall back to the naming convention for containers started
			// before color labels existed.
			_, parsed, ok := slot.ParseContainerName(c.Name)
			if !ok {
				continue
			}
			color = parsed
		}

		state := &slot.ContainerState{
			ID:      c.ID,
			Image:   c.Image,
			Running: c.IsRunning(),
		}
		if color == slot.ColorBlue {
			blue = state
		} else {
			green = state
		}
	}

	active, inactive, err = slot.Resolve(spec.Ports(), blue, green, state.ActivePort)
	return active, inactive, state.ActivePort, err
}

// =============================================================================
// Notifications
// =============================================================================

func (o *Orchestrator) notify(ctx context.Context, color slot.Color, status, message string) {
	o.notifier.Notify(ctx, notify.Event{
		Color:   string(color),
		Message: message,
		Status:  status,
	})
}

func (o *Orchestrator) notifyFailure(ctx context.Context, serr *StageError, message string) {
	o.logger.Error("pipeline stage failed",
		"stage", serr.Stage,
		"service", serr.Service,
		"color", serr.Color,
		"error", serr.Err,
	)
	o.notify(ctx, serr.Color, "failure",
		fmt.Sprintf("%s: [%s] %s: %v", serr.Service, serr.Stage, message, serr.Err))
}

// =============================================================================
// Single-Flight
// =============================================================================

// acquire marks a service as having a run in progress.
func (o *Orchestrator) acquire(service string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[service] {
		return false
	}
	o.inflight[service] = true
	return true
}

func (o *Orchestrator) release(service string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, service)
}
