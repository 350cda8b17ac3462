// Package proxy switches the reverse proxy between slot upstreams with a
// verified reload and a rollback path.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	coreproxy "github.com/artpar/switchyard/internal/core/proxy"
	"github.com/artpar/switchyard/internal/shell/remote"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrConfigDrift means the effective proxy config no longer matches the
	// managed format. Switching on top of it is unsafe; an operator must
	// reconcile the file first.
	ErrConfigDrift = errors.New("proxy config drifted from managed format")

	// ErrSwitchReverted means the reload of the new upstream failed and the
	// previous upstream was restored successfully. Traffic stays on the old
	// slot; the deployment must not proceed to retirement.
	ErrSwitchReverted = errors.New("proxy reload failed, reverted to previous upstream")

	// ErrSwitchFailed means both the reload and the revert-reload failed.
	// The proxy state is untrusted; all further automated action must halt.
	ErrSwitchFailed = errors.New("proxy reload and revert both failed")
)

// =============================================================================
// Controller
// =============================================================================

// Controller owns the reverse proxy's upstream config for managed services.
// All reads and writes go through a remote.Runner so the proxy may live on
// the orchestrator host or on a remote machine.
type Controller struct {
	runner    remote.Runner
	reloadCmd string
	logger    *slog.Logger
}

// Config configures the proxy controller.
type Config struct {
	// ReloadCommand triggers the proxy's configuration reload.
	// Default: "nginx -s reload".
	ReloadCommand string
}

// NewController creates a proxy controller.
func NewController(runner remote.Runner, cfg Config, logger *slog.Logger) *Controller {
	if cfg.ReloadCommand == "" {
		cfg.ReloadCommand = "nginx -s reload"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		runner:    runner,
		reloadCmd: cfg.ReloadCommand,
		logger:    logger.With("component", "proxy"),
	}
}

// State reads and parses the effective upstream config at configPath.
// A missing or empty file parses to the zero state (no upstream yet).
func (c *Controller) State(ctx context.Context, configPath string) (coreproxy.State, error) {
	text, err := remote.ReadFile(ctx, c.runner, configPath)
	if err != nil {
		return coreproxy.State{}, fmt.Errorf("read proxy config %s: %w", configPath, err)
	}

	state, err := coreproxy.Parse(string(text))
	if err != nil {
		return coreproxy.State{}, fmt.Errorf("%w: %s", ErrConfigDrift, configPath)
	}
	return state, nil
}

// Switch repoints the upstream for service from fromPort to toPort and
// verifies the reload took effect.
//
// On reload failure the previous upstream is written back and reloaded once.
// A successful revert returns ErrSwitchReverted; a failed revert returns
// ErrSwitchFailed and the caller must halt.
func (c *Controller) Switch(ctx context.Context, service, configPath string, fromPort, toPort int) error {
	// Refuse to touch a file we do not recognize.
	current, err := c.State(ctx, configPath)
	if err != nil {
		return err
	}

	if current.ActivePort == toPort && !current.IsZero() {
		c.logger.Info("proxy already points at target port", "service", service, "port", toPort)
		return nil
	}

	newState := coreproxy.State{Service: service, ActivePort: toPort}
	if err := c.apply(ctx, configPath, newState); err == nil {
		c.logger.Info("traffic switched",
			"service", service,
			"from_port", fromPort,
			"to_port", toPort,
		)
		return nil
	} else {
		c.logger.Warn("proxy reload failed, reverting", "service", service, "error", err)
	}

	// Revert path: restore the previous upstream and reload once.
	// On a first deployment there is no previous upstream to restore and the
	// failed reload left the proxy serving whatever it served before; the
	// written file must still be emptied so a later State() read does not
	// report an upstream the proxy never loaded.
	if current.IsZero() {
		if werr := remote.WriteFile(ctx, c.runner, configPath, nil); werr != nil {
			c.logger.Error("failed to restore empty config, proxy state untrusted",
				"service", service,
				"error", werr,
			)
			return ErrSwitchFailed
		}
		return ErrSwitchReverted
	}

	if err := c.apply(ctx, configPath, current); err != nil {
		c.logger.Error("revert reload failed, proxy state untrusted",
			"service", service,
			"error", err,
		)
		return ErrSwitchFailed
	}

	c.logger.Warn("reverted to previous upstream", "service", service, "port", current.ActivePort)
	return ErrSwitchReverted
}

// apply writes the rendered state and performs a verified reload.
func (c *Controller) apply(ctx context.Context, configPath string, state coreproxy.State) error {
	rendered := coreproxy.Render(state)
	if err := remote.WriteFile(ctx, c.runner, configPath, []byte(rendered)); err != nil {
		return fmt.Errorf("write proxy config: %w", err)
	}

	if _, err := c.runner.Run(ctx, c.reloadCmd, nil); err != nil {
		return fmt.Errorf("reload proxy: %w", err)
	}

	// Verify the effective config agrees with what we wrote.
	effective, err := c.State(ctx, configPath)
	if err != nil {
		return err
	}
	if effective.ActivePort != state.ActivePort {
		return fmt.Errorf("proxy config verification failed: active port %d, want %d",
			effective.ActivePort, state.ActivePort)
	}

	return nil
}
