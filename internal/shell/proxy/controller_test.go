package proxy

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreproxy "github.com/artpar/switchyard/internal/core/proxy"
	"github.com/artpar/switchyard/internal/shell/remote"
)

// =============================================================================
// Fake Runner
// =============================================================================

// fakeRunner simulates the proxy host: an in-memory file plus a scripted
// reload command that can be made to fail per invocation.
type fakeRunner struct {
	file string

	reloadCalls    int
	reloadFailures map[int]bool // reload invocation number (1-based) -> fail
}

func newFakeRunner(initial string) *fakeRunner {
	return &fakeRunner{file: initial, reloadFailures: map[int]bool{}}
}

func (f *fakeRunner) Run(ctx context.Context, command string, stdin io.Reader) ([]byte, error) {
	switch {
	case strings.HasPrefix(command, "cat '") && strings.Contains(command, "|| true"):
		return []byte(f.file), nil

	case strings.HasPrefix(command, "cat > "):
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		f.file = string(data)
		return nil, nil

	case command == "nginx -s reload":
		f.reloadCalls++
		if f.reloadFailures[f.reloadCalls] {
			return nil, &remote.RunError{Command: command, Stderr: "nginx: [emerg] reload failed"}
		}
		return nil, nil

	default:
		return nil, &remote.RunError{Command: command, Stderr: "unexpected command"}
	}
}

func (f *fakeRunner) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const configPath = "/etc/nginx/conf.d/webapp-upstream.conf"

// =============================================================================
// State Tests
// =============================================================================

func TestState_MissingFile(t *testing.T) {
	c := NewController(newFakeRunner(""), Config{}, testLogger())

	state, err := c.State(context.Background(), configPath)
	require.NoError(t, err)
	assert.True(t, state.IsZero())
}

func TestState_Drift(t *testing.T) {
	c := NewController(newFakeRunner("server { listen 80; }"), Config{}, testLogger())

	_, err := c.State(context.Background(), configPath)
	assert.ErrorIs(t, err, ErrConfigDrift)
}

// =============================================================================
// Switch Tests
// =============================================================================

func TestSwitch_Success(t *testing.T) {
	runner := newFakeRunner(coreproxy.Render(coreproxy.State{Service: "webapp", ActivePort: 8001}))
	c := NewController(runner, Config{}, testLogger())

	err := c.Switch(context.Background(), "webapp", configPath, 8001, 8002)
	require.NoError(t, err)

	state, err := coreproxy.Parse(runner.file)
	require.NoError(t, err)
	assert.Equal(t, 8002, state.ActivePort)
	assert.Equal(t, 1, runner.reloadCalls)
}

func TestSwitch_FirstDeployment(t *testing.T) {
	runner := newFakeRunner("")
	c := NewController(runner, Config{}, testLogger())

	err := c.Switch(context.Background(), "webapp", configPath, 0, 8001)
	require.NoError(t, err)

	state, err := coreproxy.Parse(runner.file)
	require.NoError(t, err)
	assert.Equal(t, 8001, state.ActivePort)
}

func TestSwitch_AlreadyActive(t *testing.T) {
	runner := newFakeRunner(coreproxy.Render(coreproxy.State{Service: "webapp", ActivePort: 8002}))
	c := NewController(runner, Config{}, testLogger())

	err := c.Switch(context.Background(), "webapp", configPath, 8001, 8002)
	require.NoError(t, err)
	assert.Equal(t, 0, runner.reloadCalls)
}

func TestSwitch_ReloadFails_RevertSucceeds(t *testing.T) {
	runner := newFakeRunner(coreproxy.Render(coreproxy.State{Service: "webapp", ActivePort: 8001}))
	runner.reloadFailures[1] = true // first reload (new upstream) fails
	c := NewController(runner, Config{}, testLogger())

	err := c.Switch(context.Background(), "webapp", configPath, 8001, 8002)
	assert.ErrorIs(t, err, ErrSwitchReverted)

	// The effective config must point back at the old slot.
	state, perr := coreproxy.Parse(runner.file)
	require.NoError(t, perr)
	assert.Equal(t, 8001, state.ActivePort)
	assert.Equal(t, 2, runner.reloadCalls)
}

func TestSwitch_FirstDeploymentReloadFails(t *testing.T) {
	runner := newFakeRunner("")
	runner.reloadFailures[1] = true
	c := NewController(runner, Config{}, testLogger())

	err := c.Switch(context.Background(), "webapp", configPath, 0, 8001)
	assert.ErrorIs(t, err, ErrSwitchReverted)

	// The written config must be emptied again: the proxy never loaded the
	// new upstream, so the next State() read must see the zero state.
	assert.Empty(t, runner.file)
	assert.Equal(t, 1, runner.reloadCalls)
}

func TestSwitch_ReloadAndRevertFail(t *testing.T) {
	runner := newFakeRunner(coreproxy.Render(coreproxy.State{Service: "webapp", ActivePort: 8001}))
	runner.reloadFailures[1] = true
	runner.reloadFailures[2] = true
	c := NewController(runner, Config{}, testLogger())

	err := c.Switch(context.Background(), "webapp", configPath, 8001, 8002)
	assert.ErrorIs(t, err, ErrSwitchFailed)
}

func TestSwitch_RefusesDriftedConfig(t *testing.T) {
	runner := newFakeRunner("# hand-edited\nserver { listen 80; }\n")
	c := NewController(runner, Config{}, testLogger())

	err := c.Switch(context.Background(), "webapp", configPath, 8001, 8002)
	assert.ErrorIs(t, err, ErrConfigDrift)
	assert.Equal(t, 0, runner.reloadCalls)
}
