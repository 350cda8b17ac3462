// Package proxy provides pure types and functions for the reverse proxy's
// upstream state. This package has no I/O dependencies and is tested with
// values in/out.
package proxy

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// =============================================================================
// Proxy State
// =============================================================================

// State is the reverse proxy's persisted upstream configuration for one
// service. It is the single source of truth for which port receives traffic;
// the config file is regenerated from it wholesale, never patched by text
// substitution.
type State struct {
	// Service is the logical service name the upstream belongs to.
	Service string

	// ActivePort is the host port currently receiving traffic.
	// 0 means no upstream is configured yet (before the first deployment).
	ActivePort int
}

// IsZero reports whether no upstream has been configured.
func (s State) IsZero() bool {
	return s.Service == "" && s.ActivePort == 0
}

// =============================================================================
// Config Rendering / Parsing
// =============================================================================

// ErrMalformedConfig is returned when the proxy config text does not match
// the managed format. Switching on top of an unrecognized file is unsafe.
var ErrMalformedConfig = errors.New("proxy config does not match managed format")

const header = "# managed by switchyard; do not edit by hand"

var (
	upstreamRe = regexp.MustCompile(`(?m)^upstream\s+(\S+)_backend\s*\{`)
	serverRe   = regexp.MustCompile(`(?m)^\s*server\s+127\.0\.0\.1:(\d+);`)
)

// Render produces the complete upstream config file content for the state.
//
// Example output:
//
//	# managed by switchyard; do not edit by hand
//	upstream webapp_backend {
//	    server 127.0.0.1:8001;
//	}
func Render(s State) string {
	return fmt.Sprintf("%s\nupstream %s_backend {\n    server 127.0.0.1:%d;\n}\n",
		header, s.Service, s.ActivePort)
}

// Parse extracts the state from upstream config text. Empty text parses to
// the zero State (no upstream configured yet); anything else must match the
// managed format or ErrMalformedConfig is returned.
func Parse(text string) (State, error) {
	if len(text) == 0 {
		return State{}, nil
	}

	um := upstreamRe.FindStringSubmatch(text)
	if um == nil {
		return State{}, ErrMalformedConfig
	}
	sm := serverRe.FindStringSubmatch(text)
	if sm == nil {
		return State{}, ErrMalformedConfig
	}

	port, err := strconv.Atoi(sm[1])
	if err != nil || port <= 0 || port > 65535 {
		return State{}, ErrMalformedConfig
	}

	return State{Service: um[1], ActivePort: port}, nil
}
