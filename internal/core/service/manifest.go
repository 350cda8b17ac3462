// Package service defines the services manifest consumed by the
// orchestrator: which services exist, their blue/green port pair, their
// image repository, and how to reach their health endpoint.
package service

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/artpar/switchyard/internal/core/slot"
)

// =============================================================================
// Manifest Types
// =============================================================================

// Manifest is the parsed services manifest file.
type Manifest struct {
	Services []Spec `yaml:"services"`
}

// Spec describes one blue-green managed service.
type Spec struct {
	// Name is the logical service name, also used in container names and
	// the proxy upstream block.
	Name string `yaml:"name"`

	// Repository is the image repository; the tag or digest is supplied per
	// deployment trigger.
	Repository string `yaml:"repository"`

	// BluePort and GreenPort are the fixed host ports for the two slots.
	BluePort  int `yaml:"blue_port"`
	GreenPort int `yaml:"green_port"`

	// ContainerPort is the port the application listens on inside the
	// container. Defaults to 8000.
	ContainerPort int `yaml:"container_port"`

	// HealthPath is the readiness endpoint path. Defaults to /health.
	HealthPath string `yaml:"health_path"`

	// ProxyConfig is the path of the upstream config file on the proxy
	// host.
	ProxyConfig string `yaml:"proxy_config"`

	// KeepImages is how many of the newest images to retain when pruning.
	// Defaults to 3.
	KeepImages int `yaml:"keep_images"`
}

// Ports returns the slot port pair for the service.
func (s Spec) Ports() slot.Ports {
	return slot.Ports{Blue: s.BluePort, Green: s.GreenPort}
}

// =============================================================================
// Parsing
// =============================================================================

// ErrServiceNotFound is returned when a manifest lookup misses.
var ErrServiceNotFound = errors.New("service not found in manifest")

// ParseManifest parses and validates a services manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse services manifest: %w", err)
	}

	seen := make(map[string]bool)
	for i := range m.Services {
		s := &m.Services[i]
		s.applyDefaults()
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("service %q: %w", s.Name, err)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("service %q: duplicate name", s.Name)
		}
		seen[s.Name] = true
	}

	return &m, nil
}

// Lookup returns the spec for a service by name.
func (m *Manifest) Lookup(name string) (Spec, error) {
	for _, s := range m.Services {
		if s.Name == name {
			return s, nil
		}
	}
	return Spec{}, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
}

func (s *Spec) applyDefaults() {
	if s.ContainerPort == 0 {
		s.ContainerPort = 8000
	}
	if s.HealthPath == "" {
		s.HealthPath = "/health"
	}
	if s.KeepImages == 0 {
		s.KeepImages = 3
	}
}

func (s Spec) validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Repository == "" {
		return errors.New("repository is required")
	}
	if s.BluePort <= 0 || s.GreenPort <= 0 {
		return errors.New("blue_port and green_port are required")
	}
	if s.BluePort == s.GreenPort {
		return errors.New("blue_port and green_port must differ")
	}
	if s.ProxyConfig == "" {
		return errors.New("proxy_config is required")
	}
	if s.KeepImages < 1 {
		return errors.New("keep_images must be at least 1")
	}
	return nil
}
