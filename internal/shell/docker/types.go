// Package docker provides the container runtime client used by the
// deployment orchestrator.
package docker

import "time"

// =============================================================================
// Container Types
// =============================================================================

// ContainerSpec defines the specification for creating a slot container.
type ContainerSpec struct {
	Name          string
	Image         string
	Env           map[string]string
	Labels        map[string]string
	Ports         []PortBinding
	RestartPolicy RestartPolicy
}

// PortBinding defines a port mapping.
type PortBinding struct {
	ContainerPort int
	HostPort      int    // 0 for auto-assign
	Protocol      string // "tcp" or "udp"
	HostIP        string // "" for 0.0.0.0
}

// RestartPolicy defines the container restart policy.
type RestartPolicy struct {
	Name              string // "no", "always", "on-failure", "unless-stopped"
	MaximumRetryCount int
}

// =============================================================================
// Container Info
// =============================================================================

// ContainerStatus represents the container status.
type ContainerStatus string

const (
	ContainerStatusCreated    ContainerStatus = "created"
	ContainerStatusRunning    ContainerStatus = "running"
	ContainerStatusPaused     ContainerStatus = "paused"
	ContainerStatusRestarting ContainerStatus = "restarting"
	ContainerStatusRemoving   ContainerStatus = "removing"
	ContainerStatusExited     ContainerStatus = "exited"
	ContainerStatusDead       ContainerStatus = "dead"
)

// ContainerInfo contains information about a container.
type ContainerInfo struct {
	ID        string
	Name      string
	Image     string
	Status    ContainerStatus
	CreatedAt time.Time
	Ports     []PortBinding
	Labels    map[string]string
}

// IsRunning reports whether the container is currently running.
func (c ContainerInfo) IsRunning() bool {
	return c.Status == ContainerStatusRunning
}

// =============================================================================
// Image Info
// =============================================================================

// ImageInfo contains information about a local image.
type ImageInfo struct {
	ID        string
	Tags      []string // e.g. ["registry.example.com/webapp:v3"]
	CreatedAt time.Time
}

// HasRef reports whether ref matches the image by ID or by any tag.
func (i ImageInfo) HasRef(ref string) bool {
	if ref == "" {
		return false
	}
	if ref == i.ID {
		return true
	}
	for _, tag := range i.Tags {
		if tag == ref {
			return true
		}
	}
	return false
}

// =============================================================================
// Options
// =============================================================================

// RemoveOptions defines options for removing containers.
type RemoveOptions struct {
	Force         bool
	RemoveVolumes bool
}

// ListOptions defines options for listing containers.
type ListOptions struct {
	All     bool              // Include stopped containers
	Filters map[string]string // e.g., {"label": "com.switchyard.service=webapp"}
}

// PullOptions defines options for pulling images.
type PullOptions struct {
	Platform string // e.g., "linux/amd64"
}

// =============================================================================
// Client Interface
// =============================================================================

// Client defines the container runtime interface consumed by the
// orchestrator. Implemented by the Docker SDK client; tests use fakes.
type Client interface {
	// Container operations
	CreateContainer(spec ContainerSpec) (containerID string, err error)
	StartContainer(containerID string) error
	StopContainer(containerID string, timeout *time.Duration) error
	RemoveContainer(containerID string, opts RemoveOptions) error
	InspectContainer(containerID string) (*ContainerInfo, error)
	ListContainers(opts ListOptions) ([]ContainerInfo, error)

	// Image operations
	PullImage(image string, opts PullOptions) error
	ImageExists(image string) (bool, error)
	ListImages(repository string) ([]ImageInfo, error)
	RemoveImage(imageID string, force bool) error

	// Health operations
	Ping() error
	Close() error
}
