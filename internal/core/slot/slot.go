// Package slot provides the pure blue-green slot model.
// This package has no I/O dependencies and is tested with values in/out.
package slot

import "fmt"

// =============================================================================
// Colors
// =============================================================================

// Color identifies one of the two fixed deployment positions for a service.
type Color string

const (
	ColorBlue  Color = "blue"
	ColorGreen Color = "green"
)

// Other returns the complementary color.
func (c Color) Other() Color {
	if c == ColorBlue {
		return ColorGreen
	}
	return ColorBlue
}

// Valid reports whether the color is one of the two known colors.
func (c Color) Valid() bool {
	return c == ColorBlue || c == ColorGreen
}

// =============================================================================
// Status
// =============================================================================

// Status represents the lifecycle state of a slot.
type Status string

const (
	// StatusEmpty means no container occupies the slot.
	StatusEmpty Status = "empty"

	// StatusStarting means a container was started but has not passed the
	// health gate yet.
	StatusStarting Status = "starting"

	// StatusHealthy means the slot passed the health gate and may receive
	// traffic.
	StatusHealthy Status = "healthy"

	// StatusUnhealthy means the slot's container is running but failed (or
	// never passed) the health gate. It must not receive traffic.
	StatusUnhealthy Status = "unhealthy"

	// StatusRetired means the slot was switched away from and its container
	// is being torn down.
	StatusRetired Status = "retired"
)

// =============================================================================
// Slot
// =============================================================================

// Slot is one of the two deployment positions (blue/green) for a service.
type Slot struct {
	// Color is the slot's fixed position.
	Color Color

	// Port is the externally reachable host port bound to this slot.
	Port int

	// ContainerID is the runtime handle of the container occupying the
	// slot, or "" when the slot is empty.
	ContainerID string

	// Image is the image reference running in the slot, or "" when empty.
	Image string

	// Status is the slot's lifecycle state.
	Status Status
}

// IsEmpty reports whether no container occupies the slot.
func (s Slot) IsEmpty() bool {
	return s.ContainerID == ""
}

// CanReceiveTraffic reports whether the proxy may be pointed at the slot.
// Only healthy slots with a valid port qualify.
func (s Slot) CanReceiveTraffic() bool {
	return s.Status == StatusHealthy && s.Port > 0
}

// Address returns the upstream address for the slot on the proxy host.
func (s Slot) Address() string {
	return fmt.Sprintf("127.0.0.1:%d", s.Port)
}

// =============================================================================
// Ports
// =============================================================================

// Ports assigns the fixed host port for each color of a service.
type Ports struct {
	Blue  int
	Green int
}

// For returns the host port assigned to the given color.
func (p Ports) For(c Color) int {
	if c == ColorBlue {
		return p.Blue
	}
	return p.Green
}
