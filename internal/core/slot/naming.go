package slot

import (
	"fmt"
	"strings"
)

// =============================================================================
// Container Naming
// =============================================================================

// ContainerName generates the container name for a service slot.
// Pattern: {service}-{color}
//
// Example:
//
//	ContainerName("webapp", ColorBlue) // returns "webapp-blue"
func ContainerName(service string, color Color) string {
	return fmt.Sprintf("%s-%s", service, color)
}

// ParseContainerName extracts the service and color from a container name
// following the {service}-{color} convention. Returns ok=false for names
// that do not match the convention.
func ParseContainerName(name string) (service string, color Color, ok bool) {
	idx := strings.LastIndex(name, "-")
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	color = Color(name[idx+1:])
	if !color.Valid() {
		return "", "", false
	}
	return name[:idx], color, true
}

// =============================================================================
// Label Constants
// =============================================================================

const (
	LabelManaged = "com.switchyard.managed"
	LabelService = "com.switchyard.service"
	LabelColor   = "com.switchyard.color"
)
