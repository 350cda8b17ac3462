package slot

import "errors"

// =============================================================================
// Slot Resolution
// =============================================================================

// ErrAmbiguousState is returned when both colors are running and the proxy
// points at neither of them. This must never occur under correct operation;
// it requires manual intervention rather than automated repair.
var ErrAmbiguousState = errors.New("ambiguous slot state: both colors running, proxy points at neither")

// ContainerState is the subset of runtime container info the resolver needs
// for one color. A nil *ContainerState means no container exists for that
// color.
type ContainerState struct {
	ID      string
	Image   string
	Running bool
}

// Resolve determines the active and inactive slots for a service from what
// the container runtime reports for each color and the proxy's active port.
// activePort is 0 when the proxy has no upstream configured yet.
//
// Resolution is deterministic: re-running it on an unchanged runtime state
// yields the same result.
//
// First deployment (neither color running, no active port): blue is the
// inactive/target slot and green is active-but-absent, so the first switch
// has nothing to drain away from.
func Resolve(ports Ports, blue, green *ContainerState, activePort int) (active, inactive Slot, err error) {
	blueSlot := observe(ColorBlue, ports, blue)
	greenSlot := observe(ColorGreen, ports, green)

	blueRunning := blue != nil && blue.Running
	greenRunning := green != nil && green.Running

	switch {
	case !blueRunning && !greenRunning:
		// First deployment: target blue, treat green as the absent active.
		return greenSlot, blueSlot, nil

	case blueRunning && !greenRunning:
		return blueSlot, greenSlot, nil

	case greenRunning && !blueRunning:
		return greenSlot, blueSlot, nil

	default:
		// Both running: the proxy decides which one is active.
		switch activePort {
		case blueSlot.Port:
			greenSlot.Status = StatusUnhealthy // leftover, untrafficked
			return blueSlot, greenSlot, nil
		case greenSlot.Port:
			blueSlot.Status = StatusUnhealthy
			return greenSlot, blueSlot, nil
		default:
			return Slot{}, Slot{}, ErrAmbiguousState
		}
	}
}

// observe builds the slot view for one color from the runtime report.
func observe(color Color, ports Ports, state *ContainerState) Slot {
	s := Slot{
		Color:  color,
		Port:   ports.For(color),
		Status: StatusEmpty,
	}
	if state == nil {
		return s
	}
	s.ContainerID = state.ID
	s.Image = state.Image
	if state.Running {
		s.Status = StatusHealthy
	} else {
		// A stopped container does not occupy the slot; the next deployment
		// replaces it.
		s.Status = StatusEmpty
	}
	return s
}
