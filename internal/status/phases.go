// Package status describes the observed state of managed instances: the
// manifest's desired attributes next to what Multipass reports.
package status

import "strings"

// Phase is the lifecycle state of an instance as reported by Multipass.
type Phase string

const (
	PhaseRunning         Phase = "Running"
	PhaseStopped         Phase = "Stopped"
	PhaseStarting        Phase = "Starting"
	PhaseRestarting      Phase = "Restarting"
	PhaseDelayedShutdown Phase = "Delayed Shutdown"
	PhaseSuspending      Phase = "Suspending"
	PhaseSuspended       Phase = "Suspended"
	PhaseDeleted         Phase = "Deleted"
	PhaseUnknown         Phase = "Unknown"

	// PhaseAbsent marks a configured instance Multipass does not know about.
	PhaseAbsent Phase = "Absent"
)

// ParsePhase maps a Multipass state string to a Phase.
// Unrecognized states map to PhaseUnknown.
func ParsePhase(state string) Phase {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "running":
		return PhaseRunning
	case "stopped":
		return PhaseStopped
	case "starting":
		return PhaseStarting
	case "restarting":
		return PhaseRestarting
	case "delayed shutdown":
		return PhaseDelayedShutdown
	case "suspending":
		return PhaseSuspending
	case "suspended":
		return PhaseSuspended
	case "deleted":
		return PhaseDeleted
	default:
		return PhaseUnknown
	}
}

// IsRunning returns true if the instance is running.
func IsRunning(phase Phase) bool {
	return phase == PhaseRunning || phase == PhaseDelayedShutdown
}

// IsTransitioning returns true if the instance is between two stable phases.
func IsTransitioning(phase Phase) bool {
	switch phase {
	case PhaseStarting, PhaseRestarting, PhaseDelayedShutdown, PhaseSuspending:
		return true
	default:
		return false
	}
}

// Exists returns true if Multipass still holds the instance. Deleted
// instances exist until purged.
func Exists(phase Phase) bool {
	return phase != PhaseAbsent
}
