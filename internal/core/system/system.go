package system

import "time"

// Phase defines execution ordering within a single client frame.
type Phase int

const (
	PhaseInput    Phase = iota // 0: drain inbound packets into handlers
	PhaseDispatch              // 1: deliver last frame's events
	PhaseUpdate                // 2: world clock, entity animation
	PhaseOutput                // 3: flush outbound packets
	PhaseCleanup               // 4: housekeeping

	phaseCount
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseDispatch:
		return "dispatch"
	case PhaseUpdate:
		return "update"
	case PhaseOutput:
		return "output"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is one step of the client frame.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
