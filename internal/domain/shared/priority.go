package shared

import "fmt"

// Priority ranks how urgently an order must be dispatched.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var validPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityNormal: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// ParsePriority converts a wire string into a Priority. An empty string
// means the caller did not care and maps to normal.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityNormal, nil
	}
	p := Priority(s)
	if !validPriorities[p] {
		return "", NewValidationError("priority", fmt.Sprintf("unknown priority '%s'", s))
	}
	return p, nil
}

// IsValid reports whether the priority is one of the known levels.
func (p Priority) IsValid() bool {
	return validPriorities[p]
}

// ScoreBump is the additive urgency bonus granted by the priority level.
func (p Priority) ScoreBump() float64 {
	switch p {
	case PriorityHigh:
		return 0.05
	case PriorityUrgent:
		return 0.10
	default:
		return 0.0
	}
}

// Rank orders priorities for sorting, highest urgency first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	default:
		return 0
	}
}

func (p Priority) String() string {
	return string(p)
}
