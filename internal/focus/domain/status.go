package domain

import "fmt"

// TimerState is the session timer's coarse state.
type TimerState string

const (
	TimerStopped TimerState = "STOPPED"
	TimerWork    TimerState = "WORK"
	TimerRest    TimerState = "REST"
	TimerPaused  TimerState = "PAUSED"
)

// IsValid reports whether the state is one of the known states.
func (s TimerState) IsValid() bool {
	switch s {
	case TimerStopped, TimerWork, TimerRest, TimerPaused:
		return true
	}
	return false
}

// Running reports whether the countdown is ticking in this state.
func (s TimerState) Running() bool {
	return s == TimerWork || s == TimerRest
}

// Status symbols (Unicode)
const (
	SymbolWork    = "●" // Green - focus session running
	SymbolRest    = "○" // Blue - on a break
	SymbolPaused  = "◐" // Yellow - countdown frozen
	SymbolStopped = "■" // Gray - no session
)

// Symbol returns the one-glyph indicator for the state.
func (s TimerState) Symbol() string {
	switch s {
	case TimerWork:
		return SymbolWork
	case TimerRest:
		return SymbolRest
	case TimerPaused:
		return SymbolPaused
	default:
		return SymbolStopped
	}
}

// TimerStatus is the timer's externally observable snapshot, pushed on
// every tick and on every state change.
type TimerStatus struct {
	State            TimerState  `json:"state"`
	RemainingSeconds int         `json:"remaining_seconds"`
	TotalSeconds     int         `json:"total_seconds"`
	Task             string      `json:"task,omitempty"`
	SessionCount     int         `json:"session_count"`
	NextType         SessionType `json:"next_type"`
	NextTotalSeconds int         `json:"next_total_seconds"`
}

// Percent returns completion progress in [0,100]. A zero-length session
// reports 0.
func (st TimerStatus) Percent() float64 {
	if st.TotalSeconds <= 0 {
		return 0
	}
	elapsed := st.TotalSeconds - st.RemainingSeconds
	return float64(elapsed) / float64(st.TotalSeconds) * 100
}

// Clock returns the remaining time as "MM:SS". Sessions over an hour
// roll the minutes past 59 rather than truncating.
func (st TimerStatus) Clock() string {
	r := st.RemainingSeconds
	if r < 0 {
		r = 0
	}
	return fmt.Sprintf("%02d:%02d", r/60, r%60)
}

// SessionNumber returns the 1-based position within the current long-rest
// cycle, for "session 2 of 4" displays. Interval values below one are
// treated as one.
func (st TimerStatus) SessionNumber(interval int) int {
	if interval < 1 {
		interval = 1
	}
	return st.SessionCount%interval + 1
}

// Label returns the human-readable line for the current state.
func (st TimerStatus) Label() string {
	switch st.State {
	case TimerWork:
		if st.Task != "" {
			return fmt.Sprintf("%s Focus: %s", SymbolWork, st.Task)
		}
		return SymbolWork + " Focus"
	case TimerRest:
		return SymbolRest + " Break"
	case TimerPaused:
		return SymbolPaused + " Paused"
	default:
		return SymbolStopped + " Stopped"
	}
}
