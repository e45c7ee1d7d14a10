package timer

import "focusgate/internal/focus/domain"

// Listener receives timer events. StatusUpdated fires on every countdown
// tick and on every state change; SessionCompleted fires only when a
// session runs out naturally, with the snapshot taken after the
// follow-up transition.
type Listener interface {
	StatusUpdated(status domain.TimerStatus)
	SessionCompleted(session domain.Session, status domain.TimerStatus)
}

// Recorder persists finished sessions, completed or interrupted. Append
// failures are logged and swallowed; history must never stall the timer.
type Recorder interface {
	Append(session domain.Session) error
}
