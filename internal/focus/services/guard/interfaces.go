package guard

import "focusgate/internal/focus/domain"

// RuleEngine is the guard's view of the rule collections: the per-site
// verdict plus wholesale replacement on change notifications.
type RuleEngine interface {
	ShouldBlock(site domain.SiteInfo) domain.Verdict
	ReplaceBlockRules(patterns []string)
	ReplaceWhitelistRules(patterns []string)
	ReplaceBlockToggles(toggles map[string]bool)
	ReplaceWhitelistToggles(toggles map[string]bool)
}

// SessionTimer is the guard's view of the timer: the command operations
// and the live snapshot.
type SessionTimer interface {
	StartWork(task string) error
	StartRest() error
	Pause() error
	Resume() error
	Stop() error
	Skip() error
	ResetSessionCount()
	SetTask(task string)
	SetConfig(cfg domain.Pomodoro)
	Status() domain.TimerStatus
}

// Notifier delivers session-complete notices to the user. Rendering and
// audio are the implementation's concern.
type Notifier interface {
	Notify(notice domain.Notice)
}

// StatusSink receives the timer snapshot on every tick and state change,
// for badges, popups, and anything else that mirrors the countdown.
type StatusSink interface {
	PushStatus(status domain.TimerStatus)
}
