// Package guard composes the blocking decision: extension flag, timer
// state, work-hours window, and the rule engine verdict, in that strict
// order. It also fans timer events out to notification and status
// collaborators and exposes the typed command surface UI actions use.
package guard

import (
	"errors"
	"sync"

	"focusgate/internal/focus/common/clock"
	"focusgate/internal/focus/common/log"
	"focusgate/internal/focus/domain"
)

// ErrNoTimer is returned by Dispatch before a timer has been attached.
var ErrNoTimer = errors.New("no timer attached")

// Guard owns the composed blocking policy. One instance coordinates one
// rule engine and one timer.
type Guard struct {
	engine   RuleEngine
	clock    clock.Clock
	logger   log.Logger
	notifier Notifier
	sink     StatusSink

	mu       sync.RWMutex
	timer    SessionTimer
	settings domain.Settings
}

// Options configures a Guard. Engine is required; nil collaborators
// degrade to no-ops, a nil Clock to the system clock. The timer is
// attached separately because it is constructed with the guard as its
// event listener.
type Options struct {
	Engine   RuleEngine
	Clock    clock.Clock
	Logger   log.Logger
	Notifier Notifier
	Sink     StatusSink
	Settings domain.Settings
}

// New creates a Guard with no timer attached. Until AttachTimer is
// called, evaluation treats the timer as stopped.
func New(opts Options) *Guard {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	return &Guard{
		engine:   opts.Engine,
		clock:    opts.Clock,
		logger:   opts.Logger,
		notifier: opts.Notifier,
		sink:     opts.Sink,
		settings: opts.Settings,
	}
}

// AttachTimer wires the session timer in. Separate from New because the
// guard and the timer reference each other: the timer is constructed
// with the guard as listener, then handed here.
func (g *Guard) AttachTimer(t SessionTimer) {
	g.mu.Lock()
	g.timer = t
	g.mu.Unlock()
}

// Settings returns the current configuration snapshot.
func (g *Guard) Settings() domain.Settings {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.settings
}

// ApplySettings installs a new configuration and forwards the session
// parameters to the timer. Called on every settings-change notification;
// the struct is replaced wholesale.
func (g *Guard) ApplySettings(s domain.Settings) {
	g.mu.Lock()
	g.settings = s
	t := g.timer
	g.mu.Unlock()

	if t != nil {
		t.SetConfig(s.Pomodoro)
	}
	g.logger.Debug(map[string]any{
		"enabled": s.Enabled,
		"mode":    string(s.Mode),
	}, "settings applied")
}

// ApplyRules rebuilds the rule engine's collections from a change
// notification. Full replacement, never a merge.
func (g *Guard) ApplyRules(block, whitelist []string, blockToggles, whitelistToggles map[string]bool) {
	g.engine.ReplaceBlockRules(block)
	g.engine.ReplaceWhitelistRules(whitelist)
	g.engine.ReplaceBlockToggles(blockToggles)
	g.engine.ReplaceWhitelistToggles(whitelistToggles)
}

// Evaluate runs the composed policy for one navigation.
//
// The check order is load-bearing: a disabled extension blocks nothing;
// REST exempts everything; outside work hours only a running WORK
// session keeps blocking alive; only then do the rules speak.
func (g *Guard) Evaluate(site domain.SiteInfo) domain.Decision {
	g.mu.RLock()
	settings := g.settings
	t := g.timer
	g.mu.RUnlock()

	if !settings.Enabled {
		return domain.AllowDecision()
	}

	state := domain.TimerStopped
	if t != nil {
		state = t.Status().State
	}
	if state == domain.TimerRest {
		return domain.AllowDecision()
	}
	if state != domain.TimerWork && !settings.WorkHours.Contains(g.clock.Now()) {
		return domain.AllowDecision()
	}

	verdict := g.engine.ShouldBlock(site)
	if !verdict.Blocked {
		return domain.AllowDecision()
	}
	return g.decide(settings, verdict)
}

// EvaluateURL is Evaluate for a raw URL. A malformed URL is never
// blocked.
func (g *Guard) EvaluateURL(rawURL string) domain.Decision {
	site, err := domain.ParseSiteInfo(rawURL)
	if err != nil {
		return domain.AllowDecision()
	}
	return g.Evaluate(site)
}

// decide maps a positive verdict to the configured presentation.
func (g *Guard) decide(settings domain.Settings, verdict domain.Verdict) domain.Decision {
	if settings.Mode == domain.ModeRedirect {
		return domain.Decision{
			Action:       domain.ActionRedirect,
			MatchedRule:  verdict.MatchedRule,
			RedirectURL:  settings.SafeRedirectURL(),
			DelaySeconds: settings.RedirectDelay,
		}
	}
	return domain.Decision{
		Action:      domain.ActionOverlay,
		MatchedRule: verdict.MatchedRule,
	}
}

// Dispatch executes one typed timer command and returns the snapshot
// after it ran. Unrecognized variants fail with ErrUnknownCommand.
func (g *Guard) Dispatch(cmd domain.Command) (domain.TimerStatus, error) {
	g.mu.RLock()
	t := g.timer
	g.mu.RUnlock()
	if t == nil {
		return domain.TimerStatus{State: domain.TimerStopped}, ErrNoTimer
	}

	var err error
	switch c := cmd.(type) {
	case domain.StartWork:
		err = t.StartWork(c.Task)
	case domain.StartRest:
		err = t.StartRest()
	case domain.Pause:
		err = t.Pause()
	case domain.Resume:
		err = t.Resume()
	case domain.Stop:
		err = t.Stop()
	case domain.Skip:
		err = t.Skip()
	case domain.ResetCount:
		t.ResetSessionCount()
	case domain.SetTask:
		t.SetTask(c.Task)
	case domain.QueryStatus:
		// snapshot only
	default:
		return t.Status(), domain.ErrUnknownCommand
	}
	return t.Status(), err
}

// StatusUpdated forwards every timer snapshot to the status sink. The
// guard is the timer's listener.
func (g *Guard) StatusUpdated(status domain.TimerStatus) {
	g.sink.PushStatus(status)
}

// SessionCompleted turns a naturally finished session into a user
// notification, honoring the notification and sound settings.
func (g *Guard) SessionCompleted(sess domain.Session, status domain.TimerStatus) {
	g.mu.RLock()
	cfg := g.settings.Pomodoro
	g.mu.RUnlock()

	if !cfg.Notifications {
		return
	}
	autoNext := cfg.AutoStartRest
	if sess.Type == domain.SessionRest {
		autoNext = cfg.AutoStartWork
	}
	notice := domain.CompletionNotice(sess.Type, status.SessionCount, status.NextType, autoNext, cfg.Sound)
	g.notifier.Notify(notice)
}

type nopNotifier struct{}

func (nopNotifier) Notify(domain.Notice) {}

type nopSink struct{}

func (nopSink) PushStatus(domain.TimerStatus) {}
