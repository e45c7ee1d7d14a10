// Package timer implements the focus-session state machine: a countdown
// over STOPPED, WORK, REST, and PAUSED that emits a status snapshot on
// every tick and records finished sessions to history.
package timer

import (
	"context"
	"errors"
	"sync"
	"time"

	"focusgate/internal/focus/common/clock"
	"focusgate/internal/focus/common/log"
	"focusgate/internal/focus/domain"
)

var (
	// ErrTimerRunning is returned when a start operation finds a
	// session already in progress.
	ErrTimerRunning = errors.New("a session is already in progress")
	// ErrNotRunning is returned when pause finds no countdown to freeze.
	ErrNotRunning = errors.New("no session is running")
	// ErrNotPaused is returned when resume finds nothing frozen.
	ErrNotPaused = errors.New("timer is not paused")
)

// Service is the session timer. All state transitions go through its
// methods; the countdown advances via Run's ticker. Safe for concurrent
// use.
type Service struct {
	clock    clock.Clock
	ids      clock.IDGenerator
	logger   log.Logger
	listener Listener
	recorder Recorder
	interval time.Duration

	mu          sync.Mutex
	cfg         domain.Pomodoro
	state       domain.TimerState
	prior       domain.TimerState
	sessionType domain.SessionType
	next        domain.SessionType
	remaining   int
	total       int
	task        string
	count       int
	sessionID   string
	startedAt   time.Time
}

// Options configures a Service. Nil collaborators fall back to real
// implementations (system clock, random UUIDs) or no-ops (logger,
// listener, recorder). An unusable Config falls back to the defaults, the
// same degradation used when stored settings cannot be read.
type Options struct {
	Clock        clock.Clock
	IDs          clock.IDGenerator
	Logger       log.Logger
	Listener     Listener
	Recorder     Recorder
	Config       domain.Pomodoro
	TickInterval time.Duration
}

// New creates a stopped timer.
func New(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.IDs == nil {
		opts.IDs = clock.UUIDGenerator{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Listener == nil {
		opts.Listener = nopListener{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	cfg := opts.Config
	if !usable(cfg) {
		cfg = domain.DefaultSettings().Pomodoro
	}
	interval := opts.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Service{
		clock:    opts.Clock,
		ids:      opts.IDs,
		logger:   opts.Logger,
		listener: opts.Listener,
		recorder: opts.Recorder,
		interval: interval,
		cfg:      cfg,
		state:    domain.TimerStopped,
		next:     domain.SessionWork,
	}
}

// Run drives the countdown until ctx is cancelled. One tick per
// interval; ticks outside WORK and REST are ignored.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info(map[string]any{"interval": s.interval.String()}, "timer loop started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(map[string]any{}, "timer loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick()
		}
	}
}

// StartWork begins a focus session. Only valid while stopped.
func (s *Service) StartWork(task string) error {
	s.mu.Lock()
	if s.state != domain.TimerStopped {
		s.mu.Unlock()
		return ErrTimerRunning
	}
	s.task = task
	s.beginLocked(domain.SessionWork)
	st := s.statusLocked()
	s.mu.Unlock()

	s.listener.StatusUpdated(st)
	return nil
}

// StartRest begins a break. Only valid while stopped. Every
// LongRestInterval-th break (by completed-session count) runs for the
// long-rest duration instead of the short one.
func (s *Service) StartRest() error {
	s.mu.Lock()
	if s.state != domain.TimerStopped {
		s.mu.Unlock()
		return ErrTimerRunning
	}
	s.beginLocked(domain.SessionRest)
	st := s.statusLocked()
	s.mu.Unlock()

	s.listener.StatusUpdated(st)
	return nil
}

// Pause freezes the countdown, remembering whether work or rest was
// running. The remaining time does not change while paused.
func (s *Service) Pause() error {
	s.mu.Lock()
	if !s.state.Running() {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.prior = s.state
	s.state = domain.TimerPaused
	st := s.statusLocked()
	s.mu.Unlock()

	s.logger.Debug(map[string]any{"remaining": st.RemainingSeconds}, "timer paused")
	s.listener.StatusUpdated(st)
	return nil
}

// Resume continues a paused countdown in whichever state was paused.
func (s *Service) Resume() error {
	s.mu.Lock()
	if s.state != domain.TimerPaused {
		s.mu.Unlock()
		return ErrNotPaused
	}
	s.state = s.prior
	st := s.statusLocked()
	s.mu.Unlock()

	s.listener.StatusUpdated(st)
	return nil
}

// Stop ends any in-progress session, recording it as interrupted, and
// zeroes the countdown. Stopping a stopped timer is a no-op. The
// interrupted session type stays next, so a restart redoes it.
func (s *Service) Stop() error {
	s.mu.Lock()
	if s.state == domain.TimerStopped {
		s.mu.Unlock()
		return nil
	}
	sess, err := s.sessionLocked(false)
	s.next = s.sessionType
	s.clearLocked()
	st := s.statusLocked()
	s.mu.Unlock()

	s.record(sess, err)
	s.logger.Info(map[string]any{"type": string(sess.Type), "actual_seconds": sess.ActualSeconds}, "session stopped")
	s.listener.StatusUpdated(st)
	return nil
}

// Skip abandons the current session, recording it as interrupted, and
// immediately starts the opposite type. From STOPPED it starts whatever
// session is next.
func (s *Service) Skip() error {
	s.mu.Lock()
	var (
		sess    domain.Session
		sessErr error
		ended   bool
	)
	nextType := s.next
	if s.state != domain.TimerStopped {
		sess, sessErr = s.sessionLocked(false)
		nextType = other(s.sessionType)
		ended = true
	}
	s.beginLocked(nextType)
	st := s.statusLocked()
	s.mu.Unlock()

	if ended {
		s.record(sess, sessErr)
	}
	s.listener.StatusUpdated(st)
	return nil
}

// ResetSessionCount zeroes the completed-session counter without
// touching the running countdown.
func (s *Service) ResetSessionCount() {
	s.mu.Lock()
	s.count = 0
	st := s.statusLocked()
	s.mu.Unlock()

	s.listener.StatusUpdated(st)
}

// SetTask relabels the current session, or the next one when stopped.
// Timing is unaffected.
func (s *Service) SetTask(task string) {
	s.mu.Lock()
	s.task = task
	st := s.statusLocked()
	s.mu.Unlock()

	s.listener.StatusUpdated(st)
}

// SetConfig applies new session parameters. The in-progress session
// keeps its planned time; new durations apply from the next session. An
// unusable config is rejected in favor of the current one.
func (s *Service) SetConfig(cfg domain.Pomodoro) {
	s.mu.Lock()
	if !usable(cfg) {
		s.mu.Unlock()
		s.logger.Warn(map[string]any{"work_minutes": cfg.WorkMinutes}, "ignoring unusable timer config")
		return
	}
	s.cfg = cfg
	st := s.statusLocked()
	s.mu.Unlock()

	s.listener.StatusUpdated(st)
}

// Status returns the current snapshot.
func (s *Service) Status() domain.TimerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// tick advances the countdown by one second while WORK or REST is
// running, completing the session when it reaches zero.
func (s *Service) tick() {
	s.mu.Lock()
	if !s.state.Running() {
		s.mu.Unlock()
		return
	}
	s.remaining--
	if s.remaining > 0 {
		st := s.statusLocked()
		s.mu.Unlock()
		s.listener.StatusUpdated(st)
		return
	}

	// session ran out
	sess, sessErr := s.sessionLocked(true)
	finished := s.sessionType
	if finished == domain.SessionWork {
		s.count++
	}
	switch {
	case finished == domain.SessionWork && s.cfg.AutoStartRest:
		s.beginLocked(domain.SessionRest)
	case finished == domain.SessionRest && s.cfg.AutoStartWork:
		s.beginLocked(domain.SessionWork)
	default:
		s.clearLocked()
	}
	st := s.statusLocked()
	s.mu.Unlock()

	s.record(sess, sessErr)
	s.logger.Info(map[string]any{
		"type":  string(finished),
		"count": st.SessionCount,
		"next":  string(st.NextType),
	}, "session completed")
	if sessErr == nil {
		s.listener.SessionCompleted(sess, st)
	}
	s.listener.StatusUpdated(st)
}

// beginLocked starts a session of the given type, resetting the
// countdown and flipping the next-session type.
func (s *Service) beginLocked(typ domain.SessionType) {
	secs := s.plannedSecondsLocked(typ)
	s.sessionType = typ
	s.next = other(typ)
	s.total = secs
	s.remaining = secs
	s.startedAt = s.clock.Now()
	s.sessionID = s.ids.New()
	if typ == domain.SessionWork {
		s.state = domain.TimerWork
	} else {
		s.state = domain.TimerRest
	}
	s.logger.Info(map[string]any{
		"type":    string(typ),
		"seconds": secs,
		"task":    s.task,
	}, "session started")
}

// clearLocked returns the timer to STOPPED with a zeroed countdown.
func (s *Service) clearLocked() {
	s.state = domain.TimerStopped
	s.remaining = 0
	s.total = 0
	s.sessionID = ""
}

// sessionLocked builds the history record for the in-progress session.
func (s *Service) sessionLocked(completed bool) (domain.Session, error) {
	return domain.NewSession(
		s.sessionID,
		s.sessionType,
		s.task,
		s.total,
		s.total-s.remaining,
		s.startedAt,
		s.clock.Now(),
		completed,
	)
}

// statusLocked assembles the observable snapshot.
func (s *Service) statusLocked() domain.TimerStatus {
	return domain.TimerStatus{
		State:            s.state,
		RemainingSeconds: s.remaining,
		TotalSeconds:     s.total,
		Task:             s.task,
		SessionCount:     s.count,
		NextType:         s.next,
		NextTotalSeconds: s.plannedSecondsLocked(s.next),
	}
}

// plannedSecondsLocked resolves a session type to its planned length,
// picking the long rest when the completed-session count lands on the
// configured interval.
func (s *Service) plannedSecondsLocked(typ domain.SessionType) int {
	if typ == domain.SessionWork {
		return seconds(s.cfg.WorkDuration())
	}
	if s.cfg.LongRestInterval > 0 && s.count%s.cfg.LongRestInterval == 0 {
		return seconds(s.cfg.LongRestDuration())
	}
	return seconds(s.cfg.RestDuration())
}

// record appends a finished session to history. Failures are logged,
// never propagated; a broken history store must not wedge the timer.
func (s *Service) record(sess domain.Session, buildErr error) {
	if buildErr != nil {
		s.logger.Error(map[string]any{"error": buildErr.Error()}, "dropping malformed session record")
		return
	}
	if err := s.recorder.Append(sess); err != nil {
		s.logger.Error(map[string]any{"error": err.Error(), "session": sess.ID}, "failed to record session")
	}
}

func usable(cfg domain.Pomodoro) bool {
	return cfg.WorkMinutes > 0 && cfg.RestMinutes > 0 && cfg.LongRestMinutes > 0 && cfg.LongRestInterval > 0
}

func other(typ domain.SessionType) domain.SessionType {
	if typ == domain.SessionWork {
		return domain.SessionRest
	}
	return domain.SessionWork
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

// nopListener and nopRecorder back services constructed without
// collaborators.
type nopListener struct{}

func (nopListener) StatusUpdated(domain.TimerStatus)                    {}
func (nopListener) SessionCompleted(domain.Session, domain.TimerStatus) {}

type nopRecorder struct{}

func (nopRecorder) Append(domain.Session) error { return nil }
