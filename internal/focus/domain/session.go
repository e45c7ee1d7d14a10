package domain

import (
	"errors"
	"fmt"
	"time"
)

// SessionType distinguishes focus work from rest breaks.
type SessionType string

const (
	SessionWork SessionType = "WORK"
	SessionRest SessionType = "REST"
)

// IsValid reports whether the type is one of the known kinds.
func (t SessionType) IsValid() bool {
	return t == SessionWork || t == SessionRest
}

// DateBucketLayout is the key format for grouping sessions by calendar day.
const DateBucketLayout = "2006-01-02"

// Session is one finished work or rest interval. Records are created when
// a session ends, appended to history, and never mutated afterwards.
type Session struct {
	ID             string      `json:"id"`
	Type           SessionType `json:"type"`
	Task           string      `json:"task,omitempty"`
	PlannedSeconds int         `json:"planned_seconds"`
	ActualSeconds  int         `json:"actual_seconds"`
	StartedAt      time.Time   `json:"started_at"`
	EndedAt        time.Time   `json:"ended_at"`
	Completed      bool        `json:"completed"`
	Date           string      `json:"date"`
}

// NewSession builds a validated history record. The date bucket is
// derived from the end timestamp.
func NewSession(id string, typ SessionType, task string, plannedSeconds, actualSeconds int, startedAt, endedAt time.Time, completed bool) (Session, error) {
	s := Session{
		ID:             id,
		Type:           typ,
		Task:           task,
		PlannedSeconds: plannedSeconds,
		ActualSeconds:  actualSeconds,
		StartedAt:      startedAt,
		EndedAt:        endedAt,
		Completed:      completed,
		Date:           endedAt.Format(DateBucketLayout),
	}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Validate checks the record's internal consistency.
func (s Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is empty")
	}
	if !s.Type.IsValid() {
		return fmt.Errorf("invalid session type %q", s.Type)
	}
	if s.PlannedSeconds <= 0 {
		return fmt.Errorf("planned duration %d is not positive", s.PlannedSeconds)
	}
	if s.ActualSeconds < 0 {
		return fmt.Errorf("actual duration %d is negative", s.ActualSeconds)
	}
	if s.EndedAt.Before(s.StartedAt) {
		return errors.New("session ends before it starts")
	}
	return nil
}

// Duration returns the time the session actually ran.
func (s Session) Duration() time.Duration {
	return time.Duration(s.ActualSeconds) * time.Second
}

// DayStats is the per-day aggregate kept alongside raw history.
type DayStats struct {
	Date             string `json:"date"`
	WorkSessions     int    `json:"work_sessions"`
	CompletedWork    int    `json:"completed_work"`
	RestSessions     int    `json:"rest_sessions"`
	FocusSeconds     int    `json:"focus_seconds"`
	RestSeconds      int    `json:"rest_seconds"`
	TasksWorked      int    `json:"tasks_worked"`
	LongestFocusSecs int    `json:"longest_focus_seconds"`
}

// Add folds one finished session into the aggregate.
func (d *DayStats) Add(s Session) {
	switch s.Type {
	case SessionWork:
		d.WorkSessions++
		if s.Completed {
			d.CompletedWork++
		}
		d.FocusSeconds += s.ActualSeconds
		if s.ActualSeconds > d.LongestFocusSecs {
			d.LongestFocusSecs = s.ActualSeconds
		}
		if s.Task != "" {
			d.TasksWorked++
		}
	case SessionRest:
		d.RestSessions++
		d.RestSeconds += s.ActualSeconds
	}
}
