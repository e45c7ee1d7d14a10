package domain

import "errors"

// ErrUnknownCommand is returned by dispatchers handed a Command variant
// they do not recognize.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one user-triggered timer action. The set of variants is
// closed; dispatchers switch over the concrete types and reject anything
// else with ErrUnknownCommand.
type Command interface {
	isCommand()
}

// StartWork begins a focus session with an optional task label.
type StartWork struct {
	Task string
}

// StartRest begins a rest break.
type StartRest struct{}

// Pause freezes the running countdown.
type Pause struct{}

// Resume continues a paused countdown.
type Resume struct{}

// Stop ends the current session and returns the timer to STOPPED.
type Stop struct{}

// Skip abandons the current session and starts the next one immediately.
type Skip struct{}

// ResetCount zeroes the completed-session counter.
type ResetCount struct{}

// SetTask relabels the in-progress session without touching the clock.
type SetTask struct {
	Task string
}

// QueryStatus asks for the current timer snapshot without changing state.
type QueryStatus struct{}

func (StartWork) isCommand()   {}
func (StartRest) isCommand()   {}
func (Pause) isCommand()       {}
func (Resume) isCommand()      {}
func (Stop) isCommand()        {}
func (Skip) isCommand()        {}
func (ResetCount) isCommand()  {}
func (SetTask) isCommand()     {}
func (QueryStatus) isCommand() {}
