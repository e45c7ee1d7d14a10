package domain

import "fmt"

// NoticeType tags a completion notice for the presentation layer.
type NoticeType string

const (
	NoticeWorkComplete NoticeType = "work_complete"
	NoticeRestComplete NoticeType = "rest_complete"
)

// Notice is the content of a session-complete notification. The guard
// hands it to a Notifier; rendering and sound are the collaborator's
// concern.
type Notice struct {
	Type    NoticeType `json:"type"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Sound   bool       `json:"sound"`
}

// CompletionNotice builds the notification for a naturally finished
// session. next describes what the timer will run (or offer) afterwards,
// autoNext whether it starts on its own.
func CompletionNotice(finished SessionType, count int, next SessionType, autoNext bool, sound bool) Notice {
	if finished == SessionWork {
		msg := fmt.Sprintf("Focus session %d complete.", count)
		if autoNext {
			msg += " Break starting."
		} else {
			msg += " Time for a break."
		}
		return Notice{
			Type:    NoticeWorkComplete,
			Title:   "Focus complete",
			Message: msg,
			Sound:   sound,
		}
	}
	msg := "Break over."
	if autoNext {
		msg += " Next focus session starting."
	} else {
		msg += " Ready for the next focus session."
	}
	return Notice{
		Type:    NoticeRestComplete,
		Title:   "Break complete",
		Message: msg,
		Sound:   sound,
	}
}
