package domain

import (
	"net/url"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
)

// BlockMode selects what happens when a navigation is blocked.
type BlockMode string

const (
	// ModeBlock shows the block overlay immediately.
	ModeBlock BlockMode = "block"
	// ModeRedirect sends the visitor to a configured URL, after an
	// optional countdown.
	ModeRedirect BlockMode = "redirect"
)

// DefaultRedirectURL is used when redirect mode is selected without a
// usable target, or when the configured target has a non-http scheme.
const DefaultRedirectURL = "https://www.google.com"

// WorkHours is a weekly recurring window during which schedule-based
// blocking applies.
type WorkHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start" validate:"datetime=15:04"`
	End     string `json:"end" validate:"datetime=15:04"`
	Days    []int  `json:"days" validate:"dive,gte=0,lte=6"`
}

// Contains reports whether t falls inside the window. A disabled window
// contains every instant, so schedule-based blocking stays in force when
// the user has not restricted it. Start and end are compared inclusively
// as "HH:MM" strings in t's location.
func (w WorkHours) Contains(t time.Time) bool {
	if !w.Enabled {
		return true
	}
	if !slices.Contains(w.Days, int(t.Weekday())) {
		return false
	}
	now := t.Format("15:04")
	return now >= w.Start && now <= w.End
}

// Pomodoro holds the focus-session parameters. Durations are minutes,
// fractional values allowed for sub-minute precision.
type Pomodoro struct {
	WorkMinutes      float64 `json:"work_minutes" validate:"gt=0,lte=120"`
	RestMinutes      float64 `json:"rest_minutes" validate:"gt=0,lte=60"`
	LongRestMinutes  float64 `json:"long_rest_minutes" validate:"gt=0"`
	LongRestInterval int     `json:"long_rest_interval" validate:"gte=2,lte=10"`
	AutoStartRest    bool    `json:"auto_start_rest"`
	AutoStartWork    bool    `json:"auto_start_work"`
	Notifications    bool    `json:"notifications"`
	Sound            bool    `json:"sound"`
}

// WorkDuration returns the planned work length.
func (p Pomodoro) WorkDuration() time.Duration { return minutesToDuration(p.WorkMinutes) }

// RestDuration returns the planned short-rest length.
func (p Pomodoro) RestDuration() time.Duration { return minutesToDuration(p.RestMinutes) }

// LongRestDuration returns the planned long-rest length.
func (p Pomodoro) LongRestDuration() time.Duration { return minutesToDuration(p.LongRestMinutes) }

func minutesToDuration(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

// Settings is the full user configuration. It is persisted as one JSON
// document and rebuilt wholesale on every change notification.
type Settings struct {
	Enabled       bool      `json:"enabled"`
	Debug         bool      `json:"debug"`
	Mode          BlockMode `json:"mode" validate:"oneof=block redirect"`
	RedirectURL   string    `json:"redirect_url"`
	RedirectDelay int       `json:"redirect_delay" validate:"gte=0,lte=30"`
	WorkHours     WorkHours `json:"work_hours"`
	Pomodoro      Pomodoro  `json:"pomodoro"`
}

// DefaultSettings returns the configuration used on first run and
// whenever stored settings cannot be read.
func DefaultSettings() Settings {
	return Settings{
		Enabled:       true,
		Mode:          ModeBlock,
		RedirectURL:   DefaultRedirectURL,
		RedirectDelay: 10,
		WorkHours: WorkHours{
			Enabled: false,
			Start:   "09:00",
			End:     "17:00",
			Days:    []int{1, 2, 3, 4, 5},
		},
		Pomodoro: Pomodoro{
			WorkMinutes:      25,
			RestMinutes:      5,
			LongRestMinutes:  15,
			LongRestInterval: 4,
			AutoStartRest:    true,
			AutoStartWork:    false,
			Notifications:    true,
			Sound:            true,
		},
	}
}

var settingsValidate = newSettingsValidator()

func newSettingsValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(settingsStructLevel, Settings{})
	return v
}

// settingsStructLevel enforces the cross-field rules tags cannot express:
// redirect mode needs an absolute http(s) target, and an enabled
// work-hours window needs at least one weekday.
func settingsStructLevel(sl validator.StructLevel) {
	s := sl.Current().Interface().(Settings)
	if s.Mode == ModeRedirect && !isHTTPURL(s.RedirectURL) {
		sl.ReportError(s.RedirectURL, "RedirectURL", "redirect_url", "http_url", "")
	}
	if s.WorkHours.Enabled && len(s.WorkHours.Days) == 0 {
		sl.ReportError(s.WorkHours.Days, "WorkHours.Days", "work_hours.days", "min", "1")
	}
}

// Validate checks the settings against all write-boundary rules. Stores
// call this before persisting; invalid settings are rejected without a
// write.
func (s Settings) Validate() error {
	return settingsValidate.Struct(s)
}

// isHTTPURL reports whether raw is an absolute http or https URL.
func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SafeRedirectURL returns the configured redirect target when it is an
// absolute http(s) URL, and the default target otherwise. Non-web
// schemes never reach the navigation layer.
func (s Settings) SafeRedirectURL() string {
	if isHTTPURL(s.RedirectURL) {
		return s.RedirectURL
	}
	return DefaultRedirectURL
}
