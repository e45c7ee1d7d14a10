package domain

// Verdict is the rule engine's answer for one site.
// Pure value type, no external dependencies.
type Verdict struct {
	Blocked     bool      // true if an enabled block rule matched and no whitelist exempted it
	MatchedRule string    // pattern that matched, as stored
	Kind        MatchKind // how the pattern matched
}

// IsBlocked is a convenience accessor.
func (v Verdict) IsBlocked() bool { return v.Blocked }

// EmptyVerdict returns a not-blocked verdict.
func EmptyVerdict() Verdict { return Verdict{Blocked: false} }

// Action is what the presentation layer should do with a navigation.
type Action int

const (
	// ActionAllow lets the navigation proceed untouched.
	ActionAllow Action = iota
	// ActionOverlay covers the page with the block overlay.
	ActionOverlay
	// ActionRedirect sends the visitor to RedirectURL, after
	// DelaySeconds of countdown (zero means immediately).
	ActionRedirect
)

// String returns the action name as used in logs.
func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionOverlay:
		return "overlay"
	case ActionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the coordinator's composed outcome for one navigation:
// the verdict plus the configured presentation of it.
type Decision struct {
	Action       Action
	MatchedRule  string
	RedirectURL  string // set only for ActionRedirect
	DelaySeconds int    // set only for ActionRedirect
}

// Blocks reports whether the navigation should be interfered with.
func (d Decision) Blocks() bool { return d.Action != ActionAllow }

// AllowDecision returns a no-interference decision.
func AllowDecision() Decision { return Decision{Action: ActionAllow} }
