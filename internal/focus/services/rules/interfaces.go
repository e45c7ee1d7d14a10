package rules

import "focusgate/internal/focus/domain"

// VerdictCache stores computed verdicts keyed by normalized site, so
// repeat navigations skip the rule scan. Implementations must be safe
// for concurrent use.
type VerdictCache interface {
	// Get returns the cached verdict for a key, if present.
	Get(key string) (domain.Verdict, bool)

	// Put stores a verdict under a key.
	Put(key string, v domain.Verdict)

	// Len returns the number of cached entries.
	Len() int

	// Purge drops every entry. Called whenever rules or toggles change.
	Purge()

	// Stats returns cumulative hit/miss/eviction counters.
	Stats() (hits, misses, evictions uint64)
}
