// Package rules holds the blocking rule engine: two toggleable pattern
// collections (block and whitelist) and the decision logic that matches
// navigations against them.
package rules

import (
	"strings"
	"sync"

	"focusgate/internal/focus/common/log"
	"focusgate/internal/focus/domain"
)

// Engine owns the block and whitelist collections and answers, per site,
// whether navigation should be blocked. Collections are replaced
// wholesale on configuration changes, never patched.
type Engine struct {
	mu      sync.RWMutex
	block   map[string]domain.Rule
	blockOn map[string]bool
	allow   map[string]domain.Rule
	allowOn map[string]bool
	cache   VerdictCache
	logger  log.Logger
}

// Options configures an Engine. A nil Cache disables verdict caching; a
// nil Logger discards engine logs.
type Options struct {
	Cache  VerdictCache
	Logger log.Logger
}

// New creates an empty Engine. With no rules loaded every verdict is
// not-blocked.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Cache == nil {
		opts.Cache = nopCache{}
	}
	return &Engine{
		block:   make(map[string]domain.Rule),
		blockOn: make(map[string]bool),
		allow:   make(map[string]domain.Rule),
		allowOn: make(map[string]bool),
		cache:   opts.Cache,
		logger:  opts.Logger,
	}
}

// ReplaceBlockRules swaps in a new block collection. Patterns are
// lower-cased and de-duplicated; toggle state for patterns no longer
// present is dropped.
func (e *Engine) ReplaceBlockRules(patterns []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.block = buildRules(patterns)
	e.blockOn = retainToggles(e.blockOn, e.block)
	e.cache.Purge()
	e.logger.Debug(map[string]any{"count": len(e.block)}, "block rules replaced")
}

// ReplaceWhitelistRules swaps in a new whitelist collection.
func (e *Engine) ReplaceWhitelistRules(patterns []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.allow = buildRules(patterns)
	e.allowOn = retainToggles(e.allowOn, e.allow)
	e.cache.Purge()
	e.logger.Debug(map[string]any{"count": len(e.allow)}, "whitelist rules replaced")
}

// ReplaceBlockToggles swaps in the enabled/disabled map for block rules.
// Patterns absent from the map stay enabled.
func (e *Engine) ReplaceBlockToggles(toggles map[string]bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blockOn = normalizeToggles(toggles)
	e.cache.Purge()
}

// ReplaceWhitelistToggles swaps in the enabled/disabled map for
// whitelist rules.
func (e *Engine) ReplaceWhitelistToggles(toggles map[string]bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.allowOn = normalizeToggles(toggles)
	e.cache.Purge()
}

// HasBlockRule reports whether the pattern is in the block collection,
// enabled or not. Membership is case-insensitive.
func (e *Engine) HasBlockRule(pattern string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.block[strings.ToLower(strings.TrimSpace(pattern))]
	return ok
}

// HasWhitelistRule reports whether the pattern is in the whitelist.
func (e *Engine) HasWhitelistRule(pattern string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.allow[strings.ToLower(strings.TrimSpace(pattern))]
	return ok
}

// IsWhitelisted reports whether an enabled whitelist rule exempts the
// site. Domain-only whitelist rules match the exact host alone; a
// whitelisted parent never covers its subdomains.
func (e *Engine) IsWhitelisted(site domain.SiteInfo) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.matchWhitelist(site)
	return ok
}

// MatchingWhitelistRule returns the whitelist pattern that exempts the
// site, for management surfaces that show why a page is not blocked.
func (e *Engine) MatchingWhitelistRule(site domain.SiteInfo) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matchWhitelist(site)
}

// ShouldBlock runs the full decision for a site: whitelist first, then
// the block rules, honoring per-rule toggles. The first enabled matching
// block rule wins; no ordering is promised when several could match.
func (e *Engine) ShouldBlock(site domain.SiteInfo) domain.Verdict {
	key := cacheKey(site)
	if v, ok := e.cache.Get(key); ok {
		return v
	}

	e.mu.RLock()
	v := e.decide(site)
	e.mu.RUnlock()

	e.cache.Put(key, v)
	if v.Blocked {
		e.logger.Debug(map[string]any{
			"host": site.Host(),
			"rule": v.MatchedRule,
			"kind": v.Kind.String(),
		}, "navigation blocked")
	}
	return v
}

// ShouldBlockURL is ShouldBlock for a raw URL string. A malformed URL is
// no match, never an error.
func (e *Engine) ShouldBlockURL(rawURL string) domain.Verdict {
	site, err := domain.ParseSiteInfo(rawURL)
	if err != nil {
		return domain.EmptyVerdict()
	}
	return e.ShouldBlock(site)
}

// Stats describes the engine's collections and cache behavior.
type Stats struct {
	BlockRules     int
	WhitelistRules int
	CacheEntries   int
	CacheHits      uint64
	CacheMisses    uint64
	CacheEvictions uint64
}

// Stats returns a snapshot of collection sizes and cache counters.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	blocks, allows := len(e.block), len(e.allow)
	e.mu.RUnlock()
	hits, misses, evictions := e.cache.Stats()
	return Stats{
		BlockRules:     blocks,
		WhitelistRules: allows,
		CacheEntries:   e.cache.Len(),
		CacheHits:      hits,
		CacheMisses:    misses,
		CacheEvictions: evictions,
	}
}

// decide runs the uncached decision under the read lock.
func (e *Engine) decide(site domain.SiteInfo) domain.Verdict {
	if _, ok := e.matchWhitelist(site); ok {
		return domain.EmptyVerdict()
	}
	for pattern, rule := range e.block {
		if !enabled(e.blockOn, pattern) {
			continue
		}
		kind := rule.Match(site)
		if kind == domain.MatchNone {
			continue
		}
		// An exact whitelist entry for the subdomain vetoes a
		// parent-domain block, but not a substring match.
		if kind == domain.MatchSubdomain && e.whitelistedExactly(site) {
			continue
		}
		return domain.Verdict{Blocked: true, MatchedRule: pattern, Kind: kind}
	}
	return domain.EmptyVerdict()
}

// matchWhitelist returns the first enabled whitelist pattern covering
// the site. Callers hold at least the read lock.
func (e *Engine) matchWhitelist(site domain.SiteInfo) (string, bool) {
	for pattern, rule := range e.allow {
		if !enabled(e.allowOn, pattern) {
			continue
		}
		if rule.HasPath() {
			if rule.Match(site) == domain.MatchPath {
				return pattern, true
			}
			continue
		}
		if rule.MatchesExactDomain(site) {
			return pattern, true
		}
	}
	return "", false
}

// whitelistedExactly reports whether the site's exact host is an enabled
// domain-only whitelist entry.
func (e *Engine) whitelistedExactly(site domain.SiteInfo) bool {
	for pattern, rule := range e.allow {
		if !enabled(e.allowOn, pattern) {
			continue
		}
		if rule.MatchesExactDomain(site) {
			return true
		}
	}
	return false
}

// WouldBlock reports whether a URL matches any pattern in a candidate
// list, all patterns treated as enabled. Management surfaces use it to
// preview a rule's effect without touching engine state.
func WouldBlock(patterns []string, rawURL string) bool {
	site, err := domain.ParseSiteInfo(rawURL)
	if err != nil {
		return false
	}
	for _, p := range patterns {
		if domain.ParseRule(p).Match(site) != domain.MatchNone {
			return true
		}
	}
	return false
}

// buildRules parses and de-duplicates a pattern list, dropping entries
// with no domain part.
func buildRules(patterns []string) map[string]domain.Rule {
	rules := make(map[string]domain.Rule, len(patterns))
	for _, p := range patterns {
		r := domain.ParseRule(p)
		if r.Validate() != nil {
			continue
		}
		rules[r.Raw] = r
	}
	return rules
}

// retainToggles keeps toggle entries whose pattern survived a
// collection replacement.
func retainToggles(toggles map[string]bool, rules map[string]domain.Rule) map[string]bool {
	kept := make(map[string]bool, len(toggles))
	for pattern, on := range toggles {
		if _, ok := rules[pattern]; ok {
			kept[pattern] = on
		}
	}
	return kept
}

// normalizeToggles lower-cases toggle keys so lookups line up with
// stored patterns regardless of the case used at insertion.
func normalizeToggles(toggles map[string]bool) map[string]bool {
	normalized := make(map[string]bool, len(toggles))
	for pattern, on := range toggles {
		normalized[strings.ToLower(strings.TrimSpace(pattern))] = on
	}
	return normalized
}

// enabled reads a toggle map with default-enabled semantics.
func enabled(toggles map[string]bool, pattern string) bool {
	on, ok := toggles[pattern]
	return !ok || on
}

// cacheKey collapses a site to its normalized comparison form, so URL
// variants that match identically share one cache entry.
func cacheKey(site domain.SiteInfo) string {
	return site.Host() + "|" + site.Port + "|" + site.Path
}

// nopCache backs engines constructed without a cache.
type nopCache struct{}

func (nopCache) Get(string) (domain.Verdict, bool) { return domain.Verdict{}, false }
func (nopCache) Put(string, domain.Verdict)        {}
func (nopCache) Len() int                          { return 0 }
func (nopCache) Purge()                            {}
func (nopCache) Stats() (uint64, uint64, uint64)   { return 0, 0, 0 }

var _ VerdictCache = nopCache{}
