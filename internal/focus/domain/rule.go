package domain

import (
	"fmt"
	"strings"
)

// MatchKind classifies how a rule matched a site. Whitelist semantics
// depend on the distinction: only exact domain matches veto block rules
// that matched a parent domain.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchSubdomain
	MatchSubstring
	MatchPath
)

// String returns a short label for the match kind.
func (k MatchKind) String() string {
	switch k {
	case MatchNone:
		return "none"
	case MatchExact:
		return "exact"
	case MatchSubdomain:
		return "subdomain"
	case MatchSubstring:
		return "substring"
	case MatchPath:
		return "path"
	default:
		return "unknown"
	}
}

// Rule is a single stored pattern. Two shapes exist: a bare domain
// ("reddit.com") and a domain with a path prefix ("reddit.com/r/gaming").
// The domain part is held in normalized comparison form.
type Rule struct {
	Raw    string // pattern as stored, lower-cased
	Domain string // normalized domain part, www stripped
	Path   string // lower-cased path prefix with leading slash, empty for domain rules
}

// ParseRule splits a raw pattern into its domain and optional path part.
// Parsing never fails; an empty pattern yields a rule that matches nothing.
func ParseRule(raw string) Rule {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	r := Rule{Raw: cleaned}
	if cleaned == "" {
		return r
	}
	if i := strings.Index(cleaned, "/"); i >= 0 {
		r.Domain = NormalizeHost(cleaned[:i])
		r.Path = cleaned[i:]
		if r.Path == "/" {
			r.Path = ""
		}
	} else {
		r.Domain = NormalizeHost(cleaned)
	}
	return r
}

// HasPath reports whether the rule constrains the URL path.
func (r Rule) HasPath() bool { return r.Path != "" }

// Validate rejects patterns that cannot match anything.
func (r Rule) Validate() error {
	if r.Domain == "" {
		return fmt.Errorf("rule %q has no domain part", r.Raw)
	}
	return nil
}

// Match classifies how the rule applies to a site.
//
// Path rules require the exact normalized domain plus a path prefix.
// Domain rules match the exact host, any subdomain of the rule domain,
// or, failing both, a host that merely contains the rule text. The
// substring form keeps short patterns like "youtube" effective, at the
// cost of "music.youtube.com" matching a "youtube.com" rule.
func (r Rule) Match(site SiteInfo) MatchKind {
	if r.Domain == "" {
		return MatchNone
	}
	if r.HasPath() {
		if site.Host() == r.Domain && strings.HasPrefix(site.Path, r.Path) {
			return MatchPath
		}
		return MatchNone
	}
	for _, host := range site.HostCandidates() {
		switch {
		case host == r.Domain:
			return MatchExact
		case strings.HasSuffix(host, "."+r.Domain):
			return MatchSubdomain
		case strings.Contains(host, r.Domain):
			return MatchSubstring
		}
	}
	return MatchNone
}

// MatchesExactDomain reports whether the site's host equals the rule
// domain outright. Whitelist veto checks use this narrower test.
func (r Rule) MatchesExactDomain(site SiteInfo) bool {
	if r.Domain == "" || r.HasPath() {
		return false
	}
	for _, host := range site.HostCandidates() {
		if host == r.Domain {
			return true
		}
	}
	return false
}
