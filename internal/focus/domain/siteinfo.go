package domain

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// SiteInfo is the navigation context a rule evaluation runs against.
// It is always passed explicitly; evaluation functions never read global
// browsing state.
type SiteInfo struct {
	URL      string // original input, untouched
	Hostname string // lower-cased hostname as parsed (www prefix kept)
	Port     string // empty when the URL carries no explicit port
	Path     string // lower-cased path, "/" when the URL has none
}

// ParseSiteInfo extracts a SiteInfo from a raw URL string.
// A malformed or hostless URL returns an error; callers on the decision
// hot path treat that as "no match", never as a failure.
func ParseSiteInfo(rawURL string) (SiteInfo, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return SiteInfo{}, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return SiteInfo{}, fmt.Errorf("url %q has no hostname", rawURL)
	}
	return SiteInfo{
		URL:      rawURL,
		Hostname: host,
		Port:     u.Port(),
		Path:     normalizePath(u.Path),
	}, nil
}

// NewSiteInfo builds a SiteInfo from pre-split hostname and path values,
// for callers that already hold the navigation context.
func NewSiteInfo(hostname, path string) SiteInfo {
	host, port := splitHostPort(strings.ToLower(strings.TrimSpace(hostname)))
	return SiteInfo{
		Hostname: host,
		Port:     port,
		Path:     normalizePath(path),
	}
}

// Host returns the comparison form of the hostname: lower-cased with a
// single leading "www." stripped.
func (s SiteInfo) Host() string {
	return NormalizeHost(s.Hostname)
}

// HostCandidates returns every hostname form a rule may be written
// against. For numeric IPv4 hosts with an explicit port this includes
// the host:port form, since IP-addressed rules may carry a port.
func (s SiteInfo) HostCandidates() []string {
	host := s.Host()
	candidates := []string{host}
	if s.Port != "" && isIPv4Host(host) {
		candidates = append(candidates, net.JoinHostPort(host, s.Port))
	}
	return candidates
}

// NormalizeHost returns the comparison form of a hostname or rule domain:
// trimmed, lower-cased, and with a single leading "www." removed.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

// SuggestedRule returns the registrable (apex) domain of a URL, the form
// rule-management surfaces offer when the user asks to block the current
// site. Falls back to the normalized hostname when the public suffix list
// cannot resolve it (IP literals, single-label hosts).
func SuggestedRule(rawURL string) (string, error) {
	site, err := ParseSiteInfo(rawURL)
	if err != nil {
		return "", err
	}
	host := site.Host()
	// the public suffix list mangles IP literals into fake eTLD+1 forms
	if net.ParseIP(host) != nil {
		return host, nil
	}
	apex, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host, nil
	}
	return apex, nil
}

// normalizePath lower-cases a URL path and maps an absent path to "/",
// matching what navigation contexts report for bare-domain URLs.
func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return strings.ToLower(p)
}

// splitHostPort separates a trailing :port from a hostname, tolerating
// plain hostnames. IPv6 literals are returned unsplit.
func splitHostPort(host string) (string, string) {
	h, p, err := net.SplitHostPort(host)
	if err != nil {
		return host, ""
	}
	return h, p
}

// isIPv4Host reports whether host is a numeric IPv4 address.
func isIPv4Host(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.To4() != nil
}
