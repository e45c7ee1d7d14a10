package rulefiles

import (
	"strings"

	"focusgate/internal/focus/domain"
)

// stripBOM removes a UTF-8 byte order mark from the start of a line.
func stripBOM(line string) string {
	return strings.TrimPrefix(line, "\uFEFF")
}

// stripInlineComment cuts everything from the first '#' onward.
func stripInlineComment(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		return line[:idx]
	}
	return line
}

// classifyLine reports whether the trimmed line is empty or a whole-line
// comment, checked before inline comments are stripped.
func classifyLine(line string) (empty, comment bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true, false
	}
	if strings.HasPrefix(trimmed, "#") {
		return false, true
	}
	return false, false
}

// normalizePattern turns a raw token into a stored rule pattern. Leading
// "*." and "." subdomain markers are dropped; a bare domain already
// matches its subdomains. Returns false for tokens that cannot match
// anything.
func normalizePattern(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "*.")
	raw = strings.TrimPrefix(raw, ".")
	rule := domain.ParseRule(raw)
	if err := rule.Validate(); err != nil {
		return "", false
	}
	return rule.Raw, true
}
