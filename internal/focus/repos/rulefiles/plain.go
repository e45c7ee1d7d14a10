// Package rulefiles parses bulk rule-list files into stored rule
// patterns, for importing published block lists into the prefs store.
package rulefiles

import (
	"bufio"
	"io"

	logpkg "focusgate/internal/focus/common/log"
)

// ParsePlainList parses a newline-delimited list of rule patterns.
//
// Behavior:
// - Supports comments starting with '#' (inline or whole-line)
// - Strips a leading BOM and surrounding whitespace
// - Accepts bare domains and domain/path patterns; "*." and "." subdomain
//   markers are dropped since a bare domain already matches subdomains
// - Skips tokens with no domain part
// - De-duplicates while preserving first-seen order
func ParsePlainList(r io.Reader, source string, logger logpkg.Logger) ([]string, error) {
	scanner := bufio.NewScanner(r)

	seen := make(map[string]struct{})
	out := make([]string, 0, 256)
	logger.Debug(map[string]any{"source": source}, "parse_plain_start")
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripBOM(scanner.Text())

		if empty, comment := classifyLine(line); empty || comment {
			continue
		}
		line = stripInlineComment(line)

		pattern, ok := normalizePattern(line)
		if !ok {
			logger.Debug(map[string]any{"line": lineNum, "raw": line}, "skip_invalid")
			continue
		}
		if _, dup := seen[pattern]; dup {
			logger.Debug(map[string]any{"line": lineNum, "pattern": pattern}, "skip_duplicate")
			continue
		}
		seen[pattern] = struct{}{}
		out = append(out, pattern)
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_plain_scan_error")
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_plain_done")
	return out, nil
}
