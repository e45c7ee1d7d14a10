package rulefiles

import (
	"bufio"
	"io"
	"strings"

	logpkg "focusgate/internal/focus/common/log"
)

// localNames are the boilerplate entries hosts-format block lists ship
// alongside real hostnames. Importing them as rules would block loopback
// traffic, so they are dropped.
var localNames = map[string]struct{}{
	"localhost":             {},
	"localhost.localdomain": {},
	"local":                 {},
	"broadcasthost":         {},
	"ip6-localhost":         {},
	"ip6-loopback":          {},
	"ip6-localnet":          {},
	"ip6-allnodes":          {},
	"ip6-allrouters":        {},
	"ip6-mcastprefix":       {},
}

// ParseHostsFile parses /etc/hosts-style files into domain rule patterns.
//
// Rules:
// - The IP field is ignored; every hostname after it is a candidate
// - Comments (whole-line or inline after '#') and blank lines are skipped
// - Wildcard tokens and names starting with '.' are skipped
// - Well-known local boilerplate names are skipped
// - De-duplicates while preserving first-seen order
func ParseHostsFile(r io.Reader, source string, logger logpkg.Logger) ([]string, error) {
	scanner := bufio.NewScanner(r)

	seen := make(map[string]struct{})
	out := make([]string, 0, 256)
	logger.Debug(map[string]any{"source": source}, "parse_hosts_start")
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripBOM(scanner.Text())

		if empty, comment := classifyLine(line); empty || comment {
			continue
		}
		line = stripInlineComment(line)

		fields := strings.Fields(line)
		if len(fields) < 2 {
			logger.Debug(map[string]any{"line": lineNum}, "hosts_no_hostnames")
			continue
		}

		for _, raw := range fields[1:] {
			if strings.HasPrefix(raw, ".") || strings.Contains(raw, "*") {
				logger.Debug(map[string]any{"line": lineNum, "raw": raw}, "hosts_skip_invalid_token")
				continue
			}
			if _, local := localNames[strings.ToLower(raw)]; local {
				continue
			}
			pattern, ok := normalizePattern(raw)
			if !ok {
				logger.Debug(map[string]any{"line": lineNum, "raw": raw}, "hosts_skip_invalid")
				continue
			}
			if _, dup := seen[pattern]; dup {
				continue
			}
			seen[pattern] = struct{}{}
			out = append(out, pattern)
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_hosts_scan_error")
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_hosts_done")
	return out, nil
}
