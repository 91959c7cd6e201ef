package differ

import (
	"fmt"
	"regexp"
	"strings"
)

// MatchMode selects how critical-path patterns are applied
type MatchMode string

const (
	// MatchModeSuffix treats each pattern as a literal path suffix
	MatchModeSuffix MatchMode = "suffix"
	// MatchModeRegex treats each pattern as a regular expression anchored at
	// the start of the path. A prefix match is enough.
	MatchModeRegex MatchMode = "regex"
)

// ParseMatchMode parses a configured match mode
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case MatchModeSuffix:
		return MatchModeSuffix, nil
	case MatchModeRegex:
		return MatchModeRegex, nil
	default:
		return "", fmt.Errorf("unknown match mode %q (expected suffix or regex)", s)
	}
}

// Matcher decides whether a path is critical
type Matcher interface {
	IsCritical(path string) bool
}

// PatternMatcher implements Matcher over a fixed pattern list.
// It is immutable after construction and safe for concurrent use.
type PatternMatcher struct {
	mode     MatchMode
	suffixes []string
	regexps  []*regexp.Regexp
}

// NewPatternMatcher builds a matcher for the given mode. Blank patterns and
// patterns that fail to compile are dropped and returned so the caller can
// report them; they never cause an error.
func NewPatternMatcher(mode MatchMode, patterns []string) (*PatternMatcher, []string) {
	m := &PatternMatcher{mode: mode}
	var dropped []string

	for _, raw := range patterns {
		p := strings.TrimSpace(raw)
		if p == "" {
			if raw != "" {
				dropped = append(dropped, raw)
			}
			continue
		}

		switch mode {
		case MatchModeRegex:
			re, err := regexp.Compile("^(?:" + p + ")")
			if err != nil {
				dropped = append(dropped, raw)
				continue
			}
			m.regexps = append(m.regexps, re)
		default:
			m.suffixes = append(m.suffixes, p)
		}
	}

	return m, dropped
}

// IsCritical reports whether path matches any configured pattern
func (m *PatternMatcher) IsCritical(path string) bool {
	if m == nil {
		return false
	}
	if m.mode == MatchModeRegex {
		for _, re := range m.regexps {
			if re.MatchString(path) {
				return true
			}
		}
		return false
	}
	for _, suffix := range m.suffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// Mode returns the matching mode
func (m *PatternMatcher) Mode() MatchMode {
	return m.mode
}

// Len returns the number of usable patterns
func (m *PatternMatcher) Len() int {
	return len(m.suffixes) + len(m.regexps)
}

// SplitPatterns splits a comma-separated pattern list. Entries are kept as-is;
// blank entries are removed later by NewPatternMatcher.
func SplitPatterns(csv string) []string {
	if csv == "" {
		return nil
	}
	return strings.Split(csv, ",")
}
