package switcher

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Matcher is a compiled channel-extraction pattern. Templates are literal
// text with a single {n} placeholder standing for the channel number,
// compiled once per config epoch and never recompiled per message.
type Matcher struct {
	re *regexp.Regexp
}

var errPlaceholder = errors.New("pattern must contain exactly one {n} placeholder")

// CompileTemplate turns a user template such as "ddr{n}_time_remaining" into
// a case-insensitive anchored matcher capturing one or more digits at the
// placeholder position.
func CompileTemplate(template string) (*Matcher, error) {
	trimmed := strings.TrimSpace(template)
	if strings.Count(trimmed, "{n}") != 1 {
		return nil, errPlaceholder
	}
	parts := strings.SplitN(trimmed, "{n}", 2)
	expr := "(?i)^" + regexp.QuoteMeta(parts[0]) + `(\d+)` + regexp.QuoteMeta(parts[1]) + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Matcher{re: re}, nil
}

// Channel extracts the channel number from a wire attribute name.
func (m *Matcher) Channel(name string) (int, bool) {
	if m == nil {
		return 0, false
	}
	groups := m.re.FindStringSubmatch(strings.TrimSpace(name))
	if groups == nil {
		return 0, false
	}
	ch, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0, false
	}
	return ch, true
}

// Patterns holds the compiled per-connection matchers. Either may be nil, in
// which case only the built-in heuristics apply.
type Patterns struct {
	Remaining *Matcher
	Play      *Matcher
}

// Built-in fallback heuristics for feeds whose field names were never
// configured. They are deliberately loose: ddr<digits> anywhere before the
// keyword.
var (
	ddrRemainingRe = regexp.MustCompile(`(?i)ddr[_\s]*(\d+).*remaining`)
	ddrPlayRe      = regexp.MustCompile(`(?i)ddr[_\s]*(\d+).*(?:play|stop|pause)`)
	tallyDDRRe     = regexp.MustCompile(`(?i)^\s*ddr[_\s]*(\d+)`)
)

func heuristicChannel(re *regexp.Regexp, name string) (int, bool) {
	groups := re.FindStringSubmatch(name)
	if groups == nil {
		return 0, false
	}
	ch, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0, false
	}
	return ch, true
}
