package protocol

import (
	"strconv"
	"strings"
)

var (
	truthyTokens = map[string]struct{}{
		"1": {}, "true": {}, "yes": {}, "on": {}, "play": {},
		"playing": {}, "active": {}, "record": {}, "recording": {},
	}
	falsyTokens = map[string]struct{}{
		"0": {}, "false": {}, "no": {}, "off": {}, "stop": {},
		"stopped": {}, "idle": {}, "inactive": {},
	}
)

// ToSeconds converts a textual duration into seconds. Accepted forms are
// plain numbers, HH:MM:SS, MM:SS, SS and the 4-field HH:MM:SS:FF timecode
// where the 4th field is frames at 30fps when below 100 and milliseconds
// otherwise. Semicolons are treated as colons. The second return is false
// when the input carries no usable information.
func ToSeconds(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(raw, ";", ":"))
	if trimmed == "" {
		return 0, false
	}
	if !strings.Contains(trimmed, ":") {
		value, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return value, true
	}

	fields := strings.Split(trimmed, ":")
	if len(fields) < 2 || len(fields) > 4 {
		return 0, false
	}
	parts := make([]float64, len(fields))
	for i, field := range fields {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil || value < 0 {
			return 0, false
		}
		parts[i] = value
	}

	switch len(parts) {
	case 2: // MM:SS
		return parts[0]*60 + parts[1], true
	case 3: // HH:MM:SS
		return parts[0]*3600 + parts[1]*60 + parts[2], true
	default: // HH:MM:SS:FF
		seconds := parts[0]*3600 + parts[1]*60 + parts[2]
		if parts[3] < 100 {
			return seconds + parts[3]/30, true
		}
		return seconds + parts[3]/1000, true
	}
}

// ToBool normalizes the many boolean spellings the wire protocol uses.
// Numeric strings map to value > 0. Anything unrecognized is "no
// information": the second return is false and callers must leave state
// untouched.
func ToBool(raw string) (bool, bool) {
	token := strings.ToLower(strings.TrimSpace(raw))
	if token == "" {
		return false, false
	}
	if _, ok := truthyTokens[token]; ok {
		return true, true
	}
	if _, ok := falsyTokens[token]; ok {
		return false, true
	}
	if value, err := strconv.ParseFloat(token, 64); err == nil {
		return value > 0, true
	}
	return false, false
}

// StoppedToPlaying parses a stop-flavored boolean and inverts it into
// playing-state semantics: stopped=true means playing=false.
func StoppedToPlaying(raw string) (bool, bool) {
	stopped, ok := ToBool(raw)
	if !ok {
		return false, false
	}
	return !stopped, true
}
