package protocol

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/studioclock/integration/internal/pkg/model"
)

var (
	shortcutTagRe = regexp.MustCompile(`(?i)<\s*shortcut_state\b([^>]*?)/?\s*>`)
	genericTagRe  = regexp.MustCompile(`(?i)<\s*([a-z_][\w:.-]*)\b([^>]*?)/?\s*>`)
	attrRe        = regexp.MustCompile(`([a-zA-Z_][\w:.-]*)\s*=\s*"([^"]*)"`)
	digitsRe      = regexp.MustCompile(`\d+`)
)

// Decode scans a raw message for self-closing shortcut_state tags and returns
// one StateUpdate per tag carrying a name attribute. Tags without a name are
// dropped silently; a message with no matches yields an empty batch, which is
// normal (heartbeats, unrelated tags).
func Decode(raw string) []model.StateUpdate {
	var updates []model.StateUpdate
	for _, tag := range shortcutTagRe.FindAllStringSubmatch(raw, -1) {
		attrs := parseAttrs(tag[1])
		name, ok := attrs["name"]
		if !ok || name == "" {
			continue
		}
		updates = append(updates, model.StateUpdate{Name: name, Value: attrs["value"]})
	}
	return updates
}

// channelAliases are attribute names that may carry the channel number in a
// timecode tag, tried in order before falling back to the tag name itself.
var channelAliases = []string{"ddr", "index", "id", "name", "player", "channel"}

// timecodePairs are (duration, elapsed) attribute pairs tried in priority
// order when a timecode tag has no explicit remaining attribute.
var timecodePairs = [][2]string{
	{"duration", "elapsed"},
	{"duration", "time"},
	{"total", "elapsed"},
	{"length", "elapsed"},
	{"length", "position"},
	{"duration", "position"},
}

// DecodeTimecode parses the polled ddr_timecode document. Each tag that
// yields both a channel number and a remaining time becomes a synthetic
// ddr<n>_time_remaining update so the reducer's built-in heuristic picks it
// up. Tags missing either piece are skipped, never fatal.
func DecodeTimecode(raw string) []model.StateUpdate {
	var updates []model.StateUpdate
	for _, tag := range genericTagRe.FindAllStringSubmatch(raw, -1) {
		tagName := tag[1]
		if strings.EqualFold(tagName, "shortcut_state") {
			continue
		}
		attrs := parseAttrs(tag[2])

		channel, ok := timecodeChannel(tagName, attrs)
		if !ok {
			continue
		}
		remaining, ok := timecodeRemaining(attrs)
		if !ok {
			continue
		}
		updates = append(updates, model.StateUpdate{
			Name:  "ddr" + strconv.Itoa(channel) + "_time_remaining",
			Value: strconv.FormatFloat(remaining, 'f', -1, 64),
		})
	}
	return updates
}

func parseAttrs(raw string) map[string]string {
	attrs := map[string]string{}
	for _, m := range attrRe.FindAllStringSubmatch(raw, -1) {
		attrs[strings.ToLower(m[1])] = m[2]
	}
	return attrs
}

// timecodeChannel infers a channel number from the alias attributes first,
// then from digits embedded in the tag name.
func timecodeChannel(tagName string, attrs map[string]string) (int, bool) {
	for _, alias := range channelAliases {
		value, ok := attrs[alias]
		if !ok {
			continue
		}
		if ch, ok := firstNumber(value); ok {
			return ch, true
		}
	}
	return firstNumber(tagName)
}

// timecodeRemaining prefers an explicit remaining attribute and otherwise
// computes duration minus elapsed from the first pair that parses. Negative
// results clamp to zero rather than reporting nonsense.
func timecodeRemaining(attrs map[string]string) (float64, bool) {
	for key, value := range attrs {
		if !strings.Contains(key, "remaining") {
			continue
		}
		if secs, ok := ToSeconds(value); ok {
			return secs, true
		}
	}
	for _, pair := range timecodePairs {
		durRaw, ok := attrs[pair[0]]
		if !ok {
			continue
		}
		elapsedRaw, ok := attrs[pair[1]]
		if !ok {
			continue
		}
		duration, ok := ToSeconds(durRaw)
		if !ok {
			continue
		}
		elapsed, ok := ToSeconds(elapsedRaw)
		if !ok {
			continue
		}
		remaining := duration - elapsed
		if remaining < 0 {
			remaining = 0
		}
		return remaining, true
	}
	return 0, false
}

func firstNumber(raw string) (int, bool) {
	match := digitsRe.FindString(raw)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}
