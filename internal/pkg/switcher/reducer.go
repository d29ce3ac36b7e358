package switcher

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/studioclock/integration/internal/pkg/model"
	"github.com/studioclock/integration/internal/pkg/protocol"
)

// remainingEpsilon suppresses no-op churn: a remaining-time entry is only
// overwritten when the absolute change exceeds this many seconds.
const remainingEpsilon = 0.01

// Apply folds a batch of decoded updates into the device state. It is a pure
// function: prev is never mutated, and the identical pointer comes back when
// no update produced an observable change, which gives callers cheap change
// detection. Updates are applied in arrival order.
func Apply(prev *model.DeviceState, updates []model.StateUpdate, pats Patterns, now time.Time) *model.DeviceState {
	if prev == nil {
		prev = model.NewDeviceState()
	}
	next := prev
	mutable := func() *model.DeviceState {
		if next == prev {
			next = prev.Clone()
		}
		return next
	}

	for _, update := range updates {
		lname := strings.ToLower(strings.TrimSpace(update.Name))
		if lname == "" {
			continue
		}

		if isTallySignal(lname) {
			tally := splitTally(update.Value)
			if !slices.Equal(tally, next.ProgramTally) {
				s := mutable()
				s.ProgramTally = tally
				s.LastUpdate = now
			}
			continue
		}

		if ch, ok := remainingChannel(update.Name, pats); ok {
			if seconds, ok := protocol.ToSeconds(update.Value); ok {
				applyRemaining(next, mutable, ch, seconds, now)
				continue
			}
		}

		if playing, ch, ok := playSignal(lname, update.Value, pats, next); ok {
			applyPlaying(next, mutable, ch, playing, now)
		}
	}

	return next
}

func applyRemaining(state *model.DeviceState, mutable func() *model.DeviceState, ch int, seconds float64, now time.Time) {
	prior, exists := state.RemainingByDDR[ch]
	delta := 0.0
	if exists {
		delta = seconds - prior.Seconds
		if math.Abs(delta) <= remainingEpsilon {
			return
		}
	}
	s := mutable()
	s.RemainingByDDR[ch] = model.RemainingEntry{Seconds: seconds, UpdatedAt: now, Delta: delta}
	s.LastUpdate = now
}

func applyPlaying(state *model.DeviceState, mutable func() *model.DeviceState, ch int, playing bool, now time.Time) {
	prior, exists := state.PlayingByDDR[ch]
	if exists && prior.Playing == playing {
		return
	}
	entry := model.PlayingEntry{Playing: playing, UpdatedAt: now}
	if playing {
		entry.StartedAt = now
	}
	s := mutable()
	s.PlayingByDDR[ch] = entry
	s.LastUpdate = now
}

// isTallySignal is substring-tolerant: switcher firmware varies between
// "program_tally", "program_tally_sources" and similar spellings.
func isTallySignal(lname string) bool {
	return strings.Contains(lname, "program") && strings.Contains(lname, "tally")
}

func splitTally(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == '|' || r == ',' || r == ';'
	})
	return lo.FilterMap(fields, func(field string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(field)
		return trimmed, trimmed != ""
	})
}

func remainingChannel(name string, pats Patterns) (int, bool) {
	if ch, ok := pats.Remaining.Channel(name); ok {
		return ch, true
	}
	return heuristicChannel(ddrRemainingRe, name)
}

// playSignal classifies a play/stop/pause update and resolves its channel.
// Stop-suffixed fields invert the parsed boolean; pause-suffixed fields only
// carry information when truthy (pause-release is not inferable); generic
// un-suffixed toggles with no discernible channel fall back to the channel
// implied by the current program tally.
func playSignal(lname, value string, pats Patterns, state *model.DeviceState) (playing bool, ch int, ok bool) {
	switch {
	case strings.HasSuffix(lname, "stop"):
		playing, ok = protocol.StoppedToPlaying(value)
	case strings.HasSuffix(lname, "pause"):
		paused, parsed := protocol.ToBool(value)
		if !parsed || !paused {
			return false, 0, false
		}
		playing, ok = false, true
	case strings.Contains(lname, "play"):
		playing, ok = protocol.ToBool(value)
	default:
		return false, 0, false
	}
	if !ok {
		return false, 0, false
	}

	if ch, found := pats.Play.Channel(lname); found {
		return playing, ch, true
	}
	if ch, found := heuristicChannel(ddrPlayRe, lname); found {
		return playing, ch, true
	}
	if isGenericToggle(lname) {
		if ch, found := activeFromTally(state); found {
			return playing, ch, true
		}
	}
	return false, 0, false
}

func isGenericToggle(lname string) bool {
	for _, token := range []string{"play", "stop", "pause"} {
		if lname == token || strings.HasSuffix(lname, "_"+token) {
			return true
		}
	}
	return false
}
