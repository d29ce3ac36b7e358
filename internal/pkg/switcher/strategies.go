package switcher

import (
	"time"

	"github.com/samber/lo"

	"github.com/studioclock/integration/internal/pkg/countdown"
	"github.com/studioclock/integration/internal/pkg/model"
)

// A Strategy proposes the currently active DDR channel, or reports that it
// has no opinion. Strategies are evaluated short-circuit in priority order so
// precedence stays auditable and independently testable.
type Strategy func(s *model.DeviceState, now time.Time) (int, bool)

// activeStrategies in priority order. An observed decrease in remaining time
// is the most reliable evidence of a live countdown: tally and play flags
// alone produce false positives when a device reports playing but has looped
// or stalled.
var activeStrategies = []Strategy{
	activeCountingDown,
	func(s *model.DeviceState, _ time.Time) (int, bool) { return activeFromTally(s) },
	activeFromPlaying,
	activeFromRecency,
}

// ActiveChannel resolves the channel currently considered on-air. Read-only,
// computed on demand, never stored.
func ActiveChannel(s *model.DeviceState, now time.Time) (int, bool) {
	if s == nil {
		return 0, false
	}
	for _, strategy := range activeStrategies {
		if ch, ok := strategy(s, now); ok {
			return ch, true
		}
	}
	return 0, false
}

// Countdown projects the active channel's remaining time for display.
func Countdown(s *model.DeviceState, now time.Time) countdown.Projection {
	ch, ok := ActiveChannel(s, now)
	if !ok {
		return countdown.Projection{}
	}
	entry, ok := s.RemainingByDDR[ch]
	if !ok {
		return countdown.Projection{}
	}
	return countdown.Project(&entry, now)
}

// activeCountingDown picks the channel whose remaining time was seen actually
// decreasing within the staleness window. Ties break to the most recent
// update.
func activeCountingDown(s *model.DeviceState, now time.Time) (int, bool) {
	best, found := 0, false
	var bestAt time.Time
	for ch, entry := range s.RemainingByDDR {
		if entry.Delta >= -0.001 {
			continue
		}
		if now.Sub(entry.UpdatedAt) > countdown.StalenessWindow {
			continue
		}
		if !found || entry.UpdatedAt.After(bestAt) {
			best, bestAt, found = ch, entry.UpdatedAt, true
		}
	}
	return best, found
}

// activeFromTally scans the program tally in wire order and returns the
// channel of the first DDR<digits> label. First match wins.
func activeFromTally(s *model.DeviceState) (int, bool) {
	for _, label := range s.ProgramTally {
		if ch, ok := heuristicChannel(tallyDDRRe, label); ok {
			return ch, true
		}
	}
	return 0, false
}

// activeFromPlaying picks the most recently updated channel among those
// currently marked playing.
func activeFromPlaying(s *model.DeviceState, _ time.Time) (int, bool) {
	playing := lo.PickBy(s.PlayingByDDR, func(_ int, entry model.PlayingEntry) bool {
		return entry.Playing
	})
	return mostRecent(lo.MapValues(playing, func(entry model.PlayingEntry, _ int) time.Time {
		return entry.UpdatedAt
	}))
}

// activeFromRecency is the weakest fallback: last seen remaining-time entry,
// even if static.
func activeFromRecency(s *model.DeviceState, _ time.Time) (int, bool) {
	return mostRecent(lo.MapValues(s.RemainingByDDR, func(entry model.RemainingEntry, _ int) time.Time {
		return entry.UpdatedAt
	}))
}

func mostRecent(updatedAt map[int]time.Time) (int, bool) {
	best, found := 0, false
	var bestAt time.Time
	for ch, at := range updatedAt {
		if !found || at.After(bestAt) {
			best, bestAt, found = ch, at, true
		}
	}
	return best, found
}
