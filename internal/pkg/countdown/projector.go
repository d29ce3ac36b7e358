package countdown

import (
	"math"
	"time"

	"github.com/studioclock/integration/internal/pkg/model"
)

const (
	// StalenessWindow is how long a remaining-time entry is trusted as live.
	StalenessWindow = 3 * time.Second
	// deltaEpsilon is the minimum observed decrease that counts as an
	// actively running countdown.
	deltaEpsilon = -0.001
)

// Projection is the display-facing countdown value. Seconds is only
// meaningful while Active is true; an inactive projection must render as a
// placeholder, never as a stale or guessed number.
type Projection struct {
	Active  bool
	Seconds int
}

// Project extrapolates the last-known remaining time linearly to now.
// A countdown is only shown when the entry was observed actually decreasing
// and is younger than the staleness window; it is clamped at zero and floored
// to whole seconds. Pure function of the snapshot and wall-clock time, safe
// to recompute at any display refresh rate.
func Project(entry *model.RemainingEntry, now time.Time) Projection {
	if entry == nil {
		return Projection{}
	}
	if entry.Delta >= deltaEpsilon {
		return Projection{}
	}
	elapsed := now.Sub(entry.UpdatedAt)
	if elapsed > StalenessWindow {
		return Projection{}
	}
	remaining := entry.Seconds - elapsed.Seconds()
	if remaining < 0 {
		remaining = 0
	}
	return Projection{Active: true, Seconds: int(math.Floor(remaining))}
}
