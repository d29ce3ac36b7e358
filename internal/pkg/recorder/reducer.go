package recorder

import (
	"strings"
	"time"

	"github.com/studioclock/integration/internal/pkg/model"
	"github.com/studioclock/integration/internal/pkg/protocol"
)

// Reduce folds a batch of updates into the recording aggregate. Only the
// configured field is consulted; values that parse to neither truthy nor
// falsy are no information and leave the tri-state untouched. The identical
// pointer comes back when nothing changed.
func Reduce(prev *model.RecordingState, updates []model.StateUpdate, field string, now time.Time) *model.RecordingState {
	if prev == nil {
		prev = model.NewRecordingState()
	}
	next := prev
	for _, update := range updates {
		if !strings.EqualFold(strings.TrimSpace(update.Name), field) {
			continue
		}
		recording, ok := protocol.ToBool(update.Value)
		if !ok {
			continue
		}
		if next.Recording != nil && *next.Recording == recording {
			continue
		}
		value := recording
		clone := *next
		clone.Recording = &value
		clone.LastUpdate = now
		next = &clone
	}
	return next
}
