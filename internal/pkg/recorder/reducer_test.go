package recorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studioclock/integration/internal/pkg/model"
)

func TestReduceTriState(t *testing.T) {
	now := time.Now()
	prev := model.NewRecordingState()
	assert.Nil(t, prev.Recording)

	// Unknown values carry no information: the tri-state stays unknown.
	next := Reduce(prev, []model.StateUpdate{
		{Name: "record_toggle", Value: "maybe"},
	}, "record_toggle", now)
	assert.Same(t, prev, next)

	next = Reduce(prev, []model.StateUpdate{
		{Name: "record_toggle", Value: "1"},
	}, "record_toggle", now)
	assert.NotSame(t, prev, next)
	assert.NotNil(t, next.Recording)
	assert.True(t, *next.Recording)
	assert.Equal(t, now, next.LastUpdate)
}

func TestReduceIgnoresOtherFields(t *testing.T) {
	prev := model.NewRecordingState()
	next := Reduce(prev, []model.StateUpdate{
		{Name: "ddr1_play", Value: "1"},
	}, "record_toggle", time.Now())
	assert.Same(t, prev, next)
}

func TestReduceFieldMatchIsCaseInsensitive(t *testing.T) {
	next := Reduce(model.NewRecordingState(), []model.StateUpdate{
		{Name: " Record_Toggle ", Value: "on"},
	}, "record_toggle", time.Now())
	assert.NotNil(t, next.Recording)
	assert.True(t, *next.Recording)
}

func TestReduceSameValueKeepsIdentity(t *testing.T) {
	now := time.Now()
	prev := Reduce(model.NewRecordingState(), []model.StateUpdate{
		{Name: "record_toggle", Value: "1"},
	}, "record_toggle", now)

	same := Reduce(prev, []model.StateUpdate{
		{Name: "record_toggle", Value: "true"},
	}, "record_toggle", now.Add(time.Second))
	assert.Same(t, prev, same)

	toggled := Reduce(prev, []model.StateUpdate{
		{Name: "record_toggle", Value: "0"},
	}, "record_toggle", now.Add(2*time.Second))
	assert.NotSame(t, prev, toggled)
	assert.False(t, *toggled.Recording)
	// prev is untouched.
	assert.True(t, *prev.Recording)
}
