package switcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studioclock/integration/internal/pkg/model"
)

func update(name, value string) model.StateUpdate {
	return model.StateUpdate{Name: name, Value: value}
}

func TestApplyEmptyBatchKeepsIdentity(t *testing.T) {
	prev := model.NewDeviceState()
	next := Apply(prev, nil, Patterns{}, time.Now())
	assert.Same(t, prev, next)
}

func TestApplyIsIdempotent(t *testing.T) {
	now := time.Now()
	updates := []model.StateUpdate{
		update("ddr1_time_remaining", "00:01:30"),
		update("program_tally", "DDR1"),
		update("ddr1_play", "1"),
	}

	first := Apply(model.NewDeviceState(), updates, Patterns{}, now)
	second := Apply(first, updates, Patterns{}, now.Add(100*time.Millisecond))
	assert.Same(t, first, second)
}

func TestApplyDoesNotMutatePrev(t *testing.T) {
	now := time.Now()
	prev := Apply(model.NewDeviceState(), []model.StateUpdate{
		update("ddr1_time_remaining", "90"),
	}, Patterns{}, now)

	next := Apply(prev, []model.StateUpdate{
		update("ddr1_time_remaining", "89"),
	}, Patterns{}, now.Add(time.Second))

	assert.NotSame(t, prev, next)
	assert.InDelta(t, 90, prev.RemainingByDDR[1].Seconds, 0.0001)
	assert.InDelta(t, 89, next.RemainingByDDR[1].Seconds, 0.0001)
	assert.InDelta(t, -1, next.RemainingByDDR[1].Delta, 0.0001)
}

func TestApplyRemainingEpsilon(t *testing.T) {
	now := time.Now()
	prev := Apply(model.NewDeviceState(), []model.StateUpdate{
		update("ddr1_time_remaining", "90"),
	}, Patterns{}, now)

	// Within epsilon: no observable change.
	same := Apply(prev, []model.StateUpdate{
		update("ddr1_time_remaining", "90.005"),
	}, Patterns{}, now.Add(time.Second))
	assert.Same(t, prev, same)
}

func TestApplyProgramTally(t *testing.T) {
	now := time.Now()
	next := Apply(model.NewDeviceState(), []model.StateUpdate{
		update("program_tally", "DDR1 | CAM2"),
	}, Patterns{}, now)
	assert.Equal(t, []string{"DDR1", "CAM2"}, next.ProgramTally)

	cleared := Apply(next, []model.StateUpdate{
		update("program_tally", ""),
	}, Patterns{}, now.Add(time.Second))
	assert.Empty(t, cleared.ProgramTally)
	assert.NotSame(t, next, cleared)
}

func TestApplyPlayStopPause(t *testing.T) {
	now := time.Now()
	state := Apply(model.NewDeviceState(), []model.StateUpdate{
		update("ddr2_play", "1"),
	}, Patterns{}, now)
	assert.True(t, state.PlayingByDDR[2].Playing)
	assert.Equal(t, now, state.PlayingByDDR[2].StartedAt)

	stopped := Apply(state, []model.StateUpdate{
		update("ddr2_stop", "1"),
	}, Patterns{}, now.Add(time.Second))
	assert.False(t, stopped.PlayingByDDR[2].Playing)
	assert.True(t, stopped.PlayingByDDR[2].StartedAt.IsZero())

	// A falsy pause carries no information.
	unchanged := Apply(stopped, []model.StateUpdate{
		update("ddr2_pause", "0"),
	}, Patterns{}, now.Add(2*time.Second))
	assert.Same(t, stopped, unchanged)

	playing := Apply(stopped, []model.StateUpdate{
		update("ddr2_play", "1"),
	}, Patterns{}, now.Add(3*time.Second))
	paused := Apply(playing, []model.StateUpdate{
		update("ddr2_pause", "1"),
	}, Patterns{}, now.Add(4*time.Second))
	assert.False(t, paused.PlayingByDDR[2].Playing)
}

func TestApplyPreservesStartedAt(t *testing.T) {
	start := time.Now()
	state := Apply(model.NewDeviceState(), []model.StateUpdate{
		update("ddr1_play", "1"),
	}, Patterns{}, start)

	// A repeated playing=true must not move the start timestamp.
	later := Apply(state, []model.StateUpdate{
		update("ddr1_play", "1"),
	}, Patterns{}, start.Add(10*time.Second))
	assert.Same(t, state, later)
	assert.Equal(t, start, later.PlayingByDDR[1].StartedAt)
}

func TestApplyGenericToggleUsesTally(t *testing.T) {
	now := time.Now()
	state := Apply(model.NewDeviceState(), []model.StateUpdate{
		update("program_tally", "DDR3"),
		update("play", "1"),
	}, Patterns{}, now)
	assert.True(t, state.PlayingByDDR[3].Playing)
}

func TestApplyGenericToggleWithoutTallyIsDropped(t *testing.T) {
	prev := model.NewDeviceState()
	next := Apply(prev, []model.StateUpdate{
		update("play", "1"),
	}, Patterns{}, time.Now())
	assert.Same(t, prev, next)
}

func TestApplyConfiguredPatterns(t *testing.T) {
	remaining, err := CompileTemplate("deck{n}_left")
	assert.NoError(t, err)
	play, err := CompileTemplate("deck{n}_play_state")
	assert.NoError(t, err)
	pats := Patterns{Remaining: remaining, Play: play}

	now := time.Now()
	state := Apply(model.NewDeviceState(), []model.StateUpdate{
		update("deck4_left", "00:00:45"),
		update("deck4_play_state", "yes"),
	}, pats, now)
	assert.InDelta(t, 45, state.RemainingByDDR[4].Seconds, 0.0001)
	assert.True(t, state.PlayingByDDR[4].Playing)
}

func TestApplyUnparseableValuesLeaveStateUntouched(t *testing.T) {
	prev := model.NewDeviceState()
	next := Apply(prev, []model.StateUpdate{
		update("ddr1_time_remaining", "not-a-time"),
		update("ddr1_play", "maybe"),
	}, Patterns{}, time.Now())
	assert.Same(t, prev, next)
}
