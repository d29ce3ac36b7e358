package mixer

import (
	"testing"

	"github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"

	"github.com/studioclock/integration/internal/pkg/config"
	"github.com/studioclock/integration/internal/pkg/model"
)

func newTestListener(snaps *[]model.MicState) *Listener {
	return NewListener(config.MixerConfig{
		Enabled:   true,
		Host:      "mixer.local",
		Port:      10023,
		Channels:  []int{1, 2},
		Threshold: 0.05,
	}, func(snap model.MicState) {
		*snaps = append(*snaps, snap)
	})
}

func message(addr string, args ...interface{}) *osc.Message {
	msg := osc.NewMessage(addr)
	for _, arg := range args {
		msg.Append(arg)
	}
	return msg
}

func TestHandleMessageDerivesLive(t *testing.T) {
	var snaps []model.MicState
	l := newTestListener(&snaps)
	states := map[int]channelState{}

	l.handleMessage(message("/ch/01/mix/on", int32(1)), states)
	l.handleMessage(message("/ch/01/mix/fader", float32(0.75)), states)

	assert.Len(t, snaps, 2)
	last := snaps[len(snaps)-1]
	assert.True(t, last.AnyLive)
	assert.Equal(t, 1, last.Channels[0].Channel)
	assert.True(t, last.Channels[0].Live)
	assert.False(t, last.Channels[1].Live)
}

func TestHandleMessageFaderBelowThresholdIsNotLive(t *testing.T) {
	var snaps []model.MicState
	l := newTestListener(&snaps)
	states := map[int]channelState{}

	l.handleMessage(message("/ch/02/mix/on", int32(1)), states)
	l.handleMessage(message("/ch/02/mix/fader", float32(0.01)), states)

	last := snaps[len(snaps)-1]
	assert.False(t, last.AnyLive)
	assert.True(t, last.Channels[1].On)
	assert.False(t, last.Channels[1].Live)
}

func TestHandleMessageSuppressesNoopUpdates(t *testing.T) {
	var snaps []model.MicState
	l := newTestListener(&snaps)
	states := map[int]channelState{}

	l.handleMessage(message("/ch/01/mix/on", int32(1)), states)
	l.handleMessage(message("/ch/01/mix/on", int32(1)), states)
	assert.Len(t, snaps, 1)

	l.handleMessage(message("/ch/01/mix/fader", float32(0.5)), states)
	l.handleMessage(message("/ch/01/mix/fader", float32(0.5)), states)
	assert.Len(t, snaps, 2)
}

func TestHandleMessageIgnoresUnknownAddresses(t *testing.T) {
	var snaps []model.MicState
	l := newTestListener(&snaps)
	states := map[int]channelState{}

	l.handleMessage(message("/main/st/mix/fader", float32(0.5)), states)
	l.handleMessage(message("/ch/01/mix/pan", float32(0.5)), states)
	l.handleMessage(message("/ch/01/mix/on"), states)
	assert.Empty(t, snaps)
}

func TestChannelFromAddress(t *testing.T) {
	ch, ok := channelFromAddress("/ch/01/mix/on")
	assert.True(t, ok)
	assert.Equal(t, 1, ch)

	ch, ok = channelFromAddress("/ch/12/mix/fader")
	assert.True(t, ok)
	assert.Equal(t, 12, ch)

	_, ok = channelFromAddress("/main/st/mix/on")
	assert.False(t, ok)
	_, ok = channelFromAddress("/ch/xx/mix/on")
	assert.False(t, ok)
}

func TestFirstNumericArg(t *testing.T) {
	v, ok := firstNumericArg([]interface{}{int32(1)})
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok = firstNumericArg([]interface{}{float32(0.5)})
	assert.True(t, ok)
	assert.InDelta(t, 0.5, v, 0.0001)

	_, ok = firstNumericArg([]interface{}{"text"})
	assert.False(t, ok)
	_, ok = firstNumericArg(nil)
	assert.False(t, ok)
}
