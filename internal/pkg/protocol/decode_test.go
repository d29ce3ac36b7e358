package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studioclock/integration/internal/pkg/model"
)

func TestDecode(t *testing.T) {
	raw := `<shortcut_states>
		<shortcut_state name="ddr1_time_remaining" value="00:01:30" />
		<shortcut_state name="record_toggle" value="1"/>
		<shortcut_state value="orphan" />
		<other_tag name="ignored" value="1" />
	</shortcut_states>`

	updates := Decode(raw)
	assert.Equal(t, []model.StateUpdate{
		{Name: "ddr1_time_remaining", Value: "00:01:30"},
		{Name: "record_toggle", Value: "1"},
	}, updates)
}

func TestDecodeCaseInsensitive(t *testing.T) {
	updates := Decode(`<SHORTCUT_STATE NAME="main_switcher" VALUE="DDR1"/>`)
	assert.Len(t, updates, 1)
	assert.Equal(t, "main_switcher", updates[0].Name)
	assert.Equal(t, "DDR1", updates[0].Value)
}

func TestDecodeNoMatches(t *testing.T) {
	assert.Empty(t, Decode("heartbeat"))
	assert.Empty(t, Decode(""))
}

func TestDecodeTimecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []model.StateUpdate
	}{
		{
			name: "duration minus elapsed",
			raw:  `<ddr_timecode ddr="2" duration="00:02:00" elapsed="00:00:30"/>`,
			expected: []model.StateUpdate{
				{Name: "ddr2_time_remaining", Value: "90"},
			},
		},
		{
			name: "explicit remaining wins",
			raw:  `<timecode id="1" remaining="45" duration="00:02:00" elapsed="00:00:30"/>`,
			expected: []model.StateUpdate{
				{Name: "ddr1_time_remaining", Value: "45"},
			},
		},
		{
			name: "channel from tag name digits",
			raw:  `<ddr3_timecode duration="60" elapsed="10"/>`,
			expected: []model.StateUpdate{
				{Name: "ddr3_time_remaining", Value: "50"},
			},
		},
		{
			name: "negative remaining clamps to zero",
			raw:  `<ddr_timecode ddr="1" duration="10" elapsed="25"/>`,
			expected: []model.StateUpdate{
				{Name: "ddr1_time_remaining", Value: "0"},
			},
		},
		{
			name:     "tag without channel is skipped",
			raw:      `<timecode duration="60" elapsed="10"/>`,
			expected: nil,
		},
		{
			name:     "tag without usable times is skipped",
			raw:      `<ddr_timecode ddr="1" codec="h264"/>`,
			expected: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DecodeTimecode(tc.raw))
		})
	}
}
