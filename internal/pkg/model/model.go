package model

import "time"

// StateUpdate is one decoded attribute from the wire protocol.
// Produced per message, never stored.
type StateUpdate struct {
	Name  string
	Value string
}

// RemainingEntry tracks the last observed remaining time for one DDR channel.
// Delta is seconds minus the previously stored seconds and classifies a feed
// as actively counting down vs stale/static.
type RemainingEntry struct {
	Seconds   float64
	UpdatedAt time.Time
	Delta     float64
}

// PlayingEntry tracks the play/stop state of one DDR channel.
// StartedAt is non-zero iff Playing is true and the channel has not stopped
// since its most recent start.
type PlayingEntry struct {
	Playing   bool
	UpdatedAt time.Time
	StartedAt time.Time
}

// DeviceState is the aggregate switcher/DDR state owned by one connection
// manager. It is recreated, not mutated, on any config change that affects
// connection identity.
type DeviceState struct {
	Status         Status
	Err            string
	ProgramTally   []string
	RemainingByDDR map[int]RemainingEntry
	PlayingByDDR   map[int]PlayingEntry
	LastUpdate     time.Time
}

// NewDeviceState returns an empty aggregate in the idle state.
func NewDeviceState() *DeviceState {
	return &DeviceState{
		Status:         StatusIdle,
		RemainingByDDR: map[int]RemainingEntry{},
		PlayingByDDR:   map[int]PlayingEntry{},
	}
}

// Clone returns a deep copy. The reducer copies before the first observable
// change so unchanged states keep their identity for cheap change detection.
func (s *DeviceState) Clone() *DeviceState {
	next := *s
	next.ProgramTally = append([]string(nil), s.ProgramTally...)
	next.RemainingByDDR = make(map[int]RemainingEntry, len(s.RemainingByDDR))
	for ch, entry := range s.RemainingByDDR {
		next.RemainingByDDR[ch] = entry
	}
	next.PlayingByDDR = make(map[int]PlayingEntry, len(s.PlayingByDDR))
	for ch, entry := range s.PlayingByDDR {
		next.PlayingByDDR[ch] = entry
	}
	return &next
}

// MicChannelState is one input channel as reported by the mixer listener.
// Live is derived by the listener: on && fader above the silence threshold.
type MicChannelState struct {
	Channel int     `json:"channel"`
	On      bool    `json:"on"`
	Fader   float64 `json:"fader"`
	Live    bool    `json:"live"`
}

// MicState is the wholesale snapshot pushed by the mixer listener.
type MicState struct {
	Channels  []MicChannelState `json:"channels"`
	AnyLive   bool              `json:"any_live"`
	UpdatedAt int64             `json:"updated_at"`
}

// RecordingState is the tri-state recording indicator.
// Recording == nil means no update has been received yet, distinct from false.
type RecordingState struct {
	Status     Status
	Err        string
	Recording  *bool
	LastUpdate time.Time
}

// NewRecordingState returns an idle recording aggregate with unknown state.
func NewRecordingState() *RecordingState {
	return &RecordingState{Status: StatusIdle}
}
