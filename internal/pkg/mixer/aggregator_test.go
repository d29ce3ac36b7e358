package mixer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studioclock/integration/internal/pkg/config"
	"github.com/studioclock/integration/internal/pkg/model"
)

type fakeListener struct {
	mu       sync.Mutex
	startErr error
	release  chan struct{}
	stopped  bool
}

func (f *fakeListener) Start() error {
	if f.release != nil {
		<-f.release
	}
	return f.startErr
}

func (f *fakeListener) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeListener) wasStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func enabledConfig() config.MixerConfig {
	return config.MixerConfig{
		Enabled:   true,
		Host:      "mixer.local",
		Port:      10023,
		Channels:  []int{1, 2},
		Threshold: 0.05,
	}
}

func TestAggregatorDisabledStaysIdle(t *testing.T) {
	a := NewAggregator(config.MixerConfig{})
	a.Start()
	assert.Equal(t, model.StatusIdle, a.Snapshot().Status)
}

func TestAggregatorLifecycleAndSnapshot(t *testing.T) {
	fake := &fakeListener{}
	var emit func(model.MicState)
	a := NewAggregator(enabledConfig(), WithListenerFactory(func(_ config.MixerConfig, e func(model.MicState)) listener {
		emit = e
		return fake
	}))

	a.Start()
	assert.Equal(t, model.StatusListening, a.Snapshot().Status)

	emit(model.MicState{
		Channels: []model.MicChannelState{
			{Channel: 1, On: true, Fader: 0.8, Live: true},
			{Channel: 2, On: true, Fader: 0.01, Live: false},
		},
		AnyLive:   true,
		UpdatedAt: 1234,
	})

	snap := a.Snapshot()
	assert.True(t, snap.AnyLive)
	assert.Equal(t, []int{1}, snap.LiveChannels)
	assert.Equal(t, int64(1234), snap.UpdatedAt)

	a.Stop()
	assert.True(t, fake.wasStopped())
	snap = a.Snapshot()
	assert.Equal(t, model.StatusIdle, snap.Status)
	assert.False(t, snap.AnyLive)
	assert.Empty(t, snap.LiveChannels)
}

func TestAggregatorStartErrorSurfaces(t *testing.T) {
	fake := &fakeListener{startErr: errors.New("no route to host")}
	a := NewAggregator(enabledConfig(), WithListenerFactory(func(config.MixerConfig, func(model.MicState)) listener {
		return fake
	}))

	a.Start()
	snap := a.Snapshot()
	assert.Equal(t, model.StatusError, snap.Status)
	assert.Equal(t, "no route to host", snap.Err)
}

func TestAggregatorStopDuringStartInFlight(t *testing.T) {
	fake := &fakeListener{release: make(chan struct{})}
	created := make(chan struct{})
	a := NewAggregator(enabledConfig(), WithListenerFactory(func(config.MixerConfig, func(model.MicState)) listener {
		close(created)
		return fake
	}))

	done := make(chan struct{})
	go func() {
		a.Start()
		close(done)
	}()
	<-created

	// Teardown requested while the start call is still blocked.
	a.Stop()
	close(fake.release)
	<-done

	assert.Equal(t, model.StatusIdle, a.Snapshot().Status)
	assert.True(t, fake.wasStopped())
}

func TestAggregatorDropsLateSnapshots(t *testing.T) {
	fake := &fakeListener{}
	var emit func(model.MicState)
	a := NewAggregator(enabledConfig(), WithListenerFactory(func(_ config.MixerConfig, e func(model.MicState)) listener {
		emit = e
		return fake
	}))

	a.Start()
	a.Stop()

	emit(model.MicState{AnyLive: true, UpdatedAt: 99})
	snap := a.Snapshot()
	assert.Equal(t, model.StatusIdle, snap.Status)
	assert.False(t, snap.AnyLive)
}

func TestAggregatorConfigureKeepsConnectionOnIdenticalConfig(t *testing.T) {
	starts := 0
	a := NewAggregator(enabledConfig(), WithListenerFactory(func(config.MixerConfig, func(model.MicState)) listener {
		starts++
		return &fakeListener{}
	}))

	a.Start()
	a.Configure(enabledConfig())
	assert.Equal(t, 1, starts)

	changed := enabledConfig()
	changed.Threshold = 0.2
	a.Configure(changed)
	assert.Equal(t, 2, starts)

	time.Sleep(10 * time.Millisecond)
	a.Stop()
}
