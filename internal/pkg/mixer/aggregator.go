package mixer

import (
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/studioclock/integration/internal/pkg/config"
	"github.com/studioclock/integration/internal/pkg/metrics"
	"github.com/studioclock/integration/internal/pkg/model"
)

const integrationName = "mixer"

// listener lets tests script the OSC listener lifecycle.
type listener interface {
	Start() error
	Stop()
}

// Snapshot is the mic-live read model: the per-channel live booleans are
// computed by the listener, the aggregator only projects the live channel
// numbers and passes the aggregate through.
type Snapshot struct {
	Status       model.Status `json:"status"`
	Err          string       `json:"error,omitempty"`
	AnyLive      bool         `json:"any_live"`
	LiveChannels []int        `json:"live_channels"`
	UpdatedAt    int64        `json:"updated_at,omitempty"`
}

// Aggregator owns the mixer listener lifecycle and the latest mic snapshot.
// Start/stop is race-safe via an epoch token: a snapshot or start completion
// arriving after teardown is dropped.
type Aggregator struct {
	mu          sync.Mutex
	cfg         config.MixerConfig
	status      model.Status
	errMsg      string
	state       model.MicState
	active      listener
	epoch       int
	logger      *zap.Logger
	onChange    func(Snapshot)
	newListener func(cfg config.MixerConfig, emit func(model.MicState)) listener
}

func NewAggregator(cfg config.MixerConfig, opts ...func(*Aggregator)) *Aggregator {
	a := &Aggregator{
		cfg:    cfg,
		status: model.StatusIdle,
		logger: zap.L(),
		newListener: func(cfg config.MixerConfig, emit func(model.MicState)) listener {
			return NewListener(cfg, emit)
		},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// OnChange registers a callback fired with every new snapshot.
func OnChange(f func(Snapshot)) func(*Aggregator) {
	return func(a *Aggregator) {
		a.onChange = f
	}
}

// WithListenerFactory injects the listener constructor for tests.
func WithListenerFactory(f func(cfg config.MixerConfig, emit func(model.MicState)) listener) func(*Aggregator) {
	return func(a *Aggregator) {
		a.newListener = f
	}
}

// Start brings the listener up when the integration is enabled.
func (a *Aggregator) Start() {
	a.mu.Lock()
	cfg := a.cfg
	if !cfg.Enabled {
		a.setStatusLocked(model.StatusIdle, "")
		a.mu.Unlock()
		a.notify()
		return
	}
	a.epoch++
	e := a.epoch
	a.setStatusLocked(model.StatusConnecting, "")
	l := a.newListener(cfg, func(snap model.MicState) { a.apply(e, snap) })
	a.mu.Unlock()
	a.notify()

	err := l.Start()

	a.mu.Lock()
	if e != a.epoch {
		// Torn down while the start call was in flight.
		a.mu.Unlock()
		if err == nil {
			l.Stop()
		}
		return
	}
	if err != nil {
		a.setStatusLocked(model.StatusError, err.Error())
		a.mu.Unlock()
		a.logger.Error("failed to start mixer listener", zap.Error(err))
		a.notify()
		return
	}
	a.active = l
	a.setStatusLocked(model.StatusListening, "")
	a.mu.Unlock()
	a.notify()
}

// Stop requests listener teardown; any in-flight start or late snapshot is
// suppressed by the epoch bump.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	a.epoch++
	l := a.active
	a.active = nil
	a.state = model.MicState{}
	a.setStatusLocked(model.StatusIdle, "")
	a.mu.Unlock()

	if l != nil {
		l.Stop()
	}
	a.notify()
}

// Configure restarts the listener only when the connection identity changed.
func (a *Aggregator) Configure(cfg config.MixerConfig) {
	a.mu.Lock()
	old := a.cfg
	a.cfg = cfg
	running := a.active != nil
	a.mu.Unlock()

	if old.Identity() == cfg.Identity() && old.Enabled == cfg.Enabled {
		return
	}
	if running || cfg.Enabled {
		a.Stop()
		a.Start()
	}
}

// apply consumes one externally pushed snapshot.
func (a *Aggregator) apply(epoch int, snap model.MicState) {
	a.mu.Lock()
	if epoch != a.epoch {
		a.mu.Unlock()
		return
	}
	a.state = snap
	a.status = model.StatusListening
	a.errMsg = ""
	a.mu.Unlock()

	metrics.UpdatesApplied.WithLabelValues(integrationName).Add(float64(len(snap.Channels)))
	a.notify()
}

// Snapshot projects the read model consumed by presentation.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Status: a.status,
		Err:    a.errMsg,
		AnyLive: a.state.AnyLive,
		LiveChannels: lo.FilterMap(a.state.Channels, func(c model.MicChannelState, _ int) (int, bool) {
			return c.Channel, c.Live
		}),
		UpdatedAt: a.state.UpdatedAt,
	}
}

func (a *Aggregator) setStatusLocked(status model.Status, errMsg string) {
	a.status = status
	a.errMsg = errMsg
	metrics.ObserveStatus(integrationName, status)
}

func (a *Aggregator) notify() {
	if a.onChange != nil {
		a.onChange(a.Snapshot())
	}
}
