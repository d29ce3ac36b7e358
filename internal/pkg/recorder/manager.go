package recorder

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/studioclock/integration/internal/pkg/config"
	"github.com/studioclock/integration/internal/pkg/feed"
	"github.com/studioclock/integration/internal/pkg/metrics"
	"github.com/studioclock/integration/internal/pkg/model"
)

const integrationName = "recorder"

// Manager owns the recording-state connection. Same lifecycle as the
// switcher manager, reduced to a single named boolean-like field.
type Manager struct {
	mu         sync.Mutex
	cfg        config.RecorderConfig
	state      *model.RecordingState
	runner     *feed.Runner
	logger     *zap.Logger
	now        func() time.Time
	onChange   func(*model.RecordingState)
	runnerOpts []func(*feed.Runner)
	started    bool
}

func NewManager(cfg config.RecorderConfig, opts ...func(*Manager)) *Manager {
	m := &Manager{
		cfg:    cfg,
		state:  model.NewRecordingState(),
		logger: zap.L(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func WithClock(now func() time.Time) func(*Manager) {
	return func(m *Manager) {
		m.now = now
	}
}

func OnChange(f func(*model.RecordingState)) func(*Manager) {
	return func(m *Manager) {
		m.onChange = f
	}
}

func WithRunnerOptions(opts ...func(*feed.Runner)) func(*Manager) {
	return func(m *Manager) {
		m.runnerOpts = opts
	}
}

func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	cfg := m.cfg
	m.started = true
	m.mu.Unlock()

	if !cfg.Enabled {
		m.applyStatus(model.StatusIdle, nil)
		return
	}
	target, err := feed.ParseTarget(cfg.Target)
	if err != nil {
		m.logger.Error("invalid recorder target", zap.Error(err))
		m.applyStatus(model.StatusError, err)
		return
	}

	m.mu.Lock()
	m.state = model.NewRecordingState()
	runner := feed.NewRunner(target, feed.Events{
		OnUpdates: m.applyUpdates,
		OnStatus:  m.applyStatus,
	}, m.runnerOpts...)
	m.runner = runner
	m.mu.Unlock()

	runner.Start(ctx)
}

func (m *Manager) Stop() {
	m.mu.Lock()
	runner := m.runner
	m.runner = nil
	m.started = false
	m.mu.Unlock()
	if runner != nil {
		runner.Stop()
		return
	}
	m.applyStatus(model.StatusIdle, nil)
}

// Configure rebuilds the connection only when identity changed.
func (m *Manager) Configure(ctx context.Context, cfg config.RecorderConfig) {
	m.mu.Lock()
	old := m.cfg
	m.cfg = cfg
	runner := m.runner
	started := m.started
	m.mu.Unlock()

	if old.Identity() == cfg.Identity() && old.Enabled == cfg.Enabled {
		return
	}
	if !started {
		return
	}
	if runner != nil {
		m.mu.Lock()
		m.runner = nil
		m.mu.Unlock()
		runner.Stop()
	}
	m.Start(ctx)
}

// State returns the latest published aggregate, read-only.
func (m *Manager) State() *model.RecordingState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) applyUpdates(updates []model.StateUpdate) {
	m.mu.Lock()
	next := Reduce(m.state, updates, m.cfg.Field, m.now())
	changed := next != m.state
	if changed {
		m.state = next
	}
	onChange := m.onChange
	m.mu.Unlock()

	metrics.UpdatesApplied.WithLabelValues(integrationName).Add(float64(len(updates)))
	if changed && onChange != nil {
		onChange(next)
	}
}

func (m *Manager) applyStatus(status model.Status, err error) {
	m.mu.Lock()
	prev := m.state
	switch {
	case status == model.StatusIdle:
		if prev.Status != model.StatusIdle || prev.Recording != nil {
			m.state = model.NewRecordingState()
		}
	case prev.Status != status || prev.Err != errString(err):
		clone := *prev
		clone.Status = status
		clone.Err = errString(err)
		m.state = &clone
	}
	changed := m.state != prev
	next := m.state
	onChange := m.onChange
	m.mu.Unlock()

	metrics.ObserveStatus(integrationName, status)
	if changed && onChange != nil {
		onChange(next)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
