package mixer

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"go.uber.org/zap"

	"github.com/studioclock/integration/internal/pkg/config"
	"github.com/studioclock/integration/internal/pkg/model"
)

const (
	subscribeRefresh   = 8 * time.Second
	subscribeTimeout   = 250 * time.Millisecond
	subscribeFactor    = 20
	faderEpsilon       = 1e-6
	listenerBufferSize = 2048
)

type channelState struct {
	on    bool
	fader float64
}

// Listener subscribes to the mixer's per-channel mute and fader state over
// OSC/UDP and pushes a wholesale MicState snapshot on every observable
// change. The mixer expires subscriptions, so they are refreshed on a fixed
// cadence from the same socket the replies arrive on.
type Listener struct {
	cfg    config.MixerConfig
	emit   func(model.MicState)
	logger *zap.Logger

	conn *net.UDPConn
	stop chan struct{}
	done chan struct{}
}

func NewListener(cfg config.MixerConfig, emit func(model.MicState)) *Listener {
	return &Listener{
		cfg:    cfg,
		emit:   emit,
		logger: zap.L(),
	}
}

// Start binds the socket and launches the receive loop. A dial failure is
// synchronous; there is no retry until the aggregator restarts the listener.
func (l *Listener) Start() error {
	raddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", l.cfg.Host, l.cfg.Port))
	if err != nil {
		return err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return err
	}
	l.conn = conn
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.loop()
	return nil
}

// Stop tears the listener down and waits for the loop to exit.
func (l *Listener) Stop() {
	if l.stop == nil {
		return
	}
	close(l.stop)
	<-l.done
	_ = l.conn.Close()
}

func (l *Listener) loop() {
	defer close(l.done)

	states := map[int]channelState{}
	var lastSubscribe time.Time
	buf := make([]byte, listenerBufferSize)

	for {
		select {
		case <-l.stop:
			return
		default:
		}

		if time.Since(lastSubscribe) >= subscribeRefresh {
			l.subscribeAll()
			lastSubscribe = time.Now()
		}

		_ = l.conn.SetReadDeadline(time.Now().Add(subscribeTimeout))
		n, err := l.conn.Read(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-l.stop:
				return
			default:
			}
			l.logger.Debug("mixer read failed", zap.Error(err))
			continue
		}

		packet, err := osc.ParsePacket(string(buf[:n]))
		if err != nil {
			continue
		}
		l.handlePacket(packet, states)
	}
}

func (l *Listener) subscribeAll() {
	for _, ch := range l.cfg.Channels {
		for _, leaf := range []string{"on", "fader"} {
			msg := osc.NewMessage("/subscribe")
			msg.Append(fmt.Sprintf("/ch/%02d/mix/%s", ch, leaf))
			msg.Append(int32(subscribeFactor))
			data, err := msg.MarshalBinary()
			if err != nil {
				continue
			}
			if _, err := l.conn.Write(data); err != nil {
				l.logger.Debug("mixer subscribe failed", zap.Error(err))
			}
		}
	}
}

func (l *Listener) handlePacket(packet osc.Packet, states map[int]channelState) {
	switch p := packet.(type) {
	case *osc.Message:
		l.handleMessage(p, states)
	case *osc.Bundle:
		for _, msg := range p.Messages {
			l.handleMessage(msg, states)
		}
		for _, bundle := range p.Bundles {
			l.handlePacket(bundle, states)
		}
	}
}

func (l *Listener) handleMessage(msg *osc.Message, states map[int]channelState) {
	ch, ok := channelFromAddress(msg.Address)
	if !ok {
		return
	}

	switch {
	case strings.HasSuffix(msg.Address, "/mix/on"):
		value, ok := firstNumericArg(msg.Arguments)
		if !ok {
			return
		}
		on := value > 0
		entry := states[ch]
		if entry.on != on {
			entry.on = on
			states[ch] = entry
			l.emitSnapshot(states)
		}
	case strings.HasSuffix(msg.Address, "/mix/fader"):
		value, ok := firstNumericArg(msg.Arguments)
		if !ok {
			return
		}
		entry := states[ch]
		if math.Abs(entry.fader-value) > faderEpsilon {
			entry.fader = value
			states[ch] = entry
			l.emitSnapshot(states)
		}
	}
}

// emitSnapshot derives per-channel live booleans and the aggregate and hands
// the wholesale snapshot to the aggregator.
func (l *Listener) emitSnapshot(states map[int]channelState) {
	snapshot := model.MicState{
		Channels:  make([]model.MicChannelState, 0, len(l.cfg.Channels)),
		UpdatedAt: time.Now().UnixMilli(),
	}
	for _, ch := range l.cfg.Channels {
		entry := states[ch]
		live := entry.on && entry.fader > l.cfg.Threshold
		snapshot.Channels = append(snapshot.Channels, model.MicChannelState{
			Channel: ch,
			On:      entry.on,
			Fader:   entry.fader,
			Live:    live,
		})
		if live {
			snapshot.AnyLive = true
		}
	}
	l.emit(snapshot)
}

// channelFromAddress parses "/ch/<nn>/..." addresses.
func channelFromAddress(addr string) (int, bool) {
	parts := strings.Split(addr, "/")
	if len(parts) < 3 || parts[1] != "ch" {
		return 0, false
	}
	ch, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, false
	}
	return ch, true
}

func firstNumericArg(args []interface{}) (float64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	switch v := args[0].(type) {
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
