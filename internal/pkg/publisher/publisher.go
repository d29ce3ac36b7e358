package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var errAlreadyRegistered = errors.New("publisher already registered")

var (
	mu         sync.Mutex
	registered = make(map[string]Sink)
	lastSent   sync.Map
)

// Sink delivers one serialized snapshot to an external system.
type Sink interface {
	Write(ctx context.Context, topic string, payload []byte) error
}

// Register adds a named sink to the fan-out set.
func Register(name string, sink Sink) error {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := registered[name]; ok {
		return errAlreadyRegistered
	}
	registered[name] = sink
	return nil
}

// Publish serializes the snapshot and fans it out to every registered sink.
// A payload identical to the last one sent on the topic is suppressed, so
// callers can publish on every reducer pass without flooding the sinks.
func Publish(ctx context.Context, topic string, snapshot any) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if !shouldSend(topic, payload) {
		return nil
	}

	mu.Lock()
	sinks := make(map[string]Sink, len(registered))
	for name, sink := range registered {
		sinks[name] = sink
	}
	mu.Unlock()

	for name, sink := range sinks {
		if err := sink.Write(ctx, topic, payload); err != nil {
			zap.L().Error("failed to publish snapshot", zap.Error(err), zap.String("publisher", name), zap.String("topic", topic))
			continue
		}
		zap.L().Debug("published snapshot", zap.String("publisher", name), zap.String("topic", topic))
	}
	return nil
}

func shouldSend(topic string, payload []byte) bool {
	previous, exists := lastSent.Load(topic)
	if exists && string(previous.([]byte)) == string(payload) {
		return false
	}
	lastSent.Store(topic, payload)
	return true
}
