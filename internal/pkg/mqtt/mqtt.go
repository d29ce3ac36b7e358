package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/studioclock/integration/internal/pkg/config"
)

type service struct {
	client paho_mqtt.Client
	prefix string
}

func New(client paho_mqtt.Client, prefix string) *service {
	return &service{
		client: client,
		prefix: prefix,
	}
}

// NewFromConfig builds a paho client from the broker config. The password is
// handed to the client library only; it never appears in topics or logs.
func NewFromConfig(cfg config.MQTTConfig) *service {
	opts := paho_mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true)
	return New(paho_mqtt.NewClient(opts), cfg.TopicPrefix)
}

func (s *service) Connect() error {
	token := s.client.Connect()
	res := token.WaitTimeout(time.Second * 5)
	if res {
		return nil
	}
	if err := token.Error(); err != nil {
		return err
	}
	return errors.New("unable to connect in time")
}

func (s *service) Disconnect() {
	s.client.Disconnect(250)
}

// Write publishes one snapshot payload, retained so late subscribers see the
// current state immediately.
func (s *service) Write(_ context.Context, topic string, payload []byte) error {
	full := topic
	if s.prefix != "" {
		full = fmt.Sprintf("%s/%s", s.prefix, topic)
	}
	token := s.client.Publish(full, 0, true, payload)
	res := token.WaitTimeout(time.Second * 10)
	if res {
		return nil
	}
	if err := token.Error(); err != nil {
		return err
	}
	return nil
}
