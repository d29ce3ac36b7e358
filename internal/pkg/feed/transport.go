package feed

import (
	"context"

	"github.com/studioclock/integration/pkg/sockets"
)

// Callbacks are the transport events the runner consumes. The runner binds
// each dialled transport to an epoch; callbacks arriving after teardown are
// dropped by the epoch guard, not by the transport.
type Callbacks struct {
	Connected func()
	Message   func(data []byte)
	Error     func(err error)
	Closed    func()
}

// Transport is one push connection attempt. Open either succeeds and starts
// delivering callbacks, or fails synchronously.
type Transport interface {
	Open(ctx context.Context) error
	Close() error
}

// TransportFactory builds a fresh transport per connection attempt.
// Injectable so lifecycle tests can script connects, closes and errors.
type TransportFactory func(target Target, cb Callbacks) Transport

type wsTransport struct {
	target Target
	conn   sockets.Connection
}

// WebsocketTransport is the production factory over pkg/sockets.
func WebsocketTransport(target Target, cb Callbacks) Transport {
	conn := sockets.New(
		sockets.OnConnected(func(sockets.Connection) {
			if cb.Connected != nil {
				cb.Connected()
			}
		}),
		sockets.OnMessage(func(data []byte, _ sockets.Connection) {
			if cb.Message != nil {
				cb.Message(data)
			}
		}),
		sockets.OnError(func(err error) {
			if cb.Error != nil {
				cb.Error(err)
			}
		}),
		sockets.OnClose(func() {
			if cb.Closed != nil {
				cb.Closed()
			}
		}),
		sockets.InsecureSkipVerify(),
	)
	return &wsTransport{target: target, conn: conn}
}

func (t *wsTransport) Open(ctx context.Context) error {
	return t.conn.Dial(ctx, t.target.WebsocketURL(), nil)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
