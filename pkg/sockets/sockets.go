package sockets

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Connection interface {
	Dial(ctx context.Context, url string, header http.Header) error
	Send(msg Msg) error
	io.Closer
}

type Conn struct {
	mu               sync.Mutex
	ws               *websocket.Conn
	sslSkipVerify    bool
	closed           bool
	closeOnce        sync.Once
	pingIntervalSecs int
	onError          func(err error)
	onMessage        func([]byte, Connection)
	onConnected      func(Connection)
	onClose          func()
	pingMsg          []byte
}

func New(opts ...func(*Conn)) *Conn {
	c := &Conn{}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Msg is the message structure.
type Msg struct {
	Body []byte
}

// Close closes the connection. The OnClose callback fires exactly once per
// dialled connection, whether the close was voluntary or caused by a
// transport error.
func (c *Conn) Close() error {
	c.mu.Lock()
	ws := c.ws
	c.closed = true
	c.mu.Unlock()
	if ws != nil {
		_ = ws.Close()
	}
	c.fireClose()
	return nil
}

func (c *Conn) fireClose() {
	c.closeOnce.Do(func() {
		if c.onClose != nil {
			c.onClose()
		}
	})
}

func (c *Conn) Send(msg Msg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.ws == nil {
		return errors.New("closed connection")
	}
	return c.ws.WriteMessage(websocket.TextMessage, msg.Body)
}

func (c *Conn) Dial(ctx context.Context, url string, header http.Header) error {
	dialer := &websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: c.sslSkipVerify,
		},
	}
	ws, res, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if res != nil && res.Body != nil {
			_ = res.Body.Close()
		}
		return err
	}

	c.mu.Lock()
	c.ws = ws
	c.closed = false
	c.mu.Unlock()

	if c.onConnected != nil {
		c.onConnected(c)
	}
	go c.readLoop(ws)
	c.setupPing()
	return nil
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			voluntary := c.closed
			c.closed = true
			c.mu.Unlock()
			if !voluntary && c.onError != nil {
				c.onError(err)
			}
			c.fireClose()
			return
		}
		if c.onMessage != nil {
			c.onMessage(msg, c)
		}
	}
}

func (c *Conn) setupPing() {
	if c.pingIntervalSecs > 0 && len(c.pingMsg) > 0 {
		ticker := time.NewTicker(time.Second * time.Duration(c.pingIntervalSecs))
		go func() {
			defer ticker.Stop()
			for {
				<-ticker.C // wait for tick
				if c.Send(Msg{Body: c.pingMsg}) != nil {
					return
				}
			}
		}()
	}
}
