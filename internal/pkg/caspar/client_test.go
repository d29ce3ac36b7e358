package caspar

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioclock/integration/internal/pkg/config"
)

// fakeServer accepts one connection per command, records the received line
// and answers with a canned status line.
func fakeServer(t *testing.T, response string, received chan<- string) config.CasparConfig {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				line, err := bufio.NewReader(c).ReadString('\n')
				if err != nil {
					return
				}
				received <- strings.TrimRight(line, "\r\n")
				_, _ = c.Write([]byte(response + "\r\n"))
			}(conn)
		}
	}()

	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return config.CasparConfig{Host: "127.0.0.1", Port: port}
}

func TestSendRoundTrip(t *testing.T) {
	received := make(chan string, 1)
	client := NewClient(fakeServer(t, "200 INFO OK", received))

	line, err := client.Send("INFO")
	assert.NoError(t, err)
	assert.Equal(t, "200 INFO OK", line)
	assert.Equal(t, "INFO", <-received)
}

func TestSendRejectsLineBreaks(t *testing.T) {
	client := NewClient(config.CasparConfig{Host: "127.0.0.1", Port: 5250})
	_, err := client.Send("INFO\r\nPLAY 1-1 evil")
	assert.Error(t, err)
}

func TestSendSurfacesServerErrors(t *testing.T) {
	received := make(chan string, 1)
	client := NewClient(fakeServer(t, "404 CG ERROR", received))

	_, err := client.Send("CG 1-1 STOP 1")
	assert.Error(t, err)
	<-received
}

func TestPlayTemplateEscapesParameters(t *testing.T) {
	received := make(chan string, 1)
	client := NewClient(fakeServer(t, "202 CG OK", received))

	err := client.PlayTemplate(1, 20, "clock/countdown", `{"title":"news \"late\" edition"}`)
	assert.NoError(t, err)
	assert.Equal(t, `CG 1-20 ADD 1 "clock/countdown" 1 "{\"title\":\"news \\\"late\\\" edition\"}"`, <-received)
}

func TestUpdateAndStopTemplate(t *testing.T) {
	received := make(chan string, 2)
	client := NewClient(fakeServer(t, "202 CG OK", received))

	assert.NoError(t, client.UpdateTemplate(1, 20, `{"seconds":28}`))
	assert.Equal(t, `CG 1-20 UPDATE 1 "{\"seconds\":28}"`, <-received)

	assert.NoError(t, client.StopTemplate(1, 20))
	assert.Equal(t, "CG 1-20 STOP 1", <-received)
}
