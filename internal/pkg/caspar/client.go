package caspar

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/studioclock/integration/internal/pkg/config"
)

const commandTimeout = 1200 * time.Millisecond

// Client speaks AMCP to a CasparCG server. Every command opens a fresh
// short-lived TCP connection; the server treats each line as one command and
// answers with a numeric status line.
type Client struct {
	cfg    config.CasparConfig
	logger *zap.Logger
}

func NewClient(cfg config.CasparConfig) *Client {
	return &Client{
		cfg:    cfg,
		logger: zap.L(),
	}
}

// Ping checks reachability with an INFO round trip.
func (c *Client) Ping() error {
	_, err := c.Send("INFO")
	return err
}

// PlayTemplate loads and plays an HTML template on the given channel-layer.
func (c *Client) PlayTemplate(channel, layer int, template, data string) error {
	cmd := fmt.Sprintf("CG %d-%d ADD 1 %s 1 %s", channel, layer, quote(template), quote(data))
	_, err := c.Send(cmd)
	return err
}

// UpdateTemplate pushes new data into the running template.
func (c *Client) UpdateTemplate(channel, layer int, data string) error {
	cmd := fmt.Sprintf("CG %d-%d UPDATE 1 %s", channel, layer, quote(data))
	_, err := c.Send(cmd)
	return err
}

// StopTemplate plays the template's outro and removes it.
func (c *Client) StopTemplate(channel, layer int) error {
	_, err := c.Send(fmt.Sprintf("CG %d-%d STOP 1", channel, layer))
	return err
}

// Send writes a single AMCP command and returns the first response line.
// Commands containing line breaks are rejected rather than split into
// multiple commands on the wire.
func (c *Client) Send(command string) (string, error) {
	if strings.ContainsAny(command, "\r\n") {
		return "", fmt.Errorf("command must not contain line breaks")
	}

	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, commandTimeout)
	if err != nil {
		return "", fmt.Errorf("dial caspar %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(commandTimeout)
	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write([]byte(command + "\r\n")); err != nil {
		return "", fmt.Errorf("write caspar command: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read caspar response: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	c.logger.Debug("caspar response", zap.String("line", line))

	if isErrorResponse(line) {
		return line, fmt.Errorf("caspar rejected command: %s", line)
	}
	return line, nil
}

// quote wraps a parameter for AMCP. Quotes and backslashes inside the value
// are escaped so the server sees one parameter.
func quote(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return `"` + value + `"`
}

// isErrorResponse reports whether the status line is a 4xx or 5xx reply.
func isErrorResponse(line string) bool {
	if len(line) < 3 {
		return false
	}
	return line[0] == '4' || line[0] == '5'
}
