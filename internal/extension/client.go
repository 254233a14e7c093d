package extension

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
)

// Client speaks the extension's line-delimited JSON protocol over TCP:
// one JSON object per line in each direction.
type Client struct {
	conn   net.Conn
	logger *slog.Logger

	writeMu sync.Mutex
	msgID   atomic.Int64
	closed  atomic.Bool
}

func Dial(ctx context.Context, addr string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial extension at %s: %w", addr, err)
	}
	logger.Info("connected to extension socket", "addr", addr)
	return &Client{conn: conn, logger: logger}, nil
}

// NewClient wraps an existing connection; used by tests over net.Pipe.
func NewClient(conn net.Conn, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{conn: conn, logger: logger}
}

// Send writes one message as a single newline-terminated JSON line. Each
// outbound message gets a monotonically increasing id.
func (c *Client) Send(ctx context.Context, msg map[string]any) error {
	if c.closed.Load() {
		return fmt.Errorf("extension connection closed")
	}

	out := make(map[string]any, len(msg)+1)
	for k, v := range msg {
		out[k] = v
	}
	out["id"] = strconv.FormatInt(c.msgID.Add(1), 10)

	line, err := json.Marshal(out)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	}
	if _, err := c.conn.Write(line); err != nil {
		return fmt.Errorf("write to extension: %w", err)
	}
	return nil
}

// ReadLoop consumes inbound lines until the connection closes, handing each
// decoded message to onMessage. Unparseable lines are logged and skipped; the
// extension side must not be able to kill the loop with one bad line.
func (c *Client) ReadLoop(onMessage func(map[string]any)) error {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal(line, &msg); err != nil {
			c.logger.Warn("skipping unparseable extension line", "err", err)
			continue
		}
		onMessage(msg)
	}
	if err := scanner.Err(); err != nil && !c.closed.Load() {
		return fmt.Errorf("read from extension: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}
