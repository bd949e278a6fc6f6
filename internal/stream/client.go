package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/keshon/stream-companion/internal/mind"
	"github.com/keshon/stream-companion/pkg/retrylimit"
)

const (
	dialTimeout  = 15 * time.Second
	writeTimeout = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// ErrNotConnected is returned by Publish while no connection is up.
var ErrNotConnected = errors.New("stream: not connected")

// Sink receives decoded events in arrival order and the link state.
type Sink interface {
	Ingest(ev mind.StreamEvent)
	SetConnected(ok bool)
}

// Client is a reconnecting websocket client for the stream backend. It reads
// event frames and publishes companion state frames on the same connection.
type Client struct {
	URL       string
	Dialer    *websocket.Dialer
	Header    http.Header
	Reconnect retrylimit.RetryConfig

	sink    Sink
	log     zerolog.Logger
	limiter *retrylimit.AdaptiveLimiter

	connMu  sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewClient returns a client for url that reconnects with backoff forever.
func NewClient(url string, sink Sink, log zerolog.Logger) *Client {
	return &Client{
		URL:       url,
		Dialer:    websocket.DefaultDialer,
		Reconnect: retrylimit.ReconnectConfig(log),
		sink:      sink,
		log:       log,
		limiter:   retrylimit.NewAdaptiveLimiter(1, 0.2, 2, 0.2, 0.5),
	}
}

// Run connects, reads until the link drops and reconnects, until ctx is done.
// The backoff restarts after every successful connection.
func (c *Client) Run(ctx context.Context) error {
	for {
		var conn *websocket.Conn
		err := retrylimit.WithRetryConfig(ctx, func(ctx context.Context) error {
			var err error
			conn, err = c.dial(ctx)
			return err
		}, c.limiter, c.Reconnect)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("stream: %w", err)
		}

		c.log.Info().Str("url", c.URL).Msg("connected to stream backend")
		err = c.serve(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn().Err(err).Msg("stream connection lost, reconnecting")
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(dialCtx, c.URL, c.Header)
	if err != nil {
		if resp != nil {
			return nil, &retrylimit.StatusError{Code: resp.StatusCode, Err: err}
		}
		return nil, err
	}
	return conn, nil
}

// serve owns conn until it fails or ctx is done.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	c.setConn(conn)
	c.sink.SetConnected(true)
	defer func() {
		c.setConn(nil)
		c.sink.SetConnected(false)
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go c.keepalive(ctx, conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handle(data)
	}
}

// keepalive pings the server and unblocks the read loop when ctx ends.
func (c *Client) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			c.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			c.writeMu.Unlock()
			_ = conn.Close()
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.log.Debug().Err(err).Msg("ping failed")
			}
		}
	}
}

func (c *Client) handle(data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.log.Warn().Err(err).Int("bytes", len(data)).Msg("undecodable frame")
		return
	}
	if f.Event == FrameSettingsChanged {
		var s struct {
			Key string `json:"key"`
		}
		_ = json.Unmarshal(f.Data, &s)
		c.log.Debug().Str("key", s.Key).Msg("settings changed")
		return
	}
	ev, ok, err := Decode(f)
	if err != nil {
		c.log.Warn().Err(err).Msg("bad event payload")
		return
	}
	if !ok {
		c.log.Debug().Str("event", f.Event).Msg("frame ignored")
		return
	}
	c.sink.Ingest(ev)
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.conn = conn
}

// Connected reports whether a connection is currently up.
func (c *Client) Connected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn != nil
}

// Publish sends the snapshot as a companion-state frame. It implements
// mind.Publisher.
func (c *Client) Publish(ctx context.Context, snap mind.Snapshot) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	msg, err := Encode(FrameCompanionState, snap)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
