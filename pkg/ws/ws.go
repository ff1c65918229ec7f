// Package ws is the client side of the portal's push event channel.
//
// A Channel holds one websocket to the backend while someone is logged in.
// Every frame is a JSON envelope {"event": name, "data": payload}; received
// events are fired on the App's event.Bus. After connecting, the client
// announces itself with "identify" and "join-user".
//
//	ch := ws.New(config.EventsURL(), store, bus, notices)
//	ch.Open(identity.ID)
//	defer ch.Close()
//
// Reconnect policy:
//   - transport drop: back off 1s, doubling up to 30s
//   - server closed normally: reconnect at once; from the second close in a
//     row, back off like a drop
//   - authentication rejected: force a logout, tell the user, stay down
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shashiranjanraj/aquaportal/pkg/event"
	"github.com/shashiranjanraj/aquaportal/pkg/logger"
	"github.com/shashiranjanraj/aquaportal/pkg/metrics"
	"github.com/shashiranjanraj/aquaportal/pkg/notification"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB

	defaultBackoffMin = time.Second
	defaultBackoffMax = 30 * time.Second

	// ExpiredMessage is shown when the channel rejects the credential.
	ExpiredMessage = "Session expired. Please log in again."

	authErrorMarker = "Authentication error"
	connectError    = "connect_error"
)

// Session is what the channel needs from the session store.
type Session interface {
	Token() string
	Expire(ctx context.Context)
}

// Notifier receives the user-visible expiry notice.
type Notifier interface {
	Error(format string, args ...any) notification.Notice
}

// outcome explains why one connection ended.
type outcome int

const (
	outcomeStopped outcome = iota
	outcomeDropped
	outcomeServerClose
	outcomeAuthFailed
)

// Channel is a reconnecting push connection.
type Channel struct {
	url     string
	session Session
	bus     *event.Bus
	notices Notifier
	dialer  *websocket.Dialer
	log     *slog.Logger

	backoffMin time.Duration
	backoffMax time.Duration

	connected atomic.Bool
	dials     atomic.Int64

	// openMu serializes Open and Close so a stop and the restart that
	// follows it are one step.
	openMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a closed Channel. Call Open once an identity exists.
func New(rawURL string, session Session, bus *event.Bus, notices Notifier) *Channel {
	return &Channel{
		url:        rawURL,
		session:    session,
		bus:        bus,
		notices:    notices,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:        logger.Component("ws"),
		backoffMin: defaultBackoffMin,
		backoffMax: defaultBackoffMax,
	}
}

// SetBackoff overrides the reconnect delay bounds.
func (c *Channel) SetBackoff(lo, hi time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backoffMin, c.backoffMax = lo, hi
}

// Connected reports whether a websocket is currently up.
func (c *Channel) Connected() bool { return c.connected.Load() }

// Dials counts connection attempts since New.
func (c *Channel) Dials() int64 { return c.dials.Load() }

// Open (re)starts the connection loop for userID with the session's current
// credential. An already running loop is stopped first.
func (c *Channel) Open(userID string) {
	c.openMu.Lock()
	defer c.openMu.Unlock()

	c.stop()

	token := c.session.Token()
	if token == "" || userID == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel, c.done = cancel, done
	lo, hi := c.backoffMin, c.backoffMax
	c.mu.Unlock()

	go func() {
		expired := c.run(ctx, token, userID, lo, hi)
		close(done)
		if expired {
			c.expire(token)
		}
	}()
}

// Close stops the connection loop and waits for it to exit.
func (c *Channel) Close() {
	c.openMu.Lock()
	defer c.openMu.Unlock()
	c.stop()
}

// stop cancels the running loop, if any, and waits for it. The loop's done
// channel closes before expire runs, so waiting here never depends on a
// caller of Close.
func (c *Channel) stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// run returns true when the loop ended because the credential was rejected.
func (c *Channel) run(ctx context.Context, token, userID string, lo, hi time.Duration) bool {
	backoff := lo

	// closes counts normal server closes in a row. The first reconnects at
	// once; later ones wait closeBackoff so a closing loop cannot spin.
	closes := 0
	closeBackoff := lo

	for {
		c.dials.Add(1)
		conn, resp, err := c.dial(ctx, token)
		if ctx.Err() != nil {
			if conn != nil {
				conn.Close()
			}
			return false
		}
		if err != nil {
			if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
				metrics.ChannelConnects.WithLabelValues("auth_failed").Inc()
				return true
			}
			metrics.ChannelConnects.WithLabelValues("failed").Inc()
			c.log.Warn("ws: connect failed, retrying", "backoff", backoff, "error", err)
			if !sleep(ctx, backoff) {
				return false
			}
			backoff = next(backoff, hi)
			continue
		}

		metrics.ChannelConnects.WithLabelValues("connected").Inc()
		c.log.Info("ws: connected", "user_id", userID)
		backoff = lo

		c.connected.Store(true)
		metrics.ChannelUp.Set(1)
		upAt := time.Now()
		out := c.serve(ctx, conn, userID)
		c.connected.Store(false)
		metrics.ChannelUp.Set(0)

		if out != outcomeServerClose || time.Since(upAt) >= hi {
			closes, closeBackoff = 0, lo
		}

		switch out {
		case outcomeStopped:
			return false
		case outcomeAuthFailed:
			metrics.ChannelConnects.WithLabelValues("auth_failed").Inc()
			return true
		case outcomeServerClose:
			closes++
			if closes < 2 {
				c.log.Info("ws: server closed the channel, reconnecting")
				continue
			}
			c.log.Warn("ws: server keeps closing the channel, backing off", "backoff", closeBackoff)
			if !sleep(ctx, closeBackoff) {
				return false
			}
			closeBackoff = next(closeBackoff, hi)
		case outcomeDropped:
			c.log.Warn("ws: connection dropped, retrying", "backoff", backoff)
			if !sleep(ctx, backoff) {
				return false
			}
			backoff = next(backoff, hi)
		}
	}
}

func (c *Channel) dial(ctx context.Context, token string) (*websocket.Conn, *http.Response, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, nil, fmt.Errorf("ws: parse url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, resp, err
}

// serve pumps one connection until it ends.
func (c *Channel) serve(ctx context.Context, conn *websocket.Conn, userID string) outcome {
	send := make(chan []byte, 16)
	quit := make(chan struct{})
	defer close(quit)
	defer conn.Close()

	go c.writePump(conn, send, quit)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			conn.Close()
		case <-quit:
		}
	}()

	for _, name := range []string{"identify", "join-user"} {
		if frame, err := encode(name, userID); err == nil {
			send <- frame
		}
	}

	return c.readPump(ctx, conn)
}

func (c *Channel) readPump(ctx context.Context, conn *websocket.Conn) outcome {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return outcomeStopped
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				if strings.Contains(ce.Text, authErrorMarker) {
					return outcomeAuthFailed
				}
				if ce.Code == websocket.CloseNormalClosure {
					return outcomeServerClose
				}
			}
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("ws: unexpected close", "error", err)
			}
			return outcomeDropped
		}

		var ev event.Event
		if err := json.Unmarshal(msg, &ev); err != nil || ev.Name == "" {
			c.log.Debug("ws: ignoring malformed frame", "error", err)
			continue
		}

		if ev.Name == connectError {
			var body struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(ev.Data, &body)
			if strings.Contains(body.Message, authErrorMarker) {
				return outcomeAuthFailed
			}
			c.log.Warn("ws: connect error", "message", body.Message)
			continue
		}

		metrics.EventsReceived.WithLabelValues(ev.Name).Inc()
		c.log.Debug("ws: event", "event", ev.Name)
		c.bus.Fire(ev)
	}
}

func (c *Channel) writePump(conn *websocket.Conn, send <-chan []byte, quit <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-quit:
			return
		}
	}
}

// expire forces the logout for token, unless the user has meanwhile logged in
// again with a different credential.
func (c *Channel) expire(token string) {
	if c.session.Token() != token {
		return
	}
	c.log.Warn("ws: authentication rejected, forcing logout")
	c.session.Expire(context.Background())
	c.notices.Error(ExpiredMessage)
}

func encode(name string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(event.Event{Name: name, Data: raw})
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func next(d, hi time.Duration) time.Duration {
	d *= 2
	if d > hi {
		return hi
	}
	return d
}
