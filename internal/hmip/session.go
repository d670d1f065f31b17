package hmip

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeTimeout bounds a single frame write so a stalled peer cannot
	// block the writer forever.
	writeTimeout = 10 * time.Second

	// closeGracePeriod is how long Close waits for the close handshake.
	closeGracePeriod = 2 * time.Second
)

// closeOnce wraps a channel that can be safely closed multiple times.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// session owns one WebSocket connection to the hub. All writes are
// serialized through writeMu; reads happen from a single caller (the
// client's read loop), so Next needs no locking of its own.
type session struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	idleTimeout  time.Duration
	pingInterval time.Duration

	done *closeOnce
	wg   sync.WaitGroup

	framesTx     atomic.Uint64
	framesRx     atomic.Uint64
	lastActivity atomic.Int64 // unix seconds
}

// dialSession opens the plugin WebSocket and authenticates via headers.
// The hub uses a self-signed certificate, so certificate verification is
// typically disabled through cfg.TLSInsecureSkipVerify.
func dialSession(ctx context.Context, cfg Config) (*session, error) {
	header := http.Header{}
	header.Set("authtoken", cfg.AuthToken)
	header.Set("plugin-id", cfg.PluginID)
	header.Set("hmip-system-events", "true")

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.ConnectTimeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSInsecureSkipVerify, //nolint:gosec // hub serves a self-signed cert
		},
	}

	conn, resp, err := dialer.DialContext(ctx, cfg.Endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: %s (status %d)", ErrConnectionFailed, cfg.Endpoint, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConnectionFailed, cfg.Endpoint, err)
	}

	s := &session{
		conn:         conn,
		idleTimeout:  cfg.IdleTimeout,
		pingInterval: cfg.PingInterval,
		done:         newCloseOnce(),
	}
	s.touch()

	conn.SetPongHandler(func(string) error {
		s.touch()
		return s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
	})

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// send writes one frame to the hub.
func (s *session) send(msg Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("%w: set write deadline: %v", ErrConnectionLost, err)
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("%w: write frame: %v", ErrConnectionLost, err)
	}

	s.framesTx.Add(1)
	s.touch()
	return nil
}

// next blocks until the hub delivers a frame or the idle deadline expires.
// An expired deadline means neither data nor pong arrived within the idle
// window and the link should be treated as dead.
func (s *session) next() (Message, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout)); err != nil {
		select {
		case <-s.done.Done():
			return Message{}, ErrSessionClosed
		default:
		}
		return Message{}, fmt.Errorf("%w: set read deadline: %v", ErrConnectionLost, err)
	}

	var msg Message
	if err := s.conn.ReadJSON(&msg); err != nil {
		select {
		case <-s.done.Done():
			return Message{}, ErrSessionClosed
		default:
		}
		return Message{}, fmt.Errorf("%w: read frame: %v", ErrConnectionLost, err)
	}

	s.framesRx.Add(1)
	s.touch()
	return msg, nil
}

// pingLoop keeps the connection alive. The hub answers pings with pongs,
// which extend the read deadline via the pong handler.
func (s *session) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// close tears the connection down, attempting a clean close handshake
// first. Safe to call multiple times.
func (s *session) close() error {
	s.done.Close()

	s.writeMu.Lock()
	//nolint:errcheck // best effort, the connection is going away
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod),
	)
	s.writeMu.Unlock()

	err := s.conn.Close()
	s.wg.Wait()
	return err
}

func (s *session) touch() {
	s.lastActivity.Store(time.Now().Unix())
}
