package hmip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultIdleTimeout    = 30 * time.Second
	defaultPingInterval   = 25 * time.Second
	defaultEventQueueSize = 64
)

// Logger is the minimal logging interface the client needs. Satisfied by
// the logging package's Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the connection parameters for one hub session.
type Config struct {
	// Endpoint is the plugin WebSocket URL, e.g. "wss://10.0.0.5:9001".
	Endpoint string

	// AuthToken is the plugin authorization token issued by the hub.
	AuthToken string

	// PluginID identifies this client to the hub.
	PluginID string

	// TLSInsecureSkipVerify disables certificate verification. The hub
	// serves a self-signed certificate, so this is normally true.
	TLSInsecureSkipVerify bool

	ConnectTimeout time.Duration
	RequestTimeout time.Duration

	// IdleTimeout is the longest silence tolerated on the socket before
	// the link is considered dead. Must exceed PingInterval.
	IdleTimeout  time.Duration
	PingInterval time.Duration

	// EventQueueSize bounds the buffer between the read loop and the
	// event dispatcher. When the queue fills the read loop blocks, so a
	// slow consumer applies backpressure instead of losing transactions.
	EventQueueSize int
}

func (c *Config) applyDefaults() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.EventQueueSize <= 0 {
		c.EventQueueSize = defaultEventQueueSize
	}
}

// SystemState is the decoded result of a getSystemState call. Devices and
// groups stay as raw JSON objects keyed by ID; the hub's schema is too
// device-specific to model as structs.
type SystemState struct {
	Devices map[string]map[string]interface{} `json:"devices"`
	Groups  map[string]map[string]interface{} `json:"groups"`
	Home    map[string]interface{}            `json:"home"`
}

// Stats is a point-in-time snapshot of client counters.
type Stats struct {
	FramesTx         uint64
	FramesRx         uint64
	EventsDispatched uint64
	RequestsInFlight int
	LastActivity     time.Time
}

// EventsFunc receives decoded push events from one hub transaction, in
// transaction order.
type EventsFunc func(events []PushEvent)

// Client is a connected session to the hub: it serializes requests,
// correlates responses, and dispatches pushed events to a callback.
//
// A Client is single-use. After the connection drops or Close is called it
// cannot be reconnected; create a new Client instead.
type Client struct {
	cfg    Config
	logger Logger

	sess *session
	corr *correlator

	onEvents EventsFunc

	eventQueue chan []PushEvent
	done       *closeOnce
	wg         sync.WaitGroup

	errMu   sync.Mutex
	lastErr error

	eventsDispatched atomic.Uint64
}

// New creates an unconnected client. Call SetOnEvents before Connect if
// push events are wanted.
func New(cfg Config, logger Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("hmip: endpoint is required")
	}
	if cfg.AuthToken == "" {
		return nil, errors.New("hmip: auth token is required")
	}
	if cfg.PluginID == "" {
		return nil, errors.New("hmip: plugin id is required")
	}
	cfg.applyDefaults()

	return &Client{
		cfg:        cfg,
		logger:     logger,
		corr:       newCorrelator(),
		eventQueue: make(chan []PushEvent, cfg.EventQueueSize),
		done:       newCloseOnce(),
	}, nil
}

// SetOnEvents registers the push event callback. Must be called before
// Connect; the callback runs on a single dispatcher goroutine, so event
// order is preserved.
func (c *Client) SetOnEvents(fn EventsFunc) {
	c.onEvents = fn
}

// Connect dials the hub and starts the read and dispatch loops.
func (c *Client) Connect(ctx context.Context) error {
	if c.sess != nil {
		return errors.New("hmip: already connected")
	}

	sess, err := dialSession(ctx, c.cfg)
	if err != nil {
		return err
	}
	c.sess = sess

	c.wg.Add(2)
	go c.readLoop()
	go c.dispatchLoop()

	c.logger.Info("connected to hub", "endpoint", c.cfg.Endpoint)
	return nil
}

// Done closes when the session ends, either through Close or a connection
// failure. Check Err to distinguish the two.
func (c *Client) Done() <-chan struct{} {
	return c.done.Done()
}

// Err returns the error that terminated the session, or nil after a clean
// Close.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}

// Close shuts the session down and waits for both loops to exit. Any
// in-flight requests fail with ErrConnectionLost.
func (c *Client) Close() error {
	c.done.Close()
	c.corr.failAll()

	var err error
	if c.sess != nil {
		err = c.sess.close()
	}
	c.wg.Wait()
	return err
}

// Stats returns a snapshot of the client's counters.
func (c *Client) Stats() Stats {
	s := Stats{
		EventsDispatched: c.eventsDispatched.Load(),
		RequestsInFlight: c.corr.pendingCount(),
	}
	if c.sess != nil {
		s.FramesTx = c.sess.framesTx.Load()
		s.FramesRx = c.sess.framesRx.Load()
		s.LastActivity = time.Unix(c.sess.lastActivity.Load(), 0)
	}
	return s
}

// Request sends one system request and waits for the matching response.
// It returns the response's inner body; a non-2xx response code yields
// ErrRequestRejected.
func (c *Client) Request(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	if c.sess == nil {
		return nil, ErrNotConnected
	}
	select {
	case <-c.done.Done():
		return nil, ErrSessionClosed
	default:
	}

	id, ch := c.corr.register()

	msg, err := NewSystemRequest(id, c.cfg.PluginID, path, payload)
	if err != nil {
		c.corr.discard(id)
		return nil, err
	}

	if err := c.sess.send(msg); err != nil {
		c.corr.discard(id)
		return nil, err
	}

	timeout := c.cfg.RequestTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	body, err := c.corr.await(id, ch, timeout, c.done.Done())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if body.Code < 200 || body.Code >= 300 {
		return nil, fmt.Errorf("%w: %s returned code %d", ErrRequestRejected, path, body.Code)
	}
	return body.Body, nil
}

// FetchSystemState retrieves the hub's full device, group and home state.
func (c *Client) FetchSystemState(ctx context.Context) (*SystemState, error) {
	raw, err := c.Request(ctx, PathGetSystemState, nil)
	if err != nil {
		return nil, err
	}

	var state SystemState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("%w: system state: %v", ErrMalformedFrame, err)
	}
	return &state, nil
}

// SetSwitchState switches a relay channel on or off.
func (c *Client) SetSwitchState(ctx context.Context, deviceID string, channelIndex int, on bool) error {
	_, err := c.Request(ctx, PathSetSwitchState, map[string]interface{}{
		"deviceId": deviceID, "channelIndex": channelIndex, "on": on,
	})
	return err
}

// SetDimLevel sets a dimmer channel level in the range 0.0 to 1.0.
func (c *Client) SetDimLevel(ctx context.Context, deviceID string, channelIndex int, dimLevel float64) error {
	_, err := c.Request(ctx, PathSetDimLevel, map[string]interface{}{
		"deviceId": deviceID, "channelIndex": channelIndex, "dimLevel": dimLevel,
	})
	return err
}

// SetShutterLevel moves a shutter. 0.0 is fully open, 1.0 fully closed.
func (c *Client) SetShutterLevel(ctx context.Context, deviceID string, channelIndex int, shutterLevel float64) error {
	_, err := c.Request(ctx, PathSetShutterLevel, map[string]interface{}{
		"deviceId": deviceID, "channelIndex": channelIndex, "shutterLevel": shutterLevel,
	})
	return err
}

// SetSlatsLevel sets blind slats, repositioning the shutter at the same time.
func (c *Client) SetSlatsLevel(ctx context.Context, deviceID string, channelIndex int, shutterLevel, slatsLevel float64) error {
	_, err := c.Request(ctx, PathSetSlatsLevel, map[string]interface{}{
		"deviceId": deviceID, "channelIndex": channelIndex,
		"shutterLevel": shutterLevel, "slatsLevel": slatsLevel,
	})
	return err
}

// Stop halts a moving shutter or blind.
func (c *Client) Stop(ctx context.Context, deviceID string, channelIndex int) error {
	_, err := c.Request(ctx, PathStop, map[string]interface{}{
		"deviceId": deviceID, "channelIndex": channelIndex,
	})
	return err
}

// SetLockState drives a door lock. targetLockState is LOCKED, UNLOCKED or
// OPEN; the pin is required by the lock's configuration.
func (c *Client) SetLockState(ctx context.Context, deviceID string, channelIndex int, targetLockState, pin string) error {
	_, err := c.Request(ctx, PathSetLockState, map[string]interface{}{
		"deviceId": deviceID, "channelIndex": channelIndex,
		"targetLockState": targetLockState, "authorizationPin": pin,
	})
	return err
}

// SetColorTemperatureDimLevel sets a tunable-white light's color
// temperature in kelvin together with its dim level.
func (c *Client) SetColorTemperatureDimLevel(ctx context.Context, deviceID string, channelIndex int, colorTemperature int, dimLevel float64) error {
	_, err := c.Request(ctx, PathSetColorTemperatureDimLevel, map[string]interface{}{
		"deviceId": deviceID, "channelIndex": channelIndex,
		"colorTemperature": colorTemperature, "dimLevel": dimLevel,
	})
	return err
}

// SetHueSaturationDimLevel sets a color light. Hue is 0-359 degrees,
// saturation and dim level 0.0 to 1.0.
func (c *Client) SetHueSaturationDimLevel(ctx context.Context, deviceID string, channelIndex, hue int, saturationLevel, dimLevel float64) error {
	_, err := c.Request(ctx, PathSetHueSaturationDimLevel, map[string]interface{}{
		"deviceId": deviceID, "channelIndex": channelIndex,
		"hue": hue, "saturationLevel": saturationLevel, "dimLevel": dimLevel,
	})
	return err
}

// SetSimpleRGBColorState sets a notification light's fixed color (one of
// the hub's named colors, BLACK meaning off) and dim level.
func (c *Client) SetSimpleRGBColorState(ctx context.Context, deviceID string, channelIndex int, color string, dimLevel float64) error {
	_, err := c.Request(ctx, PathSetSimpleRGBColorState, map[string]interface{}{
		"deviceId": deviceID, "channelIndex": channelIndex,
		"simpleRGBColorState": color, "dimLevel": dimLevel,
	})
	return err
}

// SendDoorCommand drives a door module. Command is OPEN, CLOSE, STOP or
// PARTIAL_OPEN.
func (c *Client) SendDoorCommand(ctx context.Context, deviceID string, channelIndex int, command string) error {
	_, err := c.Request(ctx, PathSendDoorCommand, map[string]interface{}{
		"deviceId": deviceID, "channelIndex": channelIndex, "doorCommand": command,
	})
	return err
}

// ToggleGarageDoorState triggers a garage door impulse.
func (c *Client) ToggleGarageDoorState(ctx context.Context, deviceID string, channelIndex int) error {
	_, err := c.Request(ctx, PathToggleGarageDoorState, map[string]interface{}{
		"deviceId": deviceID, "channelIndex": channelIndex,
	})
	return err
}

// SetWateringSwitchState switches an irrigation channel.
func (c *Client) SetWateringSwitchState(ctx context.Context, deviceID string, channelIndex int, active bool) error {
	_, err := c.Request(ctx, PathSetWateringSwitchState, map[string]interface{}{
		"deviceId": deviceID, "channelIndex": channelIndex, "wateringActive": active,
	})
	return err
}

// ResetEnergyCounter zeroes a metering channel's energy counter.
func (c *Client) ResetEnergyCounter(ctx context.Context, deviceID string, channelIndex int) error {
	_, err := c.Request(ctx, PathResetEnergyCounter, map[string]interface{}{
		"deviceId": deviceID, "channelIndex": channelIndex,
	})
	return err
}

// SetSetPointTemperature sets a heating group's target temperature.
func (c *Client) SetSetPointTemperature(ctx context.Context, groupID string, temperature float64) error {
	_, err := c.Request(ctx, PathSetSetPointTemperature, map[string]interface{}{
		"groupId": groupID, "setPointTemperature": temperature,
	})
	return err
}

// SetControlMode switches a heating group between AUTOMATIC and MANUAL.
func (c *Client) SetControlMode(ctx context.Context, groupID, mode string) error {
	_, err := c.Request(ctx, PathSetControlMode, map[string]interface{}{
		"groupId": groupID, "controlMode": mode,
	})
	return err
}

// SetBoost enables or disables boost heating for a group.
func (c *Client) SetBoost(ctx context.Context, groupID string, boost bool) error {
	_, err := c.Request(ctx, PathSetBoost, map[string]interface{}{
		"groupId": groupID, "boost": boost,
	})
	return err
}

// ActivateVacation enables vacation mode until endTime at the given
// temperature. The hub expects endTime as "YYYY_MM_DD HH:MM".
func (c *Client) ActivateVacation(ctx context.Context, temperature float64, endTime string) error {
	_, err := c.Request(ctx, PathActivateVacation, map[string]interface{}{
		"temperature": temperature, "endTime": endTime,
	})
	return err
}

// DeactivateVacation ends vacation mode.
func (c *Client) DeactivateVacation(ctx context.Context) error {
	_, err := c.Request(ctx, PathDeactivateVacation, nil)
	return err
}

// ActivateAbsencePermanent switches all heating groups to eco mode until
// explicitly deactivated.
func (c *Client) ActivateAbsencePermanent(ctx context.Context) error {
	_, err := c.Request(ctx, PathActivateAbsencePermanent, nil)
	return err
}

// DeactivateAbsence ends eco mode.
func (c *Client) DeactivateAbsence(ctx context.Context) error {
	_, err := c.Request(ctx, PathDeactivateAbsence, nil)
	return err
}

// PlaySound plays a sound file on a doorbell or siren channel for onTime
// seconds at the given volume (0.0 to 1.0).
func (c *Client) PlaySound(ctx context.Context, deviceID string, channelIndex int, soundFile string, volumeLevel float64, onTime int) error {
	_, err := c.Request(ctx, PathPlaySound, map[string]interface{}{
		"deviceId": deviceID, "channelIndex": channelIndex,
		"soundFile": soundFile, "volumeLevel": volumeLevel, "onTime": onTime,
	})
	return err
}

// SetExtendedZonesActivation arms or disarms the internal and external
// security zones.
func (c *Client) SetExtendedZonesActivation(ctx context.Context, internal, external bool) error {
	_, err := c.Request(ctx, PathSetExtendedZonesActivation, map[string]interface{}{
		"zonesActivation": map[string]bool{"INTERNAL": internal, "EXTERNAL": external},
	})
	return err
}

// EnableSimpleRule enables or disables an automation rule on the hub.
func (c *Client) EnableSimpleRule(ctx context.Context, ruleID string, enabled bool) error {
	_, err := c.Request(ctx, PathEnableSimpleRule, map[string]interface{}{
		"ruleId": ruleID, "enabled": enabled,
	})
	return err
}

// readLoop owns all reads from the session. Responses resolve their
// waiting request; events are queued for the dispatcher. The loop exits
// when the connection dies or Close is called, closing the event queue so
// the dispatcher drains and stops.
func (c *Client) readLoop() {
	defer c.wg.Done()
	defer close(c.eventQueue)

	for {
		msg, err := c.sess.next()
		if err != nil {
			c.fail(err)
			return
		}

		switch msg.Type {
		case TypeSystemResponse:
			var body ResponseBody
			if err := json.Unmarshal(msg.Body, &body); err != nil {
				c.logger.Warn("malformed response body", "id", msg.ID, "error", err)
				continue
			}
			if !c.corr.resolve(msg.ID, body) {
				c.logger.Debug("response for unknown request", "id", msg.ID)
			}

		case TypeSystemEvent:
			events, err := DecodeEvents(msg.Body)
			if err != nil {
				c.logger.Warn("malformed event frame", "error", err)
				continue
			}
			if len(events) == 0 {
				continue
			}
			// Blocks when the dispatcher is behind: the socket read
			// stalls rather than losing a state delta, and the idle
			// timeout eventually kills a link whose consumer is wedged.
			select {
			case c.eventQueue <- events:
			case <-c.done.Done():
				return
			}

		default:
			c.logger.Debug("ignoring frame", "type", msg.Type)
		}
	}
}

// dispatchLoop delivers queued event transactions to the callback, one at
// a time, so consumers see events in hub order.
func (c *Client) dispatchLoop() {
	defer c.wg.Done()

	for events := range c.eventQueue {
		if c.onEvents == nil {
			continue
		}
		c.dispatch(events)
	}
}

func (c *Client) dispatch(events []PushEvent) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event callback panicked", "panic", r)
		}
	}()

	c.onEvents(events)
	c.eventsDispatched.Add(uint64(len(events)))
}

// fail records the first terminal error and wakes everything waiting on
// the session.
func (c *Client) fail(err error) {
	c.errMu.Lock()
	if c.lastErr == nil && !errors.Is(err, ErrSessionClosed) {
		c.lastErr = err
	}
	c.errMu.Unlock()

	if !errors.Is(err, ErrSessionClosed) {
		c.logger.Warn("session terminated", "error", err)
	}

	c.done.Close()
	c.corr.failAll()
}
