package realtime

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/felixvaughn/themachine-backend/internal/logger"
)

// Status is a session channel's connection state.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusReconnecting Status = "reconnecting"
	// StatusError is terminal: reconnect attempts are exhausted and the
	// channel stays dead until the caller tears it down and recreates it.
	StatusError Status = "error"
)

// BackoffConfig shapes the reconnect policy: exponential delay from Base,
// doubling per attempt up to Max, plus uniform random jitter, bounded by
// MaxAttempts.
type BackoffConfig struct {
	Base        time.Duration
	Max         time.Duration
	Jitter      time.Duration
	MaxAttempts int
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		Base:        time.Second,
		Max:         30 * time.Second,
		Jitter:      time.Second,
		MaxAttempts: 10,
	}
}

// ChannelName is the bus channel for a session id.
func ChannelName(sessionID string) string {
	return "session:" + sessionID
}

// Channel is a named event stream for one session over the underlying bus,
// adding automatic reconnection and status observability the raw primitive
// does not provide. Broadcast is fire-and-forget; nothing here retries
// sends or deduplicates receives.
type Channel struct {
	mu        sync.Mutex
	log       *logger.Logger
	bus       Bus
	name      string
	cfg       BackoffConfig
	rng       *rand.Rand
	onEvent   func(Event)
	statusCbs []func(Status, string)
	status    Status
	attempts  int
	sub       Subscription
	cancel    func() // pending reconnect timer, nil when none
	closed    bool

	// schedule is swapped out by tests to observe reconnect delays.
	schedule func(d time.Duration, fn func()) func()
}

func NewChannel(bus Bus, sessionID string, log *logger.Logger) *Channel {
	return NewChannelWithConfig(bus, sessionID, log, DefaultBackoff())
}

func NewChannelWithConfig(bus Bus, sessionID string, log *logger.Logger, cfg BackoffConfig) *Channel {
	c := &Channel{
		log:    log.With("component", "SessionChannel", "channel", ChannelName(sessionID)),
		bus:    bus,
		name:   ChannelName(sessionID),
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		status: StatusConnecting,
	}
	c.schedule = func(d time.Duration, fn func()) func() {
		t := time.AfterFunc(d, fn)
		return func() { t.Stop() }
	}
	return c
}

// Subscribe registers the single event callback and connects. Events are
// delivered in transport order, one call per received event. The returned
// function tears the channel down: it cancels any pending reconnect timer
// and closes the bus subscription.
func (c *Channel) Subscribe(onEvent func(Event)) (func(), error) {
	if onEvent == nil {
		return nil, fmt.Errorf("onEvent callback required")
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("channel is torn down")
	}
	if c.onEvent != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("channel already has a subscriber")
	}
	c.onEvent = onEvent
	c.mu.Unlock()

	c.setStatus(StatusConnecting, "")
	c.connect()
	return c.Close, nil
}

// Broadcast publishes the event to all other subscribers of this session.
// At-most-once: a failed send is logged and reported, never retried.
func (c *Channel) Broadcast(ctx context.Context, ev Event) error {
	payload, err := Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := c.bus.Publish(ctx, c.name, payload); err != nil {
		c.log.Warn("broadcast failed", "event", string(ev.Kind()), "error", err)
		return err
	}
	return nil
}

// OnStatusChange registers an observer for connection-status transitions.
// The cause string is empty unless the transition carries one.
func (c *Channel) OnStatusChange(cb func(status Status, cause string)) {
	if cb == nil {
		return
	}
	c.mu.Lock()
	c.statusCbs = append(c.statusCbs, cb)
	c.mu.Unlock()
}

// Status returns the current connection state.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Close tears the channel down: pending reconnect timers are cancelled so
// nothing fires against a dead channel, and the bus subscription is
// released. A closed channel cannot be resubscribed; create a new one.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancel
	c.cancel = nil
	sub := c.sub
	c.sub = nil
	c.onEvent = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		_ = sub.Close()
	}
}

func (c *Channel) connect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	onEvent := c.onEvent
	c.mu.Unlock()
	if onEvent == nil {
		return
	}

	sub, err := c.bus.Subscribe(context.Background(), c.name, c.handleMessage, c.handleDrop)
	if err != nil {
		c.log.Warn("channel connect failed", "error", err)
		c.scheduleReconnect(err.Error())
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = sub.Close()
		return
	}
	c.sub = sub
	c.attempts = 0
	c.mu.Unlock()
	c.setStatus(StatusConnected, "")
}

func (c *Channel) handleMessage(payload []byte) {
	ev, err := Unmarshal(payload)
	if err != nil {
		c.log.Warn("dropping bad channel payload", "error", err)
		return
	}
	c.mu.Lock()
	onEvent := c.onEvent
	c.mu.Unlock()
	if onEvent != nil {
		onEvent(ev)
	}
}

func (c *Channel) handleDrop(err error) {
	cause := ""
	if err != nil {
		cause = err.Error()
	}
	c.setStatus(StatusDisconnected, cause)
	c.scheduleReconnect(cause)
}

func (c *Channel) scheduleReconnect(cause string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		// A reconnect timer is already pending; attempts are serialized.
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.cfg.MaxAttempts {
		c.mu.Unlock()
		c.setStatus(StatusError, "reconnect attempts exhausted")
		return
	}
	delay := c.cfg.Base << c.attempts
	if delay > c.cfg.Max || delay <= 0 {
		delay = c.cfg.Max
	}
	if c.cfg.Jitter > 0 {
		delay += time.Duration(c.rng.Int63n(int64(c.cfg.Jitter)))
	}
	c.attempts++
	c.cancel = c.schedule(delay, func() {
		c.mu.Lock()
		c.cancel = nil
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		c.connect()
	})
	c.mu.Unlock()
	c.setStatus(StatusReconnecting, cause)
}

func (c *Channel) setStatus(status Status, cause string) {
	c.mu.Lock()
	if c.closed && status != StatusError {
		c.mu.Unlock()
		return
	}
	if c.status == status {
		c.mu.Unlock()
		return
	}
	c.status = status
	cbs := make([]func(Status, string), len(c.statusCbs))
	copy(cbs, c.statusCbs)
	c.mu.Unlock()

	for _, cb := range cbs {
		cb(status, cause)
	}
}
