package realtime

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixvaughn/themachine-backend/internal/logger"
)

// Client is one connected SSE stream. A client watches exactly one
// session; the Scroller and Optimizer each hold their own client.
type Client struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	SessionID uuid.UUID
	Outbound  chan []byte
	done      chan struct{}
}

// hubSession tracks everything the hub holds for one session: the bus
// channel it rides on and the local clients fanned out to. The channel is
// opened by the first client and closed by the last one leaving.
type hubSession struct {
	channel *Channel
	closeCh func()
	clients map[*Client]bool
}

// Hub fans session events out to local SSE clients. Each subscribed
// session owns one Channel on the bus, so reconnection and status
// handling live there; the hub only routes.
type Hub struct {
	mu       sync.RWMutex
	logger   *logger.Logger
	bus      Bus
	sessions map[uuid.UUID]*hubSession
}

func NewHub(bus Bus, log *logger.Logger) *Hub {
	return &Hub{
		logger:   log.With("component", "Hub"),
		bus:      bus,
		sessions: make(map[uuid.UUID]*hubSession),
	}
}

// NewClient attaches a client to a session's fan-out, opening the
// session's bus channel if this is the first local watcher.
func (hub *Hub) NewClient(userID, sessionID uuid.UUID) (*Client, error) {
	client := &Client{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: sessionID,
		Outbound:  make(chan []byte, 16),
		done:      make(chan struct{}),
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()

	sess, ok := hub.sessions[sessionID]
	if !ok {
		ch := NewChannel(hub.bus, sessionID.String(), hub.logger)
		ch.OnStatusChange(func(status Status, cause string) {
			if status == StatusError {
				hub.logger.Error("session channel gave up", "sessionID", sessionID, "cause", cause)
				return
			}
			hub.logger.Debug("session channel status", "sessionID", sessionID, "status", string(status), "cause", cause)
		})
		closeCh, err := ch.Subscribe(func(ev Event) {
			hub.deliver(sessionID, ev)
		})
		if err != nil {
			return nil, fmt.Errorf("open session channel: %w", err)
		}
		sess = &hubSession{
			channel: ch,
			closeCh: closeCh,
			clients: make(map[*Client]bool),
		}
		hub.sessions[sessionID] = sess
	}
	sess.clients[client] = true

	hub.logger.Debug("SSE client subscribed", "clientID", client.ID, "sessionID", sessionID)
	return client, nil
}

// CloseClient detaches the client and tears down the session channel when
// nobody local is watching anymore.
func (hub *Hub) CloseClient(client *Client) {
	close(client.done)

	hub.mu.Lock()
	sess, ok := hub.sessions[client.SessionID]
	if ok {
		delete(sess.clients, client)
		if len(sess.clients) == 0 {
			delete(hub.sessions, client.SessionID)
		} else {
			sess = nil
		}
	} else {
		sess = nil
	}
	hub.mu.Unlock()

	if sess != nil {
		sess.closeCh()
		hub.logger.Debug("last SSE client left, channel closed", "sessionID", client.SessionID)
	}
	close(client.Outbound)
}

// Publish broadcasts an event to the session over the bus. Remote
// instances receive it through their own subscriptions; local clients
// receive it through the loopback delivery of this instance's channel.
func (hub *Hub) Publish(sessionID uuid.UUID, ev Event) error {
	payload, err := Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return hub.bus.Publish(context.Background(), ChannelName(sessionID.String()), payload)
}

// Channel returns the live channel for a session, or nil when no local
// client is watching it.
func (hub *Hub) Channel(sessionID uuid.UUID) *Channel {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if sess, ok := hub.sessions[sessionID]; ok {
		return sess.channel
	}
	return nil
}

func (hub *Hub) deliver(sessionID uuid.UUID, ev Event) {
	payload, err := Marshal(ev)
	if err != nil {
		hub.logger.Warn("failed to marshal event for fan-out", "error", err)
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	sess, ok := hub.sessions[sessionID]
	if !ok {
		return
	}
	for c := range sess.clients {
		select {
		case c.Outbound <- payload:
		default:
			hub.logger.Warn("dropping SSE message; outbound buffer full", "clientID", c.ID)
		}
	}
}

// ServeHTTP streams the client's outbound queue as SSE until the request
// context ends or the client is closed.
func (hub *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Transfer-Encoding", "chunked")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			hub.logger.Debug("SSE client context done", "clientID", client.ID, "err", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			const pingChunkedSize = 8*1024 - len(": ping \n\n")
			fmt.Fprint(w, ": ping "+strings.Repeat("#", pingChunkedSize)+"\n\n")
			flusher.Flush()
		case payload, ok := <-client.Outbound:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "event: message\n")
			_, _ = fmt.Fprintf(w, "data: %s\n\n", string(payload))
			flusher.Flush()
		}
	}
}
