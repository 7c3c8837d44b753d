package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/felixvaughn/themachine-backend/internal/realtime"
	"github.com/felixvaughn/themachine-backend/internal/requestdata"
	"github.com/felixvaughn/themachine-backend/internal/services"
)

// maxEventBytes bounds an inbound event envelope. Camera frames dominate:
// a downscaled base64 snapshot stays well under this.
const maxEventBytes = 256 * 1024

type EventsHandler struct {
	telemetryService services.TelemetryService
	hub              *realtime.Hub
}

func NewEventsHandler(telemetryService services.TelemetryService, hub *realtime.Hub) *EventsHandler {
	return &EventsHandler{telemetryService: telemetryService, hub: hub}
}

// PostEvent accepts one wire envelope and routes it through rate limiting,
// fan-out and persistence.
func (eh *EventsHandler) PostEvent(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBytes+1))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if len(payload) > maxEventBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "event_too_large", errors.New("event payload too large"))
		return
	}
	ev, err := realtime.Unmarshal(payload)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_event", err)
		return
	}
	if err := eh.telemetryService.HandleEvent(c.Request.Context(), id, ev); err != nil {
		if errors.Is(err, services.ErrRateLimited) {
			RespondError(c, http.StatusTooManyRequests, "rate_limited", err)
			return
		}
		RespondError(c, http.StatusBadRequest, "event_rejected", err)
		return
	}
	RespondOK(c, gin.H{"accepted": true})
}

func (eh *EventsHandler) GetScrollEvents(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	events, err := eh.telemetryService.GetScrollEvents(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "events_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"events": events})
}

func (eh *EventsHandler) GetTextCards(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	cards, err := eh.telemetryService.GetTextCards(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "cards_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"cards": cards})
}

// Stream holds the connection open and relays the session's events as SSE.
func (eh *EventsHandler) Stream(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no request data in context"))
		return
	}
	client, err := eh.hub.NewClient(rd.UserID, id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "stream_unavailable", err)
		return
	}
	defer eh.hub.CloseClient(client)
	eh.hub.ServeHTTP(c.Writer, c.Request, client)
}
