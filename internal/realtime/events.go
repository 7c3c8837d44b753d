package realtime

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the wire envelope. The set is closed: Unmarshal
// rejects anything else, so adding an event kind forces a change here and
// in the Unmarshal switch.
type Kind string

const (
	KindScrollEvent  Kind = "scroll_event"
	KindQueueVideo   Kind = "queue_video"
	KindTextCard     Kind = "text_card"
	KindCameraFrame  Kind = "camera_frame"
	KindSessionStart Kind = "session_start"
	KindSessionEnd   Kind = "session_end"
	KindCountdown    Kind = "countdown"
)

// Event is one domain event carried over a session channel. Consumers
// switch on the concrete type; the channel itself never interprets
// payloads beyond routing.
type Event interface {
	Kind() Kind
}

// ScrollEvent is live dwell telemetry from the Scroller's feed.
type ScrollEvent struct {
	VideoID        string   `json:"video_id"`
	DwellMS        int64    `json:"dwell_ms"`
	ScrollVelocity *float64 `json:"scroll_velocity,omitempty"`
	QueuedBy       string   `json:"queued_by"`
	TimestampMS    int64    `json:"timestamp_ms"`
	InfoGain       *float64 `json:"info_gain,omitempty"`
}

func (ScrollEvent) Kind() Kind { return KindScrollEvent }

// QueueVideo is the Optimizer pushing a video to the front of the
// Scroller's queue.
type QueueVideo struct {
	VideoID string `json:"video_id"`
}

func (QueueVideo) Kind() Kind { return KindQueueVideo }

// TextCard is an Optimizer message displayed over the feed.
type TextCard struct {
	Content  string `json:"content"`
	SentAtMS int64  `json:"sent_at_ms"`
}

func (TextCard) Kind() Kind { return KindTextCard }

// CameraFrame is a low-resolution base64 snapshot of the Scroller's
// camera. Relayed only, never persisted.
type CameraFrame struct {
	Frame     string `json:"frame"`
	Timestamp int64  `json:"timestamp"`
}

func (CameraFrame) Kind() Kind { return KindCameraFrame }

// SessionStart, SessionEnd and Countdown are lifecycle control signals.
type SessionStart struct {
	Timestamp int64 `json:"timestamp"`
}

func (SessionStart) Kind() Kind { return KindSessionStart }

type SessionEnd struct {
	Timestamp int64 `json:"timestamp"`
}

func (SessionEnd) Kind() Kind { return KindSessionEnd }

type Countdown struct {
	Timestamp int64 `json:"timestamp"`
	Seconds   int   `json:"countdown"`
}

func (Countdown) Kind() Kind { return KindCountdown }

// Marshal flattens the event into its wire envelope: the payload fields
// plus a "type" tag.
func Marshal(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("nil event")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	tag, _ := json.Marshal(ev.Kind())
	fields["type"] = tag
	return json.Marshal(fields)
}

// Unmarshal decodes a wire envelope into its concrete event. Unknown or
// missing tags are errors, not silently dropped payloads.
func Unmarshal(data []byte) (Event, error) {
	var probe struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	switch probe.Type {
	case KindScrollEvent:
		var ev ScrollEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case KindQueueVideo:
		var ev QueueVideo
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case KindTextCard:
		var ev TextCard
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case KindCameraFrame:
		var ev CameraFrame
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case KindSessionStart:
		var ev SessionStart
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case KindSessionEnd:
		var ev SessionEnd
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case KindCountdown:
		var ev Countdown
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "":
		return nil, fmt.Errorf("event envelope missing type tag")
	default:
		return nil, fmt.Errorf("unknown event type %q", probe.Type)
	}
}
