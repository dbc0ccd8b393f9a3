package player

import "fmt"

// Raw host message types.
const (
	RawReady = "ready"
	RawState = "state"
	RawError = "error"
)

// Player state codes reported by the embedded iframe host.
const (
	codeUnstarted = -1
	codeEnded     = 0
	codePlaying   = 1
	codePaused    = 2
	codeBuffering = 3
	codeCued      = 5
)

// RawEvent is a message exactly as the host sent it.
type RawEvent struct {
	Type string `json:"type"`
	Data int    `json:"data"`
}

type Kind int

const (
	EventReady Kind = iota + 1
	EventPlaying
	EventPaused
	EventEnded
	EventError
	// EventRemounted reports that a new host page replaced a ready one. The
	// adapter is not ready again until that page reports ready.
	EventRemounted
)

func (k Kind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventPlaying:
		return "playing"
	case EventPaused:
		return "paused"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	case EventRemounted:
		return "remounted"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is a host report after translation. Code carries the host error code
// for EventError.
type Event struct {
	Kind Kind
	Code int
}

// translate maps a raw host message onto an Event. Buffering, cued and
// unstarted states have no meaning for the session and are dropped.
func translate(raw RawEvent) (Event, bool) {
	switch raw.Type {
	case RawReady:
		return Event{Kind: EventReady}, true
	case RawError:
		return Event{Kind: EventError, Code: raw.Data}, true
	case RawState:
		switch raw.Data {
		case codeEnded:
			return Event{Kind: EventEnded}, true
		case codePlaying:
			return Event{Kind: EventPlaying}, true
		case codePaused:
			return Event{Kind: EventPaused}, true
		case codeUnstarted, codeBuffering, codeCued:
			return Event{}, false
		}
	}
	return Event{}, false
}

// ErrorReason describes an iframe player error code.
func ErrorReason(code int) string {
	switch code {
	case 2:
		return "invalid video id"
	case 5:
		return "html5 player error"
	case 100:
		return "video not found or removed"
	case 101, 150:
		return "embedding not allowed by the owner"
	}
	return fmt.Sprintf("player error %d", code)
}
