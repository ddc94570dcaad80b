package core

import "github.com/relabs/matchcast/internal/domain"

// Event reports a registry change to interested clients (the websocket feed).
type Event struct {
	Match    domain.MatchID `json:"match"`
	Type     string         `json:"type"`
	Resource string         `json:"resource"`
	Reason   string         `json:"reason,omitempty"`
}

const (
	EventTransportClosed = "transport_closed"
	EventProducerClosed  = "producer_closed"
	EventConsumerClosed  = "consumer_closed"
)

// Close reasons.
const (
	ReasonCaller  = "caller"
	ReasonEngine  = "engine"
	ReasonCascade = "cascade"
)

// EventSink receives registry events. Implementations must not block; the
// coordinator publishes while holding no locks but on the request path.
type EventSink interface {
	Publish(Event)
}
