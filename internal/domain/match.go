// Package domain contains entity without logic, just meta-data
package domain

type (
	MatchID     string
	TransportID string
	ProducerID  string
	ConsumerID  string
)

// MediaKind is the media type carried by a producer or consumer.
type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

func (k MediaKind) Valid() bool {
	return k == MediaKindAudio || k == MediaKindVideo
}

// TransportState tracks the negotiation lifecycle of a transport handle.
type TransportState int

const (
	TransportCreated TransportState = iota
	TransportConnecting
	TransportConnected
	TransportClosed
)

func (s TransportState) String() string {
	switch s {
	case TransportCreated:
		return "created"
	case TransportConnecting:
		return "connecting"
	case TransportConnected:
		return "connected"
	case TransportClosed:
		return "closed"
	}
	return "unknown"
}

// ResourceState tracks producer/consumer lifecycle.
type ResourceState int

const (
	ResourceActive ResourceState = iota
	ResourceClosed
)

func (s ResourceState) String() string {
	if s == ResourceClosed {
		return "closed"
	}
	return "active"
}
