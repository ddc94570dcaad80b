package core

import (
	"context"

	"github.com/relabs/matchcast/internal/domain"
)

// EngineTransport is the engine's answer to a transport request. OnClose
// registers a subscribe-once hook fired when the engine tears the transport
// down on its own (ICE failure, remote bye).
type EngineTransport struct {
	domain.TransportOffer
	OnClose func(func())
}

type EngineProducer struct {
	ID      domain.ProducerID
	OnClose func(func())
}

type EngineConsumer struct {
	ID            domain.ConsumerID
	Kind          domain.MediaKind
	RTPParameters domain.RTPParameters
	OnClose       func(func())
}

// MediaEngine is the external media-routing collaborator. It owns the actual
// negotiated resources (ICE/DTLS/SRTP/RTP); the coordinator only keeps
// handles referencing them.
//
// Close is idempotent per the engine contract, but closing a transport that
// still has live producers or consumers is an error: the coordinator must
// cascade-close dependents first.
type MediaEngine interface {
	Capabilities() (domain.RTPCapabilities, error)
	CreateTransport(ctx context.Context) (*EngineTransport, error)
	Connect(ctx context.Context, id domain.TransportID, dtls domain.DTLSParameters) error
	Produce(ctx context.Context, id domain.TransportID, kind domain.MediaKind, params domain.RTPParameters) (*EngineProducer, error)
	Consume(ctx context.Context, id domain.TransportID, producer domain.ProducerID, caps domain.RTPCapabilities) (*EngineConsumer, error)
	CanConsume(producer domain.ProducerID, caps domain.RTPCapabilities) bool
	Close(ctx context.Context, id string) error
}
