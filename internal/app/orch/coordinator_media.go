package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/relabs/matchcast/internal/app"
	"github.com/relabs/matchcast/internal/core"
	"github.com/relabs/matchcast/internal/domain"
)

// ConsumeReply is what a consuming client needs to receive the stream.
type ConsumeReply struct {
	ConsumerID    domain.ConsumerID    `json:"consumerId"`
	ProducerID    domain.ProducerID    `json:"producerId"`
	Kind          domain.MediaKind     `json:"kind"`
	RTPParameters domain.RTPParameters `json:"rtpParameters"`
}

// Produce negotiates a new producer on the transport and registers it. The
// engine's close notification is wired to cascade-remove the handle without
// a matching inbound request.
func (c *Coordinator) Produce(ctx context.Context, match domain.MatchID, transport domain.TransportID, kind domain.MediaKind, params domain.RTPParameters) (domain.ProducerID, error) {
	entry, ok := c.Table.Get(match)
	if !ok {
		return "", core.ErrTransportNotFound
	}
	if _, ok := entry.LiveTransport(transport); !ok {
		return "", core.ErrTransportNotFound
	}

	p, err := c.Engine.Produce(ctx, transport, kind, params)
	if err != nil {
		return "", core.WrapEngine("produce", err)
	}

	ok = entry.AddProducer(&app.ProducerHandle{
		ID:        p.ID,
		Match:     match,
		Transport: transport,
		Kind:      kind,
		State:     domain.ResourceActive,
	})
	if !ok {
		// The transport was closed during the engine call; its cascade ran
		// before this producer existed, so roll the engine resource back.
		c.engineClose(ctx, string(p.ID), "producer")
		log.Info().Str("module", "orch").
			Str("match", string(match)).
			Str("transport", string(transport)).
			Str("producer", string(p.ID)).
			Msg("transport closed during produce, rolled back")
		return "", core.ErrTransportNotFound
	}
	if p.OnClose != nil {
		p.OnClose(func() { c.onEngineProducerClosed(match, p.ID) })
	}

	log.Info().Str("module", "orch").
		Str("match", string(match)).
		Str("transport", string(transport)).
		Str("producer", string(p.ID)).
		Str("kind", string(kind)).
		Msg("producer registered")
	return p.ID, nil
}

// Consume attaches a new consumer to a producer chosen by the selection
// policy. The consumer is cascade-removed when its own engine resource
// closes, and also when its source producer disappears first, even though
// the consumer's transport remains open.
func (c *Coordinator) Consume(ctx context.Context, match domain.MatchID, transport domain.TransportID, caps domain.RTPCapabilities) (*ConsumeReply, error) {
	entry, ok := c.Table.Get(match)
	if !ok {
		return nil, core.ErrTransportNotFound
	}
	if _, ok := entry.LiveTransport(transport); !ok {
		return nil, core.ErrTransportNotFound
	}

	producer, err := c.Policy.Select(entry.ProducersInOrder(), caps, c.Engine.CanConsume)
	if err != nil {
		return nil, err
	}

	cons, err := c.Engine.Consume(ctx, transport, producer.ID, caps)
	if err != nil {
		return nil, core.WrapEngine("consume", err)
	}

	ok = entry.AddConsumer(&app.ConsumerHandle{
		ID:        cons.ID,
		Match:     match,
		Transport: transport,
		Producer:  producer.ID,
		Kind:      cons.Kind,
		State:     domain.ResourceActive,
	})
	if !ok {
		// The transport or the selected producer was closed during the
		// engine call; no cascade can reach this consumer, so roll the
		// engine resource back.
		c.engineClose(ctx, string(cons.ID), "consumer")
		log.Info().Str("module", "orch").
			Str("match", string(match)).
			Str("consumer", string(cons.ID)).
			Str("producer", string(producer.ID)).
			Msg("dependency closed during consume, rolled back")
		if _, live := entry.LiveTransport(transport); !live {
			return nil, core.ErrTransportNotFound
		}
		return nil, core.ErrNoProducerAvailable
	}
	if cons.OnClose != nil {
		cons.OnClose(func() { c.onEngineConsumerClosed(match, cons.ID) })
	}

	log.Info().Str("module", "orch").
		Str("match", string(match)).
		Str("consumer", string(cons.ID)).
		Str("producer", string(producer.ID)).
		Msg("consumer registered")
	return &ConsumeReply{
		ConsumerID:    cons.ID,
		ProducerID:    producer.ID,
		Kind:          cons.Kind,
		RTPParameters: cons.RTPParameters,
	}, nil
}

// CloseProducer is idempotent: an absent producer is a successful no-op.
// Consumers relaying the producer are cascaded before the producer's own
// engine close.
func (c *Coordinator) CloseProducer(ctx context.Context, match domain.MatchID, id domain.ProducerID) error {
	entry, ok := c.Table.Get(match)
	if !ok {
		return nil
	}
	c.closeProducer(ctx, entry, id, core.ReasonCaller)
	return nil
}

// CloseConsumer is the consumer-side mirror of CloseProducer.
func (c *Coordinator) CloseConsumer(ctx context.Context, match domain.MatchID, id domain.ConsumerID) error {
	entry, ok := c.Table.Get(match)
	if !ok {
		return nil
	}
	c.closeConsumer(ctx, entry, id, core.ReasonCaller)
	return nil
}

func (c *Coordinator) closeProducer(ctx context.Context, entry *app.MatchEntry, id domain.ProducerID, reason string) {
	if _, ok := entry.TakeProducer(id); !ok {
		return
	}
	for _, cons := range entry.ConsumersOf(id) {
		c.closeConsumer(ctx, entry, cons.ID, core.ReasonCascade)
	}
	c.engineClose(ctx, string(id), "producer")
	c.emit(core.Event{Match: entry.ID, Type: core.EventProducerClosed, Resource: string(id), Reason: reason})
	log.Info().Str("module", "orch").
		Str("match", string(entry.ID)).
		Str("producer", string(id)).
		Str("reason", reason).
		Msg("producer closed")
	c.reap(entry.ID)
}

func (c *Coordinator) closeConsumer(ctx context.Context, entry *app.MatchEntry, id domain.ConsumerID, reason string) {
	if _, ok := entry.TakeConsumer(id); !ok {
		return
	}
	c.engineClose(ctx, string(id), "consumer")
	c.emit(core.Event{Match: entry.ID, Type: core.EventConsumerClosed, Resource: string(id), Reason: reason})
	log.Info().Str("module", "orch").
		Str("match", string(entry.ID)).
		Str("consumer", string(id)).
		Str("reason", reason).
		Msg("consumer closed")
	c.reap(entry.ID)
}

func (c *Coordinator) onEngineProducerClosed(match domain.MatchID, id domain.ProducerID) {
	entry, ok := c.Table.Get(match)
	if !ok {
		return
	}
	c.closeProducer(context.Background(), entry, id, core.ReasonEngine)
}

func (c *Coordinator) onEngineConsumerClosed(match domain.MatchID, id domain.ConsumerID) {
	entry, ok := c.Table.Get(match)
	if !ok {
		return
	}
	c.closeConsumer(context.Background(), entry, id, core.ReasonEngine)
}
