package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/relabs/matchcast/internal/app"
	"github.com/relabs/matchcast/internal/core"
	"github.com/relabs/matchcast/internal/domain"
)

// CreateTransport asks the engine for a new transport and registers it under
// the match. The handle is recorded only after the engine call succeeds, so
// a failure leaves no partial registration.
func (c *Coordinator) CreateTransport(ctx context.Context, match domain.MatchID) (*domain.TransportOffer, error) {
	if match == "" {
		return nil, core.ErrMatchIDMissing
	}
	tr, err := c.Engine.CreateTransport(ctx)
	if err != nil {
		return nil, core.WrapEngine("createTransport", err)
	}

	entry := c.Table.GetOrCreate(match)
	entry.AddTransport(&app.TransportHandle{
		ID:             tr.ID,
		Match:          match,
		State:          domain.TransportCreated,
		ICEParameters:  tr.ICEParameters,
		ICECandidates:  tr.ICECandidates,
		DTLSParameters: tr.DTLSParameters,
	})
	if tr.OnClose != nil {
		tr.OnClose(func() { c.onEngineTransportClosed(match, tr.ID) })
	}

	log.Info().Str("module", "orch").
		Str("match", string(match)).
		Str("transport", string(tr.ID)).
		Msg("transport created")
	offer := tr.TransportOffer
	return &offer, nil
}

// ConnectTransport runs the DTLS handshake for an existing transport. On
// engine failure the handle is left in place so the caller may retry.
func (c *Coordinator) ConnectTransport(ctx context.Context, match domain.MatchID, id domain.TransportID, dtls domain.DTLSParameters) error {
	entry, ok := c.Table.Get(match)
	if !ok {
		return core.ErrTransportNotFound
	}
	if !entry.SetTransportState(id, domain.TransportConnecting) {
		return core.ErrTransportNotFound
	}
	if err := c.Engine.Connect(ctx, id, dtls); err != nil {
		entry.SetTransportState(id, domain.TransportCreated)
		return core.WrapEngine("connect", err)
	}
	entry.SetTransportState(id, domain.TransportConnected)
	log.Info().Str("module", "orch").
		Str("match", string(match)).
		Str("transport", string(id)).
		Msg("transport connected")
	return nil
}

// CloseTransport cascade-closes every producer and consumer owned by the
// transport, then closes the transport itself. Dependents must be
// engine-closed before the transport per the engine contract. Idempotent:
// closing an absent or already-claimed transport is a no-op.
func (c *Coordinator) CloseTransport(ctx context.Context, match domain.MatchID, id domain.TransportID) error {
	c.closeTransport(ctx, match, id, core.ReasonCaller)
	return nil
}

func (c *Coordinator) closeTransport(ctx context.Context, match domain.MatchID, id domain.TransportID, reason string) {
	entry, ok := c.Table.Get(match)
	if !ok {
		return
	}
	if !entry.BeginTransportClose(id) {
		return
	}

	for _, p := range entry.ProducersOnTransport(id) {
		c.closeProducer(ctx, entry, p.ID, core.ReasonCascade)
	}
	for _, cons := range entry.ConsumersOnTransport(id) {
		c.closeConsumer(ctx, entry, cons.ID, core.ReasonCascade)
	}

	c.engineClose(ctx, string(id), "transport")
	entry.TakeTransport(id)
	c.emit(core.Event{Match: match, Type: core.EventTransportClosed, Resource: string(id), Reason: reason})
	log.Info().Str("module", "orch").
		Str("match", string(match)).
		Str("transport", string(id)).
		Str("reason", reason).
		Msg("transport closed")
	c.reap(match)
}

// CleanupMatch tears down everything owned by the match: producers first,
// then consumers, then transports, so no handle outlives its dependency.
// Idempotent on already-clean or unknown matches.
func (c *Coordinator) CleanupMatch(ctx context.Context, match domain.MatchID) error {
	entry, ok := c.Table.Get(match)
	if !ok {
		return nil
	}
	for _, p := range entry.ProducersInOrder() {
		c.closeProducer(ctx, entry, p.ID, core.ReasonCascade)
	}
	for _, id := range entry.ConsumerIDs() {
		c.closeConsumer(ctx, entry, id, core.ReasonCascade)
	}
	for _, id := range entry.TransportIDs() {
		c.closeTransport(ctx, match, id, core.ReasonCascade)
	}
	c.reap(match)
	log.Info().Str("module", "orch").Str("match", string(match)).Msg("match cleaned up")
	return nil
}

// onEngineTransportClosed reconciles the registry after an engine-originated
// transport teardown (no matching inbound request). The engine's Close is
// idempotent so re-entering CloseTransport is safe.
func (c *Coordinator) onEngineTransportClosed(match domain.MatchID, id domain.TransportID) {
	log.Info().Str("module", "orch").
		Str("match", string(match)).
		Str("transport", string(id)).
		Msg("engine reported transport closed")
	c.closeTransport(context.Background(), match, id, core.ReasonEngine)
}
