package app

import "github.com/relabs/matchcast/internal/domain"

// Handles are passive records wrapping engine-owned resources. All mutable
// fields are guarded by the owning MatchEntry's lock.

type TransportHandle struct {
	ID    domain.TransportID
	Match domain.MatchID
	State domain.TransportState

	ICEParameters  domain.ICEParameters
	ICECandidates  []domain.ICECandidate
	DTLSParameters domain.DTLSParameters
}

type ProducerHandle struct {
	ID        domain.ProducerID
	Match     domain.MatchID
	Transport domain.TransportID
	Kind      domain.MediaKind
	State     domain.ResourceState

	// seq orders producers by creation for deterministic selection.
	seq uint64
}

type ConsumerHandle struct {
	ID        domain.ConsumerID
	Match     domain.MatchID
	Transport domain.TransportID
	Producer  domain.ProducerID
	Kind      domain.MediaKind
	State     domain.ResourceState
}
