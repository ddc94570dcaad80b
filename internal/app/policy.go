package app

import (
	"github.com/relabs/matchcast/internal/core"
	"github.com/relabs/matchcast/internal/domain"
)

// CompatibilityFunc reports whether a producer can feed a consumer announcing
// the given capabilities. The coordinator passes the engine's CanConsume.
type CompatibilityFunc func(domain.ProducerID, domain.RTPCapabilities) bool

// SelectionPolicy picks which producer a new consumer attaches to. Producers
// arrive in creation order. Extension point for per-kind or per-pair
// strategies; the current deployments are single-broadcaster matches.
type SelectionPolicy interface {
	Select(producers []*ProducerHandle, caps domain.RTPCapabilities, canConsume CompatibilityFunc) (*ProducerHandle, error)
}

// FirstAvailablePolicy selects the earliest-created producer passing the
// compatibility predicate.
type FirstAvailablePolicy struct{}

func (FirstAvailablePolicy) Select(producers []*ProducerHandle, caps domain.RTPCapabilities, canConsume CompatibilityFunc) (*ProducerHandle, error) {
	if len(producers) == 0 {
		return nil, core.ErrNoProducerAvailable
	}
	for _, p := range producers {
		if canConsume == nil || canConsume(p.ID, caps) {
			return p, nil
		}
	}
	return nil, core.ErrIncompatibleCapabilities
}
