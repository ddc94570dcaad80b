package app

import (
	"sort"
	"sync"

	"github.com/relabs/matchcast/internal/domain"
	"github.com/rs/zerolog/log"
)

// MatchEntry holds the three sub-registries of one match. A match exists
// implicitly once any resource is registered under it; an empty entry is
// equivalent to a non-existent one.
type MatchEntry struct {
	ID domain.MatchID

	mu         sync.RWMutex
	transports map[domain.TransportID]*TransportHandle
	producers  map[domain.ProducerID]*ProducerHandle
	consumers  map[domain.ConsumerID]*ConsumerHandle
	produceSeq uint64
}

func newMatchEntry(id domain.MatchID) *MatchEntry {
	return &MatchEntry{
		ID:         id,
		transports: make(map[domain.TransportID]*TransportHandle),
		producers:  make(map[domain.ProducerID]*ProducerHandle),
		consumers:  make(map[domain.ConsumerID]*ConsumerHandle),
	}
}

func (e *MatchEntry) AddTransport(h *TransportHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transports[h.ID] = h
}

func (e *MatchEntry) Transport(id domain.TransportID) (*TransportHandle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.transports[id]
	return h, ok
}

// LiveTransport returns the handle only while the transport has not been
// claimed for close.
func (e *MatchEntry) LiveTransport(id domain.TransportID) (*TransportHandle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.transports[id]
	if !ok || h.State == domain.TransportClosed {
		return nil, false
	}
	return h, true
}

// TakeTransport removes and returns the handle. The second of two concurrent
// takers observes absence.
func (e *MatchEntry) TakeTransport(id domain.TransportID) (*TransportHandle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.transports[id]
	if ok {
		delete(e.transports, id)
	}
	return h, ok
}

// BeginTransportClose claims the close of a transport by moving it to the
// Closed state. Returns false if the transport is absent or already claimed,
// so exactly one caller runs the cascade.
func (e *MatchEntry) BeginTransportClose(id domain.TransportID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.transports[id]
	if !ok || h.State == domain.TransportClosed {
		return false
	}
	h.State = domain.TransportClosed
	return true
}

// SetTransportState transitions a live transport. Returns false if the
// transport is absent or already closed.
func (e *MatchEntry) SetTransportState(id domain.TransportID, s domain.TransportState) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.transports[id]
	if !ok || h.State == domain.TransportClosed {
		return false
	}
	h.State = s
	return true
}

// AddProducer registers the handle only while its owning transport is still
// live. Registration happens after the engine call, so a transport close may
// have won the race during the suspension; returning false tells the
// coordinator to roll the engine-side resource back.
func (e *MatchEntry) AddProducer(h *ProducerHandle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.transports[h.Transport]
	if !ok || t.State == domain.TransportClosed {
		return false
	}
	e.produceSeq++
	h.seq = e.produceSeq
	e.producers[h.ID] = h
	return true
}

func (e *MatchEntry) Producer(id domain.ProducerID) (*ProducerHandle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.producers[id]
	return h, ok
}

func (e *MatchEntry) TakeProducer(id domain.ProducerID) (*ProducerHandle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.producers[id]
	if ok {
		h.State = domain.ResourceClosed
		delete(e.producers, id)
	}
	return h, ok
}

// ProducersInOrder snapshots the producer set in creation order. Map
// enumeration order is not stable, so selection sorts by the creation seq.
func (e *MatchEntry) ProducersInOrder() []*ProducerHandle {
	e.mu.RLock()
	out := make([]*ProducerHandle, 0, len(e.producers))
	for _, h := range e.producers {
		out = append(out, h)
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// AddConsumer registers the handle only while both its owning transport and
// its referenced producer are still live, mirroring AddProducer's
// check-and-set. A consumer registered past either close would never be
// reached by the corresponding cascade.
func (e *MatchEntry) AddConsumer(h *ConsumerHandle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.transports[h.Transport]
	if !ok || t.State == domain.TransportClosed {
		return false
	}
	if _, ok := e.producers[h.Producer]; !ok {
		return false
	}
	e.consumers[h.ID] = h
	return true
}

func (e *MatchEntry) TakeConsumer(id domain.ConsumerID) (*ConsumerHandle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.consumers[id]
	if ok {
		h.State = domain.ResourceClosed
		delete(e.consumers, id)
	}
	return h, ok
}

// ConsumersOf snapshots the consumers relaying the given producer.
func (e *MatchEntry) ConsumersOf(id domain.ProducerID) []*ConsumerHandle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []*ConsumerHandle
	for _, h := range e.consumers {
		if h.Producer == id {
			out = append(out, h)
		}
	}
	return out
}

// ProducersOnTransport snapshots the producers owned by the given transport.
func (e *MatchEntry) ProducersOnTransport(id domain.TransportID) []*ProducerHandle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []*ProducerHandle
	for _, h := range e.producers {
		if h.Transport == id {
			out = append(out, h)
		}
	}
	return out
}

// ConsumersOnTransport snapshots the consumers owned by the given transport.
func (e *MatchEntry) ConsumersOnTransport(id domain.TransportID) []*ConsumerHandle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []*ConsumerHandle
	for _, h := range e.consumers {
		if h.Transport == id {
			out = append(out, h)
		}
	}
	return out
}

func (e *MatchEntry) TransportIDs() []domain.TransportID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.TransportID, 0, len(e.transports))
	for id := range e.transports {
		out = append(out, id)
	}
	return out
}

func (e *MatchEntry) ConsumerIDs() []domain.ConsumerID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.ConsumerID, 0, len(e.consumers))
	for id := range e.consumers {
		out = append(out, id)
	}
	return out
}

func (e *MatchEntry) ProducerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.producers)
}

func (e *MatchEntry) Empty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.transports) == 0 && len(e.producers) == 0 && len(e.consumers) == 0
}

// MatchTable maps match identifiers to their resource registries. It is the
// only shared mutable state; all mutation goes through the coordinator.
type MatchTable struct {
	mu      sync.RWMutex
	matches map[domain.MatchID]*MatchEntry
}

func NewMatchTable() *MatchTable {
	return &MatchTable{matches: make(map[domain.MatchID]*MatchEntry)}
}

// GetOrCreate is idempotent: two calls for the same id return the same entry.
func (t *MatchTable) GetOrCreate(id domain.MatchID) *MatchEntry {
	t.mu.RLock()
	e, ok := t.matches[id]
	t.mu.RUnlock()
	if ok {
		return e
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok = t.matches[id]; ok {
		return e
	}
	e = newMatchEntry(id)
	t.matches[id] = e
	log.Info().Str("module", "app.table").Str("match", string(id)).Msg("created match entry")
	return e
}

func (t *MatchTable) Get(id domain.MatchID) (*MatchEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.matches[id]
	return e, ok
}

// Remove deletes the entry only when all three sub-registries are empty.
// The coordinator cascade-closes resources first when it needs unconditional
// removal.
func (t *MatchTable) Remove(id domain.MatchID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.matches[id]
	if !ok || !e.Empty() {
		return false
	}
	delete(t.matches, id)
	log.Info().Str("module", "app.table").Str("match", string(id)).Msg("removed match entry")
	return true
}

func (t *MatchTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.matches)
}
