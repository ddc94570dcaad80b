// Package signal pushes registry events (resource closed, engine-originated
// teardown) to websocket subscribers polling a match.
package signal

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/relabs/matchcast/internal/core"
	"github.com/relabs/matchcast/internal/domain"
)

// Hub fans registry events out per match. Implements core.EventSink.
type Hub struct {
	mu   sync.RWMutex
	subs map[domain.MatchID]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[domain.MatchID]map[*subscriber]struct{})}
}

func (h *Hub) Publish(ev core.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal event")
		return
	}

	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs[ev.Match]))
	for s := range h.subs[ev.Match] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if err := s.trySend(data); err != nil {
			log.Warn().Err(err).
				Str("module", "signal").
				Str("match", string(ev.Match)).
				Msg("dropping slow event subscriber")
			h.remove(ev.Match, s)
			s.close()
		}
	}
}

func (h *Hub) add(match domain.MatchID, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[match]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[match] = set
	}
	set[s] = struct{}{}
}

func (h *Hub) remove(match domain.MatchID, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[match]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, match)
	}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func (s *subscriber) trySend(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	select {
	case s.send <- data:
		return nil
	default:
		return errBackpressure
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.send)
	_ = s.conn.Close()
	s.mu.Unlock()
}
