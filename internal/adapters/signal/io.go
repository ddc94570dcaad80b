package signal

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/relabs/matchcast/internal/domain"
)

var (
	errClosed       = errors.New("connection closed")
	errBackpressure = errors.New("backpressure")
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleEvents upgrades the request and streams the match's events until the
// client goes away.
func (h *Hub) HandleEvents(ctx context.Context, c *gin.Context) {
	match := domain.MatchID(c.Query("match"))
	if match == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "match query parameter required"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("match", string(match)).Msg("event subscriber connected")

	sub := &subscriber{conn: ws, send: make(chan []byte, 32)}
	h.add(match, sub)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		h.writePump(ctx, sub)
	}()
	go func() {
		defer cancel()
		h.readPump(ctx, match, sub)
	}()
}

func (h *Hub) writePump(ctx context.Context, s *subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-s.send:
			if !ok {
				return
			}
			if err := s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump only watches for the peer closing; the feed is one-way.
// Cancellation closes the connection so the blocking read unblocks on
// server shutdown instead of waiting for the peer.
func (h *Hub) readPump(ctx context.Context, match domain.MatchID, s *subscriber) {
	defer func() {
		h.remove(match, s)
		s.close()
		log.Info().Str("module", "signal").Str("match", string(match)).Msg("event subscriber gone")
	}()
	stop := context.AfterFunc(ctx, s.close)
	defer stop()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
