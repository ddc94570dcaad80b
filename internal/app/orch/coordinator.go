// Package orch implements the lifecycle coordinator: it decides which
// resources belong to which match, keeps the resource graph consistent
// (consumers reference live producers, producers reference live transports)
// and guarantees that cleanup leaves no dangling handles.
package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/relabs/matchcast/internal/app"
	"github.com/relabs/matchcast/internal/core"
	"github.com/relabs/matchcast/internal/domain"
)

type Coordinator struct {
	Table  *app.MatchTable
	Engine core.MediaEngine
	Policy app.SelectionPolicy

	// Events is optional; nil disables the feed.
	Events core.EventSink
}

func New(table *app.MatchTable, engine core.MediaEngine, policy app.SelectionPolicy) *Coordinator {
	return &Coordinator{Table: table, Engine: engine, Policy: policy}
}

// Capabilities returns the engine's static capability descriptor.
func (c *Coordinator) Capabilities() (domain.RTPCapabilities, error) {
	return c.Engine.Capabilities()
}

func (c *Coordinator) emit(ev core.Event) {
	if c.Events != nil {
		c.Events.Publish(ev)
	}
}

// engineClose delegates a close to the engine, best effort: local removal
// proceeds even when the remote teardown fails.
func (c *Coordinator) engineClose(ctx context.Context, id string, kind string) {
	if err := c.Engine.Close(ctx, id); err != nil {
		log.Warn().Err(err).
			Str("module", "orch").
			Str("kind", kind).
			Str("id", id).
			Msg("engine close failed, removing handle anyway")
	}
}

// reap drops the match entry once its last resource is gone. Remove is a
// no-op while any sub-registry is non-empty.
func (c *Coordinator) reap(id domain.MatchID) {
	c.Table.Remove(id)
}
