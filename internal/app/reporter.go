package app

import "github.com/relabs/matchcast/internal/domain"

type MatchStatus struct {
	Active        bool `json:"active"`
	ProducerCount int  `json:"producer_count"`
}

// StatusReporter derives match summaries for external polling. Pure read;
// the producer count is taken under the entry's read lock so concurrent
// mutation never yields a partial view.
type StatusReporter struct {
	Table *MatchTable
}

func NewStatusReporter(t *MatchTable) *StatusReporter {
	return &StatusReporter{Table: t}
}

func (r *StatusReporter) Status(id domain.MatchID) MatchStatus {
	e, ok := r.Table.Get(id)
	if !ok {
		return MatchStatus{}
	}
	n := e.ProducerCount()
	return MatchStatus{Active: n > 0, ProducerCount: n}
}
