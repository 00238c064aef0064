// Package store persists the simulation's step history and replays it in
// tick order.
package store

import (
	"context"

	"github.com/pthm-cable/golem/rival"
)

// StepRecord is the immutable output of one simulation step. Once appended
// to a store it is never mutated; the tick-ordered sequence of records is
// the full history and reconstructs any prior state by replay.
type StepRecord struct {
	Tick        int                `json:"tick"`
	Timestamp   float64            `json:"timestamp"`
	Populations map[string]float64 `json:"populations"`
	RivalSource rival.Source       `json:"rival_source"`
}

// Clone returns a deep copy of the record.
func (r StepRecord) Clone() StepRecord {
	pops := make(map[string]float64, len(r.Populations))
	for name, size := range r.Populations {
		pops[name] = size
	}
	return StepRecord{
		Tick:        r.Tick,
		Timestamp:   r.Timestamp,
		Populations: pops,
		RivalSource: r.RivalSource,
	}
}

// Stats describes the persisted history.
type Stats struct {
	DatabasePath string `json:"database_path"`
	Records      int    `json:"records"`
}

// Store defines the persistence boundary for step history. History and
// LastStep replay records ordered by tick ascending, grouped per tick.
type Store interface {
	// SaveStep appends one step record.
	SaveStep(ctx context.Context, rec StepRecord) error

	// History returns all records ordered by tick ascending.
	History(ctx context.Context) ([]StepRecord, error)

	// LastStep returns the record with the highest tick, or nil if the
	// store is empty.
	LastStep(ctx context.Context) (*StepRecord, error)

	// Clear deletes all history. Destructive and irreversible.
	Clear(ctx context.Context) error

	// Stats describes the persisted history.
	Stats(ctx context.Context) (Stats, error)

	// Close releases underlying resources.
	Close() error
}
