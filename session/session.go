// Package session sequences the rival resolver and the population engine
// into discrete simulation steps and owns the append-only step history.
//
// A session is a single-writer object: only Step and Reset mutate it, and
// it assumes no concurrent callers. A service embedding it behind a
// concurrent boundary must serialize access externally.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/golem/population"
	"github.com/pthm-cable/golem/rival"
	"github.com/pthm-cable/golem/store"
)

// Resolver supplies the rival population's current size for a given phase.
type Resolver interface {
	Resolve(phase float64) (float64, rival.Source)
}

// Clock supplies the wall-clock moment a step is computed. Injectable so
// tests can pin the phase.
type Clock func() time.Time

// Snapshot is the read-only projection of the session's current state.
type Snapshot struct {
	Tick        int                `json:"tick"`
	Populations map[string]float64 `json:"populations"`
	RivalSource rival.Source       `json:"rival_source,omitempty"`
}

// Options configures a new session.
type Options struct {
	Model     *population.Model
	Resolver  Resolver
	Store     store.Store
	Clock     Clock  // nil = time.Now
	RivalName string // external population fed by the resolver
}

// Session owns the species states and the step history.
type Session struct {
	model     *population.Model
	resolver  Resolver
	store     store.Store
	clock     Clock
	rivalName string

	tick       int
	lastSource rival.Source
	history    []store.StepRecord
}

// New builds a session and recovers state from the store: over a non-empty
// store it resumes from the last persisted record, so a service restart
// does not reset the simulation.
func New(opts Options) (*Session, error) {
	if opts.Model == nil {
		return nil, errors.New("session: model is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("session: resolver is required")
	}
	if opts.Store == nil {
		return nil, errors.New("session: store is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	s := &Session{
		model:     opts.Model,
		resolver:  opts.Resolver,
		store:     opts.Store,
		clock:     clock,
		rivalName: opts.RivalName,
	}

	history, err := s.store.History(context.Background())
	if err != nil {
		return nil, fmt.Errorf("recovering history: %w", err)
	}
	if len(history) > 0 {
		last := history[len(history)-1]
		s.tick = last.Tick
		s.lastSource = last.RivalSource
		s.model.Apply(last.Populations)
		s.history = history
		slog.Info("session recovered from store",
			"tick", s.tick,
			"populations", last.Populations,
		)
	}

	return s, nil
}

// Step advances the simulation one tick:
// resolve the rival once, advance every species against the same pre-step
// snapshot, apply the new sizes atomically, then append and persist the
// step record. The record is returned even when persistence fails; the
// error reports the failed save.
func (s *Session) Step(ctx context.Context) (store.StepRecord, error) {
	phase := float64(s.clock().UnixNano()) / float64(time.Second)

	rivalValue, source := s.resolver.Resolve(phase)

	next := s.model.Step(map[string]float64{s.rivalName: rivalValue})

	s.tick++
	s.lastSource = source

	pops := make(map[string]float64, len(next)+1)
	for name, size := range next {
		pops[name] = size
	}
	if s.rivalName != "" {
		pops[s.rivalName] = rivalValue
	}

	rec := store.StepRecord{
		Tick:        s.tick,
		Timestamp:   phase,
		Populations: pops,
		RivalSource: source,
	}
	s.history = append(s.history, rec)

	slog.Debug("simulation step",
		"tick", rec.Tick,
		"rival_source", rec.RivalSource,
		"rival", rivalValue,
	)

	if err := s.store.SaveStep(ctx, rec); err != nil {
		return rec, fmt.Errorf("persisting step %d: %w", rec.Tick, err)
	}
	return rec, nil
}

// Reset restores every species to its seed size, sets tick to 0, and
// clears history, including the persisted history. Destructive,
// irreversible, and idempotent.
func (s *Session) Reset(ctx context.Context) error {
	s.model.Reset()
	s.tick = 0
	s.lastSource = ""
	s.history = nil
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing persisted history: %w", err)
	}
	slog.Info("session reset")
	return nil
}

// State returns the current tick, species sizes, and the source of the
// last step's rival value. It never triggers a step or a resolver call.
func (s *Session) State() Snapshot {
	return Snapshot{
		Tick:        s.tick,
		Populations: s.model.Sizes(),
		RivalSource: s.lastSource,
	}
}

// History returns the step records in tick order. The records themselves
// are append-only and must not be mutated by callers.
func (s *Session) History() []store.StepRecord {
	out := make([]store.StepRecord, len(s.history))
	copy(out, s.history)
	return out
}
