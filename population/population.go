// Package population owns the discrete Lotka-Volterra competition update
// and the species registry it runs over.
package population

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownSpecies is returned when an operation references a species
	// that was never registered. This is a configuration mistake, not a
	// runtime condition, so it is surfaced instead of defaulted.
	ErrUnknownSpecies = errors.New("unknown species")

	// ErrDuplicateSpecies is returned when a species name is registered twice.
	ErrDuplicateSpecies = errors.New("duplicate species")

	// ErrSelfCompetition is returned when a species is configured to compete
	// against itself.
	ErrSelfCompetition = errors.New("species cannot compete against itself")
)

// Advance computes the next size of a population competing against a single
// rival:
//
//	next = current * (1 + r*(1 - (current + alpha*rival)/K))
//
// clamped to zero. A zero carrying capacity yields 0.0 instead of dividing.
func Advance(current, rival, growthRate, capacity, alpha float64) float64 {
	return advance(current, alpha*rival, growthRate, capacity)
}

// advance is the shared update over an already-summed interaction term.
func advance(current, interaction, growthRate, capacity float64) float64 {
	if capacity == 0 {
		return 0.0
	}
	next := current * (1 + growthRate*(1-(current+interaction)/capacity))
	return math.Max(0.0, next)
}

// species holds one population's parameters and current size.
type species struct {
	name        string
	size        float64
	seedSize    float64
	growthRate  float64
	capacity    float64
	competition map[string]float64 // rival name -> alpha
}

// Model is a registry of locally advanced species plus the names of external
// populations whose sizes are supplied per step. All updates within one step
// observe the same pre-step snapshot.
type Model struct {
	species  []*species // insertion order
	index    map[string]*species
	external map[string]struct{}
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{
		index:    make(map[string]*species),
		external: make(map[string]struct{}),
	}
}

// AddSpecies registers a locally advanced species with its seed size.
func (m *Model) AddSpecies(name string, size, growthRate, capacity float64) error {
	if name == "" {
		return errors.New("species name is required")
	}
	if _, ok := m.index[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSpecies, name)
	}
	if _, ok := m.external[name]; ok {
		return fmt.Errorf("%w: %s already registered as external", ErrDuplicateSpecies, name)
	}
	sp := &species{
		name:        name,
		size:        size,
		seedSize:    size,
		growthRate:  growthRate,
		capacity:    capacity,
		competition: make(map[string]float64),
	}
	m.species = append(m.species, sp)
	m.index[name] = sp
	return nil
}

// AddExternal registers a population name whose size is supplied to Next on
// every step instead of being advanced locally.
func (m *Model) AddExternal(name string) error {
	if name == "" {
		return errors.New("species name is required")
	}
	if _, ok := m.index[name]; ok {
		return fmt.Errorf("%w: %s already registered as local", ErrDuplicateSpecies, name)
	}
	m.external[name] = struct{}{}
	return nil
}

// SetCompetition sets the directed coefficient alpha applied by `from`
// against `to`. Both ends must be registered; `to` may be external.
func (m *Model) SetCompetition(from, to string, alpha float64) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfCompetition, from)
	}
	if alpha < 0 {
		return fmt.Errorf("competition coefficient must be non-negative, got %v", alpha)
	}
	sp, ok := m.index[from]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSpecies, from)
	}
	if _, ok := m.index[to]; !ok {
		if _, ok := m.external[to]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSpecies, to)
		}
	}
	sp.competition[to] = alpha
	return nil
}

// Next computes every species' next size against the current snapshot
// without mutating the model. The external map supplies sizes for
// registered external populations; a name missing from it contributes
// nothing to the interaction term.
func (m *Model) Next(external map[string]float64) map[string]float64 {
	snapshot := make(map[string]float64, len(m.species)+len(external))
	for _, sp := range m.species {
		snapshot[sp.name] = sp.size
	}
	for name := range m.external {
		if v, ok := external[name]; ok {
			snapshot[name] = v
		}
	}

	next := make(map[string]float64, len(m.species))
	for _, sp := range m.species {
		var interaction float64
		for rivalName, alpha := range sp.competition {
			if rivalName == sp.name {
				continue
			}
			interaction += alpha * snapshot[rivalName]
		}
		next[sp.name] = advance(sp.size, interaction, sp.growthRate, sp.capacity)
	}
	return next
}

// Apply sets the sizes of known local species from the given map. Unknown
// names are ignored, so a full step record (which includes the rival) can be
// applied directly when restoring state.
func (m *Model) Apply(sizes map[string]float64) {
	for name, size := range sizes {
		if sp, ok := m.index[name]; ok {
			sp.size = size
		}
	}
}

// Step advances all species one tick against the current snapshot and
// returns the new sizes.
func (m *Model) Step(external map[string]float64) map[string]float64 {
	next := m.Next(external)
	m.Apply(next)
	return next
}

// Sizes returns the current size of every local species.
func (m *Model) Sizes() map[string]float64 {
	sizes := make(map[string]float64, len(m.species))
	for _, sp := range m.species {
		sizes[sp.name] = sp.size
	}
	return sizes
}

// Size returns the current size of one species.
func (m *Model) Size(name string) (float64, error) {
	sp, ok := m.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSpecies, name)
	}
	return sp.size, nil
}

// Names returns the local species names in registration order.
func (m *Model) Names() []string {
	names := make([]string, len(m.species))
	for i, sp := range m.species {
		names[i] = sp.name
	}
	return names
}

// Reset restores every species to its seed size.
func (m *Model) Reset() {
	for _, sp := range m.species {
		sp.size = sp.seedSize
	}
}
