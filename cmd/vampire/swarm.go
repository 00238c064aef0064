package main

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/mlange-42/ark/ecs"
)

// Energy is an agent's stored energy in arbitrary units.
type Energy struct {
	Value float64
}

// Age counts ticks since birth.
type Age struct {
	Ticks int
}

// Colony tuning. The food supply oscillates with the same period as the
// sine census, so both modes present a comparable signal to the consumer.
const (
	metabolicCost  = 0.05
	breedThreshold = 1.0
	maxAge         = 600
	supplyBase     = 40.0
	supplyAmp      = 15.0
)

// Colony is a brainless agent population whose live census stands in for a
// real rival service. Agents eat from a shared oscillating food supply,
// breed above an energy threshold, and die of starvation or old age.
type Colony struct {
	mu     sync.Mutex
	world  *ecs.World
	mapper *ecs.Map2[Energy, Age]
	filter *ecs.Filter2[Energy, Age]
	rng    *rand.Rand

	tick  int
	count int
}

// NewColony spawns the initial agents.
func NewColony(agents int, seed int64) *Colony {
	world := ecs.NewWorld()
	c := &Colony{
		world:  world,
		mapper: ecs.NewMap2[Energy, Age](world),
		filter: ecs.NewFilter2[Energy, Age](world),
		rng:    rand.New(rand.NewSource(seed)),
	}
	for i := 0; i < agents; i++ {
		c.spawn()
	}
	return c
}

func (c *Colony) spawn() {
	energy := Energy{Value: 0.5 + c.rng.Float64()*0.5}
	age := Age{}
	c.mapper.NewEntity(&energy, &age)
	c.count++
}

// foodSupply is the total food available this tick, shared equally.
func foodSupply(tick float64) float64 {
	return supplyBase + supplyAmp*math.Sin(tick*0.5)
}

// Advance runs one colony tick: feed, age, cull, breed.
func (c *Colony) Advance() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	share := 0.0
	if c.count > 0 {
		share = foodSupply(float64(c.tick)) / float64(c.count)
	}

	// First pass: feed and age; collect deaths and births. The world must
	// not be modified while the query iterates.
	var toRemove []ecs.Entity
	var births int

	query := c.filter.Query()
	for query.Next() {
		energy, age := query.Get()
		age.Ticks++
		energy.Value += share - metabolicCost

		if energy.Value <= 0 || age.Ticks > maxAge {
			toRemove = append(toRemove, query.Entity())
			continue
		}
		if energy.Value > breedThreshold {
			energy.Value /= 2
			births++
		}
	}

	// Second pass: apply removals and births.
	for _, e := range toRemove {
		c.mapper.Remove(e)
		c.count--
	}
	for i := 0; i < births; i++ {
		c.spawn()
	}
}

// Run advances the colony on a ticker. Blocks; run in a goroutine.
func (c *Colony) Run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		c.Advance()
		if c.tick%100 == 0 {
			slog.Info("colony", "tick", c.tick, "census", c.Size())
		}
	}
}

// Size reports the live census.
func (c *Colony) Size() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.count)
}
