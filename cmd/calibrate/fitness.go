package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/pthm-cable/golem/population"
)

// Observation is one observed point: the primary species' size and the
// rival's size at a tick.
type Observation struct {
	Tick  int
	Size  float64
	Rival float64
}

// LoadSeries reads an observed series CSV with a header and columns
// tick,size[,rival]. A missing rival column means no competitive pressure
// was observed.
func LoadSeries(path string) ([]Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: need a header and at least one data row", path)
	}

	var obs []Observation
	for i, row := range rows[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("%s row %d: need at least tick,size", path, i+2)
		}
		tick, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad tick %q: %w", path, i+2, row[0], err)
		}
		size, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad size %q: %w", path, i+2, row[1], err)
		}
		o := Observation{Tick: tick, Size: size}
		if len(row) > 2 && row[2] != "" {
			if o.Rival, err = strconv.ParseFloat(row[2], 64); err != nil {
				return nil, fmt.Errorf("%s row %d: bad rival %q: %w", path, i+2, row[2], err)
			}
		}
		obs = append(obs, o)
	}
	return obs, nil
}

// Evaluator scores a raw parameter vector (r, K, alpha) by mean squared
// error of the simulated trajectory against the observed one. The
// trajectory starts from the first observation and advances through the
// observed rival series.
type Evaluator struct {
	obs []Observation
}

// NewEvaluator creates an evaluator over an observed series.
func NewEvaluator(obs []Observation) *Evaluator {
	return &Evaluator{obs: obs}
}

// Evaluate returns the MSE for a raw parameter vector (lower = better).
func (e *Evaluator) Evaluate(raw []float64) float64 {
	if len(e.obs) < 2 {
		return math.Inf(1)
	}
	growthRate, capacity, alpha := raw[0], raw[1], raw[2]

	size := e.obs[0].Size
	var sse float64
	for i := 1; i < len(e.obs); i++ {
		size = population.Advance(size, e.obs[i-1].Rival, growthRate, capacity, alpha)
		d := size - e.obs[i].Size
		sse += d * d
	}
	return sse / float64(len(e.obs)-1)
}
