// Package telemetry derives summary statistics and CSV exports from step
// history.
package telemetry

import (
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/golem/store"
)

// SpeciesStats holds summary statistics for one species over history.
type SpeciesStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s SpeciesStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("min", s.Min),
		slog.Float64("max", s.Max),
		slog.Float64("mean", s.Mean),
		slog.Float64("stddev", s.StdDev),
	)
}

// Summarize computes per-species statistics over the step history.
// Species absent from a record simply contribute nothing for that tick.
func Summarize(history []store.StepRecord) map[string]SpeciesStats {
	series := make(map[string][]float64)
	for _, rec := range history {
		for name, size := range rec.Populations {
			series[name] = append(series[name], size)
		}
	}

	out := make(map[string]SpeciesStats, len(series))
	for name, values := range series {
		stats := SpeciesStats{
			Min:  floats.Min(values),
			Max:  floats.Max(values),
			Mean: stat.Mean(values, nil),
		}
		// StdDev needs at least two samples
		if len(values) > 1 {
			stats.StdDev = stat.StdDev(values, nil)
		}
		out[name] = stats
	}
	return out
}
