// Package main fits competition-model parameters to an observed series
// with CMA-ES.
package main

import (
	"github.com/pthm-cable/golem/config"
)

// ParamSpec defines a single fitted parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the fitted parameter set: the primary species'
// growth rate and carrying capacity, and its competition coefficient
// against the rival.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard parameter set.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "growth_rate", Min: 0.01, Max: 1.5, Default: 0.5},
			{Name: "carrying_capacity", Min: 100, Max: 5000, Default: 1000},
			{Name: "alpha", Min: 0.0, Max: 1.0, Default: 0.2},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig writes fitted values into the simulation section: the
// primary species' r and K, and the primary -> rival coefficient.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	primary := cfg.Simulation.Primary
	rivalName := cfg.Simulation.Rival

	for i := range cfg.Simulation.Species {
		if cfg.Simulation.Species[i].Name == primary {
			cfg.Simulation.Species[i].GrowthRate = clamped[0]
			cfg.Simulation.Species[i].CarryingCapacity = clamped[1]
		}
	}
	for i := range cfg.Simulation.Competition {
		cc := &cfg.Simulation.Competition[i]
		if cc.From == primary && cc.To == rivalName {
			cc.Alpha = clamped[2]
		}
	}
}

// ExtractFromConfig reads the current values as a starting vector.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := pv.DefaultVector()
	primary := cfg.Simulation.Primary
	rivalName := cfg.Simulation.Rival

	for _, sp := range cfg.Simulation.Species {
		if sp.Name == primary {
			v[0] = sp.GrowthRate
			v[1] = sp.CarryingCapacity
		}
	}
	for _, cc := range cfg.Simulation.Competition {
		if cc.From == primary && cc.To == rivalName {
			v[2] = cc.Alpha
		}
	}
	return pv.Clamp(v)
}
