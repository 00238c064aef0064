package population

import (
	"fmt"

	"github.com/pthm-cable/golem/config"
)

// FromConfig builds the model described by the simulation config section:
// every configured species, the external rival, and the competition matrix.
func FromConfig(cfg *config.Config) (*Model, error) {
	m := NewModel()

	for _, sp := range cfg.Simulation.Species {
		if err := m.AddSpecies(sp.Name, sp.Size, sp.GrowthRate, sp.CarryingCapacity); err != nil {
			return nil, fmt.Errorf("species %q: %w", sp.Name, err)
		}
	}

	// The rival only needs registering when it is not simulated locally.
	if rival := cfg.Simulation.Rival; rival != "" {
		if _, ok := m.index[rival]; !ok {
			if err := m.AddExternal(rival); err != nil {
				return nil, fmt.Errorf("rival %q: %w", rival, err)
			}
		}
	}

	for _, cc := range cfg.Simulation.Competition {
		if err := m.SetCompetition(cc.From, cc.To, cc.Alpha); err != nil {
			return nil, fmt.Errorf("competition %s -> %s: %w", cc.From, cc.To, err)
		}
	}

	return m, nil
}
