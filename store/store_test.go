package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/golem/rival"
)

// both implementations must satisfy the same replay contract.
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "golem.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func record(tick int, golem, vampire float64, source rival.Source) StepRecord {
	return StepRecord{
		Tick:      tick,
		Timestamp: 1000.0 + float64(tick),
		Populations: map[string]float64{
			"Golem":   golem,
			"Vampire": vampire,
		},
		RivalSource: source,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			saved := []StepRecord{
				record(1, 145.0, 800.0, rival.SourceLive),
				record(2, 187.3, 650.2, rival.SourceLive),
				record(3, 221.9, 1200.0, rival.SourceFallback),
			}
			for _, rec := range saved {
				if err := st.SaveStep(ctx, rec); err != nil {
					t.Fatalf("SaveStep(%d): %v", rec.Tick, err)
				}
			}

			history, err := st.History(ctx)
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			if len(history) != len(saved) {
				t.Fatalf("History returned %d records, want %d", len(history), len(saved))
			}
			for i, rec := range history {
				want := saved[i]
				if rec.Tick != want.Tick {
					t.Errorf("record %d: tick = %d, want %d", i, rec.Tick, want.Tick)
				}
				if rec.RivalSource != want.RivalSource {
					t.Errorf("tick %d: rival_source = %v, want %v", rec.Tick, rec.RivalSource, want.RivalSource)
				}
				for species, size := range want.Populations {
					if rec.Populations[species] != size {
						t.Errorf("tick %d: %s = %v, want %v", rec.Tick, species, rec.Populations[species], size)
					}
				}
			}
		})
	}
}

func TestStoreLastStep(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			last, err := st.LastStep(ctx)
			if err != nil {
				t.Fatalf("LastStep on empty store: %v", err)
			}
			if last != nil {
				t.Fatalf("LastStep on empty store = %+v, want nil", last)
			}

			for tick := 1; tick <= 3; tick++ {
				if err := st.SaveStep(ctx, record(tick, float64(tick)*100, 800, rival.SourceLive)); err != nil {
					t.Fatalf("SaveStep(%d): %v", tick, err)
				}
			}

			last, err = st.LastStep(ctx)
			if err != nil {
				t.Fatalf("LastStep: %v", err)
			}
			if last == nil || last.Tick != 3 {
				t.Fatalf("LastStep = %+v, want tick 3", last)
			}
			if last.Populations["Golem"] != 300 {
				t.Errorf("last Golem size = %v, want 300", last.Populations["Golem"])
			}
		})
	}
}

func TestStoreClearAndStats(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for tick := 1; tick <= 4; tick++ {
				if err := st.SaveStep(ctx, record(tick, 100, 800, rival.SourceLive)); err != nil {
					t.Fatalf("SaveStep(%d): %v", tick, err)
				}
			}

			stats, err := st.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats: %v", err)
			}
			if stats.Records != 4 {
				t.Errorf("Records = %d, want 4", stats.Records)
			}
			if stats.DatabasePath == "" {
				t.Errorf("DatabasePath is empty")
			}

			if err := st.Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			history, err := st.History(ctx)
			if err != nil {
				t.Fatalf("History after Clear: %v", err)
			}
			if len(history) != 0 {
				t.Errorf("history has %d records after Clear, want 0", len(history))
			}
			stats, err = st.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats after Clear: %v", err)
			}
			if stats.Records != 0 {
				t.Errorf("Records = %d after Clear, want 0", stats.Records)
			}
		})
	}
}

func TestStoreAppendOnly(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			rec := record(1, 145.0, 800.0, rival.SourceLive)
			if err := st.SaveStep(ctx, rec); err != nil {
				t.Fatalf("SaveStep: %v", err)
			}

			// Mutating the caller's map after saving must not reach history.
			rec.Populations["Golem"] = -1

			history, err := st.History(ctx)
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			if history[0].Populations["Golem"] != 145.0 {
				t.Errorf("stored Golem size = %v, want 145.0", history[0].Populations["Golem"])
			}
		})
	}
}
