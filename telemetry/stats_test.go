package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/golem/rival"
	"github.com/pthm-cable/golem/store"
)

func historyFor(t *testing.T, sizes ...float64) []store.StepRecord {
	t.Helper()
	history := make([]store.StepRecord, len(sizes))
	for i, size := range sizes {
		history[i] = store.StepRecord{
			Tick:        i + 1,
			Timestamp:   float64(i),
			Populations: map[string]float64{"Golem": size, "Vampire": 800},
			RivalSource: rival.SourceLive,
		}
	}
	return history
}

func TestSummarize(t *testing.T) {
	history := historyFor(t, 100, 145, 187, 121)

	stats := Summarize(history)
	golem, ok := stats["Golem"]
	if !ok {
		t.Fatalf("no stats for Golem: %v", stats)
	}

	if golem.Min != 100 {
		t.Errorf("Min = %v, want 100", golem.Min)
	}
	if golem.Max != 187 {
		t.Errorf("Max = %v, want 187", golem.Max)
	}
	if want := 138.25; math.Abs(golem.Mean-want) > 1e-9 {
		t.Errorf("Mean = %v, want %v", golem.Mean, want)
	}
	// Sample standard deviation of {100, 145, 187, 121}.
	wantStd := math.Sqrt((math.Pow(100-138.25, 2) + math.Pow(145-138.25, 2) +
		math.Pow(187-138.25, 2) + math.Pow(121-138.25, 2)) / 3)
	if math.Abs(golem.StdDev-wantStd) > 1e-9 {
		t.Errorf("StdDev = %v, want %v", golem.StdDev, wantStd)
	}

	vampire := stats["Vampire"]
	if vampire.StdDev != 0 {
		t.Errorf("constant series StdDev = %v, want 0", vampire.StdDev)
	}
}

func TestSummarizeSingleRecord(t *testing.T) {
	stats := Summarize(historyFor(t, 145))
	golem := stats["Golem"]
	if golem.Min != 145 || golem.Max != 145 || golem.Mean != 145 {
		t.Errorf("single-record stats = %+v, want all 145", golem)
	}
	if golem.StdDev != 0 {
		t.Errorf("single-record StdDev = %v, want 0", golem.StdDev)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if stats := Summarize(nil); len(stats) != 0 {
		t.Errorf("Summarize(nil) = %v, want empty", stats)
	}
}

func TestRows(t *testing.T) {
	history := historyFor(t, 145, 187)

	rows := Rows(history)
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4 (2 ticks x 2 species)", len(rows))
	}

	// Species sorted by name within a tick.
	if rows[0].Species != "Golem" || rows[1].Species != "Vampire" {
		t.Errorf("tick 1 rows out of order: %s, %s", rows[0].Species, rows[1].Species)
	}
	if rows[0].Tick != 1 || rows[2].Tick != 2 {
		t.Errorf("rows out of tick order: %d, %d", rows[0].Tick, rows[2].Tick)
	}
	if rows[0].Population != 145 {
		t.Errorf("tick 1 Golem = %v, want 145", rows[0].Population)
	}
	if rows[0].RivalSource != "LIVE" {
		t.Errorf("rival_source = %q, want LIVE", rows[0].RivalSource)
	}
}
