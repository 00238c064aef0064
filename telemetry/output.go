package telemetry

import (
	"fmt"
	"os"
	"sort"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/golem/store"
)

// StepRow is one CSV row: one species' size at one tick.
type StepRow struct {
	Tick        int     `csv:"tick"`
	Timestamp   float64 `csv:"timestamp"`
	Species     string  `csv:"species"`
	Population  float64 `csv:"population"`
	RivalSource string  `csv:"rival_source"`
}

// Rows flattens step records into CSV rows, species sorted by name within
// a tick so output is stable across runs.
func Rows(history []store.StepRecord) []StepRow {
	var rows []StepRow
	for _, rec := range history {
		names := make([]string, 0, len(rec.Populations))
		for name := range rec.Populations {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			rows = append(rows, StepRow{
				Tick:        rec.Tick,
				Timestamp:   rec.Timestamp,
				Species:     name,
				Population:  rec.Populations[name],
				RivalSource: string(rec.RivalSource),
			})
		}
	}
	return rows
}

// Writer appends step records to a CSV file. Returns nil if path is empty
// (output disabled); a nil Writer is safe to use.
type Writer struct {
	file          *os.File
	headerWritten bool
}

// NewWriter creates the CSV file at path, truncating any existing file.
func NewWriter(path string) (*Writer, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &Writer{file: f}, nil
}

// WriteStep appends one record's rows to the file. The first write
// includes headers.
func (w *Writer) WriteStep(rec store.StepRecord) error {
	if w == nil {
		return nil
	}

	rows := Rows([]store.StepRecord{rec})

	if !w.headerWritten {
		if err := gocsv.Marshal(rows, w.file); err != nil {
			return fmt.Errorf("writing step %d: %w", rec.Tick, err)
		}
		w.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(rows, w.file); err != nil {
		return fmt.Errorf("writing step %d: %w", rec.Tick, err)
	}
	return nil
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	return w.file.Close()
}
