package recording

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/mesisim/report"
)

// CSVWriter writes events to a CSV file. The run summary goes to a second
// file next to it, named after the first with a .summary.csv suffix.
type CSVWriter struct {
	path string
	file *os.File
	csv  *csv.Writer

	events     []Event
	bufferSize int
	closed     bool
}

// NewCSVWriter creates a writer for the CSV file at path. An empty path
// picks a unique file name.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// Path returns the event file name.
func (w *CSVWriter) Path() string {
	return w.path
}

// SummaryPath returns the summary file name.
func (w *CSVWriter) SummaryPath() string {
	return strings.TrimSuffix(w.path, filepath.Ext(w.path)) + ".summary.csv"
}

// Init creates the event file. It refuses to overwrite an existing file.
func (w *CSVWriter) Init() error {
	if w.path == "" {
		w.path = "mesisim_" + xid.New().String() + ".csv"
	}

	if _, err := os.Stat(w.path); err == nil {
		return fmt.Errorf("file %s already exists", w.path)
	}

	file, err := os.Create(w.path)
	if err != nil {
		return err
	}
	w.file = file
	w.csv = csv.NewWriter(file)

	err = w.csv.Write([]string{"run_id", "cycle", "kind", "core", "address", "what"})
	if err != nil {
		return err
	}

	atexit.Register(func() { _ = w.Close() })

	return nil
}

// WriteEvent buffers an event.
func (w *CSVWriter) WriteEvent(e Event) {
	w.events = append(w.events, e)
	if len(w.events) >= w.bufferSize {
		if err := w.Flush(); err != nil {
			panic(err)
		}
	}
}

// Flush writes the buffered events to the file.
func (w *CSVWriter) Flush() error {
	for _, e := range w.events {
		err := w.csv.Write([]string{
			e.RunID,
			strconv.FormatUint(e.Cycle, 10),
			e.Kind,
			strconv.Itoa(e.Core),
			fmt.Sprintf("0x%08x", e.Address),
			e.What,
		})
		if err != nil {
			return err
		}
	}

	w.events = nil
	w.csv.Flush()

	return w.csv.Error()
}

// WriteSummary writes the per-core statistics to the summary file.
func (w *CSVWriter) WriteSummary(_ string, r report.Report) error {
	file, err := os.Create(w.SummaryPath())
	if err != nil {
		return err
	}

	if err := report.WriteCSV(file, r); err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}

// Close flushes buffered events and closes the file.
func (w *CSVWriter) Close() error {
	if w.closed || w.file == nil {
		return nil
	}
	w.closed = true

	if err := w.Flush(); err != nil {
		return err
	}

	return w.file.Close()
}
