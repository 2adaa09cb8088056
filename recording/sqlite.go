package recording

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/mesisim/report"
)

// SQLiteWriter stores events and summaries in a SQLite database.
type SQLiteWriter struct {
	*sql.DB

	path      string
	statement *sql.Stmt
	events    []Event
	batchSize int
	closed    bool
}

// NewSQLiteWriter creates a writer for the database file at path. An empty
// path picks a unique file name.
func NewSQLiteWriter(path string) *SQLiteWriter {
	w := &SQLiteWriter{
		path:      path,
		batchSize: 100000,
	}

	atexit.Register(func() { _ = w.Close() })

	return w
}

// Path returns the database file name.
func (w *SQLiteWriter) Path() string {
	return w.path
}

// Init creates the database and its tables. It refuses to overwrite an
// existing file.
func (w *SQLiteWriter) Init() error {
	if w.path == "" {
		w.path = "mesisim_" + xid.New().String() + ".sqlite3"
	}

	if _, err := os.Stat(w.path); err == nil {
		return fmt.Errorf("file %s already exists", w.path)
	}

	db, err := sql.Open("sqlite3", w.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	w.DB = db

	for _, stmt := range []string{createEventTable, createRunTable, createCoreTable} {
		if _, err := w.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	w.statement, err = w.Prepare(
		`INSERT INTO events (run_id, cycle, kind, core, address, what)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	return nil
}

const createEventTable = `
	CREATE TABLE IF NOT EXISTS events
	(
		run_id  VARCHAR(20) NOT NULL,
		cycle   INTEGER     NOT NULL,
		kind    VARCHAR(20) NOT NULL,
		core    INTEGER     NOT NULL,
		address INTEGER     NOT NULL,
		what    VARCHAR(100)
	);
`

const createRunTable = `
	CREATE TABLE IF NOT EXISTS runs
	(
		run_id             VARCHAR(20) NOT NULL,
		trace_prefix       VARCHAR(200),
		set_bits           INTEGER,
		associativity      INTEGER,
		block_bits         INTEGER,
		cycles             INTEGER,
		max_execution_time INTEGER,
		transactions       INTEGER,
		traffic_bytes      INTEGER
	);
`

const createCoreTable = `
	CREATE TABLE IF NOT EXISTS core_stats
	(
		run_id             VARCHAR(20) NOT NULL,
		core               INTEGER,
		instructions       INTEGER,
		reads              INTEGER,
		writes             INTEGER,
		misses             INTEGER,
		miss_rate          REAL,
		evictions          INTEGER,
		writebacks         INTEGER,
		bus_invalidations  INTEGER,
		data_traffic_bytes INTEGER,
		execution_cycles   INTEGER,
		idle_cycles        INTEGER
	);
`

// WriteEvent buffers an event.
func (w *SQLiteWriter) WriteEvent(e Event) {
	w.events = append(w.events, e)
	if len(w.events) >= w.batchSize {
		if err := w.Flush(); err != nil {
			panic(err)
		}
	}
}

// Flush writes all buffered events in one transaction.
func (w *SQLiteWriter) Flush() error {
	if len(w.events) == 0 {
		return nil
	}

	tx, err := w.Begin()
	if err != nil {
		return err
	}

	stmt := tx.Stmt(w.statement)
	for _, e := range w.events {
		_, err := stmt.Exec(e.RunID, e.Cycle, e.Kind, e.Core, e.Address, e.What)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert event %+v: %w", e, err)
		}
	}

	w.events = nil

	return tx.Commit()
}

// WriteSummary stores the run parameters and per-core statistics.
func (w *SQLiteWriter) WriteSummary(runID string, r report.Report) error {
	p := r.Parameters
	_, err := w.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, p.TracePrefix, p.SetBits, p.Associativity, p.BlockBits,
		r.Cycles, r.MaxExecutionTime, r.Bus.Transactions, r.Bus.TrafficBytes)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, c := range r.Cores {
		_, err := w.Exec(
			`INSERT INTO core_stats VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, c.Core, c.Instructions, c.Reads, c.Writes, c.Misses,
			c.MissRate, c.Evictions, c.Writebacks, c.Invalidations,
			c.DataTrafficBytes, c.ExecutionCycles, c.IdleCycles)
		if err != nil {
			return fmt.Errorf("failed to insert core %d: %w", c.Core, err)
		}
	}

	return nil
}

// Close flushes buffered events and closes the database.
func (w *SQLiteWriter) Close() error {
	if w.closed || w.DB == nil {
		return nil
	}
	w.closed = true

	if err := w.Flush(); err != nil {
		return err
	}

	return w.DB.Close()
}
