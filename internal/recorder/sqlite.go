package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	_ "modernc.org/sqlite"

	"sbwatch/internal/model"
)

// SQLiteRecorder persists gate traces and signals to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so analysis tooling can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS gate_trace (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			date         TEXT,
			bar_start    INTEGER NOT NULL,
			open         REAL,
			high         REAL,
			low          REAL,
			close        REAL,
			volume       REAL,
			in_window    INTEGER,
			box_high     INTEGER,
			box_low      INTEGER,
			asia_high    INTEGER,
			asia_low     INTEGER,
			london_high  INTEGER,
			london_low   INTEGER,
			pdh          INTEGER,
			pdl          INTEGER,
			short_state  TEXT,
			long_state   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gate_trace_ts ON gate_trace(bar_start)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			date        TEXT,
			fired_at    INTEGER NOT NULL,
			side        TEXT,
			entry       REAL,
			stop_loss   REAL,
			take_profit REAL,
			sweep_label TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(fired_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordGate(row GateTrace) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := row.Bar
	g := row.Gates
	_, err := r.db.Exec(`INSERT INTO gate_trace
		(date, bar_start, open, high, low, close, volume,
		 in_window, box_high, box_low, asia_high, asia_low,
		 london_high, london_low, pdh, pdl, short_state, long_state)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		row.Date, b.Start.UnixMilli(), b.Open, b.High, b.Low, b.Close, b.Volume,
		boolInt(g.InWindow), boolInt(g.BoxHigh), boolInt(g.BoxLow),
		boolInt(g.AsiaHigh), boolInt(g.AsiaLow),
		boolInt(g.LondonHigh), boolInt(g.LondonLow),
		boolInt(g.PDH), boolInt(g.PDL),
		row.ShortState, row.LongState,
	)
	return err
}

func (r *SQLiteRecorder) RecordSignal(date string, c model.EntryCandidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var tp any
	if c.TakeProfit != nil {
		tp = *c.TakeProfit
	}
	_, err := r.db.Exec(`INSERT INTO signals
		(date, fired_at, side, entry, stop_loss, take_profit, sweep_label)
		VALUES (?,?,?,?,?,?,?)`,
		date, c.WhenMillis(), string(c.Side), c.Entry, c.StopLoss, tp, c.SweepLabel,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
