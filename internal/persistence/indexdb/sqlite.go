// Package indexdb keeps a queryable sqlite index of economic activity:
// every buy, sell and claim, plus rotation regenerations. Writes go through a
// single writer goroutine so the engine never blocks on disk.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqTransaction reqKind = iota + 1
	reqRegen
)

type req struct {
	kind reqKind

	txn   Transaction
	regen Regen
}

// Transaction is one completed economic operation.
type Transaction struct {
	Kind    string  // "BUY", "SELL", "CLAIM"
	Player  string
	Subject string // item id or quest id
	Units   int
	Amount  float64
	At      time.Time
}

// Regen records one assortment regeneration.
type Regen struct {
	Kind  string // "DROP", "BUYBACK", "QUESTS"
	Items int
	At    time.Time
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db: db,
		// Large buffer: bursty player activity must not stall the engine.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			kind TEXT NOT NULL,
			player TEXT NOT NULL,
			subject TEXT NOT NULL,
			units INTEGER NOT NULL,
			amount REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_player_at ON transactions(player, at);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_subject_at ON transactions(subject, at);`,
		`CREATE TABLE IF NOT EXISTS regens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			kind TEXT NOT NULL,
			items INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	return nil
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordTransaction enqueues without blocking; under sustained backlog entries
// are dropped, the state file remains the source of truth.
func (s *Store) RecordTransaction(t Transaction) {
	if s == nil || s.closed.Load() {
		return
	}
	if t.At.IsZero() {
		t.At = time.Now()
	}
	select {
	case s.ch <- req{kind: reqTransaction, txn: t}:
	default:
	}
}

func (s *Store) RecordRegen(r Regen) {
	if s == nil || s.closed.Load() {
		return
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	select {
	case s.ch <- req{kind: reqRegen, regen: r}:
	default:
	}
}

func (s *Store) loop() {
	ctx := context.Background()

	insertTxn, _ := s.db.Prepare(`INSERT INTO transactions(at,kind,player,subject,units,amount) VALUES(?,?,?,?,?,?)`)
	insertRegen, _ := s.db.Prepare(`INSERT INTO regens(at,kind,items) VALUES(?,?,?)`)
	defer func() {
		if insertTxn != nil {
			_ = insertTxn.Close()
		}
		if insertRegen != nil {
			_ = insertRegen.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTransaction:
			if insertTxn == nil {
				continue
			}
			t := r.txn
			if _, err := tx.Stmt(insertTxn).Exec(
				t.At.UTC().Format(time.RFC3339Nano), t.Kind, t.Player, t.Subject, t.Units, t.Amount,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		case reqRegen:
			if insertRegen == nil {
				continue
			}
			g := r.regen
			if _, err := tx.Stmt(insertRegen).Exec(
				g.At.UTC().Format(time.RFC3339Nano), g.Kind, g.Items,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}
