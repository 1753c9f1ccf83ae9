// Package ledgerdb is a sqlite-backed balance ledger: the concrete Ledger the
// dev server wires behind the engine's economy interface.
package ledgerdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type Ledger struct {
	db *sql.DB
}

func Open(path string) (*Ledger, error) {
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

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	schema := []string{
		`CREATE TABLE IF NOT EXISTS balances (
			player TEXT PRIMARY KEY,
			amount REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS holdings (
			player TEXT NOT NULL,
			item   TEXT NOT NULL,
			units  INTEGER NOT NULL,
			PRIMARY KEY (player, item)
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

func (l *Ledger) Balance(playerID string) float64 {
	var amount float64
	err := l.db.QueryRow(`SELECT amount FROM balances WHERE player = ?`, playerID).Scan(&amount)
	if err != nil {
		return 0
	}
	return amount
}

// Withdraw debits atomically; the balance check and the debit run in one
// statement so concurrent withdrawals cannot overdraw.
func (l *Ledger) Withdraw(playerID string, amount float64) bool {
	if amount < 0 {
		return false
	}
	res, err := l.db.Exec(
		`UPDATE balances SET amount = amount - ? WHERE player = ? AND amount >= ?`,
		amount, playerID, amount,
	)
	if err != nil {
		return false
	}
	n, err := res.RowsAffected()
	return err == nil && n > 0
}

func (l *Ledger) Deposit(playerID string, amount float64) bool {
	if amount < 0 {
		return false
	}
	_, err := l.db.Exec(
		`INSERT INTO balances(player, amount) VALUES(?, ?)
		 ON CONFLICT(player) DO UPDATE SET amount = amount + excluded.amount`,
		playerID, amount,
	)
	return err == nil
}

// Inventory returns the item-holdings view over the same database.
func (l *Ledger) Inventory() *Inventory { return &Inventory{db: l.db} }

type Inventory struct {
	db *sql.DB
}

func (i *Inventory) CountHeld(playerID, itemID string) int {
	var units int
	err := i.db.QueryRow(
		`SELECT units FROM holdings WHERE player = ? AND item = ?`,
		playerID, itemID,
	).Scan(&units)
	if err != nil {
		return 0
	}
	return units
}

// RemoveHeld removes up to amount units and reports how many came out. The
// clamp and the decrement run in one statement so concurrent removals cannot
// go negative.
func (i *Inventory) RemoveHeld(playerID, itemID string, amount int) int {
	if amount <= 0 {
		return 0
	}
	held := i.CountHeld(playerID, itemID)
	if held <= 0 {
		return 0
	}
	take := amount
	if take > held {
		take = held
	}
	res, err := i.db.Exec(
		`UPDATE holdings SET units = units - ? WHERE player = ? AND item = ? AND units >= ?`,
		take, playerID, itemID, take,
	)
	if err != nil {
		return 0
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return 0
	}
	return take
}

func (i *Inventory) Grant(playerID, itemID string, amount int) {
	if amount <= 0 {
		return
	}
	_, _ = i.db.Exec(
		`INSERT INTO holdings(player, item, units) VALUES(?, ?, ?)
		 ON CONFLICT(player, item) DO UPDATE SET units = units + excluded.units`,
		playerID, itemID, amount,
	)
}
