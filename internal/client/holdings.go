package client

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Holding is the locally-kept position state for one symbol: how many shares
// the user holds and what they paid in total. The server only persists which
// symbols belong to the portfolio; share counts and cost basis are edited on
// the client and never leave the machine.
type Holding struct {
	Symbol   string
	Shares   int64
	Invested decimal.Decimal
}

const holdingsSchema = `
CREATE TABLE IF NOT EXISTS holdings (
    symbol   TEXT PRIMARY KEY,
    shares   INTEGER NOT NULL,
    invested TEXT NOT NULL
);
`

// HoldingsStore persists holdings in a local SQLite file, next to the cache
// store.
type HoldingsStore struct {
	db *sql.DB
}

// OpenHoldingsStore opens (or creates) the holdings store at path.
func OpenHoldingsStore(path string) (*HoldingsStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open holdings store: %w", err)
	}
	if _, err := db.Exec(holdingsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize holdings schema: %w", err)
	}
	return &HoldingsStore{db: db}, nil
}

// Set records shares and invested amount for a symbol. Both must be
// non-negative; zero shares is a valid state for a watched-but-sold position.
func (s *HoldingsStore) Set(symbol string, shares int64, invested decimal.Decimal) error {
	if shares < 0 {
		return fmt.Errorf("shares must not be negative")
	}
	if invested.IsNegative() {
		return fmt.Errorf("invested amount must not be negative")
	}

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO holdings (symbol, shares, invested) VALUES (?, ?, ?)",
		strings.ToUpper(symbol), shares, invested.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to store holding %s: %w", symbol, err)
	}
	return nil
}

// All returns every holding keyed by symbol.
func (s *HoldingsStore) All() (map[string]Holding, error) {
	rows, err := s.db.Query("SELECT symbol, shares, invested FROM holdings")
	if err != nil {
		return nil, fmt.Errorf("failed to read holdings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Holding)
	for rows.Next() {
		var h Holding
		var invested string
		if err := rows.Scan(&h.Symbol, &h.Shares, &invested); err != nil {
			return nil, fmt.Errorf("failed to scan holding row: %w", err)
		}
		h.Invested, err = decimal.NewFromString(invested)
		if err != nil {
			return nil, fmt.Errorf("corrupt invested amount for %s: %w", h.Symbol, err)
		}
		out[h.Symbol] = h
	}
	return out, rows.Err()
}

// Delete removes the holding for a symbol.
func (s *HoldingsStore) Delete(symbol string) error {
	if _, err := s.db.Exec("DELETE FROM holdings WHERE symbol = ?", strings.ToUpper(symbol)); err != nil {
		return fmt.Errorf("failed to delete holding %s: %w", symbol, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *HoldingsStore) Close() error {
	return s.db.Close()
}
