// Package portfolio provides persistence for per-user stock holdings.
package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ErrNotFound indicates the symbol is not held by the user.
var ErrNotFound = errors.New("stock not found in portfolio")

// Holding is a portfolio table row.
type Holding struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	StockSymbol string `json:"stock_symbol"`
}

// Repository handles portfolio database operations.
type Repository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository.
func NewRepository(db *pgxpool.Pool, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "portfolio").Logger(),
	}
}

// Add inserts a holding for a user and returns the stored row.
// The (user_id, stock_symbol) unique constraint makes duplicates a store
// error surfaced to the caller.
func (r *Repository) Add(ctx context.Context, userID int64, symbol string) (*Holding, error) {
	var h Holding
	err := r.db.QueryRow(ctx,
		"INSERT INTO portfolio (user_id, stock_symbol) VALUES ($1, $2) RETURNING id, user_id, stock_symbol",
		userID, symbol,
	).Scan(&h.ID, &h.UserID, &h.StockSymbol)
	if err != nil {
		return nil, fmt.Errorf("failed to add stock to portfolio: %w", err)
	}
	return &h, nil
}

// ListSymbols returns the symbols held by a user.
func (r *Repository) ListSymbols(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.Query(ctx,
		"SELECT stock_symbol FROM portfolio WHERE user_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch portfolio: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio row: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// Remove deletes a holding scoped to (userID, symbol).
// Returns ErrNotFound when the user does not hold the symbol.
func (r *Repository) Remove(ctx context.Context, userID int64, symbol string) error {
	tag, err := r.db.Exec(ctx,
		"DELETE FROM portfolio WHERE user_id = $1 AND stock_symbol = $2", userID, symbol)
	if err != nil {
		return fmt.Errorf("failed to remove stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
