package itembank

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cat-engine/backend/internal/database"
	"github.com/cat-engine/backend/internal/models"
)

// Store persists a bank in the items table.
type Store struct {
	db     *sql.DB
	driver database.Driver
}

func NewStore(db *sql.DB, driver database.Driver) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) q(query string) string {
	return database.Rebind(s.driver, query)
}

// Load reads every item in position order and builds a bank.
func (s *Store) Load(ctx context.Context) (*Bank, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, a, b, g, u FROM items ORDER BY position, id`,
	))
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.A, &it.B, &it.G, &it.U); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	return New(items)
}

// Count returns the number of stored items.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// Replace swaps the stored items for the bank's contents in one transaction.
func (s *Store) Replace(ctx context.Context, bank *Bank) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.q(
		`INSERT INTO items (position, id, a, b, g, u) VALUES ($1, $2, $3, $4, $5, $6)`,
	))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < bank.Len(); i++ {
		it := bank.At(i)
		if _, err := stmt.ExecContext(ctx, i, it.ID, it.A, it.B, it.G, it.U); err != nil {
			return fmt.Errorf("insert item %s: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
