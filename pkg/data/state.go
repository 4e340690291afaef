package data

import (
	"context"
	"fmt"
)

var stateQueries = map[string]string{
	"foods":          "SELECT COUNT(*) FROM food",
	"searches":       "SELECT COUNT(DISTINCT query) FROM search",
	"search_results": "SELECT COUNT(*) FROM search",
}

// GetDataState returns row counts for the stored data.
func (s *Store) GetDataState(ctx context.Context) (map[string]int64, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	state := make(map[string]int64, len(stateQueries))
	for k, q := range stateQueries {
		var c int64
		if err := s.db.QueryRowContext(ctx, q).Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", k, err)
		}
		state[k] = c
	}
	return state, nil
}

// Reset deletes all foods and searches. The schema is kept.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.check(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range []string{"search", "food"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil { //nolint:gosec // fixed table names
			return fmt.Errorf("failed to delete %s rows: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	return nil
}
