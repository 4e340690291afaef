package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mchmarny/nutctl/pkg/nutrition"
)

const (
	deleteSearchSQL = `DELETE FROM search WHERE query = ?`

	insertSearchSQL = `INSERT INTO search (query, fdc_id, ordinal, searched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (query, fdc_id) DO NOTHING`

	selectSearchFoodsSQL = `SELECT f.fdc_id, f.description, f.brand_owner, f.data_type, f.gtin_upc,
			f.serving_size, f.serving_unit, f.calories, f.protein, f.fat, f.carbs, f.sugar, f.fiber, f.sodium
		FROM search s
		JOIN food f ON f.fdc_id = s.fdc_id
		WHERE s.query = ?
		ORDER BY s.ordinal
		LIMIT ?`

	listSearchesSQL = `SELECT query, COUNT(*), MAX(searched_at)
		FROM search
		GROUP BY query
		ORDER BY MAX(searched_at) DESC, query
		LIMIT ?`
)

// Search is a stored search query.
type Search struct {
	Query      string    `json:"query" yaml:"query"`
	Foods      int       `json:"foods" yaml:"foods"`
	SearchedAt time.Time `json:"searched_at" yaml:"searchedAt"`
}

// SaveSearch replaces the stored results for query with ids, keeping their order.
func (s *Store) SaveSearch(ctx context.Context, query string, ids []int64) error {
	if err := s.check(); err != nil {
		return err
	}

	key := NormalizeQuery(query)
	if key == "" {
		return errors.New("query is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, s.rebind(deleteSearchSQL), key); err != nil {
		return fmt.Errorf("failed to clear search %q: %w", key, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(insertSearchSQL))
	if err != nil {
		return fmt.Errorf("failed to prepare search insert statement: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, key, id, i, now); err != nil {
			return fmt.Errorf("failed to insert search result %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit search: %w", err)
	}
	return nil
}

// GetSearchFoods returns the stored foods for query in result order.
func (s *Store) GetSearchFoods(ctx context.Context, query string, limit int) ([]*nutrition.Profile, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(selectSearchFoodsSQL), NormalizeQuery(query), normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query search foods: %w", err)
	}
	defer rows.Close()

	return scanProfiles(rows)
}

// ListSearches returns stored searches, most recent first.
func (s *Store) ListSearches(ctx context.Context, limit int) ([]*Search, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(listSearchesSQL), normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	defer rows.Close()

	list := make([]*Search, 0)
	for rows.Next() {
		var (
			item Search
			at   string
		)
		if err := rows.Scan(&item.Query, &item.Foods, &at); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		item.SearchedAt = parseTime(at)
		list = append(list, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search rows: %w", err)
	}
	return list, nil
}
