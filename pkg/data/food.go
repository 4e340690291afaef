package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mchmarny/nutctl/pkg/metrics"
	"github.com/mchmarny/nutctl/pkg/nutrition"
)

const (
	foodColumns = `fdc_id, description, brand_owner, data_type, gtin_upc, serving_size, serving_unit,
		calories, protein, fat, carbs, sugar, fiber, sodium`

	insertFoodSQL = `INSERT INTO food (` + foodColumns + `, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (fdc_id) DO UPDATE SET
			description = excluded.description,
			brand_owner = excluded.brand_owner,
			data_type = excluded.data_type,
			gtin_upc = excluded.gtin_upc,
			serving_size = excluded.serving_size,
			serving_unit = excluded.serving_unit,
			calories = excluded.calories,
			protein = excluded.protein,
			fat = excluded.fat,
			carbs = excluded.carbs,
			sugar = excluded.sugar,
			fiber = excluded.fiber,
			sodium = excluded.sodium,
			updated_at = excluded.updated_at`

	selectFoodSQL = `SELECT ` + foodColumns + ` FROM food WHERE fdc_id = ?`

	queryFoodsSQL = `SELECT ` + foodColumns + ` FROM food
		WHERE LOWER(description) LIKE ? OR LOWER(brand_owner) LIKE ?
		ORDER BY description, fdc_id
		LIMIT ?`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*nutrition.Profile, error) {
	p := &nutrition.Profile{}
	if err := row.Scan(&p.FDCID, &p.Food, &p.Brand, &p.DataType, &p.GTINUPC, &p.Serving, &p.Unit,
		&p.Calories, &p.Protein, &p.Fat, &p.Carbs, &p.Sugar, &p.Fiber, &p.Sodium); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveFoods upserts profiles by FDC ID and returns the number written.
func (s *Store) SaveFoods(ctx context.Context, profiles []*nutrition.Profile) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	if len(profiles) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, s.rebind(insertFoodSQL))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare food insert statement: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	n := 0
	for _, p := range profiles {
		if p == nil || p.FDCID <= 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, p.FDCID, p.Food, p.Brand, p.DataType, p.GTINUPC, p.Serving, p.Unit,
			p.Calories, p.Protein, p.Fat, p.Carbs, p.Sugar, p.Fiber, p.Sodium, now); err != nil {
			return 0, fmt.Errorf("failed to insert food %d: %w", p.FDCID, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit foods: %w", err)
	}

	metrics.RecordFoodsSaved(n)
	return n, nil
}

// GetFood returns the profile for id, or nil when it is not stored.
func (s *Store) GetFood(ctx context.Context, id int64) (*nutrition.Profile, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	p, err := scanProfile(s.db.QueryRowContext(ctx, s.rebind(selectFoodSQL), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get food %d: %w", id, err)
	}
	return p, nil
}

// QueryFoods returns foods whose description or brand contains like,
// case-insensitively. An empty like matches everything.
func (s *Store) QueryFoods(ctx context.Context, like string, limit int) ([]*nutrition.Profile, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	pattern := "%" + strings.ToLower(strings.TrimSpace(like)) + "%"
	rows, err := s.db.QueryContext(ctx, s.rebind(queryFoodsSQL), pattern, pattern, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}
	defer rows.Close()

	return scanProfiles(rows)
}

func scanProfiles(rows *sql.Rows) ([]*nutrition.Profile, error) {
	list := make([]*nutrition.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan food row: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate food rows: %w", err)
	}
	return list, nil
}
