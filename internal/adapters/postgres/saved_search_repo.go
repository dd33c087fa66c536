package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/geofacet/internal/core/domain"
)

// SavedSearchRepo implements ports.SavedSearchRepository.
type SavedSearchRepo struct {
	db *DB
}

func NewSavedSearchRepo(db *DB) *SavedSearchRepo {
	return &SavedSearchRepo{db: db}
}

const savedSearchColumns = `id::text, name, region, filters, string_keys, numeric_keys, created_at`

func (r *SavedSearchRepo) Create(ctx context.Context, s *domain.SavedSearch) error {
	region, err := json.Marshal(s.Region)
	if err != nil {
		return fmt.Errorf("encode region: %w", err)
	}
	filters, err := json.Marshal(s.Filters)
	if err != nil {
		return fmt.Errorf("encode filters: %w", err)
	}

	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO saved_searches (name, region, filters, string_keys, numeric_keys, created_at)
		VALUES ($1, $2::jsonb, $3::jsonb, $4, $5, $6)
		RETURNING id::text
	`, s.Name, region, filters, orEmpty(s.StringKeys), orEmpty(s.NumericKeys), s.CreatedAt).Scan(&s.ID)
}

func (r *SavedSearchRepo) GetByID(ctx context.Context, id string) (*domain.SavedSearch, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	row := r.db.Pool.QueryRow(ctx, `
		SELECT `+savedSearchColumns+`
		FROM saved_searches WHERE id = $1
	`, id)
	s, err := scanSavedSearch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SavedSearchRepo) List(ctx context.Context, limit, offset int) ([]domain.SavedSearch, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+savedSearchColumns+`
		FROM saved_searches
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	searches := []domain.SavedSearch{}
	for rows.Next() {
		s, err := scanSavedSearch(rows)
		if err != nil {
			return nil, err
		}
		searches = append(searches, *s)
	}
	return searches, rows.Err()
}

func (r *SavedSearchRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM saved_searches`).Scan(&n)
	return n, err
}

func (r *SavedSearchRepo) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM saved_searches WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanSavedSearch(row pgx.Row) (*domain.SavedSearch, error) {
	var (
		s       domain.SavedSearch
		region  []byte
		filters []byte
	)
	if err := row.Scan(&s.ID, &s.Name, &region, &filters, &s.StringKeys, &s.NumericKeys, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(region, &s.Region); err != nil {
		return nil, fmt.Errorf("decode region of %s: %w", s.ID, err)
	}
	s.Filters = domain.NewSelectedFilters()
	if err := json.Unmarshal(filters, &s.Filters); err != nil {
		return nil, fmt.Errorf("decode filters of %s: %w", s.ID, err)
	}
	return &s, nil
}

func orEmpty(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}
