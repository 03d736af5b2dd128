// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/cookbook/pkg/types"
)

// QueryOptions holds parameters for catalog searches.
type QueryOptions struct {
	// Query is the FTS5 full-text search string over title, ingredients
	// and instructions.
	Query string

	// Tags filters by one or more tags with AND semantics.
	Tags []string

	// Ingredients keeps recipes whose ingredient lines mention every term
	// (case-insensitive substring).
	Ingredients []string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && len(q.Tags) == 0 && len(q.Ingredients) == 0
}

// Entry is a stored recipe with its catalog ID and source file name.
type Entry struct {
	ID           string `json:"id" yaml:"id"`
	Path         string `json:"path" yaml:"path"`
	types.Recipe `yaml:",inline"`
}

// Search queries the catalog. Full-text queries are ranked by relevance;
// filter-only queries are sorted by title.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]Entry, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT r.id, r.path, r.data
			FROM recipes_fts
			JOIN recipes r ON r.rowid = recipes_fts.rowid
			WHERE recipes_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT r.id, r.path, r.data
			FROM recipes r
			WHERE 1=1`)
	}

	for _, tag := range opts.Tags {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(r.tags) WHERE lower(value) = lower(?))`)
		args = append(args, tag)
	}

	for _, ing := range opts.Ingredients {
		qb.WriteString(` AND instr(lower(r.ingredients), lower(?)) > 0`)
		args = append(args, ing)
	}

	if useFTS {
		qb.WriteString(` ORDER BY recipes_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY r.title COLLATE NOCASE, r.id`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var results []Entry
	for rows.Next() {
		var (
			e    Entry
			data string
		)
		if err := rows.Scan(&e.ID, &e.Path, &data); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &e.Recipe); err != nil {
			return nil, fmt.Errorf("decoding recipe %s: %w", e.ID, err)
		}
		results = append(results, e)
	}

	return results, rows.Err()
}

// Get returns the recipe stored under id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	var (
		e    Entry
		data string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, path, data FROM recipes WHERE id = ?`, id,
	).Scan(&e.ID, &e.Path, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("looking up recipe: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &e.Recipe); err != nil {
		return nil, fmt.Errorf("decoding recipe %s: %w", id, err)
	}
	return &e, nil
}

// Count returns the number of recipes in the catalog.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM recipes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting recipes: %w", err)
	}
	return n, nil
}
