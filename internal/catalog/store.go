// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog keeps a searchable SQLite index of Recipe Documents.
// Recipes are ingested from a directory of Markdown files, indexed with
// FTS5 over title, ingredients and instructions, and exported as YAML or
// JSON.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-slug"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/cookbook/internal/logging"
	"github.com/pdiddy/cookbook/internal/recipe"
	"github.com/pdiddy/cookbook/pkg/types"
)

const dbFile = "cookbook.db"

// ErrNotFound is returned by Get when no recipe has the requested ID.
var ErrNotFound = errors.New("recipe not found")

// Store manages the catalog SQLite database.
type Store struct {
	db         *sql.DB
	catalogDir string
	recipesDir string
	maxResults int
	log        logging.Logger
}

// NewStore opens or creates catalogDir/cookbook.db and its schema.
func NewStore(cfg types.CatalogConfig, log logging.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.CatalogDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	dbPath := filepath.Join(cfg.CatalogDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		catalogDir: cfg.CatalogDir,
		recipesDir: cfg.RecipesDir,
		maxResults: maxResults,
		log:        logging.OrNop(log),
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS recipes (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			path TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			ingredients TEXT NOT NULL,
			instructions TEXT NOT NULL,
			tags TEXT,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			path TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='recipes_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE recipes_fts USING fts5(title, ingredients, instructions, content=recipes, content_rowid=rowid)`,
			`CREATE TRIGGER recipes_ai AFTER INSERT ON recipes BEGIN
				INSERT INTO recipes_fts(rowid, title, ingredients, instructions)
				VALUES (new.rowid, new.title, new.ingredients, new.instructions);
			END`,
			`CREATE TRIGGER recipes_ad AFTER DELETE ON recipes BEGIN
				INSERT INTO recipes_fts(recipes_fts, rowid, title, ingredients, instructions)
				VALUES ('delete', old.rowid, old.title, old.ingredients, old.instructions);
			END`,
			`CREATE TRIGGER recipes_au AFTER UPDATE ON recipes BEGIN
				INSERT INTO recipes_fts(recipes_fts, rowid, title, ingredients, instructions)
				VALUES ('delete', old.rowid, old.title, old.ingredients, old.instructions);
				INSERT INTO recipes_fts(rowid, title, ingredients, instructions)
				VALUES (new.rowid, new.title, new.ingredients, new.instructions);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from a catalog indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of recipe files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest parses every Recipe Document in the recipes directory and stores
// it. Files whose mod time matches the last run are skipped. The index
// document (Cookbook.md) is not a recipe and is ignored.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	entries, err := os.ReadDir(s.recipesDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading recipes directory %s: %w", s.recipesDir, err)
	}

	var summary IngestSummary

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".md") || strings.EqualFold(name, "Cookbook.md") {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE path = ?`, name,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", name)
			summary.Skipped++
			continue
		}

		isUpdate := err == nil

		doc, err := recipe.ParseFile(filepath.Join(s.recipesDir, name))
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		id, err := RecipeID(name)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		id, err = s.ingestRecipe(ctx, id, name, doc.Recipe, modTime)
		if err != nil {
			s.log.Error("catalog ingest failed", "file", name, "error", err)
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%s)\n", name, id)
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%s)\n", name, id)
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	if summary.Indexed > 0 || summary.Updated > 0 {
		if _, err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

// ingestRecipe upserts r under path and returns the ID it was stored with:
// baseID, or baseID with a numeric suffix when another file already holds it.
func (s *Store) ingestRecipe(ctx context.Context, baseID, path string, r types.Recipe, modTime string) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding recipe: %w", err)
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := freeID(ctx, tx, baseID, path)
	if err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO recipes (id, path, title, ingredients, instructions, tags, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			id=excluded.id, title=excluded.title, ingredients=excluded.ingredients,
			instructions=excluded.instructions, tags=excluded.tags, data=excluded.data`,
		id, path, r.Title,
		strings.Join(r.Ingredients(), "\n"),
		strings.Join(r.Instructions, "\n"),
		string(tagsJSON), string(data),
	)
	if err != nil {
		return "", fmt.Errorf("upserting recipe: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (path, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		path, modTime,
	)
	if err != nil {
		return "", fmt.Errorf("updating indexing status: %w", err)
	}

	return id, tx.Commit()
}

// freeID returns the first of baseID, baseID-2, baseID-3, ... that is unused
// or already belongs to path.
func freeID(ctx context.Context, tx *sql.Tx, baseID, path string) (string, error) {
	for n := 1; ; n++ {
		id := baseID
		if n > 1 {
			id = fmt.Sprintf("%s-%d", baseID, n)
		}
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT path FROM recipes WHERE id = ?`, id).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && owner == path) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking id %s: %w", id, err)
		}
	}
}

// Prune removes recipes whose files no longer exist in the recipes
// directory and returns their IDs.
func (s *Store) Prune(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path FROM recipes`)
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}
	var gone [][2]string
	for rows.Next() {
		var id, path string
		if err := rows.Scan(&id, &path); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if _, err := os.Stat(filepath.Join(s.recipesDir, path)); errors.Is(err, os.ErrNotExist) {
			gone = append(gone, [2]string{id, path})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var ids []string
	for _, g := range gone {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM recipes WHERE path = ?`, g[1]); err != nil {
			return ids, fmt.Errorf("deleting %s: %w", g[0], err)
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM indexing_status WHERE path = ?`, g[1]); err != nil {
			return ids, fmt.Errorf("deleting status for %s: %w", g[0], err)
		}
		ids = append(ids, g[0])
	}
	sort.Strings(ids)
	return ids, nil
}

// RecipeID derives the base catalog ID from a recipe file name.
// "Spicy_Glazed_Meatballs.md" and "spicy glazed meatballs.md" derive the same
// one; Ingest stores whichever file arrives second as "spicy-glazed-meatballs-2".
func RecipeID(fileName string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	stem = strings.ReplaceAll(stem, "_", " ")
	id, err := slug.Normalize(stem)
	if err != nil {
		return "", fmt.Errorf("deriving id for %s: %w", fileName, err)
	}
	if id == "" {
		return "", fmt.Errorf("deriving id for %s: empty slug", fileName)
	}
	return id, nil
}
