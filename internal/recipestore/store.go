package recipestore

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/makemyrecipe/makemyrecipe/internal/assistant"
	"github.com/makemyrecipe/makemyrecipe/internal/recipe"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a saved recipe does not exist.
var ErrNotFound = errors.New("recipe not found")

// Store persists user-saved recipes in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the recipes database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "recipes.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// Save persists a recipe for the user, replacing any previous copy with
// the same id.
func (s *Store) Save(userID string, r *recipe.Recipe) error {
	ingredients, err := json.Marshal(r.Ingredients)
	if err != nil {
		return fmt.Errorf("encoding ingredients: %w", err)
	}
	instructions, err := json.Marshal(r.Instructions)
	if err != nil {
		return fmt.Errorf("encoding instructions: %w", err)
	}
	dietary, err := json.Marshal(r.DietaryRestrictions)
	if err != nil {
		return fmt.Errorf("encoding dietary restrictions: %w", err)
	}
	sources, err := json.Marshal(r.AllCitations())
	if err != nil {
		return fmt.Errorf("encoding sources: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO saved_recipes
		(id, user_id, title, description, ingredients, instructions,
		 prep_time_minutes, cook_time_minutes, total_time_minutes, servings,
		 difficulty, cuisine, dietary_restrictions, calories, sources,
		 search_query, rating, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, userID, r.Title, r.Description, string(ingredients), string(instructions),
		r.PrepTimeMinutes, r.CookTimeMinutes, r.TotalTimeMinutes, r.Servings,
		string(r.Difficulty), string(r.Cuisine), string(dietary), r.Calories, string(sources),
		r.SearchQuery, r.Rating,
		r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

const recipeColumns = `id, title, description, ingredients, instructions,
	prep_time_minutes, cook_time_minutes, total_time_minutes, servings,
	difficulty, cuisine, dietary_restrictions, calories, sources,
	search_query, rating, created_at, updated_at`

// Get returns one saved recipe by id.
func (s *Store) Get(id string) (*recipe.Recipe, error) {
	row := s.db.QueryRow("SELECT "+recipeColumns+" FROM saved_recipes WHERE id = ?", id)
	r, err := scanRecipe(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return r, err
}

// ListByUser returns the user's saved recipes, most recently updated first.
func (s *Store) ListByUser(userID string) ([]*recipe.Recipe, error) {
	rows, err := s.db.Query(
		"SELECT "+recipeColumns+" FROM saved_recipes WHERE user_id = ? ORDER BY updated_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []*recipe.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}

// UpdateRating sets the rating of a saved recipe, clamped to [1.0, 5.0].
func (s *Store) UpdateRating(id string, rating float64) error {
	if rating < 1.0 {
		rating = 1.0
	}
	if rating > 5.0 {
		rating = 5.0
	}
	res, err := s.db.Exec(
		"UPDATE saved_recipes SET rating = ?, updated_at = ? WHERE id = ?",
		rating, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a saved recipe.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM saved_recipes WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row scanner) (*recipe.Recipe, error) {
	var r recipe.Recipe
	var ingredients, instructions, dietary, sources string
	var difficulty, cuisine string
	var createdAt, updatedAt string

	err := row.Scan(&r.ID, &r.Title, &r.Description, &ingredients, &instructions,
		&r.PrepTimeMinutes, &r.CookTimeMinutes, &r.TotalTimeMinutes, &r.Servings,
		&difficulty, &cuisine, &dietary, &r.Calories, &sources,
		&r.SearchQuery, &r.Rating, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(ingredients), &r.Ingredients); err != nil {
		return nil, fmt.Errorf("decoding ingredients: %w", err)
	}
	if err := json.Unmarshal([]byte(instructions), &r.Instructions); err != nil {
		return nil, fmt.Errorf("decoding instructions: %w", err)
	}
	if err := json.Unmarshal([]byte(dietary), &r.DietaryRestrictions); err != nil {
		return nil, fmt.Errorf("decoding dietary restrictions: %w", err)
	}
	var citations []assistant.Citation
	if err := json.Unmarshal([]byte(sources), &citations); err != nil {
		return nil, fmt.Errorf("decoding sources: %w", err)
	}
	if len(citations) > 0 {
		r.PrimarySource = &citations[0]
		r.AdditionalSources = citations[1:]
	}

	r.Difficulty = recipe.Difficulty(difficulty)
	r.Cuisine = recipe.Cuisine(cuisine)
	r.IsSaved = true
	if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &r, nil
}
