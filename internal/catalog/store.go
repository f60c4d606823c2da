package catalog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// OpenDB opens a SQLite database, sets recommended pragmas, and validates connectivity.
func OpenDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if strings.Contains(path, ":memory:") {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, `
		PRAGMA journal_mode = WAL;
		PRAGMA foreign_keys = ON;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set sqlite pragmas: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}
	return nil
}

// Store reads and writes catalog rows in SQLite.
type Store struct {
	DB *sql.DB
}

// Load builds a Catalog from the active rows. NULL densities or prices are kept as
// incomplete entries so lookups report them as configuration problems.
func (s Store) Load(ctx context.Context) (*Catalog, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("catalog store: database not configured")
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT name, density_g_per_cm3, price_per_kg
		FROM materials
		WHERE active = TRUE
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			name    string
			density sql.NullFloat64
			price   sql.NullFloat64
		)
		if err := rows.Scan(&name, &density, &price); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		entries = append(entries, Entry{Name: name, DensityGPerCm3: density.Float64, PricePerKg: price.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}
	return New(entries), nil
}

// Upsert inserts or replaces a material. Non-positive values are stored as NULL.
func (s Store) Upsert(ctx context.Context, e Entry) error {
	if s.DB == nil {
		return fmt.Errorf("catalog store: database not configured")
	}
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return fmt.Errorf("catalog store: material name is required")
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO materials (name, density_g_per_cm3, price_per_kg, active, updated_at)
		VALUES (?, ?, ?, TRUE, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE SET
			density_g_per_cm3 = excluded.density_g_per_cm3,
			price_per_kg = excluded.price_per_kg,
			active = TRUE,
			updated_at = CURRENT_TIMESTAMP
	`, name, nullablePositive(e.DensityGPerCm3), nullablePositive(e.PricePerKg))
	if err != nil {
		return fmt.Errorf("upsert material %q: %w", name, err)
	}
	return nil
}

// Deactivate hides a material from future loads.
func (s Store) Deactivate(ctx context.Context, name string) error {
	if s.DB == nil {
		return fmt.Errorf("catalog store: database not configured")
	}
	if _, err := s.DB.ExecContext(ctx, `UPDATE materials SET active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE name = ?`, strings.TrimSpace(name)); err != nil {
		return fmt.Errorf("deactivate material %q: %w", name, err)
	}
	return nil
}

func nullablePositive(v float64) sql.NullFloat64 {
	if v <= 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
