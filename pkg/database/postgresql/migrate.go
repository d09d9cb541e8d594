package postgresql

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// Migrate applies the embedded schema migrations through goose.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return RunMigrations(ctx, pool, "up")
}

// RunMigrations выполняет команду goose: up, down, status или reset.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, command string) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	var run func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error
	switch command {
	case "up":
		run = goose.UpContext
	case "down":
		run = goose.DownContext
	case "status":
		run = goose.StatusContext
	case "reset":
		run = goose.ResetContext
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}

	if err := run(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("migrations %s: %w", command, err)
	}
	return nil
}
