package account

import (
	"context"
	"embed"
	"io/fs"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// MigrationsFor returns the migrations of a dialect, "sqlite" or "postgres"
func MigrationsFor(name string) (fs.FS, error) {
	switch name {
	case "sqlite", "postgres":
		return fs.Sub(migrationsFS, "data/sql/migrations/"+name)
	}
	return nil, goerrors.New("unsupported migration dialect", goerrors.CategoryBadInput).
		WithMetadata(map[string]any{"dialect": name})
}

func dialectMigrationsName(db *bun.DB) string {
	if db.Dialect().Name() == dialect.PG {
		return "postgres"
	}
	return "sqlite"
}

// NewMigrator returns a bun migrator loaded with the migrations matching
// the dialect of db
func NewMigrator(db *bun.DB) (*migrate.Migrator, error) {
	fsys, err := MigrationsFor(dialectMigrationsName(db))
	if err != nil {
		return nil, err
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(fsys); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load migrations")
	}
	return migrate.NewMigrator(db, migrations), nil
}

// Migrate applies every pending migration and returns the applied group
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator, err := NewMigrator(db)
	if err != nil {
		return nil, err
	}
	if err := migrator.Init(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize migrations")
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply migrations")
	}
	return group, nil
}

// Rollback reverts the last applied migration group
func Rollback(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator, err := NewMigrator(db)
	if err != nil {
		return nil, err
	}
	if err := migrator.Init(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize migrations")
	}
	group, err := migrator.Rollback(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to roll back migrations")
	}
	return group, nil
}
