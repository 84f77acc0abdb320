// Package repomanager provides RepositoryManager implementations for
// PostgreSQL and for an in-memory store, wiring together repository
// constructors, transactions and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/shareplaces/internal/dbx"
	"github.com/dmitrijs2005/shareplaces/internal/server/migrations"
	"github.com/dmitrijs2005/shareplaces/internal/server/repositories/places"
	"github.com/dmitrijs2005/shareplaces/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations.
type PostgresRepositoryManager struct {
	db *sql.DB
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db}
}

func (m *PostgresRepositoryManager) Conn() dbx.DBTX {
	return m.db
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// Places returns a places.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Places(db dbx.DBTX) places.Repository {
	return places.NewPostgresRepository(db)
}

// RunInTx runs fn inside a database transaction.
func (m *PostgresRepositoryManager) RunInTx(ctx context.Context, fn dbx.TxFunc) error {
	return dbx.WithTx(ctx, m.db, nil, fn)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db, ".")
}
