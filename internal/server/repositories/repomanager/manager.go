package repomanager

import (
	"context"

	"github.com/dmitrijs2005/shareplaces/internal/dbx"
	"github.com/dmitrijs2005/shareplaces/internal/server/repositories/places"
	"github.com/dmitrijs2005/shareplaces/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a handle and runs units of
// work spanning both collections.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	// Conn is the auto-commit handle for single-collection reads and writes.
	Conn() dbx.DBTX
	Users(db dbx.DBTX) users.Repository
	Places(db dbx.DBTX) places.Repository
	// RunInTx commits every write made through the handle passed to fn, or
	// none of them.
	RunInTx(ctx context.Context, fn dbx.TxFunc) error
}
