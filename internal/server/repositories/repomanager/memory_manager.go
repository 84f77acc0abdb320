package repomanager

import (
	"context"

	"github.com/dmitrijs2005/shareplaces/internal/dbx"
	"github.com/dmitrijs2005/shareplaces/internal/server/repositories/memstore"
	"github.com/dmitrijs2005/shareplaces/internal/server/repositories/places"
	"github.com/dmitrijs2005/shareplaces/internal/server/repositories/users"
)

// InMemoryRepositoryManager keeps all data in process memory.
type InMemoryRepositoryManager struct {
	store *memstore.Store
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{store: memstore.New()}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Conn() dbx.DBTX {
	return m.store.Conn()
}

func (m *InMemoryRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewMemoryRepository(db)
}

func (m *InMemoryRepositoryManager) Places(db dbx.DBTX) places.Repository {
	return places.NewMemoryRepository(db)
}

func (m *InMemoryRepositoryManager) RunInTx(ctx context.Context, fn dbx.TxFunc) error {
	return m.store.RunInTx(ctx, fn)
}

// FailCommits makes following transactions fail at commit; nil restores them.
func (m *InMemoryRepositoryManager) FailCommits(err error) {
	m.store.FailCommits(err)
}
