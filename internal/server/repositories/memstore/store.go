// Package memstore is an in-memory backing store for the repositories. It
// honours the same transaction contract as PostgreSQL: work done inside
// RunInTx is invisible to other callers until commit and is discarded
// entirely when the unit of work or the commit fails.
//
// Transactions are serialised by a single mutex. It is meant for tests and
// local development, never for production state.
package memstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/shareplaces/internal/dbx"
	"github.com/dmitrijs2005/shareplaces/internal/server/models"
)

// ErrForeignHandle is returned when a repository is bound to a handle that
// does not belong to a Store.
var ErrForeignHandle = errors.New("memstore: handle does not belong to an in-memory store")

// ErrNotSQL is returned by the dbx.DBTX methods of a memstore handle.
var ErrNotSQL = errors.New("memstore: handle does not execute SQL")

// State is one consistent snapshot of all collections.
type State struct {
	Users  map[string]*models.User
	Places map[string]*models.Place

	order map[string]int64
	next  int64
}

func newState() *State {
	return &State{
		Users:  map[string]*models.User{},
		Places: map[string]*models.Place{},
		order:  map[string]int64{},
	}
}

// Track records placeID as the most recently inserted place.
func (s *State) Track(placeID string) {
	s.next++
	s.order[placeID] = s.next
}

// Forget drops the insertion order of a deleted place.
func (s *State) Forget(placeID string) {
	delete(s.order, placeID)
}

// Order returns the insertion rank of a place; lower is older.
func (s *State) Order(placeID string) int64 {
	return s.order[placeID]
}

func (s *State) clone() *State {
	c := newState()
	for id, u := range s.Users {
		cu := *u
		cu.PlaceIDs = append([]string(nil), u.PlaceIDs...)
		c.Users[id] = &cu
	}
	for id, p := range s.Places {
		cp := *p
		c.Places[id] = &cp
	}
	for id, o := range s.order {
		c.order[id] = o
	}
	c.next = s.next
	return c
}

// Store owns the committed state.
type Store struct {
	mu         sync.Mutex
	state      *State
	commitHook func() error
}

func New() *Store {
	return &Store{state: newState()}
}

// Conn returns an auto-commit handle: each repository call is applied to the
// committed state on its own.
func (s *Store) Conn() dbx.DBTX {
	return &handle{store: s}
}

// RunInTx runs fn against a private copy of the state and publishes the copy
// only if fn and the commit both succeed.
//
// fn must only use the handle it is given; calling an auto-commit handle of
// the same store from inside fn deadlocks.
func (s *Store) RunInTx(ctx context.Context, fn dbx.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &handle{store: s, tx: work}); err != nil {
		return err
	}
	if s.commitHook != nil {
		if err := s.commitHook(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
	}
	s.state = work
	return nil
}

// FailCommits makes every following commit fail with err. A nil err restores
// normal commits.
func (s *Store) FailCommits(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		s.commitHook = nil
		return
	}
	s.commitHook = func() error { return err }
}

// View runs fn against the state visible through db: the transaction's copy
// for a transactional handle, the committed state otherwise.
func View(db dbx.DBTX, fn func(st *State) error) error {
	h, ok := db.(*handle)
	if !ok {
		return ErrForeignHandle
	}
	if h.tx != nil {
		return fn(h.tx)
	}

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return fn(h.store.state)
}

type handle struct {
	store *Store
	tx    *State
}

func (h *handle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, ErrNotSQL
}

func (h *handle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, ErrNotSQL
}

// QueryRowContext panics with ErrNotSQL: a *sql.Row carrying an error can
// only be built by database/sql, so there is nothing safe to return. Only a
// SQL repository bound to a memstore handle by mistake gets here.
func (h *handle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	panic(ErrNotSQL)
}
