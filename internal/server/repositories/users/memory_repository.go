package users

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/dmitrijs2005/shareplaces/internal/common"
	"github.com/dmitrijs2005/shareplaces/internal/dbx"
	"github.com/dmitrijs2005/shareplaces/internal/server/models"
	"github.com/dmitrijs2005/shareplaces/internal/server/repositories/memstore"
	"github.com/google/uuid"
)

// MemoryRepository implements Repository on a memstore handle.
type MemoryRepository struct {
	db dbx.DBTX
}

func NewMemoryRepository(db dbx.DBTX) *MemoryRepository {
	return &MemoryRepository{db: db}
}

func (r *MemoryRepository) Insert(ctx context.Context, user *models.User) (*models.User, error) {
	var out *models.User
	err := memstore.View(r.db, func(st *memstore.State) error {
		for _, u := range st.Users {
			if u.Email == user.Email {
				return common.ErrConflict
			}
		}
		stored := *user
		stored.ID = uuid.NewString()
		stored.CreatedAt = time.Now().UTC()
		stored.PlaceIDs = append([]string{}, user.PlaceIDs...)
		st.Users[stored.ID] = &stored
		out = copyUser(&stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *MemoryRepository) List(ctx context.Context) ([]*models.User, error) {
	result := []*models.User{}
	err := memstore.View(r.db, func(st *memstore.State) error {
		for _, u := range st.Users {
			result = append(result, copyUser(u))
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, err
}

func (r *MemoryRepository) AddPlace(ctx context.Context, userID, placeID string) error {
	return memstore.View(r.db, func(st *memstore.State) error {
		u, ok := st.Users[userID]
		if !ok {
			return common.ErrNotFound
		}
		u.PlaceIDs = append(u.PlaceIDs, placeID)
		return nil
	})
}

func (r *MemoryRepository) RemovePlace(ctx context.Context, userID, placeID string) error {
	return memstore.View(r.db, func(st *memstore.State) error {
		u, ok := st.Users[userID]
		if !ok {
			return common.ErrNotFound
		}
		u.PlaceIDs = slices.DeleteFunc(u.PlaceIDs, func(id string) bool { return id == placeID })
		return nil
	})
}

func (r *MemoryRepository) find(match func(*models.User) bool) (*models.User, error) {
	var out *models.User
	err := memstore.View(r.db, func(st *memstore.State) error {
		for _, u := range st.Users {
			if match(u) {
				out = copyUser(u)
				return nil
			}
		}
		return common.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.PlaceIDs = append([]string{}, u.PlaceIDs...)
	return &c
}
