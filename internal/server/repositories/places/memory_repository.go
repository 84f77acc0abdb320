package places

import (
	"context"
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

// Insert requires the creator to exist, mirroring the foreign key.
func (r *MemoryRepository) Insert(ctx context.Context, place *models.Place) (*models.Place, error) {
	var out models.Place
	err := memstore.View(r.db, func(st *memstore.State) error {
		if _, ok := st.Users[place.CreatorID]; !ok {
			return common.ErrNotFound
		}
		stored := *place
		stored.ID = uuid.NewString()
		stored.CreatedAt = time.Now().UTC()
		st.Places[stored.ID] = &stored
		st.Track(stored.ID)
		out = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*models.Place, error) {
	var out models.Place
	err := memstore.View(r.db, func(st *memstore.State) error {
		p, ok := st.Places[id]
		if !ok {
			return common.ErrNotFound
		}
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MemoryRepository) FindByIDWithCreator(ctx context.Context, id string) (*models.PlaceWithCreator, error) {
	out := &models.PlaceWithCreator{}
	err := memstore.View(r.db, func(st *memstore.State) error {
		p, ok := st.Places[id]
		if !ok {
			return common.ErrNotFound
		}
		u, ok := st.Users[p.CreatorID]
		if !ok {
			return common.ErrNotFound
		}
		out.Place = *p
		out.Creator = models.UserSummary{ID: u.ID, UserName: u.UserName, Email: u.Email, ImageURL: u.ImageURL}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MemoryRepository) FindByCreator(ctx context.Context, userID string) ([]*models.Place, error) {
	result := []*models.Place{}
	err := memstore.View(r.db, func(st *memstore.State) error {
		for _, p := range st.Places {
			if p.CreatorID == userID {
				c := *p
				result = append(result, &c)
			}
		}
		sort.Slice(result, func(i, j int) bool {
			return st.Order(result[i].ID) < st.Order(result[j].ID)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *MemoryRepository) UpdateFields(ctx context.Context, id string, upd models.PlaceUpdate) (*models.Place, error) {
	var out models.Place
	err := memstore.View(r.db, func(st *memstore.State) error {
		p, ok := st.Places[id]
		if !ok {
			return common.ErrNotFound
		}
		if upd.Title != nil {
			p.Title = *upd.Title
		}
		if upd.Description != nil {
			p.Description = *upd.Description
		}
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	return memstore.View(r.db, func(st *memstore.State) error {
		if _, ok := st.Places[id]; !ok {
			return common.ErrNotFound
		}
		delete(st.Places, id)
		st.Forget(id)
		return nil
	})
}
