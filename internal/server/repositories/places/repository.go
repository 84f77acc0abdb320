// Package places persists place records.
package places

import (
	"context"

	"github.com/dmitrijs2005/shareplaces/internal/server/models"
)

// Repository is the place collection. Missing rows yield common.ErrNotFound;
// an empty FindByCreator result is not an error.
type Repository interface {
	Insert(ctx context.Context, place *models.Place) (*models.Place, error)
	FindByID(ctx context.Context, id string) (*models.Place, error)
	// FindByIDWithCreator loads the place joined with its owner.
	FindByIDWithCreator(ctx context.Context, id string) (*models.PlaceWithCreator, error)
	FindByCreator(ctx context.Context, userID string) ([]*models.Place, error)
	UpdateFields(ctx context.Context, id string, upd models.PlaceUpdate) (*models.Place, error)
	Delete(ctx context.Context, id string) error
}
