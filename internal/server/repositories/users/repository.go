// Package users persists user accounts and each user's list of owned places.
package users

import (
	"context"

	"github.com/dmitrijs2005/shareplaces/internal/server/models"
)

// Repository is the user collection. Implementations return common.ErrNotFound
// for missing rows and common.ErrConflict when the email is already taken.
type Repository interface {
	Insert(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	AddPlace(ctx context.Context, userID, placeID string) error
	RemovePlace(ctx context.Context, userID, placeID string) error
}
