package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/shareplaces/internal/common"
	"github.com/dmitrijs2005/shareplaces/internal/dbx"
	"github.com/dmitrijs2005/shareplaces/internal/logging"
	"github.com/dmitrijs2005/shareplaces/internal/metrics"
	"github.com/dmitrijs2005/shareplaces/internal/server/models"
	"github.com/dmitrijs2005/shareplaces/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shareplaces/internal/validation"
)

// Operation names used for metrics and logs.
const (
	OpCreate = "create"
	OpEdit   = "edit"
	OpDelete = "delete"
)

// CreatePlaceInput is a new place as submitted by its creator.
type CreatePlaceInput struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required,min=5"`
	Address     string `json:"address" validate:"required"`
	Image       *Image `json:"image" validate:"required"`
}

// EditPlaceInput changes title and/or description; nil means unchanged.
type EditPlaceInput struct {
	Title       *string `json:"title" validate:"omitnil,min=1"`
	Description *string `json:"description" validate:"omitnil,min=5"`
}

type PlaceService struct {
	repomanager repomanager.RepositoryManager
	geocoder    Geocoder
	blobs       BlobStore
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func NewPlaceService(m repomanager.RepositoryManager, geocoder Geocoder, blobs BlobStore,
	logger logging.Logger, met *metrics.Metrics) *PlaceService {
	return &PlaceService{
		repomanager: m,
		geocoder:    geocoder,
		blobs:       blobs,
		logger:      logger,
		metrics:     met,
	}
}

// GetPlace returns one place.
func (s *PlaceService) GetPlace(ctx context.Context, placeID string) (*models.Place, error) {
	if !validID(placeID) {
		return nil, common.ErrNotFound
	}
	p, err := s.repomanager.Places(s.repomanager.Conn()).FindByID(ctx, placeID)
	if err != nil {
		return nil, storageErr("find place", err)
	}
	return p, nil
}

// ListPlacesByUser returns the places of userID, oldest first. The user must
// exist; an empty list is a valid result.
func (s *PlaceService) ListPlacesByUser(ctx context.Context, userID string) ([]*models.Place, error) {
	if !validID(userID) {
		return nil, common.ErrNotFound
	}
	db := s.repomanager.Conn()
	if _, err := s.repomanager.Users(db).FindByID(ctx, userID); err != nil {
		return nil, storageErr("find user", err)
	}
	places, err := s.repomanager.Places(db).FindByCreator(ctx, userID)
	if err != nil {
		return nil, storageErr("list places", err)
	}
	return places, nil
}

// CreatePlace geocodes the address, stores the image and then inserts the
// place and links it to its creator in one transaction. If the transaction
// fails the uploaded image is left behind and logged.
func (s *PlaceService) CreatePlace(ctx context.Context, creatorID string, in CreatePlaceInput) (place *models.Place, err error) {
	defer func() { s.metrics.PlaceOp(OpCreate, err) }()

	in.Title = strings.TrimSpace(in.Title)
	in.Address = strings.TrimSpace(in.Address)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if !validID(creatorID) {
		return nil, fmt.Errorf("%w: unknown creator", common.ErrForbidden)
	}
	if _, err := s.repomanager.Users(s.repomanager.Conn()).FindByID(ctx, creatorID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown creator", common.ErrForbidden)
		}
		return nil, storageErr("find creator", err)
	}

	loc, err := s.geocoder.Resolve(ctx, in.Address)
	if err != nil {
		return nil, err
	}

	img, err := s.blobs.Upload(ctx, in.Image.Data, in.Image.ContentType)
	if err != nil {
		if errors.Is(err, common.ErrBadUpload) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: upload image: %v", common.ErrInternal, err)
	}

	err = s.repomanager.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		p, err := s.repomanager.Places(tx).Insert(ctx, &models.Place{
			Title:       in.Title,
			Description: in.Description,
			Address:     in.Address,
			Location:    loc,
			ImageURL:    img.URL,
			ImageKey:    img.Key,
			CreatorID:   creatorID,
		})
		if err != nil {
			return err
		}
		if err := s.repomanager.Users(tx).AddPlace(ctx, creatorID, p.ID); err != nil {
			return err
		}
		place = p
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "create place transaction failed; uploaded image left behind",
			"creator_id", creatorID, "image_key", img.Key, "error", err)
		return nil, fmt.Errorf("%w: create place: %v", common.ErrInternal, err)
	}

	return place, nil
}

// EditPlace updates title and/or description of a place owned by
// requesterID. Ownership is checked before the fields.
func (s *PlaceService) EditPlace(ctx context.Context, requesterID, placeID string, in EditPlaceInput) (place *models.Place, err error) {
	defer func() { s.metrics.PlaceOp(OpEdit, err) }()

	current, err := s.loadOwned(ctx, requesterID, placeID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	upd := models.PlaceUpdate{Title: in.Title, Description: in.Description}
	if upd.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", common.ErrValidation)
	}

	place, err = s.repomanager.Places(s.repomanager.Conn()).UpdateFields(ctx, current.Place.ID, upd)
	if err != nil {
		return nil, storageErr("update place", err)
	}
	return place, nil
}

// DeletePlace removes a place owned by requesterID and unlinks it from its
// owner in one transaction. The image is deleted after commit; a failure
// there is logged and counted but not returned.
func (s *PlaceService) DeletePlace(ctx context.Context, requesterID, placeID string) (err error) {
	defer func() { s.metrics.PlaceOp(OpDelete, err) }()

	current, err := s.loadOwned(ctx, requesterID, placeID)
	if err != nil {
		return err
	}
	p := current.Place

	err = s.repomanager.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Places(tx).Delete(ctx, p.ID); err != nil {
			return err
		}
		return s.repomanager.Users(tx).RemovePlace(ctx, p.CreatorID, p.ID)
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		s.logger.Error(ctx, "delete place transaction failed", "place_id", p.ID, "error", err)
		return fmt.Errorf("%w: delete place: %v", common.ErrInternal, err)
	}

	if p.ImageKey != "" {
		if err := s.blobs.Delete(ctx, p.ImageKey); err != nil {
			s.metrics.BlobCleanupFailed()
			s.logger.Warn(ctx, "failed to delete place image", "place_id", p.ID, "image_key", p.ImageKey, "error", err)
		}
	}
	return nil
}

// loadOwned loads the place with its creator and checks requesterID owns it.
func (s *PlaceService) loadOwned(ctx context.Context, requesterID, placeID string) (*models.PlaceWithCreator, error) {
	if !validID(placeID) {
		return nil, common.ErrNotFound
	}
	v, err := s.repomanager.Places(s.repomanager.Conn()).FindByIDWithCreator(ctx, placeID)
	if err != nil {
		return nil, storageErr("find place", err)
	}
	if v.Creator.ID != requesterID {
		return nil, fmt.Errorf("%w: place %s belongs to another user", common.ErrForbidden, placeID)
	}
	return v, nil
}

// storageErr keeps ErrNotFound and hides everything else behind ErrInternal.
func storageErr(op string, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", common.ErrInternal, op, err)
}
