// Package services contains server-side business logic: account operations
// and the place lifecycle, which keeps a place and its owner's place list in
// step inside one transaction.
package services

import (
	"context"

	"github.com/dmitrijs2005/shareplaces/internal/server/blobstore"
	"github.com/dmitrijs2005/shareplaces/internal/server/models"
	"github.com/google/uuid"
)

// Geocoder resolves an address; failures are common.ErrAddressNotFound.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (models.Location, error)
}

// BlobStore keeps uploaded images. Upload rejects invalid content with
// common.ErrBadUpload before any network call.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (*blobstore.Object, error)
	Delete(ctx context.Context, key string) error
}

// Image is an uploaded file as received from the client.
type Image struct {
	Data        []byte
	ContentType string
}

// validID reports whether id can name a stored record. Ids are UUIDs, so
// anything else cannot exist.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}
