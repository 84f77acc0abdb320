package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/shareplaces/internal/common"
	"github.com/dmitrijs2005/shareplaces/internal/server/services"
)

const (
	imageField = "image"
	// formOverhead is the room left for text fields and multipart framing.
	formOverhead = 1 << 20
	maxFormBytes = common.MaxImageBytes + formOverhead
)

// parseMultipart reads a multipart body of bounded size. The caller must
// call cleanup when done.
func parseMultipart(w http.ResponseWriter, r *http.Request) (cleanup func(), err error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", common.ErrBadUpload, maxFormBytes)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return func() { _ = r.MultipartForm.RemoveAll() }, nil
}

// formImage returns the uploaded image, or nil when the field is absent.
// Reading stops one byte past the limit so oversized files are detectable
// without buffering them whole.
func formImage(r *http.Request) (*services.Image, error) {
	f, hdr, err := r.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", common.ErrBadUpload, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, common.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrBadUpload, err)
	}
	return &services.Image{Data: data, ContentType: hdr.Header.Get("Content-Type")}, nil
}
