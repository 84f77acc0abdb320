package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/shareplaces/internal/common"
	"github.com/dmitrijs2005/shareplaces/internal/logging"
	"github.com/dmitrijs2005/shareplaces/internal/metrics"
	"github.com/dmitrijs2005/shareplaces/internal/server/blobstore"
	"github.com/dmitrijs2005/shareplaces/internal/server/config"
	"github.com/dmitrijs2005/shareplaces/internal/server/models"
	"github.com/dmitrijs2005/shareplaces/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shareplaces/internal/server/services"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "rest-test-secret"

type stubGeocoder struct {
	mu  sync.Mutex
	loc models.Location
	err error
}

func (g *stubGeocoder) Resolve(ctx context.Context, address string) (models.Location, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return models.Location{}, g.err
	}
	return g.loc, nil
}

type stubBlobs struct {
	mu      sync.Mutex
	n       int
	deleted []string
}

func (b *stubBlobs) Upload(ctx context.Context, data []byte, contentType string) (*blobstore.Object, error) {
	if err := blobstore.Validate(data, contentType); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n++
	key := fmt.Sprintf("images/rest/%d.png", b.n)
	return &blobstore.Object{URL: "https://bucket.s3.us-east-1.amazonaws.com/" + key, Key: key}, nil
}

func (b *stubBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, key)
	return nil
}

type harness struct {
	rm      *repomanager.InMemoryRepositoryManager
	geo     *stubGeocoder
	blobs   *stubBlobs
	handler http.Handler
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	cfg := &config.Config{
		HTTPAddr:       "127.0.0.1:0",
		SecretKey:      testSecret,
		TokenValidity:  time.Hour,
		PasswordCost:   bcrypt.MinCost,
		AllowedOrigins: []string{"*"},
	}
	for _, m := range mutate {
		m(cfg)
	}

	reg := prometheus.NewRegistry()
	met := metrics.NewWithRegistry(reg, reg)
	h := &harness{
		rm:    repomanager.NewInMemoryRepositoryManager(),
		geo:   &stubGeocoder{loc: models.Location{Lat: 40.7484405, Lng: -73.9856644}},
		blobs: &stubBlobs{},
	}
	us := services.NewUserService(h.rm, h.blobs, logging.Nop(), cfg)
	ps := services.NewPlaceService(h.rm, h.geo, h.blobs, logging.Nop(), met)
	h.handler = NewServer(cfg, logging.Nop(), us, ps, h.blobs, met).Routes()
	return h
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

type filePart struct {
	contentType string
	data        []byte
}

var pngPart = &filePart{contentType: "image/png", data: []byte("\x89PNG fake image")}

// multipartRequest builds a form with text fields and an optional image part.
func multipartRequest(t *testing.T, method, target, token string, fields map[string]string, img *filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if img != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="image"; filename="pic"`)
		hdr.Set("Content-Type", img.contentType)
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(img.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	return req
}

func jsonRequest(t *testing.T, method, target, token string, v any) *http.Request {
	t.Helper()
	var body io.Reader = http.NoBody
	if v != nil {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (h *harness) register(t *testing.T, name, email string) authJSON {
	t.Helper()
	rec := h.do(multipartRequest(t, http.MethodPost, "/api/users/register", "", map[string]string{
		"name": name, "email": email, "password": "secret1",
	}, pngPart))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authJSON](t, rec)
}

func (h *harness) createPlace(t *testing.T, token, title string) placeJSON {
	t.Helper()
	rec := h.do(multipartRequest(t, http.MethodPost, "/api/places", token, map[string]string{
		"title": title, "description": "12345", "address": "1 Main St",
	}, pngPart))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[struct {
		Place placeJSON `json:"place"`
	}](t, rec).Place
}
