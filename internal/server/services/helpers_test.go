package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/shareplaces/internal/logging"
	"github.com/dmitrijs2005/shareplaces/internal/metrics"
	"github.com/dmitrijs2005/shareplaces/internal/server/blobstore"
	"github.com/dmitrijs2005/shareplaces/internal/server/config"
	"github.com/dmitrijs2005/shareplaces/internal/server/models"
	"github.com/dmitrijs2005/shareplaces/internal/server/repositories/repomanager"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type fakeGeocoder struct {
	mu    sync.Mutex
	calls int
	loc   models.Location
	err   error
}

func (f *fakeGeocoder) Resolve(ctx context.Context, address string) (models.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.Location{}, f.err
	}
	return f.loc, nil
}

type fakeBlobs struct {
	mu        sync.Mutex
	n         int
	uploads   []string
	deletes   []string
	uploadErr error
	deleteErr error
}

func (f *fakeBlobs) Upload(ctx context.Context, data []byte, contentType string) (*blobstore.Object, error) {
	if err := blobstore.Validate(data, contentType); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.n++
	key := fmt.Sprintf("images/test/%d.png", f.n)
	f.uploads = append(f.uploads, key)
	return &blobstore.Object{URL: "https://bucket.s3.region.amazonaws.com/" + key, Key: key}, nil
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	return f.deleteErr
}

type env struct {
	cfg     *config.Config
	rm      *repomanager.InMemoryRepositoryManager
	geo     *fakeGeocoder
	blobs   *fakeBlobs
	metrics *metrics.Metrics
	reg     *prometheus.Registry
	users   *UserService
	places  *PlaceService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := &config.Config{
		SecretKey:     testSecret,
		TokenValidity: time.Hour,
		PasswordCost:  bcrypt.MinCost,
	}
	reg := prometheus.NewRegistry()
	e := &env{
		cfg:     cfg,
		rm:      repomanager.NewInMemoryRepositoryManager(),
		geo:     &fakeGeocoder{loc: models.Location{Lat: 40.7484405, Lng: -73.9856644}},
		blobs:   &fakeBlobs{},
		metrics: metrics.NewWithRegistry(reg, reg),
		reg:     reg,
	}
	e.users = NewUserService(e.rm, e.blobs, logging.Nop(), cfg)
	e.places = NewPlaceService(e.rm, e.geo, e.blobs, logging.Nop(), e.metrics)
	return e
}

func png() *Image {
	return &Image{Data: []byte("\x89PNG fake"), ContentType: "image/png"}
}

func (e *env) register(t *testing.T, name, email string) *AuthResult {
	t.Helper()
	res, err := e.users.Register(context.Background(), RegisterInput{
		Name: name, Email: email, Password: "secret1", Image: png(),
	})
	require.NoError(t, err)
	return res
}

func (e *env) createPlace(t *testing.T, creatorID, title string) *models.Place {
	t.Helper()
	p, err := e.places.CreatePlace(context.Background(), creatorID, CreatePlaceInput{
		Title: title, Description: "A fine place", Address: "1 Main St", Image: png(),
	})
	require.NoError(t, err)
	return p
}

func (e *env) placeIDsOf(t *testing.T, userID string) []string {
	t.Helper()
	u, err := e.rm.Users(e.rm.Conn()).FindByID(context.Background(), userID)
	require.NoError(t, err)
	return u.PlaceIDs
}

var errStore = errors.New("simulated store failure")

// counterValue reads a counter from the registry; labels must all match.
func (e *env) counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := e.reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched == len(labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
