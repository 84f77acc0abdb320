package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/shareplaces/internal/common"
	"github.com/dmitrijs2005/shareplaces/internal/logging"
	"github.com/dmitrijs2005/shareplaces/internal/server/auth"
	"github.com/dmitrijs2005/shareplaces/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type placeEnvelope struct {
	Place placeJSON `json:"place"`
}

type placesEnvelope struct {
	Places []placeJSON `json:"places"`
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec := h.do(jsonRequest(t, http.MethodGet, "/health", "", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newHarness(t)

	rec := h.do(jsonRequest(t, http.MethodGet, "/api/nowhere", "", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, msgNoRoute, decode[errorResponse](t, rec).Message)

	rec = h.do(jsonRequest(t, http.MethodPut, "/health", "", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, msgNoMethod, decode[errorResponse](t, rec).Message)
}

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)
	reg := h.register(t, "Alice", "a@x.com")
	assert.NotEmpty(t, reg.UserID)
	assert.Equal(t, "a@x.com", reg.Email)

	t.Run("duplicate email", func(t *testing.T) {
		rec := h.do(multipartRequest(t, http.MethodPost, "/api/users/register", "", map[string]string{
			"name": "Other", "email": "A@x.com", "password": "secret1",
		}, pngPart))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, msgEmailTaken, decode[errorResponse](t, rec).Message)
	})

	t.Run("field errors", func(t *testing.T) {
		rec := h.do(multipartRequest(t, http.MethodPost, "/api/users/register", "", map[string]string{
			"name": "Bob", "email": "not-an-email", "password": "123",
		}, pngPart))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decode[errorResponse](t, rec)
		assert.Equal(t, msgInvalidInput, resp.Message)

		fields := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			fields = append(fields, e.Field)
		}
		assert.ElementsMatch(t, []string{"email", "password"}, fields)
	})

	t.Run("login ok", func(t *testing.T) {
		rec := h.do(jsonRequest(t, http.MethodPost, "/api/users/login", "", map[string]string{
			"email": "a@x.com", "password": "secret1",
		}))
		require.Equal(t, http.StatusOK, rec.Code)
		res := decode[authJSON](t, rec)
		assert.Equal(t, reg.UserID, res.UserID)
		assert.NotEqual(t, reg.Token, res.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := h.do(jsonRequest(t, http.MethodPost, "/api/users/login", "", map[string]string{
			"email": "a@x.com", "password": "nope123",
		}))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, msgBadCredentials, decode[errorResponse](t, rec).Message)
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := h.do(jsonRequest(t, http.MethodPost, "/api/users/login", "", map[string]string{
			"email": "ghost@x.com", "password": "secret1",
		}))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/users/login", "", nil)
		req.Body = http.NoBody
		rec := h.do(req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestListUsers_NoPasswords(t *testing.T) {
	h := newHarness(t)
	a := h.register(t, "Alice", "a@x.com")
	p := h.createPlace(t, a.Token, "T")

	rec := h.do(jsonRequest(t, http.MethodGet, "/api/users", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "password")

	raw := decode[struct {
		Users []map[string]any `json:"users"`
	}](t, rec).Users
	require.Len(t, raw, 1)
	assert.Equal(t, "Alice", raw[0]["username"])
	assert.Equal(t, "a@x.com", raw[0]["email"])
	assert.Contains(t, raw[0], "id")
	assert.Contains(t, raw[0], "image")
	assert.NotContains(t, raw[0], "name")
	assert.Equal(t, []any{p.ID}, raw[0]["places"])
}

func TestAuthGate(t *testing.T) {
	h := newHarness(t)
	a := h.register(t, "Alice", "a@x.com")

	expired, err := auth.GenerateToken(a.UserID, a.Email, []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	foreign, err := auth.GenerateToken(a.UserID, a.Email, []byte("other-secret"), time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic " + a.Token},
		{"bearer without token", "Bearer "},
		{"expired", "Bearer " + expired},
		{"wrong secret", "Bearer " + foreign},
		{"garbage", "Bearer abc.def.ghi"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := multipartRequest(t, http.MethodPost, "/api/places", "", map[string]string{
				"title": "T", "description": "12345", "address": "1 Main St",
			}, pngPart)
			if tc.header != "" {
				req.Header.Set(common.AuthorizationHeaderName, tc.header)
			}
			rec := h.do(req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, msgAuthFailed, decode[errorResponse](t, rec).Message)
		})
	}

	t.Run("lowercase scheme accepted", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPost, "/api/places", "", map[string]string{
			"title": "T", "description": "12345", "address": "1 Main St",
		}, pngPart)
		req.Header.Set(common.AuthorizationHeaderName, "bearer "+a.Token)
		assert.Equal(t, http.StatusCreated, h.do(req).Code)
	})

	t.Run("reads stay open", func(t *testing.T) {
		rec := h.do(jsonRequest(t, http.MethodGet, "/api/places/user/"+a.UserID, "", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestPreflightPassesGate(t *testing.T) {
	h := newHarness(t)
	req := jsonRequest(t, http.MethodOptions, "/api/places", "", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	rec := h.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPlaceLifecycle(t *testing.T) {
	h := newHarness(t)
	a := h.register(t, "Alice", "a@x.com")
	b := h.register(t, "Bob", "b@x.com")

	p := h.createPlace(t, a.Token, "Empire State")
	assert.Equal(t, a.UserID, p.Creator)
	assert.InDelta(t, 40.7484405, p.Location.Lat, 1e-9)
	assert.NotEmpty(t, p.Image)

	t.Run("get", func(t *testing.T) {
		rec := h.do(jsonRequest(t, http.MethodGet, "/api/places/"+p.ID, "", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, p, decode[placeEnvelope](t, rec).Place)
	})

	t.Run("list by owner", func(t *testing.T) {
		rec := h.do(jsonRequest(t, http.MethodGet, "/api/places/user/"+a.UserID, "", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[placesEnvelope](t, rec).Places
		require.Len(t, got, 1)
		assert.Equal(t, p.ID, got[0].ID)
	})

	t.Run("list empty", func(t *testing.T) {
		rec := h.do(jsonRequest(t, http.MethodGet, "/api/places/user/"+b.UserID, "", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"places":[]}`, rec.Body.String())
	})

	t.Run("edit by stranger", func(t *testing.T) {
		rec := h.do(jsonRequest(t, http.MethodPatch, "/api/places/"+p.ID, b.Token, map[string]string{"title": ""}))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("edit invalid", func(t *testing.T) {
		rec := h.do(jsonRequest(t, http.MethodPatch, "/api/places/"+p.ID, a.Token, map[string]string{"description": "abc"}))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("edit", func(t *testing.T) {
		rec := h.do(jsonRequest(t, http.MethodPatch, "/api/places/"+p.ID, a.Token, map[string]string{"title": "ESB"}))
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[placeEnvelope](t, rec).Place
		assert.Equal(t, "ESB", got.Title)
		assert.Equal(t, p.Description, got.Description)
	})

	t.Run("delete by stranger", func(t *testing.T) {
		rec := h.do(jsonRequest(t, http.MethodDelete, "/api/places/"+p.ID, b.Token, nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := h.do(jsonRequest(t, http.MethodDelete, "/api/places/"+p.ID, a.Token, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Deleted place."}`, rec.Body.String())

		rec = h.do(jsonRequest(t, http.MethodGet, "/api/places/"+p.ID, "", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = h.do(jsonRequest(t, http.MethodDelete, "/api/places/"+p.ID, a.Token, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCreatePlace_Failures(t *testing.T) {
	t.Run("unknown address", func(t *testing.T) {
		h := newHarness(t)
		a := h.register(t, "Alice", "a@x.com")
		h.geo.err = common.ErrAddressNotFound

		rec := h.do(multipartRequest(t, http.MethodPost, "/api/places", a.Token, map[string]string{
			"title": "T", "description": "12345", "address": "nowhere",
		}, pngPart))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, msgNoAddress, decode[errorResponse](t, rec).Message)
	})

	t.Run("bad upload", func(t *testing.T) {
		h := newHarness(t)
		a := h.register(t, "Alice", "a@x.com")

		rec := h.do(multipartRequest(t, http.MethodPost, "/api/places", a.Token, map[string]string{
			"title": "T", "description": "12345", "address": "1 Main St",
		}, &filePart{contentType: "image/gif", data: []byte("GIF89a")}))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, msgBadUpload, decode[errorResponse](t, rec).Message)
	})

	t.Run("oversized image", func(t *testing.T) {
		h := newHarness(t)
		a := h.register(t, "Alice", "a@x.com")

		big := make([]byte, common.MaxImageBytes+1)
		rec := h.do(multipartRequest(t, http.MethodPost, "/api/places", a.Token, map[string]string{
			"title": "T", "description": "12345", "address": "1 Main St",
		}, &filePart{contentType: "image/png", data: big}))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("missing image", func(t *testing.T) {
		h := newHarness(t)
		a := h.register(t, "Alice", "a@x.com")

		rec := h.do(multipartRequest(t, http.MethodPost, "/api/places", a.Token, map[string]string{
			"title": "T", "description": "12345", "address": "1 Main St",
		}, nil))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "image", decode[errorResponse](t, rec).Errors[0].Field)
	})

	t.Run("token for deleted creator", func(t *testing.T) {
		h := newHarness(t)
		ghost, err := auth.GenerateToken("7d0c1f4e-3b9a-4c55-9b2e-1f6a8d9e0c11", "g@x.com", []byte(testSecret), time.Hour)
		require.NoError(t, err)

		rec := h.do(multipartRequest(t, http.MethodPost, "/api/places", ghost, map[string]string{
			"title": "T", "description": "12345", "address": "1 Main St",
		}, pngPart))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("commit failure hides details", func(t *testing.T) {
		h := newHarness(t)
		a := h.register(t, "Alice", "a@x.com")
		h.rm.FailCommits(errors.New("replica set unavailable"))

		rec := h.do(multipartRequest(t, http.MethodPost, "/api/places", a.Token, map[string]string{
			"title": "T", "description": "12345", "address": "1 Main St",
		}, pngPart))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, msgInternal, decode[errorResponse](t, rec).Message)
		assert.NotContains(t, rec.Body.String(), "replica")

		h.rm.FailCommits(nil)
		rec = h.do(jsonRequest(t, http.MethodGet, "/api/places/user/"+a.UserID, "", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[placesEnvelope](t, rec).Places)
	})
}

func TestFileUpload(t *testing.T) {
	h := newHarness(t)
	a := h.register(t, "Alice", "a@x.com")

	rec := h.do(multipartRequest(t, http.MethodPost, "/api/files/file-upload", a.Token, nil, pngPart))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	url := decode[map[string]string](t, rec)["imageUrl"]
	assert.True(t, strings.HasPrefix(url, "https://bucket.s3.us-east-1.amazonaws.com/images/"), url)

	rec = h.do(multipartRequest(t, http.MethodPost, "/api/files/file-upload", a.Token, nil, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = h.do(multipartRequest(t, http.MethodPost, "/api/files/file-upload", "", nil, pngPart))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRateLimit(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.AuthRateLimit = 2 })

	login := func() int {
		return h.do(jsonRequest(t, http.MethodPost, "/api/users/login", "", map[string]string{
			"email": "a@x.com", "password": "secret1",
		})).Code
	}
	assert.Equal(t, http.StatusNotFound, login())
	assert.Equal(t, http.StatusNotFound, login())
	assert.Equal(t, http.StatusTooManyRequests, login())

	// reads are not limited
	assert.Equal(t, http.StatusOK, h.do(jsonRequest(t, http.MethodGet, "/api/users", "", nil)).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(jsonRequest(t, http.MethodGet, "/health", "", nil))

	rec := h.do(jsonRequest(t, http.MethodGet, "/metrics", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/health",status="200"} 1`)
}

// Alice registers and logs in again, creates a place with her first token,
// and Bob's token cannot delete it.
func TestEndToEndOwnership(t *testing.T) {
	h := newHarness(t)
	alice := h.register(t, "Alice", "a@x.com")

	rec := h.do(jsonRequest(t, http.MethodPost, "/api/users/login", "", map[string]string{
		"email": "a@x.com", "password": "secret1",
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	t2 := decode[authJSON](t, rec)
	assert.NotEqual(t, alice.Token, t2.Token)
	sub, err := auth.GetUserIDFromToken(t2.Token, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, sub)

	p := h.createPlace(t, alice.Token, "T")
	assert.NotZero(t, p.Location.Lat)
	assert.NotZero(t, p.Location.Lng)

	bob := h.register(t, "Bob", "b@x.com")
	rec = h.do(jsonRequest(t, http.MethodDelete, "/api/places/"+p.ID, bob.Token, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := &config.Config{SecretKey: testSecret, AllowedOrigins: []string{"*"}}
	srv := NewServer(cfg, logging.Nop(), nil, nil, nil, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
