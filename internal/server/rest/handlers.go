package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/shareplaces/internal/common"
	"github.com/dmitrijs2005/shareplaces/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, formOverhead)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return nil
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]userJSON, len(users))
	for i, u := range users {
		out[i] = toUserJSON(u)
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	cleanup, err := parseMultipart(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cleanup()

	img, err := formImage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.users.Register(r.Context(), services.RegisterInput{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Image:    img,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "Registered", "user_id", res.UserID)
	writeJSON(w, http.StatusCreated, authJSON(*res))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.users.Login(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authJSON(*res))
}

func (s *Server) getPlace(w http.ResponseWriter, r *http.Request) {
	p, err := s.places.GetPlace(r.Context(), chi.URLParam(r, "placeID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"place": toPlaceJSON(p)})
}

func (s *Server) listPlacesByUser(w http.ResponseWriter, r *http.Request) {
	ps, err := s.places.ListPlacesByUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"places": toPlacesJSON(ps)})
}

func (s *Server) createPlace(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgAuthFailed)
		return
	}

	cleanup, err := parseMultipart(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cleanup()

	img, err := formImage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.places.CreatePlace(r.Context(), userID, services.CreatePlaceInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Address:     r.FormValue("address"),
		Image:       img,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"place": toPlaceJSON(p)})
}

func (s *Server) editPlace(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgAuthFailed)
		return
	}

	var in services.EditPlaceInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.places.EditPlace(r.Context(), userID, chi.URLParam(r, "placeID"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"place": toPlaceJSON(p)})
}

func (s *Server) deletePlace(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgAuthFailed)
		return
	}

	if err := s.places.DeletePlace(r.Context(), userID, chi.URLParam(r, "placeID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Deleted place.")
}

// uploadFile stores a standalone image and returns its URL.
func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	cleanup, err := parseMultipart(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cleanup()

	img, err := formImage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if img == nil {
		s.writeError(w, r, fmt.Errorf("%w: image is required", common.ErrValidation))
		return
	}

	obj, err := s.blobs.Upload(r.Context(), img.Data, img.ContentType)
	if err != nil {
		if !errors.Is(err, common.ErrBadUpload) {
			err = fmt.Errorf("%w: upload: %v", common.ErrInternal, err)
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"imageUrl": obj.URL})
}
