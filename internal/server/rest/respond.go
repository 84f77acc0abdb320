package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/shareplaces/internal/common"
	"github.com/dmitrijs2005/shareplaces/internal/validation"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
)

const (
	msgInvalidInput   = "Invalid inputs passed, please check your data."
	msgBadUpload      = "Invalid image: only png, jpg and jpeg files up to 1 MB are accepted."
	msgEmailTaken     = "User exists already, please login instead."
	msgBadCredentials = "Invalid credentials, could not log you in."
	msgAuthFailed     = "Authentication failed!"
	msgForbidden      = "You are not allowed to modify this place."
	msgNoAddress      = "Could not find location for the specified address."
	msgNotFound       = "Could not find the requested resource."
	msgNoRoute        = "Could not find this route."
	msgNoMethod       = "Method not allowed."
	msgTooMany        = "Too many requests, please try again later."
	msgInternal       = "Something went wrong, please try again later."
)

type errorResponse struct {
	Message string       `json:"message"`
	Errors  []fieldError `json:"errors,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

// writeError maps an error kind to a status and a fixed message. Internal
// details are logged, never sent.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error

	switch {
	case errors.As(err, &verr):
		resp := errorResponse{Message: msgInvalidInput}
		for _, f := range verr.Fields {
			resp.Errors = append(resp.Errors, fieldError{Field: f.Field, Message: f.Message})
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, common.ErrValidation):
		writeMessage(w, http.StatusUnprocessableEntity, msgInvalidInput)
	case errors.Is(err, common.ErrBadUpload):
		writeMessage(w, http.StatusUnprocessableEntity, msgBadUpload)
	case errors.Is(err, common.ErrConflict):
		writeMessage(w, http.StatusUnprocessableEntity, msgEmailTaken)
	case errors.Is(err, common.ErrUnauthenticated):
		writeMessage(w, http.StatusUnauthorized, msgBadCredentials)
	case errors.Is(err, common.ErrForbidden):
		writeMessage(w, http.StatusForbidden, msgForbidden)
	case errors.Is(err, common.ErrAddressNotFound):
		writeMessage(w, http.StatusNotFound, msgNoAddress)
	case errors.Is(err, common.ErrNotFound):
		writeMessage(w, http.StatusNotFound, msgNotFound)
	default:
		s.logger.Error(r.Context(), "request failed",
			"req_id", middleware.GetReqID(r.Context()), "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, msgNoRoute)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, msgNoMethod)
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusTooManyRequests, msgTooMany)
}
