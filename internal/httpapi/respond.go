package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"huddle/internal/apperr"
)

// envelope is the uniform response body shape.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Token   string              `json:"token,omitempty"`
}

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondSuccess(w http.ResponseWriter, status int, message string, data any) {
	respondJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// respondError maps a domain error kind to its HTTP status and renders
// the failure envelope. Internal details stay hidden unless debug mode
// is on.
func (a *API) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case apperr.KindAuthentication:
		status = http.StatusUnauthorized
		message = err.Error()
	case apperr.KindUnauthorized:
		status = http.StatusForbidden
		message = err.Error()
	case apperr.KindNotFound:
		status = http.StatusNotFound
		message = err.Error()
	default:
		a.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		if a.cfg.Debug {
			message = err.Error()
		}
	}

	respondJSON(w, status, envelope{Success: false, Message: message, Errors: apperr.FieldsOf(err)})
}

func validationError(w http.ResponseWriter, fields map[string][]string) {
	respondJSON(w, http.StatusUnprocessableEntity, envelope{
		Success: false,
		Message: "Validation failed",
		Errors:  fields,
	})
}
