package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/adiwidodo/go-backoffice/internal/repository"
	"github.com/adiwidodo/go-backoffice/internal/service"
)

// envelope is the response shape shared by every endpoint.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// listData wraps paginated listings.
type listData struct {
	Items   interface{} `json:"items"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondOK(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func respondCreated(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: message, Data: data})
}

func respondValidation(w http.ResponseWriter, errs map[string][]string) {
	writeJSON(w, http.StatusUnprocessableEntity, envelope{
		Success: false,
		Message: "The given data was invalid.",
		Errors:  errs,
	})
}

func fieldError(field, message string) map[string][]string {
	return map[string][]string{field: {message}}
}

// respondError maps service and repository errors onto the HTTP taxonomy.
// Anything unrecognized is an internal error reported with its message.
func respondError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var fieldErrs *service.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		respondValidation(w, fieldErrs.Fields)
	case errors.Is(err, service.ErrUnknownIdentity):
		respondValidation(w, fieldError("email", "The email address is not registered."))
	case errors.Is(err, service.ErrBadCredential):
		respondValidation(w, fieldError("password", "The password is incorrect."))
	case errors.Is(err, service.ErrAccountDisabled):
		respondValidation(w, fieldError("email", "This account has been disabled."))
	case errors.Is(err, repository.ErrUnknownPermission):
		respondValidation(w, fieldError("permissions", err.Error()))
	case errors.Is(err, repository.ErrUnknownRole):
		respondValidation(w, fieldError("roles", err.Error()))
	case errors.Is(err, service.ErrAlreadyAssigned):
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "User already has this role."})
	case errors.Is(err, service.ErrResetTokenInvalid):
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "This password reset token is invalid or has expired."})
	case errors.Is(err, service.ErrNoSuchAccount), errors.Is(err, service.ErrDispatchFailed):
		writeJSON(w, http.StatusBadGateway, envelope{Success: false, Message: "Unable to send the password reset email."})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "Record not found."})
	default:
		log.Error().Err(err).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: err.Error()})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Invalid request body."})
		return false
	}
	return true
}

// listParams reads the common search/sort/paginate query parameters.
func listParams(r *http.Request) repository.ListParams {
	q := r.URL.Query()

	params := repository.ListParams{
		Search:    q.Get("search"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	if status := q.Get("status"); status != "" {
		active := status == "active" || status == "1" || status == "true"
		params.Status = &active
	}

	return params
}
