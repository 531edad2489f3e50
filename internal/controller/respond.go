// internal/controller/respond.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appErrors "github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/errors"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError maps the service error taxonomy onto HTTP status codes:
// not-found 404, validation 400, precondition 409, transient integration
// failure 502, anything else 500.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var (
		validation   *appErrors.ValidationError
		precondition *appErrors.PreconditionError
		integration  *appErrors.IntegrationError
	)
	switch {
	case appErrors.IsNotFound(err):
		status = http.StatusNotFound
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &precondition):
		status = http.StatusConflict
	case errors.As(err, &integration):
		if integration.Transient {
			status = http.StatusBadGateway
		}
	}

	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// uuidParam parses a UUID path parameter; a malformed value reports a
// validation error and returns false.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, appErrors.NewValidation(name, "must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUID parses a UUID from an optional request field. A nil or
// empty value is fine; a malformed one reports a validation error.
func optionalUUID(w http.ResponseWriter, raw *string, field string) (*uuid.UUID, bool) {
	if raw == nil || *raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		respondError(w, appErrors.NewValidation(field, "must be a UUID"))
		return nil, false
	}
	return &id, true
}

// pagination reads page/page_size query parameters and converts them to
// an offset/limit pair.
func pagination(r *http.Request) (offset, limit, page int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize, page
}

func paginated(data any, total, page, limit int) map[string]any {
	totalPages := (total + limit - 1) / limit
	return map[string]any{
		"data": data,
		"pagination": map[string]int{
			"total_count": total,
			"total_pages": totalPages,
			"page":        page,
			"page_size":   limit,
		},
	}
}
