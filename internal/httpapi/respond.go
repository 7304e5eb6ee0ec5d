package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/errmsg"
	"github.com/UkralStul/blog-service/internal/postcache"
	"github.com/UkralStul/blog-service/internal/service"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Fields      map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError classifies err for context c and writes it with the status
// derived from err.
func respondError(w http.ResponseWriter, err error, c errmsg.Context) {
	var (
		body     errorResponse
		verrs    domain.ValidationErrors
		fetchErr *postcache.FetchError
	)
	switch {
	case errors.As(err, &verrs):
		body = errorResponse{
			Title:       "Invalid input",
			Description: "Please check the highlighted fields and try again.",
			Fields:      verrs,
		}
	case errors.As(err, &fetchErr):
		body = errorResponse{Title: fetchErr.Message.Title, Description: fetchErr.Message.Description}
	case errors.Is(err, service.ErrUploadsDisabled):
		body = errorResponse{Title: "Uploads unavailable", Description: "Cover uploads are not configured on this server."}
	default:
		msg := errmsg.Classify(c, err)
		body = errorResponse{Title: msg.Title, Description: msg.Description}
	}
	respondJSON(w, statusFor(err), body)
}

// statusFor maps an error to the HTTP status returned to the client.
func statusFor(err error) int {
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return apiErr.Status
	}

	if errors.Is(err, service.ErrUploadsDisabled) {
		return http.StatusNotImplemented
	}

	var (
		urlErr *url.Error
		netErr net.Error
	)
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// badRequest reports a request the handler could not decode.
func badRequest(w http.ResponseWriter, description string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{Title: "Invalid Request", Description: description})
}
