package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/webxfer/internal/common"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// requestError is a client mistake detected by the gateway itself.
type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps a service error to a response. Missing, exhausted and
// expired files all look the same to the caller.
func writeError(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError
	var reqErr *requestError

	switch {
	case errors.As(err, &reqErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: reqErr.msg})
	case common.IsUnavailable(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "File not found or unavailable"})
	case errors.Is(err, common.ErrMalformedToken):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid token format"})
	case errors.Is(err, common.ErrMalformedSalt):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid salt format"})
	case errors.Is(err, common.ErrInvalidPolicy):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid download policy"})
	case errors.Is(err, common.ErrPayloadTooLarge), errors.As(err, &maxBytes):
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "File too large"})
	case errors.Is(err, common.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "Rate limit exceeded. Please try again later."})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}
