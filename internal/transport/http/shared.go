// Package httptransport is the thin HTTP layer. Handlers decode, validate
// and delegate to the domain services; no business logic lives here.
package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "taskgate/pkg/domain-errors"
)

// errorResponse is the JSON error envelope shared by every endpoint.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError translates domain errors into HTTP responses. Keeping it here
// ensures consistent JSON error envelopes.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	message := ""
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}

	writeJSON(w, status, errorResponse{
		Error:   string(code),
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
