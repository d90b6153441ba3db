// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/vmerge/internal/domain/media"
	"github.com/ManuGH/vmerge/internal/log"
)

// Problem is an RFC 7807 body. Error repeats the human readable message for
// clients that only look at a single field.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem renders err through the domain error taxonomy.
func writeProblem(w http.ResponseWriter, r *http.Request, err error) {
	status := media.HTTPStatus(err)
	msg := err.Error()
	if media.Code(err) == "INTERNAL_ERROR" {
		msg = "internal server error"
	}
	p := Problem{
		Type:      "about:blank",
		Title:     http.StatusText(status),
		Status:    status,
		Code:      media.Code(err),
		Detail:    msg,
		Error:     msg,
		RequestID: log.RequestIDFromContext(r.Context()),
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}
