// Package shared holds response helpers used by every HTTP handler package.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "lingkod/pkg/domain-errors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// opaque hides codes whose detail must not leak to clients. The full error is
// logged server-side before WriteError is called.
var opaque = map[dErrors.Code]bool{
	dErrors.CodeInternal:   true,
	dErrors.CodeEncryption: true,
	dErrors.CodeDecryption: true,
}

// WriteError renders err as the standard JSON error envelope, mapping the
// domain code to an HTTP status. Internal and cryptographic failures are
// replaced with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Code: string(code), Message: err.Error()}
	if opaque[code] {
		body = errorBody{Code: string(dErrors.CodeInternal), Message: "internal error"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: body})
}

// WriteJSON renders v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
