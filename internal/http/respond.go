package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"finvoice/internal/core"
)

// maxBodyBytes bounds request bodies; receipt text is the largest payload.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeTaxonomyError maps ledger errors onto HTTP status codes. Anything
// outside the taxonomy is a plain 500 with a generic message.
func writeTaxonomyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotAuthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer realm="finvoice"`)
		writeError(w, http.StatusUnauthorized, "authentication required")
	case core.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case core.IsConsistency(err):
		writeError(w, http.StatusConflict, err.Error())
	case core.IsStore(err):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody reads a single JSON value from the request body, rejecting
// trailing garbage.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// newRequestID creates a unique request ID for tracing.
func newRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(buf)
}
