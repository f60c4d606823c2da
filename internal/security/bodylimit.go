// Package security holds HTTP hardening middleware.
package security

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/noah-isme/printquote/internal/common"
)

// BodyLimit enforces a maximum request payload size. Bodies are streamed rather
// than buffered so large model uploads never sit in memory twice.
type BodyLimit struct {
	Max int64
}

// Middleware rejects requests whose declared length exceeds the limit with HTTP 413
// and caps the remaining ones with http.MaxBytesReader.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			WriteTooLarge(w, b.Max)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}

// IsTooLarge reports whether err came from reading past a BodyLimit cap.
func IsTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// WriteTooLarge renders the canonical 413 response.
func WriteTooLarge(w http.ResponseWriter, limit int64) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, common.CodeInvalidInput, "request body too large", map[string]string{
		"limit_bytes": strconv.FormatInt(limit, 10),
	})
}
