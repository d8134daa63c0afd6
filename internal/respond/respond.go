// Package respond holds the canonical plain-text error responses the
// dispatch pipeline returns for every non-2xx outcome, plus the small JSON
// helper the management endpoint uses for /status.
package respond

import "net/http"

// Pre-allocated header value slices. Direct map assignment
// (w.Header()[key] = val) avoids the []string{v} alloc that Header.Set
// performs on every call.
var (
	plainTextCT = []string{"text/plain; charset=utf-8"}
	utf8Enc     = []string{"utf-8"}
	jsonCT      = []string{"application/json"}
)

var (
	body404 = []byte("404 Not Found")
	body429 = []byte("429 Too Many Requests")
	body500 = []byte("500 Internal Server Error")
	body503 = []byte("503 Service Unavailable")
	body504 = []byte("504 Gateway Timeout")
)

// writePlain writes one of the canonical plain-text bodies with the wire
// headers the reference gateway emits -- Content-Type: text/plain;
// charset=utf-8 and the (technically non-standard, but wire-compatible)
// Content-Encoding: utf-8.
func writePlain(w http.ResponseWriter, status int, body []byte) {
	h := w.Header()
	h["Content-Type"] = plainTextCT
	h["Content-Encoding"] = utf8Enc
	w.WriteHeader(status)
	w.Write(body)
}

// NotFound writes the canonical 404 response (no API definition matched).
func NotFound(w http.ResponseWriter) { writePlain(w, http.StatusNotFound, body404) }

// TooManyRequests writes the canonical 429 response (rate limit denied).
func TooManyRequests(w http.ResponseWriter) { writePlain(w, http.StatusTooManyRequests, body429) }

// InternalError writes the canonical 500 response (channel/state failure,
// missing Host header, URI parse failure).
func InternalError(w http.ResponseWriter) { writePlain(w, http.StatusInternalServerError, body500) }

// ServiceUnavailable writes the canonical 503 response (orphan API, empty
// server pool, or upstream transport failure).
func ServiceUnavailable(w http.ResponseWriter) { writePlain(w, http.StatusServiceUnavailable, body503) }

// GatewayTimeout writes the canonical 504 response (backend exceeded its
// configured response timeout).
func GatewayTimeout(w http.ResponseWriter) { writePlain(w, http.StatusGatewayTimeout, body504) }

// JSON writes status with a Content-Type: application/json header and body
// as the raw response bytes. Used by the management endpoint's /status.
func JSON(w http.ResponseWriter, status int, body []byte) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	w.Write(body)
}
