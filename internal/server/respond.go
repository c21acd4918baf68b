package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/koustreak/deckbuilder/internal/errs"
	"github.com/rs/zerolog/hlog"
)

// retryAfterSeconds is sent with 503 responses caused by pool exhaustion.
const retryAfterSeconds = "1"

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// handlerFunc is an HTTP handler that reports failure by returning an
// error; handle turns it into a JSON error response.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindUnauthenticated:
		return http.StatusUnauthorized
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindConflict:
		return http.StatusConflict
	case errs.ErrKindUnavailable, errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as JSON. Client errors carry their message; server
// errors are logged with the request id and answered with the status text
// only, so driver details never leak.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)

	msg := http.StatusText(status)
	var e *errs.Error
	if status < http.StatusInternalServerError && errors.As(err, &e) {
		msg = e.Message
	}

	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Str("kind", kind.String()).Msg("request failed")
	}
	if kind == errs.ErrKindUnavailable {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	writeJSON(w, status, errorBody{Error: msg, Kind: kind.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object of at most limit bytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errs.New(errs.ErrKindInvalidInput, "request body is empty")
		case errors.As(err, &tooLarge):
			return errs.New(errs.ErrKindInvalidInput, "request body is too large")
		default:
			return errs.Wrap(errs.ErrKindInvalidInput, "request body is not valid JSON", err)
		}
	}
	if dec.More() {
		return errs.New(errs.ErrKindInvalidInput, "request body must be a single JSON object")
	}
	return nil
}
