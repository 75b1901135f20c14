package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yanizio/chefsite/internal/database"
	"github.com/yanizio/chefsite/internal/fallback"
	"github.com/yanizio/chefsite/internal/settings"
)

// maxBody caps request bodies.  Settings blobs are the largest payload.
const maxBody = 1 << 20

// SourceHeader tells clients whether a public read came from the store,
// from the last good copy, or from fixtures.
const SourceHeader = "X-Content-Source"

type apiError struct {
	Status    string `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("response encode failed", zap.Error(err))
	}
}

func writeSourced(w http.ResponseWriter, src fallback.Source, v any) {
	w.Header().Set(SourceHeader, string(src))
	writeJSON(w, http.StatusOK, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, apiError{
		Status:    "error",
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// mapError turns a repository error into a status, code, and message.
func mapError(err error) (int, string, string) {
	switch {
	case database.IsConnectivity(err):
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "content store unavailable"
	case errors.Is(err, settings.ErrDegraded):
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "stored settings could not be read"
	case errors.Is(err, database.ErrNothingToUpdate):
		return http.StatusBadRequest, "NOTHING_TO_UPDATE", "no fields to update"
	case errors.Is(err, database.ErrInvalid):
		return http.StatusBadRequest, "VALIDATION_ERROR", trimOp(err.Error())
	case database.IsDuplicate(err):
		return http.StatusConflict, "CONFLICT", "a record with that key already exists"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

// trimOp drops the "repo.Op: " prefix Provider.Fail adds.
func trimOp(msg string) string {
	if i := strings.Index(msg, ": "+database.ErrInvalid.Error()); i > 0 && !strings.Contains(msg[:i], " ") {
		return msg[i+2:]
	}
	return msg
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	writeError(w, r, status, code, msg)
}

/*───────────────────────────── request bodies ─────────────────────────────*/

var validate = validator.New(validator.WithRequiredStructEnabled())

// decode reads one JSON value into v.  strict rejects unknown fields,
// which catches typos in admin patches.
func decode(w http.ResponseWriter, r *http.Request, v any, strict bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		msg := "invalid json body"
		if errors.Is(err, database.ErrInvalid) || strings.HasPrefix(err.Error(), "json: unknown field") {
			msg = err.Error()
		}
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", msg)
		return false
	}
	return true
}

// decodeValid is decode followed by struct-tag validation.
func decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if !decode(w, r, v, false) {
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", describe(err))
		return false
	}
	return true
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

// readBody returns the raw request body, capped at maxBody.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large")
		return nil, false
	}
	return b, true
}
