package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"minicrm/internal/crm"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigStd.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError maps service errors onto HTTP responses. Validation failures
// are the caller's problem and are not logged.
func writeError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	var verr *crm.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, crm.ErrInvalidPage):
		writeDetail(w, http.StatusNotFound, "Invalid page.")
	case errors.Is(err, crm.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, crm.ErrConflict):
		requestLog(log, r).WithError(err).Warn("write lost a uniqueness race")
		writeDetail(w, http.StatusConflict, "The record conflicts with one written concurrently. Reload and try again.")
	default:
		requestLog(log, r).WithError(err).Error("request failed")
		writeDetail(w, http.StatusInternalServerError, "server error")
	}
}

func requestLog(log logrus.FieldLogger, r *http.Request) logrus.FieldLogger {
	return log.WithFields(logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": chimw.GetReqID(r.Context()),
	})
}

// decodeJSON reads the body into dst. An empty body decodes as {} so missing
// fields surface as validation errors rather than a parse error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "could not read request body")
		return false
	}
	if len(data) > maxBodyBytes {
		writeDetail(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return true
	}
	if err := sonic.ConfigStd.Unmarshal(data, dst); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
		return false
	}
	return true
}

// pathID parses the {id} route parameter. Ids that cannot exist are a 404.
func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

func writeMode(r *http.Request) crm.WriteMode {
	if r.Method == http.MethodPut {
		return crm.Full
	}
	return crm.Partial
}
