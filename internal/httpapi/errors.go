package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"hpsgateway/internal/manager"
	"hpsgateway/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// errorTypeInvalidBody tags bodies that could not be decoded at all. They
// share the validation class; the 400/413/415 status tells them apart.
const errorTypeInvalidBody = string(manager.KindValidation)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeSuccess writes a 200 envelope.
func writeSuccess(w http.ResponseWriter, logID, msg string, result any) {
	writeJSON(w, http.StatusOK, types.Response{LogID: logID, ErrorCode: 0, ErrorMsg: msg, Result: result})
}

// writeJSONError writes a consistent JSON error envelope. errorCode mirrors
// the HTTP status.
func writeJSONError(w http.ResponseWriter, status int, logID, errorType, msg string) {
	countErrorResponse(errorType)
	writeJSON(w, status, types.Response{LogID: logID, ErrorCode: status, ErrorMsg: msg, ErrorType: errorType})
}

// writeServiceError maps a service error onto an envelope. Backend internals
// and timeouts get a fixed message; the full error is logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, logID string, err error) {
	status := http.StatusInternalServerError
	var he HTTPError
	if errors.As(err, &he) {
		status = he.StatusCode()
	}
	kind, ok := manager.KindOf(err)
	if !ok {
		kind = manager.KindBackendInternal
	}
	msg := err.Error()
	switch kind {
	case manager.KindTimeout:
		msg = "Gateway timeout"
	case manager.KindBackendInternal:
		msg = "Internal server error"
	}
	ev := zlog.Warn()
	if status >= 500 && kind != manager.KindTimeout {
		ev = zlog.Error()
	}
	ev.Str("log_id", logID).Str("path", r.URL.Path).Int("status", status).Str("error_type", string(kind)).Err(err).Msg("request failed")
	writeJSONError(w, status, logID, string(kind), msg)
}
