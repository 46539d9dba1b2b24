package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the structured logger of the HTTP layer. Nop until SetLogger.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

// LogLevel controls per-request access logging.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "disabled", "":
		return LevelOff
	case "error", "fatal", "panic":
		return LevelError
	case "info", "warn", "warning":
		return LevelInfo
	case "debug", "trace":
		return LevelDebug
	default:
		return LevelInfo
	}
}

var (
	defaultLogLevel    = LevelInfo
	filterHealthAccess = true
)

// SetLogLevel sets the default access log level (off, error, info, debug).
func SetLogLevel(s string) { defaultLogLevel = parseLevel(s) }

// SetHealthLogFiltering controls whether successful health probes are kept
// out of the access log.
func SetHealthLogFiltering(on bool) { filterHealthAccess = on }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

func isHealthPath(p string) bool {
	return p == "/health" || p == "/health/ready"
}

// AccessLog writes one line per request once the handler returns.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lvl := requestLogLevel(r)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if filterHealthAccess && isHealthPath(r.URL.Path) && status < 400 && lvl < LevelDebug {
			return
		}
		var ev *zerolog.Event
		switch {
		case lvl >= LevelInfo:
			ev = zlog.Info()
		case lvl == LevelError && status >= 500:
			ev = zlog.Error()
		default:
			return
		}
		ev = ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			ev = ev.Str("request_id", rid)
		}
		if lvl >= LevelDebug {
			ev = ev.Int("bytes", ww.BytesWritten()).
				Int64("content_length", r.ContentLength).
				Str("remote", r.RemoteAddr).
				Str("user_agent", r.UserAgent())
		}
		ev.Msg("http request")
	})
}
