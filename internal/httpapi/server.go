package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hpsgateway/internal/manager"
	"hpsgateway/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	LayoutParsing(ctx context.Context, req types.LayoutParsingRequest, logID string) (json.RawMessage, error)
	Restructure(req types.RestructureRequest, logID string) (*types.RestructureResult, error)
	Ready(ctx context.Context) types.ReadinessResult
	Status() types.StatusResponse
}

// NewMux builds the gateway router around svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)
	if corsEnabled {
		r.Use(corsMiddleware())
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5, "application/json"))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}
	r.Get("/health", h.health)
	r.Get("/health/ready", h.ready)
	r.Post("/layout-parsing", h.layoutParsing)
	r.Post("/restructure-pages", h.restructurePages)
	r.Get("/status", h.status)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

// health godoc
// @Summary      Liveness probe
// @Description  Reports that the gateway process is running. Never contacts the backend.
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.Response
// @Router       /health [get]
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, manager.NewLogID(), "Healthy", nil)
}

// ready godoc
// @Summary      Readiness probe
// @Description  Probes every backend dependency under its own timeout. Results are never cached.
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.Response{result=types.ReadinessResult}
// @Failure      503  {object}  types.Response{result=types.ReadinessResult}
// @Router       /health/ready [get]
func (h *handlers) ready(w http.ResponseWriter, r *http.Request) {
	logID := manager.NewLogID()
	res := h.svc.Ready(r.Context())
	if res.Ready {
		writeSuccess(w, logID, "Ready", res)
		return
	}
	var failed []string
	for _, d := range res.Dependencies {
		if !d.Reachable {
			failed = append(failed, d.Name+": "+d.Error)
		}
	}
	countErrorResponse(string(manager.KindBackendUnavailable))
	writeJSON(w, http.StatusServiceUnavailable, types.Response{
		LogID:     logID,
		ErrorCode: http.StatusServiceUnavailable,
		ErrorMsg:  "Not ready: " + strings.Join(failed, "; "),
		ErrorType: string(manager.KindBackendUnavailable),
		Result:    res,
	})
}

// layoutParsing godoc
// @Summary      Run layout parsing
// @Description  Validates the document, waits for a backend slot and returns the backend's layout result.
// @Tags         inference
// @Accept       json
// @Produce      json
// @Param        request  body      types.LayoutParsingRequest  true  "Document to analyse"
// @Success      200      {object}  types.Response{result=types.LayoutParsingResult}
// @Failure      400      {object}  types.ErrorResponse
// @Failure      422      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Failure      504      {object}  types.ErrorResponse
// @Router       /layout-parsing [post]
func (h *handlers) layoutParsing(w http.ResponseWriter, r *http.Request) {
	var req types.LayoutParsingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	logID, supplied := manager.ResolveLogID(req.LogID)
	if supplied {
		zlog.Warn().Str("log_id", logID).Msg("client supplied logId for layout-parsing request")
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	out, err := h.svc.LayoutParsing(ctx, req, logID)
	if err != nil {
		// If context was canceled (client disconnect or shutdown), just return.
		if aborted(r) {
			zlog.Info().Str("log_id", logID).Err(err).Msg("layout-parsing abandoned by client")
			return
		}
		writeServiceError(w, r, logID, err)
		return
	}
	writeSuccess(w, logID, "Success", out)
}

// restructurePages godoc
// @Summary      Restructure per-page layout results
// @Description  Merges tables continued across pages, re-levels titles document-wide and optionally concatenates pages. Runs locally.
// @Tags         inference
// @Accept       json
// @Produce      json
// @Param        request  body      types.RestructureRequest  true  "Pages in document order"
// @Success      200      {object}  types.Response{result=types.RestructureResult}
// @Failure      400      {object}  types.ErrorResponse
// @Failure      422      {object}  types.ErrorResponse
// @Router       /restructure-pages [post]
func (h *handlers) restructurePages(w http.ResponseWriter, r *http.Request) {
	var req types.RestructureRequest
	if !decodeBody(w, r, &req) {
		return
	}
	logID, _ := manager.ResolveLogID(req.LogID)
	res, err := h.svc.Restructure(req, logID)
	if err != nil {
		writeServiceError(w, r, logID, err)
		return
	}
	writeSuccess(w, logID, "Success", res)
}

// status godoc
// @Summary      Admission status
// @Tags         ops
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// decodeBody reads a JSON body into v, writing the error response itself
// when that fails.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	// Content-Type check
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, manager.NewLogID(), errorTypeInvalidBody, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, manager.NewLogID(), errorTypeInvalidBody, fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
			return false
		}
		writeJSONError(w, http.StatusBadRequest, manager.NewLogID(), errorTypeInvalidBody, "invalid JSON body: "+err.Error())
		return false
	}
	if dec.More() {
		writeJSONError(w, http.StatusBadRequest, manager.NewLogID(), errorTypeInvalidBody, "invalid JSON body: trailing data")
		return false
	}
	return true
}
