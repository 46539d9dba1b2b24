package manager

import (
	"context"
	"encoding/json"
	"time"

	"hpsgateway/pkg/types"
)

// LayoutParsing validates in, waits for a concurrency slot and forwards the
// request to the backend's layout-parsing model. Validation failures return
// before a slot is requested. The backend result is returned verbatim.
func (m *Manager) LayoutParsing(ctx context.Context, in types.LayoutParsingRequest, logID string) (json.RawMessage, error) {
	req, err := NewInferenceRequest(in, logID)
	if err != nil {
		return nil, err
	}
	if m.backend == nil {
		return nil, newError(KindBackendUnavailable, "no backend configured")
	}
	start := time.Now()
	m.log.Info().Str("log_id", logID).Int("file_type", req.FileType).Int("bytes", req.Size).Msg("layout-parsing start")
	out, err := m.admission.Run(ctx, logID, func(callCtx context.Context) (json.RawMessage, error) {
		return m.backend.Infer(callCtx, LayoutParsingModel, req)
	})
	ev := m.log.Info()
	if err != nil {
		kind, _ := KindOf(err)
		if kind == "" {
			kind = KindBackendInternal
			err = wrapError(KindBackendInternal, err, "backend call failed")
		}
		backendErrorsTotal.WithLabelValues(string(kind)).Inc()
		ev = m.log.Warn().Str("error_type", string(kind)).Err(err)
	}
	ev.Str("log_id", logID).Dur("dur", time.Since(start)).Msg("layout-parsing end")
	return out, err
}
