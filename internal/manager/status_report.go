package manager

import (
	"time"

	"hpsgateway/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	st := m.admission.Stats()
	now := time.Now()
	return types.StatusResponse{
		Worker:                  m.worker,
		Workers:                 m.workers,
		DeviceID:                m.deviceID,
		MaxConcurrent:           st.MaxConcurrent,
		Inflight:                st.Inflight,
		Waiting:                 st.Waiting,
		InferenceTimeoutSeconds: int64(st.Timeout / time.Second),
		AdmittedTotal:           st.Admitted,
		TimeoutsTotal:           st.Timeouts,
		UptimeSeconds:           int64(now.Sub(m.startTime) / time.Second),
		ServerTimeUnix:          now.Unix(),
	}
}
