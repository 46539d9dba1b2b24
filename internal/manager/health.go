package manager

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"hpsgateway/pkg/types"
)

// Readiness dependency names.
const (
	DependencyTriton = "triton"
	DependencyVLM    = "vlm"
)

// httpDoer is the subset of *http.Client used by the downstream probe.
type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

func defaultHealthClient() httpDoer {
	return &http.Client{Timeout: 0}
}

type dependencyProbe struct {
	name  string
	check func(ctx context.Context) error
}

func (m *Manager) probes() []dependencyProbe {
	out := []dependencyProbe{{name: DependencyTriton, check: m.checkTriton}}
	if m.downstreamURL != "" {
		out = append(out, dependencyProbe{name: DependencyVLM, check: m.checkDownstream})
	}
	return out
}

// Ready probes every dependency concurrently, each under its own health-check
// timeout, and reports ready only if all of them answered. Nothing is cached.
func (m *Manager) Ready(ctx context.Context) types.ReadinessResult {
	probes := m.probes()
	results := make([]types.DependencyStatus, len(probes))
	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, m.healthTimeout)
			defer cancel()
			start := time.Now()
			err := p.check(pctx)
			st := types.DependencyStatus{
				Name:      p.name,
				Reachable: err == nil,
				LatencyMs: float64(time.Since(start).Microseconds()) / 1000,
			}
			if err != nil {
				if pctx.Err() != nil && ctx.Err() == nil {
					st.Error = "health check timed out after " + m.healthTimeout.String()
				} else {
					st.Error = err.Error()
				}
			}
			results[i] = st
			return nil
		})
	}
	_ = g.Wait()
	ready := true
	for _, r := range results {
		if !r.Reachable {
			ready = false
			m.log.Warn().Str("dependency", r.Name).Str("error", r.Error).Msg("readiness probe failed")
		}
	}
	return types.ReadinessResult{Ready: ready, Dependencies: results}
}

func (m *Manager) checkTriton(ctx context.Context) error {
	if m.backend == nil {
		return newError(KindBackendUnavailable, "no backend configured")
	}
	if err := m.backend.ServerReady(ctx); err != nil {
		return err
	}
	return m.backend.ModelReady(ctx, LayoutParsingModel)
}

func (m *Manager) checkDownstream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.downstreamURL, nil)
	if err != nil {
		return wrapError(KindBackendUnavailable, err, "build downstream probe")
	}
	resp, err := m.healthClient.Do(req)
	if err != nil {
		return wrapError(KindBackendUnavailable, err, "downstream unreachable")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newError(KindBackendUnavailable, "downstream health returned %s", resp.Status)
	}
	return nil
}
