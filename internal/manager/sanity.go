package manager

import (
	"fmt"
	"net/url"
)

// SanityReport describes static checks of the configured dependencies.
type SanityReport struct {
	BackendConfigured bool   `json:"backend_configured"`
	BackendURL        string `json:"backend_url,omitempty"`
	DownstreamURL     string `json:"downstream_url,omitempty"`
	Error             string `json:"error,omitempty"`
}

// SanityCheck validates dependency URLs without contacting them.
// It does not mutate state and is safe to call at any time.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{BackendConfigured: m.backend != nil, DownstreamURL: m.downstreamURL}
	if m.backend == nil {
		r.Error = "no inference backend configured"
		return r
	}
	if b, ok := m.backend.(interface{ BaseURL() string }); ok {
		r.BackendURL = b.BaseURL()
		if err := checkHTTPURL(r.BackendURL); err != nil {
			r.Error = "backend url: " + err.Error()
			return r
		}
	}
	if m.downstreamURL != "" {
		if err := checkHTTPURL(m.downstreamURL); err != nil {
			r.Error = "downstream health url: " + err.Error()
		}
	}
	return r
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q in %s", u.Scheme, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %s", raw)
	}
	return nil
}
