package manager

import (
	"time"

	"github.com/rs/zerolog"
)

// Manager owns one worker's admission controller and backend. Every
// layout-parsing call of the worker goes through it.
type Manager struct {
	backend   Backend
	admission *Admission

	downstreamURL string
	healthTimeout time.Duration
	healthClient  httpDoer

	worker    int
	workers   int
	deviceID  string
	log       zerolog.Logger
	startTime time.Time

	pub EventPublisher
}

// New builds a Manager with package defaults around backend.
func New(backend Backend, maxConcurrent int, inferenceTimeout time.Duration) *Manager {
	// Delegate to NewWithConfig to centralize defaults and option parsing
	return NewWithConfig(ManagerConfig{
		Backend:          backend,
		MaxConcurrent:    maxConcurrent,
		InferenceTimeout: inferenceTimeout,
	})
}

// SetEventPublisher installs an event publisher. Nil restores the no-op one.
// Call before serving traffic.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.pub = p
	if m.admission != nil {
		m.admission.pub = p
	}
}

// Admission exposes the worker's admission controller.
func (m *Manager) Admission() *Admission { return m.admission }

// Worker returns this manager's worker index.
func (m *Manager) Worker() int { return m.worker }
