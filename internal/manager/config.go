package manager

import (
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxConcurrent      = 16
	defaultInferenceTimeout   = 600 * time.Second
	defaultHealthCheckTimeout = 5 * time.Second

	// LayoutParsingModel is the backend model serving POST /layout-parsing.
	LayoutParsingModel = "layout-parsing"
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Backend            Backend
	MaxConcurrent      int
	InferenceTimeout   time.Duration
	HealthCheckTimeout time.Duration
	// DownstreamHealthURL is probed as the "vlm" readiness dependency when set.
	DownstreamHealthURL string
	// Worker is this manager's index; Workers the total in the process.
	Worker   int
	Workers  int
	DeviceID string
	// Logger defaults to a disabled logger.
	Logger    *zerolog.Logger
	Publisher EventPublisher
	// HealthClient is used for the downstream probe; defaults to a client
	// without a global timeout (probes carry their own deadline).
	HealthClient httpDoer
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		backend:       cfg.Backend,
		downstreamURL: cfg.DownstreamHealthURL,
		worker:        cfg.Worker,
		workers:       cfg.Workers,
		deviceID:      cfg.DeviceID,
		healthClient:  cfg.HealthClient,
		startTime:     time.Now(),
	}
	if cfg.Logger != nil {
		lc := cfg.Logger.With().Int("worker", cfg.Worker)
		if cfg.DeviceID != "" {
			lc = lc.Str("device_id", cfg.DeviceID)
		}
		m.log = lc.Logger()
	} else {
		m.log = zerolog.Nop()
	}
	if m.workers <= 0 {
		m.workers = 1
	}
	// Apply defaults if unset
	if cfg.HealthCheckTimeout <= 0 {
		m.healthTimeout = defaultHealthCheckTimeout
	} else {
		m.healthTimeout = cfg.HealthCheckTimeout
	}
	if m.healthClient == nil {
		m.healthClient = defaultHealthClient()
	}
	m.SetEventPublisher(cfg.Publisher)
	m.admission = NewAdmission(cfg.MaxConcurrent, cfg.InferenceTimeout, cfg.Worker, m.pub, m.log)
	return m
}
