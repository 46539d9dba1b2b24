package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hpsgateway/internal/config"
	"hpsgateway/internal/httpapi"
	"hpsgateway/internal/manager"
)

const (
	shutdownTimeout    = 10 * time.Second
	backendDialTimeout = 10 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.String("addr", config.DefaultAddr, "HTTP listen address")
	f.String("triton-url", config.DefaultTritonURL, "Base URL of the Triton inference server")
	f.Int("max-concurrent", config.DefaultMaxConcurrentRequests, "Concurrent inference calls admitted per worker")
	f.Int("inference-timeout", config.DefaultInferenceTimeoutSeconds, "Per-call inference deadline in seconds")
	f.Int("health-timeout", config.DefaultHealthCheckTimeoutSeconds, "Per-probe readiness deadline in seconds")
	f.String("downstream-health-url", "", "Optional VLM health URL checked by /health/ready")
	f.Int("workers", config.DefaultWorkers, "Number of HTTP workers sharing the listener")
	f.String("device-id", "", "Device identifier reported by /status and in logs")
	f.String("cors-origins", "", "Comma-separated CORS allowed origins; enables CORS when set")
	f.Bool("filter-health-logs", true, "Keep successful health probes out of the access log")
	f.Int64("max-body-bytes", config.DefaultMaxBodyBytes, "Maximum request body size in bytes")
	return cmd
}

// applyFlags overlays flags the user explicitly set. Flags not defined on
// cmd are skipped, so every subcommand can share it.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	changed := func(name string) bool {
		fl := f.Lookup(name)
		return fl != nil && fl.Changed
	}
	var err error
	setStr := func(name string, dst *string) {
		if err == nil && changed(name) {
			*dst, err = f.GetString(name)
		}
	}
	setInt := func(name string, dst *int) {
		if err == nil && changed(name) {
			*dst, err = f.GetInt(name)
		}
	}
	setStr("addr", &cfg.Addr)
	setStr("triton-url", &cfg.TritonURL)
	setStr("downstream-health-url", &cfg.DownstreamHealthURL)
	setStr("device-id", &cfg.DeviceID)
	setInt("max-concurrent", &cfg.MaxConcurrentRequests)
	setInt("inference-timeout", &cfg.InferenceTimeoutSeconds)
	setInt("health-timeout", &cfg.HealthCheckTimeoutSeconds)
	setInt("workers", &cfg.Workers)
	if err == nil && changed("max-body-bytes") {
		cfg.MaxBodyBytes, err = f.GetInt64("max-body-bytes")
	}
	if err == nil && changed("filter-health-logs") {
		var on bool
		on, err = f.GetBool("filter-health-logs")
		cfg.FilterHealthAccessLog = &on
	}
	if err == nil && changed("cors-origins") {
		var raw string
		raw, err = f.GetString("cors-origins")
		cfg.CORSAllowedOrigins = config.SplitCSV(raw)
		cfg.CORSEnabled = len(cfg.CORSAllowedOrigins) > 0
	}
	return err
}

// newManagers builds one manager per worker; each owns its admission
// controller, so the process-wide ceiling is workers * max.
func (a *app) newManagers() []*manager.Manager {
	mgrs := make([]*manager.Manager, a.cfg.Workers)
	for i := range mgrs {
		mgrs[i] = a.newManager(i)
	}
	return mgrs
}

func (a *app) newManager(worker int) *manager.Manager {
	cfg := a.cfg
	return manager.NewWithConfig(manager.ManagerConfig{
		Backend:             manager.NewTritonBackend(cfg.TritonURL, backendDialTimeout),
		MaxConcurrent:       cfg.MaxConcurrentRequests,
		InferenceTimeout:    cfg.InferenceTimeout(),
		HealthCheckTimeout:  cfg.HealthCheckTimeout(),
		DownstreamHealthURL: cfg.DownstreamHealthURL,
		Worker:              worker,
		Workers:             cfg.Workers,
		DeviceID:            cfg.DeviceID,
		Logger:              &a.log,
	})
}

func (a *app) configureHTTP(ctx context.Context) {
	httpapi.SetLogger(a.log)
	httpapi.SetLogLevel(a.cfg.LogLevel)
	httpapi.SetHealthLogFiltering(a.cfg.FilterHealthLogs())
	httpapi.SetMaxBodyBytes(a.cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(a.cfg.CORSEnabled, a.cfg.CORSAllowedOrigins, nil, nil)
	httpapi.SetBaseContext(ctx)
}

func (a *app) serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Addr, err)
	}
	return a.serveOn(ctx, ln)
}

// serveOn runs every worker on ln until ctx is done, then drains them.
func (a *app) serveOn(ctx context.Context, ln net.Listener) error {
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	a.configureHTTP(baseCtx)

	mgrs := a.newManagers()
	if r := mgrs[0].SanityCheck(); r.Error != "" {
		_ = ln.Close()
		return fmt.Errorf("preflight: %s", r.Error)
	}
	servers := make([]*http.Server, len(mgrs))
	for i, m := range mgrs {
		servers[i] = &http.Server{
			Handler:           httpapi.NewMux(m),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return baseCtx },
		}
	}
	a.log.Info().
		Str("addr", ln.Addr().String()).
		Str("triton_url", a.cfg.TritonURL).
		Int("workers", a.cfg.Workers).
		Int("max_concurrent_per_worker", a.cfg.MaxConcurrentRequests).
		Int("effective_max_concurrent", a.cfg.MaxConcurrentRequests*a.cfg.Workers).
		Dur("inference_timeout", a.cfg.InferenceTimeout()).
		Msg("hpsgateway listening")

	g, gctx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		g.Go(func() error {
			err := srv.Serve(ln)
			if errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("worker %d: %w", i, err)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info().Msg("shutting down")
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var firstErr error
		for _, srv := range servers {
			if err := srv.Shutdown(shCtx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		// Abort in-flight work still running after the grace period.
		cancelBase()
		for _, srv := range servers {
			_ = srv.Close()
		}
		if firstErr != nil && !errors.Is(firstErr, context.DeadlineExceeded) {
			return firstErr
		}
		return nil
	})
	return g.Wait()
}
