package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/toolplan/internal/config"
	"github.com/harun/toolplan/internal/logger"
	"github.com/harun/toolplan/internal/metrics"
	"github.com/harun/toolplan/internal/observability"
	"github.com/harun/toolplan/internal/tracing"
	"github.com/harun/toolplan/pkg/engine"
)

// runtime is the process-wide state a command needs to run plans
type runtime struct {
	cfg     *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics
	engine  *engine.Engine
}

// loadConfig loads the config named by --config and applies --log-level
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newRuntime sets up logging, tracing and the audit trail, then builds the engine
func newRuntime() (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := tracing.InitOpenTelemetry(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	}); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize OpenTelemetry, continuing without tracing")
	}

	if cfg.Audit.File != "" {
		if err := observability.InitAuditLogger(cfg.Audit.File); err != nil {
			lg.Close()
			return nil, fmt.Errorf("failed to open audit trail: %w", err)
		}
	}

	m := metrics.NewMetrics()
	eng, err := engine.NewFromConfig(cfg, m)
	if err != nil {
		lg.Close()
		return nil, err
	}

	log.Debug().
		Int("capabilities", eng.Registry().Len()).
		Dur("call_timeout", cfg.Dispatch.CallTimeout).
		Int("max_concurrency", cfg.Dispatch.MaxConcurrency).
		Msg("Engine ready")

	return &runtime{
		cfg:     cfg,
		logger:  lg,
		metrics: m,
		engine:  eng,
	}, nil
}

// Close flushes tracing and closes the audit trail and log file
func (r *runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down OpenTelemetry")
	}
	if r.cfg.Audit.File != "" {
		if err := observability.GetAuditLogger().Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close audit trail")
		}
		observability.SetAuditLogger(observability.NewAuditLogger(io.Discard))
	}
	if err := r.logger.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close log file")
	}
}
