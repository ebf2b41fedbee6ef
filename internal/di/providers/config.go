// Package providers contains dependency injection providers for the goodaideas client.
package providers

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	"github.com/goodaideas/goodaideas/internal/config"
	"github.com/goodaideas/goodaideas/internal/logger"
	"github.com/goodaideas/goodaideas/internal/metrics"
)

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
		Plain:       !isTerminal(os.Stderr),
	})

	log.Debug("Starting goodaideas",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"backend_mode", cfg.Backend.Mode,
		"state_dir", cfg.State.Dir,
	)

	return log, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// MetricsHandle bundles the registry served on /metrics with the collector
// components report to.
type MetricsHandle struct {
	*metrics.Collector
	Registry *prometheus.Registry
}

// ProvideMetrics provides a dedicated prometheus registry and collector.
func ProvideMetrics(_ do.Injector) (*MetricsHandle, error) {
	reg := prometheus.NewRegistry()
	return &MetricsHandle{
		Collector: metrics.NewCollector(reg),
		Registry:  reg,
	}, nil
}
