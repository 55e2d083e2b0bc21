// internal/cli/provider.go
package recallbench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mwiater/recallbench/internal/appconfig"
	"github.com/mwiater/recallbench/internal/logging"
	"github.com/mwiater/recallbench/internal/metrics"
	"github.com/mwiater/recallbench/internal/providers"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ErrBelowThreshold is returned when a run scores at or below --fail-under.
var ErrBelowThreshold = errors.New("score at or below fail-under threshold")

// openProvider builds the configured provider and, when metrics are enabled,
// the scrape endpoint. The returned release func closes both and must be
// called whatever the outcome of the run.
func openProvider(cfg *appconfig.Config) (providers.Provider, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("configuration not loaded")
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, nil, err
	}

	var server *metrics.Server
	if cfg.Metrics.Enabled {
		server, err = metrics.Serve(cfg.MetricsAddr(), prometheus.DefaultGatherer)
		if err != nil {
			_ = provider.Close()
			return nil, nil, err
		}
	}

	release := func() {
		if err := provider.Close(); err != nil {
			logging.L().Warn("closing provider", zap.Error(err))
		}
		if server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		}
	}
	return provider, release, nil
}

// instanceOf reports the namespace a provider is bound to, if it has one.
func instanceOf(p providers.Provider) string {
	for {
		if withInstance, ok := p.(interface{ Instance() string }); ok {
			return withInstance.Instance()
		}
		wrapped, ok := p.(interface{ Unwrap() providers.Provider })
		if !ok {
			return ""
		}
		p = wrapped.Unwrap()
	}
}

func checkThreshold(score, failUnder float64, what string) error {
	if failUnder > 0 && score <= failUnder {
		return fmt.Errorf("%w: %s %.1f%% <= %.1f%%", ErrBelowThreshold, what, score*100, failUnder*100)
	}
	return nil
}
