// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"

	"github.com/mwiater/recallbench/internal/appconfig"
	"github.com/mwiater/recallbench/internal/logging"
	"github.com/mwiater/recallbench/internal/metrics"
	"github.com/mwiater/recallbench/internal/providers"
	"github.com/mwiater/recallbench/internal/providers/memory"
	"github.com/mwiater/recallbench/internal/providers/tribal"
)

// NewProvider selects and configures the memory provider named by the
// configuration and wraps it with metrics collection if enabled.
func NewProvider(cfg *appconfig.Config) (providers.Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	var provider providers.Provider
	switch t := cfg.ProviderType(); t {
	case appconfig.ProviderTribal:
		p := tribal.New(cfg)
		logging.LogEvent("tribalmemory provider ready: %s (instance %s)", cfg.ProviderURL(), p.Instance())
		provider = p
	case appconfig.ProviderMemory:
		logging.LogEvent("in-process memory provider ready")
		provider = memory.New()
	default:
		return nil, fmt.Errorf("unsupported provider type %q", t)
	}

	if cfg.Metrics.Enabled {
		recorder, err := metrics.GetInstance()
		if err != nil {
			return nil, err
		}
		provider = metrics.NewProvider(provider, recorder)
	}

	return provider, nil
}
