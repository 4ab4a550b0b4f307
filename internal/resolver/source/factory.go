package source

import (
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"probate-resolver/internal/common/config"
	httpclient "probate-resolver/internal/common/http"
	"probate-resolver/internal/common/limiter"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/models"
)

// Build creates a registry from the enabled source declarations. es may be nil
// when no records source is enabled.
func Build(cfg *config.Config, es *elasticsearch.Client, lim *limiter.Limiter, log logger.Logger) (*Registry, error) {
	timeout := time.Duration(cfg.Resolver.AdapterTimeoutMs) * time.Millisecond
	httpClient := httpclient.NewClient(timeout)

	var guards []*Guard
	for _, sc := range cfg.Sources {
		if !sc.Enabled {
			continue
		}

		var a Adapter
		switch sc.Kind {
		case config.SourceKindRecords:
			if es == nil {
				return nil, fmt.Errorf("source %s: records source requires elasticsearch", sc.Name)
			}
			a = NewRecordsAdapter(sc.Name, es, sc.Index)
		case config.SourceKindWebSearch:
			ws := cfg.APIs.WebSearch
			baseURL := sc.BaseURL
			if baseURL == "" {
				baseURL = ws.BaseURL
			}
			a = NewWebSearchAdapter(sc.Name, WebSearchConfig{
				BaseURL:  baseURL,
				APIKey:   ws.APIKey,
				EngineID: ws.EngineID,
			}, httpClient)
		case config.SourceKindProvider:
			a = NewProviderAdapter(sc.Name, sc.BaseURL, httpClient)
		default:
			return nil, fmt.Errorf("source %s: unknown kind %q", sc.Name, sc.Kind)
		}

		guards = append(guards, NewGuard(a, lim, OptionsFromConfig(sc, timeout), log))
	}

	return NewRegistry(guards...).WithVerifier(models.Source(cfg.Resolver.Verifier)), nil
}
