// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"probate-resolver/internal/common/config"
)

const defaultESPingTimeout = 5 * time.Second

// ElasticsearchClient wraps the client behind the public-records sources.
type ElasticsearchClient struct {
	Client      *elasticsearch.Client
	pingTimeout time.Duration
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(esConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticsearchClient{
		Client:      es,
		pingTimeout: millisOr(cfg.PingTimeoutMs, defaultESPingTimeout),
	}, nil
}

// esConfig builds the client settings for records search. Retries are only
// enabled on request; a records search that keeps failing should surface as
// an unavailable source instead of being replayed inside the guard's timeout.
func esConfig(cfg config.ElasticsearchConfig) elasticsearch.Config {
	addresses := cfg.Addresses
	if len(addresses) == 0 && cfg.URL != "" {
		addresses = []string{cfg.URL}
	}
	esCfg := elasticsearch.Config{
		Addresses:    addresses,
		DisableRetry: cfg.MaxRetries <= 0,
		MaxRetries:   cfg.MaxRetries,
		RetryOnStatus: []int{
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
			http.StatusTooManyRequests,
		},
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}
	return esCfg
}

// Ping tests the Elasticsearch connection
func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()

	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}
