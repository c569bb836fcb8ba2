// Package exchange holds the market-data adapters, one per venue, behind a
// simple name-keyed registry.
package exchange

import (
	"fmt"
	"strings"

	"MarketPulse/internal/domain/repository"
	pkghttp "MarketPulse/pkg/http"
	"MarketPulse/pkg/logger"
)

// Config describes one exchange adapter to construct.
type Config struct {
	Name        string
	BaseURL     string
	Assets      []string
	Quote       string
	CandleLimit int
}

// Registry resolves exchange names to their fetchers. Construction fails on
// the first unknown exchange name; a bad config never degrades silently.
type Registry struct {
	fetchers map[string]repository.ExchangeFetcher
	configs  map[string]Config
}

// NewRegistry builds fetchers for every configured exchange.
func NewRegistry(lgr *logger.Logger, client *pkghttp.Client, configs []Config) (*Registry, error) {
	r := &Registry{
		fetchers: make(map[string]repository.ExchangeFetcher),
		configs:  make(map[string]Config),
	}

	for _, cfg := range configs {
		name := strings.ToLower(cfg.Name)
		var fetcher repository.ExchangeFetcher
		switch name {
		case "binance":
			fetcher = NewBinance(lgr, client, cfg.BaseURL, cfg.CandleLimit)
		case "bybit":
			fetcher = NewBybit(lgr, client, cfg.BaseURL, cfg.CandleLimit)
		default:
			return nil, fmt.Errorf("unknown exchange: %s", cfg.Name)
		}
		r.fetchers[name] = fetcher
		r.configs[name] = cfg
		lgr.Info("exchange adapter registered", logger.String("exchange", name))
	}

	return r, nil
}

// Get resolves a fetcher by exchange name.
func (r *Registry) Get(name string) (repository.ExchangeFetcher, error) {
	fetcher, ok := r.fetchers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown exchange: %s", name)
	}
	return fetcher, nil
}

// Configs lists the registered exchange configurations.
func (r *Registry) Configs() []Config {
	out := make([]Config, 0, len(r.configs))
	for _, cfg := range r.configs {
		out = append(out, cfg)
	}
	return out
}

// Config returns the configuration of one exchange.
func (r *Registry) Config(name string) (Config, error) {
	cfg, ok := r.configs[strings.ToLower(name)]
	if !ok {
		return Config{}, fmt.Errorf("unknown exchange: %s", name)
	}
	return cfg, nil
}

// Names lists the registered exchange names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fetchers))
	for name := range r.fetchers {
		names = append(names, name)
	}
	return names
}
