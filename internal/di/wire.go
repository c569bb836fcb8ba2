//go:build wireinject
// +build wireinject

package di

import (
	"MarketPulse/pkg/config"
	"MarketPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgresClient,
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideMarketLogStore,
		ProvideProfitableLogStore,
		ProvideVectorArchive,
		ProvideTriggerPublisher,

		// Services
		ProvideExchangeRegistry,
		ProvidePriceStream,
		ProvideIndicatorEngine,
		ProvideRateLimiter,

		// Use cases
		ProvideCollector,
		ProvideLabeler,
		ProvideStatusUseCase,
		ProvideScheduler,

		// Queue, bridges, HTTP surface
		ProvideJobQueues,
		ProvideTriggerBridges,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
