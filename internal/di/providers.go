package di

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/handler/api"
	"MarketPulse/internal/jobs"
	"MarketPulse/internal/learning"
	internalrepo "MarketPulse/internal/repository"
	"MarketPulse/internal/service/exchange"
	"MarketPulse/internal/service/ratelimit"
	"MarketPulse/internal/usecase"

	"MarketPulse/internal/indicator"
	"MarketPulse/pkg/cache"
	pkgch "MarketPulse/pkg/clickhouse"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	pkgkafka "MarketPulse/pkg/kafka"
	applogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/metrics"
	pkgpg "MarketPulse/pkg/postgres"
	"MarketPulse/pkg/queue"
	"MarketPulse/pkg/server"
)

const clientInitTimeout = 10 * time.Second

// ProvideLogger creates the structured application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvidePostgresClient creates the Postgres pool and applies the schema.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), clientInitTimeout)
	defer cancel()

	client, err := pkgpg.NewClient(ctx,
		pkgpg.WithHost(cfg.Postgres.Host),
		pkgpg.WithPort(cfg.Postgres.Port),
		pkgpg.WithDatabase(cfg.Postgres.Database),
		pkgpg.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		pkgpg.WithSSLMode(cfg.Postgres.SSLMode),
		pkgpg.WithPool(cfg.Postgres.MaxConns, cfg.Postgres.MinConns, cfg.Postgres.ConnMaxLifetime),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}

	if err := client.InitSchema(ctx, internalrepo.PostgresSchema); err != nil {
		client.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return client, nil
}

// ProvideClickHouseClient creates the ClickHouse client for the training
// archive. Returns nil when the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), clientInitTimeout)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ClickHouseSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRedisCache creates the Redis cache client shared by the limiter and
// the job queue.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.PoolSize/2, 30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideKafkaProducer creates the trigger-bus producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the trigger-bus consumer.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideTriggerPublisher creates the Kafka-backed trigger publisher.
func ProvideTriggerPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.TriggerPublisher {
	return internalrepo.NewKafkaTriggerPublisher(producer, cfg.Kafka.CollectionTopic, cfg.Kafka.AnalysisTopic)
}

// ProvideMarketLogStore creates the Postgres snapshot store.
func ProvideMarketLogStore(pg *pkgpg.Client, l *applogger.Logger) domrepo.MarketLogStore {
	return internalrepo.NewPGMarketLogStore(pg, l)
}

// ProvideProfitableLogStore creates the Postgres best-performer store.
func ProvideProfitableLogStore(pg *pkgpg.Client, l *applogger.Logger) domrepo.ProfitableLogStore {
	return internalrepo.NewPGProfitableLogStore(pg, l)
}

// ProvideVectorArchive creates the ClickHouse training archive, or nil when
// ClickHouse is disabled.
func ProvideVectorArchive(ch *pkgch.Client, l *applogger.Logger) domrepo.VectorArchive {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHVectorArchive(ch, l)
}

// ProvideExchangeRegistry builds fetchers for every enabled exchange.
func ProvideExchangeRegistry(cfg *config.Config, l *applogger.Logger) (*exchange.Registry, error) {
	client := xhttp.NewClient(xhttp.WithTimeout(15 * time.Second))

	configs := make([]exchange.Config, 0, len(cfg.Exchanges))
	for _, ex := range cfg.Exchanges {
		if !ex.Enabled {
			continue
		}
		configs = append(configs, exchange.Config{
			Name:        ex.Name,
			BaseURL:     ex.BaseURL,
			Assets:      ex.Assets,
			Quote:       ex.Quote,
			CandleLimit: cfg.Collection.CandleLimit,
		})
	}
	return exchange.NewRegistry(l, client, configs)
}

// ProvidePriceStream creates the websocket ticker stream, or nil when
// streaming is disabled.
func ProvidePriceStream(cfg *config.Config, l *applogger.Logger, m domrepo.Metrics) *exchange.PriceStream {
	if !cfg.Stream.Enabled {
		return nil
	}
	return exchange.NewPriceStream(l, m, cfg.Stream.ReconnectDelay, cfg.Stream.PingInterval)
}

// ProvideIndicatorEngine creates the technical indicator calculator.
func ProvideIndicatorEngine() indicator.Engine {
	return indicator.NewCalculator()
}

// ProvideRateLimiter creates the per-exchange collection limiter.
func ProvideRateLimiter(cfg *config.Config, l *applogger.Logger, rc *cache.RedisCache) *ratelimit.Limiter {
	interval := time.Duration(cfg.Collection.IntervalMinutes) * time.Minute
	return ratelimit.New(l, rc, interval)
}

// ProvideCollector creates the collection usecase.
func ProvideCollector(
	l *applogger.Logger,
	registry *exchange.Registry,
	engine indicator.Engine,
	store domrepo.MarketLogStore,
	m domrepo.Metrics,
	stream *exchange.PriceStream,
	cfg *config.Config,
) *usecase.Collector {
	// Assign through a concrete nil check so a disabled stream stays a nil
	// interface, not a non-nil interface holding a nil pointer.
	var src usecase.PriceSource
	if stream != nil {
		src = stream
	}
	return usecase.NewCollector(l, registry, engine, store, m, src, cfg.Collection.Pause)
}

// ProvideLabeler creates the profitability labeling engine.
func ProvideLabeler(
	l *applogger.Logger,
	logStore domrepo.MarketLogStore,
	profitable domrepo.ProfitableLogStore,
	archive domrepo.VectorArchive,
	m domrepo.Metrics,
	cfg *config.Config,
) *learning.Labeler {
	return learning.NewLabeler(l, logStore, profitable, archive, m, learning.LabelerConfig{
		WindowDays:       cfg.Analysis.WindowDays,
		MaxHours:         cfg.Analysis.MaxHours,
		ProfitThreshold:  cfg.Analysis.ProfitThreshold,
		PublishThreshold: cfg.Analysis.PublishThreshold,
		BatchSize:        cfg.Analysis.BatchSize,
		RetentionDays:    cfg.Analysis.RetentionDays,
	})
}

// ProvideStatusUseCase creates the collection status surface.
func ProvideStatusUseCase(l *applogger.Logger, registry *exchange.Registry, limiter *ratelimit.Limiter) *usecase.StatusUseCase {
	return usecase.NewStatusUseCase(l, registry, limiter)
}

// ProvideScheduler creates the trigger scheduler.
func ProvideScheduler(l *applogger.Logger, publisher domrepo.TriggerPublisher, registry *exchange.Registry, cfg *config.Config) *usecase.Scheduler {
	return usecase.NewScheduler(l, publisher, registry.Names(), cfg.Analysis.DailyHourUTC)
}

// ProvideJobQueues creates the two Redis job queues. Collection and analysis
// run on separate lists so slow labeling passes never starve collection.
func ProvideJobQueues(
	l *applogger.Logger,
	cfg *config.Config,
	rc *cache.RedisCache,
	collector *usecase.Collector,
	limiter *ratelimit.Limiter,
	labeler *learning.Labeler,
) *server.JobQueues {
	collection := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Collection.Workers,
		RetryLimit: cfg.Collection.RetryLimit,
		RetryDelay: cfg.Collection.RetryDelay,
	}, rc.Client(), queue.ModeProducerConsumer,
		queue.WithKeyPrefix("marketpulse:queue:collection"))
	collection.RegisterJob(jobs.NewCollectionJob(l, collector, limiter))

	analysis := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Analysis.Workers,
		RetryLimit: cfg.Analysis.RetryLimit,
		RetryDelay: cfg.Analysis.RetryDelay,
	}, rc.Client(), queue.ModeProducerConsumer,
		queue.WithKeyPrefix("marketpulse:queue:analysis"))
	analysis.RegisterJob(jobs.NewAnalysisJob(l, labeler))

	return &server.JobQueues{Collection: collection, Analysis: analysis}
}

// ProvideTriggerBridges connects the Kafka topics to the local job queues.
func ProvideTriggerBridges(cfg *config.Config, qs *server.JobQueues, l *applogger.Logger) []pkgkafka.MessageHandler {
	return []pkgkafka.MessageHandler{
		internalrepo.NewTriggerBridge(cfg.Kafka.CollectionTopic, models.MessageTypeCollection, qs.Collection, l),
		internalrepo.NewTriggerBridge(cfg.Kafka.AnalysisTopic, models.MessageTypeAnalysis, qs.Analysis, l),
	}
}

// ProvideHTTPHandler assembles the API surface.
func ProvideHTTPHandler(
	l *applogger.Logger,
	status *usecase.StatusUseCase,
	publisher domrepo.TriggerPublisher,
	profitable domrepo.ProfitableLogStore,
	pg *pkgpg.Client,
) *api.Handler {
	h := api.NewHandler(
		api.NewStatusHandler(l, status),
		api.NewAnalysisHandler(l, publisher),
		api.NewProfitableHandler(l, profitable),
	)
	h.Health = func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pg.Health(ctx)
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.Handler,
	queues *server.JobQueues,
	consumer *pkgkafka.Consumer,
	bridges []pkgkafka.MessageHandler,
	scheduler *usecase.Scheduler,
	stream *exchange.PriceStream,
	publisher domrepo.TriggerPublisher,
	pg *pkgpg.Client,
	ch *pkgch.Client,
	rc *cache.RedisCache,
) *server.App {
	for _, b := range bridges {
		consumer.RegisterHandler(b)
	}
	return server.New(cfg, l, handler, queues, consumer, scheduler, stream, publisher, pg, ch, rc)
}
