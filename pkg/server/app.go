package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/handler/api"
	"MarketPulse/internal/service/exchange"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/cache"
	pkgch "MarketPulse/pkg/clickhouse"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	pkgkafka "MarketPulse/pkg/kafka"
	applogger "MarketPulse/pkg/logger"
	pkgpg "MarketPulse/pkg/postgres"
	"MarketPulse/pkg/queue"
)

// JobQueues groups the two worker queues.
type JobQueues struct {
	Collection *queue.RedisQueue
	Analysis   *queue.RedisQueue
}

// All returns the queues in start order.
func (q *JobQueues) All() []*queue.RedisQueue {
	return []*queue.RedisQueue{q.Collection, q.Analysis}
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	handler    *api.Handler
	jobQueues  *JobQueues
	consumer   *pkgkafka.Consumer
	scheduler  *usecase.Scheduler
	stream     *exchange.PriceStream
	publisher  domrepo.TriggerPublisher
	pgClient   *pkgpg.Client
	chClient   *pkgch.Client
	redisCache *cache.RedisCache
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler *api.Handler,
	jobQueues *JobQueues,
	consumer *pkgkafka.Consumer,
	scheduler *usecase.Scheduler,
	stream *exchange.PriceStream,
	publisher domrepo.TriggerPublisher,
	pgClient *pkgpg.Client,
	chClient *pkgch.Client,
	redisCache *cache.RedisCache,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		handler:    handler,
		jobQueues:  jobQueues,
		consumer:   consumer,
		scheduler:  scheduler,
		stream:     stream,
		publisher:  publisher,
		pgClient:   pgClient,
		chClient:   chClient,
		redisCache: redisCache,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
	)

	// Start the job queue workers and their retry loops.
	for _, q := range a.jobQueues.All() {
		if err := q.Start(); err != nil {
			l.Error("job queue start error", applogger.Error(err))
			return err
		}
		q.StartRetryProcessor()
	}
	l.Info("job queues started",
		applogger.Int("collection_workers", a.cfg.Collection.Workers),
		applogger.Int("analysis_workers", a.cfg.Analysis.Workers),
	)

	// Start the trigger-bus consumer.
	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started",
			applogger.String("collection_topic", a.cfg.Kafka.CollectionTopic),
			applogger.String("analysis_topic", a.cfg.Kafka.AnalysisTopic),
		)
	}

	// Start the live price stream.
	if a.stream != nil {
		go a.stream.Run(ctx)
		l.Info("price stream started")
	}

	// Start the trigger scheduler.
	go a.scheduler.Run(ctx)
	l.Info("scheduler started",
		applogger.Int("interval_minutes", a.cfg.Collection.IntervalMinutes),
		applogger.Int("daily_hour_utc", a.cfg.Analysis.DailyHourUTC),
	)

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	for _, q := range a.jobQueues.All() {
		if err := q.Stop(shutdownCtx); err != nil {
			l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			l.Warn("price stream close error", applogger.Error(err))
		}
	}

	if closer, ok := a.publisher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			l.Warn("trigger publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redisCache != nil {
		if err := a.redisCache.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}
	if a.pgClient != nil {
		a.pgClient.Close()
	}

	l.Info("shutdown complete")
	return nil
}
