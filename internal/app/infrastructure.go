package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prperemyshlev/identity-service/internal/config"
	"github.com/prperemyshlev/identity-service/internal/mailer"
	"github.com/prperemyshlev/identity-service/internal/repository"
	"github.com/prperemyshlev/identity-service/pkg/database"
	"github.com/prperemyshlev/identity-service/pkg/observability"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const serviceName = "identity-service"

// Store is the connection behind the credential store
type Store interface {
	Ping(ctx context.Context) error
	Close() error
}

type Infrastructure interface {
	Store() Store
	Repositories() *repository.Repositories
	Redis() *database.Redis
	Mailer() mailer.Sender
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() *metric.MeterProvider

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	store          Store
	repos          *repository.Repositories
	redis          *database.Redis
	mailer         mailer.Sender
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
}

var _ Infrastructure = &infrastructure{}

func NewInfrastructure(ctx context.Context, cfg config.Config) (*infrastructure, error) {
	i := &infrastructure{}

	logger, err := observability.InitLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger

	store, repos, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	i.store = store
	i.repos = repos

	redis, err := database.NewRedis(ctx, database.RedisOptions{
		Addr:         cfg.Redis.Address(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout.Duration,
		ReadTimeout:  cfg.Redis.ReadTimeout.Duration,
		WriteTimeout: cfg.Redis.WriteTimeout.Duration,
	})
	if err != nil {
		_ = i.store.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	i.redis = redis

	sender, err := newMailer(cfg.Mail, logger)
	if err != nil {
		_ = i.store.Close()
		_ = i.redis.Close()
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}
	i.mailer = sender

	meterProvider, metricsHandler, err := observability.InitTelemetry(observability.ServiceInfo{
		Name:        serviceName,
		Version:     cfg.Version,
		Environment: cfg.Env,
	})
	if err != nil {
		_ = i.store.Close()
		_ = i.redis.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.meterProvider = meterProvider
	i.metricsHandler = metricsHandler

	return i, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (Store, *repository.Repositories, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		postgres, err := database.NewPostgres(ctx, cfg.Postgres.DSN(), database.PostgresOptions{
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime.Duration,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}

		if cfg.Postgres.MigrateOnBoot {
			if err := postgres.Migrate(); err != nil {
				_ = postgres.Close()
				return nil, nil, err
			}
			logger.Info("database migrations applied")
		}

		return postgres, repository.NewRepositories(postgres), nil

	case config.StoreDriverMongo:
		mongo, err := database.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.ConnectTimeout.Duration, cfg.Mongo.MaxPoolSize)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}

		store := repository.NewMongoStore(mongo.Database)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = mongo.Close()
			return nil, nil, err
		}

		return mongo, repository.NewMongoRepositories(store), nil

	case config.StoreDriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return memoryStore{}, repository.NewMemoryRepositories(), nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func newMailer(cfg config.MailConfig, logger *zap.Logger) (mailer.Sender, error) {
	var sender mailer.Sender

	switch cfg.Driver {
	case config.MailDriverPostmark:
		postmark, err := mailer.NewPostmarkSender(mailer.PostmarkConfig{
			ServerToken:  cfg.PostmarkServerToken,
			AccountToken: cfg.PostmarkAccountToken,
			SenderEmail:  cfg.SenderEmail,
			SupportEmail: cfg.SupportEmail,
		})
		if err != nil {
			return nil, err
		}
		sender = postmark
	default:
		sender = mailer.NewLogSender(logger)
	}

	return mailer.NewBreakerSender(sender, cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout.Duration, logger), nil
}

// memoryStore stands in for a connection when data lives in process
type memoryStore struct{}

func (memoryStore) Ping(context.Context) error { return nil }
func (memoryStore) Close() error               { return nil }

func (i *infrastructure) Store() Store {
	return i.store
}

func (i *infrastructure) Repositories() *repository.Repositories {
	return i.repos
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) Mailer() mailer.Sender {
	return i.mailer
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *infrastructure) MeterProvider() *metric.MeterProvider {
	return i.meterProvider
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	errs := make(chan error, 3)

	go func() { errs <- i.store.Close() }()
	go func() { errs <- i.redis.Close() }()
	go func() { errs <- observability.Shutdown(ctx, i.meterProvider, i.logger) }()

	return errors.Join(<-errs, <-errs, <-errs)
}
