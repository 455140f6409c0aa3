package main

import (
	"database/sql"
	"fmt"
	"os"

	account "github.com/goliatone/go-account"
	"github.com/goliatone/go-account/activitymap"
	"github.com/goliatone/go-account/config"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-account/mailer"
	"github.com/goliatone/go-account/metrics"
	"github.com/goliatone/go-account/pwned"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// app holds the components built from the environment
type app struct {
	cfg      *config.Config
	db       *bun.DB
	redis    *redis.Client
	provider account.ZerologProvider
	logger   account.Logger
	registry *prometheus.Registry
	activity account.ActivitySink
}

func newApp(verbose bool) (*app, error) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	base := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := openDB(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	sink, err := metrics.NewSink(registry)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		db:       db,
		provider: account.ZerologProvider{Base: base},
		registry: registry,
	}
	a.logger = a.provider.GetLogger("accountctl")
	a.activity = account.MultiActivitySink{
		sink,
		activitymap.NewLogSink(a.provider.GetLogger("account.activity")),
	}

	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", "error", err)
	}
}

func openDB(driver, dsn string) (*bun.DB, error) {
	switch driver {
	case config.DriverPostgres:
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case config.DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

func (a *app) repository() account.RepositoryManager {
	return account.NewRepositoryManager(a.db)
}

func (a *app) strengthGate() *account.PasswordStrengthGate {
	var opts []account.GateOption
	if pwnedOpts := a.cfg.PwnedOptions(a.provider.GetLogger("account.pwned")); pwnedOpts != nil {
		opts = append(opts, account.WithBreachChecker(pwned.New(pwnedOpts...)))
	}
	return account.NewPasswordStrengthGate(opts...)
}

func (a *app) mailer() (account.Mailer, error) {
	smtp, ok := a.cfg.MailerConfig()
	if !ok {
		return account.ConsoleMailer{Out: os.Stdout}, nil
	}
	return mailer.NewDispatcher(smtp,
		mailer.WithRenderer(mailer.NewRenderer(
			mailer.WithWebsiteName(a.cfg.WebsiteName),
			mailer.WithBaseURL(a.cfg.BaseURL),
		)),
		mailer.WithLogger(a.provider.GetLogger("account.mailer")),
	)
}

// errNoSharedScheduler is returned by commands that read schedules
// written by another process
var errNoSharedScheduler = goerrors.New("teardown needs ACCOUNT_REDIS_ADDR: deletions scheduled by the web process are not visible in memory", goerrors.CategoryBadInput).
	WithTextCode("SHARED_SCHEDULER_REQUIRED")

// requireSharedScheduler fails unless schedules are kept in redis
func (a *app) requireSharedScheduler() error {
	if a.redis == nil {
		return errNoSharedScheduler
	}
	return nil
}

func (a *app) scheduler() account.DeletionScheduler {
	if a.redis == nil {
		return account.NewMemoryDeletionScheduler()
	}
	return account.NewRedisDeletionScheduler(a.redis,
		account.WithRedisScheduleTTL(a.cfg.DeletionScheduleTTL),
	)
}

func (a *app) lifecycle() (*account.Lifecycle, error) {
	m, err := a.mailer()
	if err != nil {
		return nil, err
	}
	return account.NewLifecycle(a.repository(), a.cfg.NewHasher(), m,
		account.WithLifecycleConfig(a.cfg.Settings()),
		account.WithStrengthGate(a.strengthGate()),
		account.WithDeletionScheduler(a.scheduler()),
		account.WithActivitySink(a.activity),
		account.WithEmailDerivedIDs(a.cfg.EmailDerivedIDs),
		account.WithLoggerProvider(a.provider),
	), nil
}
