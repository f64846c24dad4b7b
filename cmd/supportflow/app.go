package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ritotombe/supportflow"
	"github.com/ritotombe/supportflow/internal/config"
	"github.com/ritotombe/supportflow/internal/logging"
	"github.com/ritotombe/supportflow/pkg/adapters/file"
	"github.com/ritotombe/supportflow/pkg/adapters/intake"
	"github.com/ritotombe/supportflow/pkg/adapters/memory"
	"github.com/ritotombe/supportflow/pkg/adapters/openai"
	"github.com/ritotombe/supportflow/pkg/adapters/redis"
	"github.com/ritotombe/supportflow/pkg/adapters/sqlite"
	"github.com/ritotombe/supportflow/pkg/observability"
	"github.com/ritotombe/supportflow/pkg/persistence/middleware"
	"github.com/ritotombe/supportflow/pkg/ports"
)

// app holds everything a command needs, built from the config.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	engine  *supportflow.Engine
	metrics *observability.Metrics

	closers []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// loadConfig reads the config named by the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(w, level, cfg.Log.Format), nil
}

// threadStore opens the configured thread backend. The redis client is
// returned so the lock can share it; it is nil for other backends.
func threadStore(cfg *config.Config) (ports.ThreadStore, *redis.Store, error) {
	switch cfg.Threads.Backend {
	case config.ThreadsFile:
		return file.New(cfg.Threads.Dir), nil, nil
	case config.ThreadsRedis:
		var opts []redis.Option
		if cfg.Threads.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Threads.TTL))
		}
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		return rs, rs, nil
	case config.ThreadsMemory:
		return memory.NewStore(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown thread backend %q", cfg.Threads.Backend)
}

// protect wraps the thread store with masking and encryption as configured.
// Masking runs first so sealed threads never hold raw PII.
func protect(store ports.ThreadStore, cfg config.Threads) (ports.ThreadStore, error) {
	var mws []middleware.Middleware
	if cfg.MaskPII {
		mw, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	key, err := cfg.Key()
	if err != nil {
		return nil, err
	}
	if key != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), nil
}

// newApp wires the stores, adapters and engine. logOut receives the logs.
func newApp(cmd *cobra.Command, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, logOut)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}

	threads, rs, err := threadStore(cfg)
	if err != nil {
		return nil, err
	}
	if rs != nil {
		a.closers = append(a.closers, rs)
	}
	threads, err = protect(threads, cfg.Threads)
	if err != nil {
		a.Close()
		return nil, err
	}

	var locker ports.DistributedLocker
	if cfg.Locking.Enabled {
		if rs == nil {
			rs = redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			a.closers = append(a.closers, rs)
		}
		locker = redis.NewLocker(rs.Client(), "supportflow:")
	}

	customerDB, err := sqlite.Open(cfg.Storage.CustomerDB)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open customer db: %w", err)
	}
	a.closers = append(a.closers, customerDB)

	ticketDB, err := sqlite.Open(cfg.Storage.TicketDB)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open ticket db: %w", err)
	}
	a.closers = append(a.closers, ticketDB)

	customerOpts := []sqlite.CustomerOption{sqlite.WithCustomerLogger(a.logger.With("component", "customers"))}
	if locker != nil {
		customerOpts = append(customerOpts, sqlite.WithLocker(locker))
	}
	customers := sqlite.NewCustomerStore(customerDB, customerOpts...)
	tickets := sqlite.NewTicketStore(ticketDB)

	llm := openai.New(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, openai.WithLogger(a.logger.With("component", "openai")))
	notifier := intake.New(intake.Config{
		BaseURL:  cfg.Intake.BaseURL,
		Path:     cfg.Intake.Path,
		APIToken: cfg.Intake.APIToken,
		APIKey:   cfg.Intake.APIKey,
		Timeout:  cfg.Intake.Timeout,
	}, intake.WithLogger(a.logger.With("component", "intake")))

	opts := []supportflow.Option{
		supportflow.WithLogger(a.logger),
		supportflow.WithLifecycleHooks(a.metrics.Hooks()),
		supportflow.WithThreadStore(threads),
		supportflow.WithDefaults(cfg.Defaults),
		supportflow.WithMaxInputSize(cfg.MaxInputSize),
	}
	if locker != nil {
		opts = append(opts, supportflow.WithThreadLocker(locker))
	}
	if cfg.Routing.Strategy == config.RoutingLLM {
		opts = append(opts, supportflow.WithLLMRouting())
	}

	a.engine, err = supportflow.New(supportflow.Dependencies{
		LLM:       llm,
		Search:    tickets,
		Customers: customers,
		Tickets:   tickets,
		Notifier:  notifier,
	}, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
