package commands

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erpledger/erpledger/internal/accounts"
	"github.com/erpledger/erpledger/internal/assets"
	"github.com/erpledger/erpledger/internal/config"
	"github.com/erpledger/erpledger/internal/events"
	"github.com/erpledger/erpledger/internal/journal"
	"github.com/erpledger/erpledger/internal/ledger"
	"github.com/erpledger/erpledger/internal/logging"
	"github.com/erpledger/erpledger/internal/metrics"
	"github.com/erpledger/erpledger/internal/reports"
	"github.com/erpledger/erpledger/internal/store"
)

// app is the wired object graph behind every command.
type app struct {
	cfg     *config.Config
	tenant  string
	logger  *zap.Logger
	metrics *metrics.Metrics
	db      *gorm.DB

	// registry holds a.metrics plus runtime collectors; consume serves it.
	registry *prometheus.Registry

	dispatcher *events.Dispatcher
	broker     io.Closer

	accounts *accounts.Registry
	poster   *journal.Poster
	ledger   *ledger.Ledger
	reports  *reports.Generator
	assets   *assets.Service
}

func openApp(opts *rootOptions) (*app, error) {
	cfg, err := config.LoadOrEnv(opts.configPath)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, opts.tenant)
}

func newApp(cfg *config.Config, tenant string) (*app, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	if tenant == "" {
		tenant = cfg.Tenant
	}
	if tenant == "" {
		return nil, fmt.Errorf("no tenant: set --tenant or tenant in the config")
	}

	db, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &app{
		cfg:      cfg,
		tenant:   tenant,
		logger:   logger,
		metrics:  metrics.NewWithRegistry(registry),
		db:       db,
		registry: registry,
	}

	a.dispatcher = events.NewDispatcher(a.publisher(),
		events.WithLogger(logger),
		events.WithMetrics(a.metrics),
		events.WithBufferSize(cfg.Events.BufferSize),
		events.WithPublishTimeout(cfg.Events.PublishTimeout),
	)

	a.accounts = accounts.NewRegistry(db,
		accounts.WithLogger(logger),
		accounts.WithMetrics(a.metrics),
		accounts.WithTreeCache(accounts.NewTreeCache(cfg.Cache.TreeSize, cfg.Cache.TreeTTL)),
	)
	a.poster = journal.NewPoster(db,
		journal.WithLogger(logger),
		journal.WithMetrics(a.metrics),
		journal.WithNotifier(a.dispatcher),
	)
	a.ledger = ledger.New(db)
	a.reports = reports.New(db, reports.WithLogger(logger), reports.WithMetrics(a.metrics))
	a.assets = assets.NewService(db, a.poster, assets.WithLogger(logger), assets.WithMetrics(a.metrics))
	return a, nil
}

// publisher connects to the broker when one is configured. A broker that
// cannot be reached degrades to logging; posting never depends on it.
func (a *app) publisher() events.Publisher {
	if a.cfg.Events.AMQPURL == "" {
		return events.NewLogPublisher(a.logger)
	}
	pub, err := events.DialAMQP(a.cfg.Events.AMQPURL, a.cfg.Events.Exchange)
	if err != nil {
		a.logger.Warn("event broker unavailable, logging events instead", zap.Error(err))
		return events.NewLogPublisher(a.logger)
	}
	a.broker = pub
	return pub
}

// Close drains pending events and releases connections.
func (a *app) Close() {
	a.dispatcher.Close()
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.logger.Warn("closing broker", zap.Error(err))
		}
	}
	if err := store.Close(a.db); err != nil {
		a.logger.Warn("closing database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
