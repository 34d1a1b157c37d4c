// Package di provides dependency injection container
package di

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/characterize/pkg/api" //nolint:depguard
	"github.com/ssargent/characterize/pkg/characterize"
	"github.com/ssargent/characterize/pkg/config"
	"github.com/ssargent/characterize/pkg/dispatch"
	"github.com/ssargent/characterize/pkg/store"
)

// StoreOpener opens the report store
type StoreOpener func(cfg store.Config) (*store.Store, error)

// Container holds all the dependencies for the application
type Container struct {
	serverFactory api.ServerFactory
	storeOpener   StoreOpener
	registerer    prometheus.Registerer

	metricsOnce sync.Once
	metrics     *dispatch.Metrics
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		serverFactory: api.NewServerFactory(),
		storeOpener:   store.Open,
		registerer:    prometheus.DefaultRegisterer,
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// SetStoreOpener allows overriding how the report store is opened (for testing)
func (c *Container) SetStoreOpener(opener StoreOpener) {
	c.storeOpener = opener
}

// SetRegisterer sets where engine metrics are registered. It must be called
// before the first engine is created.
func (c *Container) SetRegisterer(reg prometheus.Registerer) {
	c.registerer = reg
}

// NewEngine builds a characterization engine from cfg. Engines created by
// one container share their dispatcher metrics.
func (c *Container) NewEngine(cfg *config.Config, logger *slog.Logger) (*characterize.Engine, error) {
	opts, err := characterize.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	c.metricsOnce.Do(func() {
		if c.registerer != nil {
			c.metrics = dispatch.NewMetrics(c.registerer)
		}
	})
	return characterize.New(opts,
		characterize.WithLogger(logger),
		characterize.WithMetrics(c.metrics),
	), nil
}

// OpenStore opens the report store under cfg's data directory
func (c *Container) OpenStore(cfg *config.Config) (*store.Store, error) {
	tag, err := store.ParseCompressionTag(cfg.Store.Compression)
	if err != nil {
		return nil, err
	}
	return c.storeOpener(store.Config{Dir: cfg.StoreDir(), Compression: tag})
}
