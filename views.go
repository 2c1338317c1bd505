package viewscope

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/sitekit/viewscope/pkg/cache"
	"github.com/sitekit/viewscope/pkg/config"
	"github.com/sitekit/viewscope/pkg/logger"
	"github.com/sitekit/viewscope/pkg/metrics"
	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/render"
	"github.com/sitekit/viewscope/pkg/store"
)

// Views applies the website policy on top of a storage engine. It is safe
// for concurrent use.
type Views struct {
	store   store.Store
	cfg     *config.Config
	log     zerolog.Logger
	reg     prometheus.Registerer
	metrics *metrics.Metrics
	cache   *cache.Cache
	engine  render.Engine
}

// Option configures a Views.
type Option func(*Views)

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(v *Views) { v.cfg = cfg }
}

// WithLogger sets the logger forks and deletions are reported on.
func WithLogger(l zerolog.Logger) Option {
	return func(v *Views) { v.log = l }
}

// WithRegisterer registers the metrics of the instance on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(v *Views) { v.reg = reg }
}

// WithRenderer sets the engine Render hands templates to.
func WithRenderer(e render.Engine) Option {
	return func(v *Views) { v.engine = e }
}

// New returns a Views over st. Without options it uses the default
// configuration, discards logs, leaves metrics unregistered and renders
// with render.ArchEngine.
func New(st store.Store, opts ...Option) (*Views, error) {
	v := &Views{
		store:  st,
		cfg:    config.NewConfig(),
		log:    logger.Nop(),
		engine: render.ArchEngine{},
	}
	for _, opt := range opts {
		opt(v)
	}
	if err := v.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	v.metrics = metrics.New(v.reg)
	cacheOpts := []cache.Option{cache.WithObserver(v.metrics.CacheLookup)}
	if !v.cfg.Cache.Enabled {
		cacheOpts = append(cacheOpts, cache.Disabled())
	}
	v.cache = cache.New(cacheOpts...)
	return v, nil
}

// Store returns the underlying storage engine.
func (v *Views) Store() store.Store {
	return v.store
}

// Config returns the configuration in use.
func (v *Views) Config() *config.Config {
	return v.cfg
}

// Create stores a new template. Templates created this way are whatever
// the caller says they are; no website policy applies.
func (v *Views) Create(ctx context.Context, t *models.Template) (*models.Template, error) {
	defer v.cache.Invalidate()
	created, err := v.store.Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to create view %q: %w", t.Key, err)
	}
	return created, nil
}

// InvalidateCache drops every cached key resolution.
func (v *Views) InvalidateCache() {
	v.cache.Invalidate()
}
