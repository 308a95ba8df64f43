package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Eldo84/live-health-sub002/internal/config"
	"github.com/Eldo84/live-health-sub002/internal/filter"
	"github.com/Eldo84/live-health-sub002/internal/geo"
	"github.com/Eldo84/live-health-sub002/internal/metrics"
	"github.com/Eldo84/live-health-sub002/internal/pipeline"
	"github.com/Eldo84/live-health-sub002/internal/source"
)

// app is the wired process: one orchestrator plus what it needs to close.
type app struct {
	orchestrator *pipeline.Orchestrator
	registry     *prometheus.Registry
	redis        *redis.Client
	log          *zap.Logger
}

func build(cfg *config.Config, log *zap.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	gaz, err := geo.DefaultGazetteer()
	if err != nil {
		return nil, err
	}
	f, err := filter.FromConfig(cfg.Filter)
	if err != nil {
		return nil, err
	}

	a := &app{registry: reg, log: log}
	opts := []geo.Option{geo.WithMetrics(m), geo.WithLogger(log)}
	if g := geo.NewGeocoderFromConfig(cfg.Geocode); g != nil {
		opts = append(opts, geo.WithGeocoder(g), geo.WithCache(geo.NewMemoryCache(cfg.Geocode.Cache.MaxKeys, cfg.Geocode.Cache.TTL)))
		if rc := cfg.Geocode.Redis; rc.Addr != "" {
			a.redis = redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := a.redis.Ping(ctx).Err(); err != nil {
				// the cache treats errors as misses, so a down redis only costs budget
				log.Warn("redis unreachable, geocode cache degraded", zap.String("addr", rc.Addr), zap.Error(err))
			}
			opts = append(opts, geo.WithCache(geo.NewRedisCache(a.redis, rc.TTL, log)))
		}
		log.Info("external geocoding enabled", zap.String("provider", g.Name()), zap.Int("budget", cfg.Geocode.Budget))
	} else {
		log.Info("no geocoding key, resolving with the gazetteer only")
	}

	set := source.NewFromConfig(cfg.Sources, log)
	a.orchestrator = pipeline.New(pipeline.Deps{
		Sources:     pipeline.SourcesFrom(set),
		Resolver:    geo.NewResolver(gaz, opts...),
		Filter:      f,
		Metrics:     m,
		Logger:      log,
		Budget:      cfg.Geocode.Budget,
		Concurrency: cfg.Geocode.Concurrency,
	})
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("close redis", zap.Error(err))
		}
	}
}
