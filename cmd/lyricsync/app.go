package main

import (
	"time"

	log "github.com/sirupsen/logrus"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/logging"
	"karolbroda.com/lyricsync/internal/provider"
	"karolbroda.com/lyricsync/internal/resolver"
)

func openCache(c *config.Config) (*cache.Store, error) {
	return cache.Open(cache.Options{
		Backend:       c.Cache.Backend,
		Dir:           c.Cache.Dir,
		Compression:   c.Cache.Compression,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
		RedisPrefix:   c.Cache.RedisPrefix,
	})
}

func buildSources(c *config.Config) ([]*provider.Source, error) {
	return provider.Build(provider.Options{
		Order:            c.Providers.Order,
		Timeout:          time.Duration(c.Providers.TimeoutSeconds) * time.Second,
		UserAgent:        c.Providers.UserAgent,
		RatePerSecond:    c.Providers.RatePerSecond,
		Burst:            c.Providers.Burst,
		BreakerThreshold: c.Providers.BreakerThreshold,
		BreakerCooldown:  time.Duration(c.Providers.BreakerCooldownSeconds) * time.Second,
		LrclibURL:        c.Providers.LrclibURL,
		NeteaseURL:       c.Providers.NeteaseURL,
		KugouURL:         c.Providers.KugouURL,
		GenericURL:       c.Providers.GenericBaseURL,
	})
}

// newResolver wires the cache and providers together. A cache that fails
// to open only costs speed, so the resolver runs without it. The returned
// store may be nil.
func newResolver(c *config.Config) (*resolver.Resolver, *cache.Store, error) {
	sources, err := buildSources(c)
	if err != nil {
		return nil, nil, err
	}

	fetchers := make([]resolver.Fetcher, len(sources))
	for i, s := range sources {
		fetchers[i] = s
	}

	store, err := openCache(c)
	if err != nil {
		log.Warnf("%s unavailable, continuing without it: %v", logging.Cache, err)
		return resolver.New(nil, fetchers...), nil, nil
	}

	return resolver.New(store, fetchers...), store, nil
}
