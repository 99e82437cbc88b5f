package resolver

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"karolbroda.com/lyricsync/internal/logging"
	"karolbroda.com/lyricsync/internal/lyrics"
)

type Cache interface {
	Get(ctx context.Context, title, artist string) (lyrics.Document, bool)
	Put(ctx context.Context, title, artist string, doc lyrics.Document) bool
}

type Fetcher interface {
	Name() string
	FetchByQuery(ctx context.Context, title, artist string) (lyrics.Document, bool)
}

type Request struct {
	Title    string
	Artist   string
	Album    string
	UseCache bool
	// Network false restricts the lookup to the cache.
	Network bool
}

type Result struct {
	Document  lyrics.Document
	Source    string
	FromCache bool
}

// Resolver looks lyrics up in the cache first and falls back to the
// fetchers in priority order.
type Resolver struct {
	cache    Cache
	fetchers []Fetcher
}

// New builds a resolver. cache may be nil.
func New(cache Cache, fetchers ...Fetcher) *Resolver {
	return &Resolver{cache: cache, fetchers: fetchers}
}

// Resolve never fails; when nothing is found it returns the empty
// document, and with useCache set it remembers that.
func (r *Resolver) Resolve(ctx context.Context, title, artist, album string, useCache bool) lyrics.Document {
	return r.Lookup(ctx, Request{
		Title:    title,
		Artist:   artist,
		Album:    album,
		UseCache: useCache,
		Network:  true,
	}).Document
}

func (r *Resolver) Lookup(ctx context.Context, req Request) Result {
	logger := log.WithFields(log.Fields{
		"req":    uuid.NewString()[:8],
		"title":  req.Title,
		"artist": req.Artist,
	})

	useCache := req.UseCache && r.cache != nil

	if useCache {
		if doc, ok := r.cache.Get(ctx, req.Title, req.Artist); ok {
			logger.Debugf("%s cache hit (%d lines)", logging.Resolver, doc.Len())
			return Result{Document: doc, Source: "cache", FromCache: true}
		}
	}

	if !req.Network {
		logger.Debugf("%s cache miss, network lookups disabled", logging.Resolver)
		return Result{Document: lyrics.Empty()}
	}

	for _, f := range r.fetchers {
		if ctx.Err() != nil {
			break
		}

		doc, ok := f.FetchByQuery(ctx, req.Title, req.Artist)
		if !ok || doc.IsEmpty() {
			logger.Debugf("%s %s had nothing", logging.Resolver, f.Name())
			continue
		}

		logger.Infof("%s found %d lines via %s", logging.Resolver, doc.Len(), f.Name())
		if useCache {
			r.cache.Put(ctx, req.Title, req.Artist, doc)
		}
		return Result{Document: doc, Source: f.Name()}
	}

	// a cancelled lookup proves nothing, so it must not be remembered
	if ctx.Err() != nil {
		logger.Debugf("%s lookup cancelled: %v", logging.Resolver, ctx.Err())
		return Result{Document: lyrics.Empty()}
	}

	logger.Infof("%s no lyrics found", logging.Resolver)
	if useCache {
		r.cache.Put(ctx, req.Title, req.Artist, lyrics.Empty())
	}
	return Result{Document: lyrics.Empty()}
}
