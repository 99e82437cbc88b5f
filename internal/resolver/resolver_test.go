package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/provider"
)

type mockFetcher struct {
	name  string
	doc   lyrics.Document
	ok    bool
	calls int32
	hook  func(ctx context.Context)
}

func (m *mockFetcher) Name() string { return m.name }

func (m *mockFetcher) FetchByQuery(ctx context.Context, title, artist string) (lyrics.Document, bool) {
	atomic.AddInt32(&m.calls, 1)
	if m.hook != nil {
		m.hook(ctx)
	}
	return m.doc, m.ok
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string]lyrics.Document
	puts int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string]lyrics.Document)}
}

func (c *memoryCache) Get(_ context.Context, title, artist string) (lyrics.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.data[cache.Key(title, artist)]
	return doc, ok
}

func (c *memoryCache) Put(_ context.Context, title, artist string, doc lyrics.Document) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.data[cache.Key(title, artist)] = doc
	return true
}

func threeLineDoc() lyrics.Document {
	return lyrics.Parse("[00:01.00]a\n[00:02.00]b\n[00:03.00]c")
}

func TestResolvePriorityOrder(t *testing.T) {
	first := &mockFetcher{name: "first", doc: lyrics.Empty(), ok: false}
	second := &mockFetcher{name: "second", doc: threeLineDoc(), ok: true}
	third := &mockFetcher{name: "third", doc: threeLineDoc(), ok: true}

	r := New(nil, first, second, third)
	res := r.Lookup(context.Background(), Request{Title: "River", Artist: "Joni", Network: true})

	if res.Document.Len() != 3 || res.Source != "second" {
		t.Errorf("expected 3 lines from second, got %d from %q", res.Document.Len(), res.Source)
	}
	if third.calls != 0 {
		t.Errorf("third provider should not be called, got %d", third.calls)
	}
}

func TestResolveSkipsEmptyDocuments(t *testing.T) {
	empty := &mockFetcher{name: "empty", doc: lyrics.Empty(), ok: true}
	full := &mockFetcher{name: "full", doc: threeLineDoc(), ok: true}

	doc := New(nil, empty, full).Resolve(context.Background(), "River", "Joni", "", false)
	if doc.Len() != 3 {
		t.Errorf("expected fallback past empty result, got %d lines", doc.Len())
	}
}

func TestResolveCacheHitSkipsNetwork(t *testing.T) {
	c := newMemoryCache()
	c.Put(context.Background(), "River", "Joni", threeLineDoc())
	f := &mockFetcher{name: "net", doc: threeLineDoc(), ok: true}

	res := New(c, f).Lookup(context.Background(), Request{Title: "River", Artist: "Joni", UseCache: true, Network: true})
	if !res.FromCache || res.Document.Len() != 3 {
		t.Errorf("expected cache hit, got %+v", res)
	}
	if f.calls != 0 {
		t.Errorf("expected no provider calls, got %d", f.calls)
	}
}

func TestResolveEmptyResultIsCachedOnce(t *testing.T) {
	c := newMemoryCache()
	f := &mockFetcher{name: "net", ok: false}
	r := New(c, f)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		doc := r.Resolve(ctx, "Unknown", "Nobody", "", true)
		if !doc.IsEmpty() {
			t.Fatalf("call %d: expected empty document", i)
		}
	}

	if f.calls != 1 {
		t.Errorf("expected exactly one provider call, got %d", f.calls)
	}
}

func TestResolveWithoutCacheNeverWrites(t *testing.T) {
	c := newMemoryCache()
	f := &mockFetcher{name: "net", doc: threeLineDoc(), ok: true}
	r := New(c, f)

	r.Resolve(context.Background(), "River", "Joni", "", false)
	r.Resolve(context.Background(), "Unknown", "", "", false)

	if c.puts != 0 {
		t.Errorf("expected no cache writes, got %d", c.puts)
	}
	if f.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", f.calls)
	}
}

func TestResolveCacheOnlyMissDoesNotStoreEmpty(t *testing.T) {
	c := newMemoryCache()
	f := &mockFetcher{name: "net", doc: threeLineDoc(), ok: true}

	res := New(c, f).Lookup(context.Background(), Request{Title: "River", Artist: "Joni", UseCache: true, Network: false})
	if !res.Document.IsEmpty() {
		t.Error("expected empty document")
	}
	if f.calls != 0 || c.puts != 0 {
		t.Errorf("expected no provider calls and no writes, got %d calls %d puts", f.calls, c.puts)
	}
}

func TestResolveCancelledLookupIsNotCached(t *testing.T) {
	c := newMemoryCache()
	ctx, cancel := context.WithCancel(context.Background())
	first := &mockFetcher{name: "first", hook: func(context.Context) { cancel() }}
	second := &mockFetcher{name: "second", doc: threeLineDoc(), ok: true}

	doc := New(c, first, second).Resolve(ctx, "River", "Joni", "", true)
	if !doc.IsEmpty() {
		t.Error("expected empty document after cancellation")
	}
	if second.calls != 0 {
		t.Errorf("cancelled lookup should stop, got %d calls", second.calls)
	}
	if c.puts != 0 {
		t.Errorf("cancelled lookup must not be cached, got %d puts", c.puts)
	}
}

// River by Joni: provider A has no candidates, provider B has one whose
// text parses to three lines.
func TestResolveRiverScenario(t *testing.T) {
	var aCalls, bSearches, bFetches int32

	serverA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&aCalls, 1)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer serverA.Close()

	serverB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			atomic.AddInt32(&bSearches, 1)
			w.Write([]byte(`{"data":[{"id":"b1","title":"River","artist":"Joni","album":"Blue"}]}`))
		case "/lyric/b1":
			atomic.AddInt32(&bFetches, 1)
			w.Write([]byte(`{"lrc":"[00:01.00]one\n[00:02.00]two\n[00:03.00]three"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer serverB.Close()

	a := provider.NewSource(provider.NewGeneric(serverA.URL, 0, ""), provider.SourceConfig{})
	b := provider.NewSource(provider.NewGeneric(serverB.URL, 0, ""), provider.SourceConfig{})

	store, err := cache.Open(cache.Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	defer store.Close()

	r := New(store, a, b)
	ctx := context.Background()

	doc := r.Resolve(ctx, "River", "Joni", "Blue", false)
	if doc.Len() != 3 {
		t.Fatalf("expected 3 lines with cache disabled, got %d", doc.Len())
	}
	if keys := store.ListKeys(ctx); len(keys) != 0 {
		t.Errorf("cache disabled run should not write, got %v", keys)
	}

	doc = r.Resolve(ctx, "River", "Joni", "Blue", true)
	if doc.Len() != 3 {
		t.Fatalf("expected 3 lines with cache enabled, got %d", doc.Len())
	}

	before := atomic.LoadInt32(&aCalls) + atomic.LoadInt32(&bSearches) + atomic.LoadInt32(&bFetches)

	doc = r.Resolve(ctx, "River", "Joni", "Blue", true)
	if doc.Len() != 3 {
		t.Fatalf("expected cached 3 lines, got %d", doc.Len())
	}

	after := atomic.LoadInt32(&aCalls) + atomic.LoadInt32(&bSearches) + atomic.LoadInt32(&bFetches)
	if after != before {
		t.Errorf("expected zero provider calls on the cached resolve, got %d", after-before)
	}
}
