package di

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-podcast-search/cache"
	"github.com/goliatone/go-podcast-search/catalog"
	"github.com/goliatone/go-podcast-search/itunes"
	"github.com/goliatone/go-podcast-search/pkg/testsupport"
	"github.com/goliatone/go-podcast-search/search"
	"go.uber.org/zap"
)

type staticSearcher struct {
	resp *itunes.Response
}

func (s staticSearcher) Search(context.Context, string) (*itunes.Response, error) {
	return s.resp, nil
}

// newBenchContainer stores 10 podcasts and 200 episodes for "serial".
func newBenchContainer(b *testing.B) *Container {
	b.Helper()

	results := make([]itunes.Result, 0, 210)
	for i := 0; i < 10; i++ {
		results = append(results, testsupport.PodcastResult(int64(1000+i), fmt.Sprintf("Serial %d", i), "Host"))
	}
	for i := 0; i < 200; i++ {
		results = append(results, testsupport.EpisodeResult(int64(5000+i), fmt.Sprintf("Episode %d", i), "Serial"))
	}

	cfg := testConfig(b, "http://127.0.0.1:1")
	container, err := NewContainer(context.Background(), cfg,
		WithLogger(zap.NewNop()),
		WithSearcher(staticSearcher{resp: &itunes.Response{ResultCount: len(results), Results: results}}),
	)
	if err != nil {
		b.Fatalf("Failed to create DI container: %v", err)
	}
	b.Cleanup(func() { _ = container.Close() })

	if _, err := container.Search().Populate(context.Background(), search.Request{Term: "serial"}); err != nil {
		b.Fatalf("Populate() failed: %v", err)
	}
	return container
}

// BenchmarkKeySerializationPerformance compares readable and hashed keys for a results page.
func BenchmarkKeySerializationPerformance(b *testing.B) {
	serializers := map[string]cache.KeySerializer{
		"default": cache.NewDefaultKeySerializer(),
		"hashed":  cache.NewHashedKeySerializer(cache.NewDefaultKeySerializer()),
	}
	for name, serializer := range serializers {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = serializer.SerializeKey("episode.List", "match", "serial killers", i%5*20, 20)
			}
		})
	}
}

// BenchmarkCachedVsBaseResults compares a results page read through the cache with the
// same page read straight from SQLite.
func BenchmarkCachedVsBaseResults(b *testing.B) {
	container := newBenchContainer(b)
	ctx := context.Background()
	db := container.DB()

	base := search.NewService(db, search.Repositories{
		Podcasts: catalog.NewPodcastRepository(db),
		Episodes: catalog.NewEpisodeRepository(db),
		Runs:     catalog.NewSearchRunRepository(db),
	}, staticSearcher{}, container.Config().SearchConfig())

	b.Run("base_results_page", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := base.Results(ctx, search.Query{Term: "serial", Offset: i % 10 * 20}); err != nil {
				b.Fatal(err)
			}
		}
	})

	// warm every page
	for p := 0; p < 10; p++ {
		_, _ = container.Search().Results(ctx, search.Query{Term: "serial", Offset: p * 20})
	}

	b.Run("cached_results_page", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := container.Search().Results(ctx, search.Query{Term: "serial", Offset: i % 10 * 20}); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("cached_podcast_lookup", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := container.Search().Podcast(ctx, int64(1000+i%10)); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkConcurrentResults reads warmed pages from many goroutines.
func BenchmarkConcurrentResults(b *testing.B) {
	container := newBenchContainer(b)
	ctx := context.Background()
	for p := 0; p < 10; p++ {
		_, _ = container.Search().Results(ctx, search.Query{Term: "serial", Offset: p * 20})
	}

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = container.Search().Results(ctx, search.Query{Term: "serial", Offset: i % 10 * 20})
			i++
		}
	})
}
