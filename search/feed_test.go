package search

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextOffset(t *testing.T) {
	cases := []struct {
		name       string
		last       Pagination
		fetched    int
		wantOffset int
		wantDone   bool
	}{
		{"more rows follow on", Pagination{Offset: 40, Limit: 20, HasMore: true}, 3, 60, false},
		{"more rows ignore page cap", Pagination{Offset: 100, Limit: 20, HasMore: true}, 6, 120, false},
		{"no more rows keeps stepping", Pagination{Offset: 0, Limit: 20}, 1, 20, false},
		{"no more rows under cap", Pagination{Offset: 60, Limit: 20}, 4, 80, false},
		{"cap reached", Pagination{Offset: 80, Limit: 20}, 5, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			offset, done := NextOffset(tc.last, tc.fetched, 20, 5)
			assert.Equal(t, tc.wantOffset, offset)
			assert.Equal(t, tc.wantDone, done)
		})
	}
}

func TestFeed_CollectsUntilEmptyPage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())
	populateEpisodes(t, h, "serial", 0, 45)

	feed := h.svc.NewFeed(" serial ")
	pages, err := feed.Collect(ctx, 10)
	require.NoError(t, err)

	require.Len(t, pages, 4)
	assert.Len(t, pages[0].Episodes, 20)
	assert.Len(t, pages[1].Episodes, 20)
	assert.Len(t, pages[2].Episodes, 5)
	assert.Zero(t, pages[3].Len())
	assert.Equal(t, 60, pages[3].Pagination.Offset)
	assert.True(t, feed.Done())

	// the first populate went upstream, every later page reused the fresh run
	assert.Equal(t, 1, h.fake.Hits())

	page, ok, err := feed.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, page.Len())
}

func TestFeed_StopsAtRequestedPages(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())
	populateEpisodes(t, h, "serial", 0, 45)

	feed := h.svc.NewFeed("serial")
	pages, err := feed.Collect(ctx, 2)
	require.NoError(t, err)

	assert.Len(t, pages, 2)
	assert.False(t, feed.Done())
	assert.Equal(t, 40, feed.NextOffset())
}

func TestFeed_PropagatesPopulateErrors(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.fake.FailWith(http.StatusServiceUnavailable)

	pages, err := h.svc.NewFeed("serial").Collect(context.Background(), 3)
	require.ErrorIs(t, err, ErrUpstream)
	assert.Empty(t, pages)
}
