package search

import (
	"testing"
	"time"

	"github.com/goliatone/go-podcast-search/catalog"
	"github.com/goliatone/go-podcast-search/pkg/testsupport"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Serial":                    "serial",
		"  The Daily! ":             "the-daily",
		"99% Invisible":             "99-invisible",
		"Café Society":              "caf-society",
		"--already--slugged--":      "already-slugged",
		"":                          "",
		"Stuff You Should Know...?": "stuff-you-should-know",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestNewPodcastView(t *testing.T) {
	p := &catalog.Podcast{
		TrackID:        917918570,
		TrackName:      "Serial",
		ArtistName:     "This American Life",
		CollectionName: "Serial",
		ArtworkURL60:   "https://img/60.jpg",
		ViewURL:        "https://podcasts.apple.com/serial",
		Explicit:       true,
	}

	want := PodcastView{
		ID:           "917918570",
		Explicit:     true,
		TopResultFor: []any{},
		Title:        "Serial",
		Author:       "This American Life",
		Image:        "https://img/60.jpg",
		Slug:         "serial",
		FeedURL:      "https://podcasts.apple.com/serial",
	}
	if diff := cmp.Diff(want, NewPodcastView(p)); diff != "" {
		t.Errorf("NewPodcastView mismatch (-want +got):\n%s", diff)
	}
}

func TestNewPodcastView_Fallbacks(t *testing.T) {
	got := NewPodcastView(&catalog.Podcast{TrackID: 1})

	assert.Equal(t, "Unknown Title", got.Title)
	assert.Equal(t, "Unknown Author", got.Author)
	assert.Equal(t, "", got.Image)
	assert.Equal(t, "", got.Slug)
	assert.Equal(t, "", got.FeedURL)
	assert.NotNil(t, got.TopResultFor)

	got = NewPodcastView(&catalog.Podcast{TrackID: 1, CollectionName: "Only Collection"})
	assert.Equal(t, "Only Collection", got.Title)
	assert.Equal(t, "only-collection", got.Slug)
}

func TestNewEpisodeView(t *testing.T) {
	released := time.Date(2014, 10, 3, 10, 0, 0, 0, time.UTC)
	millis := int64(3226500)
	e := &catalog.Episode{
		TrackID:         1000654321001,
		TrackName:       "The Alibi",
		CollectionName:  "Serial",
		ArtworkURL100:   "https://img/160.jpg",
		ViewURL:         "https://podcasts.apple.com/alibi",
		EpisodeURL:      "https://cdn/alibi.mp3",
		ContentType:     "audio",
		Description:     "It's Baltimore, 1999.",
		TrackTimeMillis: &millis,
		ReleaseDate:     &released,
		CreatedAt:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	testsupport.CompareGoldenJSON(t, testsupport.GoldenPath("episode_view.json"), NewEpisodeView(e))
}

func TestNewEpisodeView_Fallbacks(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 30, 15, 250_000_000, time.FixedZone("CEST", 2*60*60))
	got := NewEpisodeView(&catalog.Episode{
		TrackID:     7,
		ViewURL:     "https://podcasts.apple.com/7",
		ContentType: "video",
		CreatedAt:   created,
	})

	assert.Equal(t, "unknown", got.PodcastID)
	assert.Equal(t, "Episode description not available", got.Description)
	assert.Equal(t, "0", got.Duration)
	assert.Equal(t, "2024-05-01T10:30:15.250Z", got.Published)
	assert.Equal(t, created.Unix(), got.Timestamp)
	assert.Equal(t, "Unknown Episode", got.Title)
	assert.Equal(t, "unknown", got.Podcast.ID)
	assert.Equal(t, "Unknown Show", got.Podcast.Title)
	assert.Equal(t, "", got.Podcast.Slug)
	assert.Equal(t, "39.31034482758622", got.Podcast.Hue)
	assert.Equal(t, "https://podcasts.apple.com/7", got.MediaURL)
	assert.True(t, got.HasVideo)
	assert.Equal(t, []Highlight{{Value: "Unknown", Type: "hit"}}, got.Highlights.Title)
}
