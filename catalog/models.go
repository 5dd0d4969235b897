package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Kind is the upstream result kind this service stores.
type Kind string

const (
	KindPodcast Kind = "podcast"
	KindEpisode Kind = "podcast-episode"
)

// Podcast is a show first seen in an upstream search.
type Podcast struct {
	bun.BaseModel `bun:"table:podcasts,alias:p"`

	ID             uuid.UUID `bun:"id,pk" json:"id"`
	TrackID        int64     `bun:"track_id,notnull" json:"track_id"`
	SearchTerm     string    `bun:"search_term,notnull" json:"search_term"`
	TrackName      string    `bun:"track_name" json:"track_name"`
	ArtistName     string    `bun:"artist_name" json:"artist_name"`
	CollectionName string    `bun:"collection_name" json:"collection_name"`
	MatchText      string    `bun:"match_text,notnull" json:"-"`
	ArtworkURL100  string    `bun:"artwork_url_100" json:"artwork_url_100"`
	ArtworkURL60   string    `bun:"artwork_url_60" json:"artwork_url_60"`
	ViewURL        string    `bun:"view_url" json:"view_url"`
	FeedURL        string    `bun:"feed_url" json:"feed_url"`
	Explicit       bool      `bun:"explicit,notnull" json:"explicit"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Episode is a podcast episode first seen in an upstream search.
type Episode struct {
	bun.BaseModel `bun:"table:episodes,alias:e"`

	ID              uuid.UUID  `bun:"id,pk" json:"id"`
	TrackID         int64      `bun:"track_id,notnull" json:"track_id"`
	SearchTerm      string     `bun:"search_term,notnull" json:"search_term"`
	TrackName       string     `bun:"track_name" json:"track_name"`
	ArtistName      string     `bun:"artist_name" json:"artist_name"`
	CollectionName  string     `bun:"collection_name" json:"collection_name"`
	MatchText       string     `bun:"match_text,notnull" json:"-"`
	ArtworkURL100   string     `bun:"artwork_url_100" json:"artwork_url_100"`
	ArtworkURL60    string     `bun:"artwork_url_60" json:"artwork_url_60"`
	ViewURL         string     `bun:"view_url" json:"view_url"`
	EpisodeURL      string     `bun:"episode_url" json:"episode_url"`
	ContentType     string     `bun:"content_type" json:"content_type"`
	Description     string     `bun:"description" json:"description"`
	TrackTimeMillis *int64     `bun:"track_time_millis" json:"track_time_millis,omitempty"`
	ReleaseDate     *time.Time `bun:"release_date" json:"release_date,omitempty"`
	Explicit        bool       `bun:"explicit,notnull" json:"explicit"`
	CreatedAt       time.Time  `bun:"created_at,notnull" json:"created_at"`
}

// SearchRun records one upstream fetch for a normalized search term.
type SearchRun struct {
	bun.BaseModel `bun:"table:search_runs,alias:r"`

	ID          uuid.UUID `bun:"id,pk" json:"id"`
	Term        string    `bun:"term,notnull" json:"term"`
	ResultCount int       `bun:"result_count,notnull" json:"result_count"`
	NewPodcasts int       `bun:"new_podcasts,notnull" json:"new_podcasts"`
	NewEpisodes int       `bun:"new_episodes,notnull" json:"new_episodes"`
	FetchedAt   time.Time `bun:"fetched_at,notnull" json:"fetched_at"`
}
