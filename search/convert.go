package search

import (
	"time"

	"github.com/goliatone/go-podcast-search/catalog"
	"github.com/goliatone/go-podcast-search/itunes"
	"github.com/google/uuid"
)

// batch holds the storable part of one upstream response.
type batch struct {
	resultCount int
	withTrackID int
	podcasts    []*catalog.Podcast
	episodes    []*catalog.Episode
}

func (b batch) podcastIDs() []int64 {
	ids := make([]int64, 0, len(b.podcasts))
	for _, p := range b.podcasts {
		ids = append(ids, p.TrackID)
	}
	return ids
}

// podcastRowIDs returns the primary keys of podcasts, read before an insert can
// rewrite them from RETURNING rows.
func podcastRowIDs(podcasts []*catalog.Podcast) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(podcasts))
	for _, p := range podcasts {
		ids = append(ids, p.ID)
	}
	return ids
}

func episodeRowIDs(episodes []*catalog.Episode) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(episodes))
	for _, e := range episodes {
		ids = append(ids, e.ID)
	}
	return ids
}

func (b batch) episodeIDs() []int64 {
	ids := make([]int64, 0, len(b.episodes))
	for _, e := range b.episodes {
		ids = append(ids, e.TrackID)
	}
	return ids
}

// splitResults drops results without a track id, keeps the first occurrence of each id
// and splits the rest by kind. Kinds other than podcast and episode are ignored.
// term is stored as given, so callers pass the normalized term.
func splitResults(resp *itunes.Response, term string, now time.Time) batch {
	b := batch{resultCount: resp.ResultCount}
	seen := make(map[catalog.Kind]map[int64]struct{}, 2)
	seen[catalog.KindPodcast] = map[int64]struct{}{}
	seen[catalog.KindEpisode] = map[int64]struct{}{}

	for _, r := range resp.Results {
		if !r.HasTrackID() {
			continue
		}
		b.withTrackID++

		kind := catalog.Kind(r.Kind)
		ids, ok := seen[kind]
		if !ok {
			continue
		}
		if _, dup := ids[r.TrackID]; dup {
			continue
		}
		ids[r.TrackID] = struct{}{}

		switch kind {
		case catalog.KindPodcast:
			b.podcasts = append(b.podcasts, podcastFromResult(r, term, now))
		case catalog.KindEpisode:
			b.episodes = append(b.episodes, episodeFromResult(r, term, now))
		}
	}
	return b
}

func podcastFromResult(r itunes.Result, term string, now time.Time) *catalog.Podcast {
	return &catalog.Podcast{
		ID:             uuid.New(),
		TrackID:        r.TrackID,
		SearchTerm:     term,
		TrackName:      r.TrackName,
		ArtistName:     r.ArtistName,
		CollectionName: r.CollectionName,
		MatchText:      catalog.MatchText(term, r.TrackName, r.ArtistName, r.CollectionName),
		ArtworkURL100:  r.ArtworkURL100,
		ArtworkURL60:   r.ArtworkURL60,
		ViewURL:        r.ViewURL(),
		FeedURL:        r.FeedURL,
		Explicit:       r.Explicit(),
		CreatedAt:      now,
	}
}

func episodeFromResult(r itunes.Result, term string, now time.Time) *catalog.Episode {
	artwork100 := r.ArtworkURL100
	if artwork100 == "" {
		// episodes ship 160 and 600 renditions instead of 100
		artwork100 = r.ArtworkURL160
	}
	return &catalog.Episode{
		ID:              uuid.New(),
		TrackID:         r.TrackID,
		SearchTerm:      term,
		TrackName:       r.TrackName,
		ArtistName:      r.ArtistName,
		CollectionName:  r.CollectionName,
		MatchText:       catalog.MatchText(term, r.TrackName, r.ArtistName, r.CollectionName),
		ArtworkURL100:   artwork100,
		ArtworkURL60:    r.ArtworkURL60,
		ViewURL:         r.ViewURL(),
		EpisodeURL:      r.EpisodeURL,
		ContentType:     r.EpisodeContentType,
		Description:     r.EpisodeDescription(),
		TrackTimeMillis: r.TrackTimeMillis,
		ReleaseDate:     parseReleaseDate(r.ReleaseDate),
		Explicit:        r.Explicit(),
		CreatedAt:       now,
	}
}

func parseReleaseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
