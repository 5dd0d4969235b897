package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-podcast-search/catalog"
)

const (
	defaultHue          = "39.31034482758622"
	highlightHit        = "hit"
	missingDescription  = "Episode description not available"
	publishedTimeFormat = "2006-01-02T15:04:05.000Z"
)

// PodcastView is the JSON shape the results UI renders for a show.
type PodcastView struct {
	ID           string `json:"_id"`
	Explicit     bool   `json:"explicit"`
	Private      bool   `json:"private"`
	TopResultFor []any  `json:"topResultFor"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Image        string `json:"image"`
	Slug         string `json:"slug"`
	FeedURL      string `json:"feed_url"`
}

// EpisodeView is the JSON shape the results UI renders for an episode.
type EpisodeView struct {
	ID          string         `json:"_id"`
	PodcastID   string         `json:"podcast_id"`
	Description string         `json:"description"`
	Duration    string         `json:"duration"`
	Image       string         `json:"image"`
	Published   string         `json:"published"`
	Timestamp   int64          `json:"timestamp"`
	Title       string         `json:"title"`
	Podcast     EpisodePodcast `json:"podcast"`
	MediaURL    string         `json:"mediaURL"`
	HasVideo    bool           `json:"hasVideo"`
	Highlights  Highlights     `json:"highlights"`
}

// EpisodePodcast is the show summary embedded in an EpisodeView.
type EpisodePodcast struct {
	ID       string `json:"_id"`
	Explicit bool   `json:"explicit"`
	Title    string `json:"title"`
	Image    string `json:"image"`
	Hue      string `json:"hue"`
	Slug     string `json:"slug"`
}

type Highlights struct {
	Title []Highlight `json:"title"`
}

type Highlight struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and replaces every run of characters outside [a-z0-9] with a dash.
func Slug(s string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// NewPodcastView formats a stored podcast.
func NewPodcastView(p *catalog.Podcast) PodcastView {
	title := firstNonEmpty(p.TrackName, p.CollectionName)
	return PodcastView{
		ID:           strconv.FormatInt(p.TrackID, 10),
		Explicit:     p.Explicit,
		TopResultFor: []any{},
		Title:        firstNonEmpty(title, "Unknown Title"),
		Author:       firstNonEmpty(p.ArtistName, "Unknown Author"),
		Image:        firstNonEmpty(p.ArtworkURL100, p.ArtworkURL60),
		Slug:         Slug(title),
		FeedURL:      firstNonEmpty(p.FeedURL, p.ViewURL),
	}
}

// NewEpisodeView formats a stored episode.
func NewEpisodeView(e *catalog.Episode) EpisodeView {
	published := e.CreatedAt
	if e.ReleaseDate != nil && !e.ReleaseDate.IsZero() {
		published = *e.ReleaseDate
	}
	published = published.UTC()

	image := firstNonEmpty(e.ArtworkURL100, e.ArtworkURL60)
	show := firstNonEmpty(e.CollectionName, "unknown")

	return EpisodeView{
		ID:          strconv.FormatInt(e.TrackID, 10),
		PodcastID:   show,
		Description: firstNonEmpty(e.Description, missingDescription),
		Duration:    durationSeconds(e.TrackTimeMillis),
		Image:       image,
		Published:   published.Format(publishedTimeFormat),
		Timestamp:   published.Unix(),
		Title:       firstNonEmpty(e.TrackName, "Unknown Episode"),
		Podcast: EpisodePodcast{
			ID:       show,
			Explicit: e.Explicit,
			Title:    firstNonEmpty(e.CollectionName, "Unknown Show"),
			Image:    image,
			Hue:      defaultHue,
			Slug:     Slug(e.CollectionName),
		},
		MediaURL: firstNonEmpty(e.EpisodeURL, e.ViewURL),
		HasVideo: strings.EqualFold(e.ContentType, "video"),
		Highlights: Highlights{
			Title: []Highlight{{Value: firstNonEmpty(e.TrackName, "Unknown"), Type: highlightHit}},
		},
	}
}

func durationSeconds(millis *int64) string {
	if millis == nil || *millis <= 0 {
		return "0"
	}
	return strconv.FormatInt(*millis/int64(time.Second/time.Millisecond), 10)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
