package itunes

import (
	"bytes"
	"encoding/json"
)

// Result is a single item of an iTunes Search API response. Every field is optional
// upstream; pointers distinguish "absent" from zero where the difference matters.
type Result struct {
	WrapperType            string   `json:"wrapperType,omitempty"`
	Kind                   string   `json:"kind,omitempty"`
	ArtistID               int64    `json:"artistId,omitempty"`
	CollectionID           int64    `json:"collectionId,omitempty"`
	TrackID                int64    `json:"trackId,omitempty"`
	ArtistName             string   `json:"artistName,omitempty"`
	CollectionName         string   `json:"collectionName,omitempty"`
	TrackName              string   `json:"trackName,omitempty"`
	CollectionCensoredName string   `json:"collectionCensoredName,omitempty"`
	TrackCensoredName      string   `json:"trackCensoredName,omitempty"`
	ArtistViewURL          string   `json:"artistViewUrl,omitempty"`
	CollectionViewURL      string   `json:"collectionViewUrl,omitempty"`
	TrackViewURL           string   `json:"trackViewUrl,omitempty"`
	PreviewURL             string   `json:"previewUrl,omitempty"`
	ArtworkURL30           string   `json:"artworkUrl30,omitempty"`
	ArtworkURL60           string   `json:"artworkUrl60,omitempty"`
	ArtworkURL100          string   `json:"artworkUrl100,omitempty"`
	ArtworkURL160          string   `json:"artworkUrl160,omitempty"`
	ArtworkURL600          string   `json:"artworkUrl600,omitempty"`
	CollectionPrice        *float64 `json:"collectionPrice,omitempty"`
	TrackPrice             *float64 `json:"trackPrice,omitempty"`
	CollectionHDPrice      *float64 `json:"collectionHdPrice,omitempty"`
	TrackHDPrice           *float64 `json:"trackHdPrice,omitempty"`
	ReleaseDate            string   `json:"releaseDate,omitempty"`
	CollectionExplicitness string   `json:"collectionExplicitness,omitempty"`
	TrackExplicitness      string   `json:"trackExplicitness,omitempty"`
	DiscCount              int      `json:"discCount,omitempty"`
	DiscNumber             int      `json:"discNumber,omitempty"`
	TrackCount             int      `json:"trackCount,omitempty"`
	TrackNumber            int      `json:"trackNumber,omitempty"`
	TrackTimeMillis        *int64   `json:"trackTimeMillis,omitempty"`
	Country                string   `json:"country,omitempty"`
	Currency               string   `json:"currency,omitempty"`
	PrimaryGenreName       string   `json:"primaryGenreName,omitempty"`
	ContentAdvisoryRating  string   `json:"contentAdvisoryRating,omitempty"`
	ShortDescription       string   `json:"shortDescription,omitempty"`
	LongDescription        string   `json:"longDescription,omitempty"`
	Description            string   `json:"description,omitempty"`
	FeedURL                string   `json:"feedUrl,omitempty"`
	EpisodeURL             string   `json:"episodeUrl,omitempty"`
	EpisodeGUID            string   `json:"episodeGuid,omitempty"`
	EpisodeContentType     string   `json:"episodeContentType,omitempty"`
	EpisodeFileExtension   string   `json:"episodeFileExtension,omitempty"`
	ClosedCaptioning       string   `json:"closedCaptioning,omitempty"`
	ArtistIDs              []int64  `json:"artistIds,omitempty"`
	GenreIDs               []string `json:"genreIds,omitempty"`
	Genres                 Genres   `json:"genres,omitempty"`
}

// Genre is the structured genre entry attached to episodes.
type Genre struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Genres decodes both shapes iTunes uses: plain names on podcasts and {name, id}
// objects on episodes.
type Genres []Genre

func (g *Genres) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*g = nil
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Genres, 0, len(raw))
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			out = append(out, Genre{Name: name})
			continue
		}
		var genre Genre
		if err := json.Unmarshal(item, &genre); err != nil {
			return err
		}
		out = append(out, genre)
	}
	*g = out
	return nil
}

// Response is the top level search payload.
type Response struct {
	ResultCount int      `json:"resultCount"`
	Results     []Result `json:"results"`
}

// HasTrackID reports whether the result carries the identifier used for de-duplication.
func (r Result) HasTrackID() bool {
	return r.TrackID != 0
}

// ViewURL picks the most specific store page for the result.
func (r Result) ViewURL() string {
	switch {
	case r.TrackViewURL != "":
		return r.TrackViewURL
	case r.CollectionViewURL != "":
		return r.CollectionViewURL
	default:
		return r.ArtistViewURL
	}
}

// Explicit reports whether iTunes flags the track as explicit.
func (r Result) Explicit() bool {
	return r.TrackExplicitness == "explicit" || r.CollectionExplicitness == "explicit"
}

// EpisodeDescription prefers the long form description.
func (r Result) EpisodeDescription() string {
	switch {
	case r.Description != "":
		return r.Description
	case r.LongDescription != "":
		return r.LongDescription
	default:
		return r.ShortDescription
	}
}
