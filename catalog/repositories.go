package catalog

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TrackIdentifier is the identifier column used by GetByIdentifier for podcasts and episodes.
const TrackIdentifier = "track_id"

// NewPodcastRepository returns the bun backed podcast repository.
func NewPodcastRepository(db *bun.DB) repository.Repository[*Podcast] {
	return repository.NewRepository[*Podcast](db, repository.ModelHandlers[*Podcast]{
		NewRecord: func() *Podcast { return &Podcast{} },
		GetID: func(p *Podcast) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID:         func(p *Podcast, id uuid.UUID) { p.ID = id },
		GetIdentifier: func() string { return TrackIdentifier },
	})
}

// NewEpisodeRepository returns the bun backed episode repository.
func NewEpisodeRepository(db *bun.DB) repository.Repository[*Episode] {
	return repository.NewRepository[*Episode](db, repository.ModelHandlers[*Episode]{
		NewRecord: func() *Episode { return &Episode{} },
		GetID: func(e *Episode) uuid.UUID {
			if e == nil {
				return uuid.Nil
			}
			return e.ID
		},
		SetID:         func(e *Episode, id uuid.UUID) { e.ID = id },
		GetIdentifier: func() string { return TrackIdentifier },
	})
}

// NewSearchRunRepository returns the bun backed search run repository.
func NewSearchRunRepository(db *bun.DB) repository.Repository[*SearchRun] {
	return repository.NewRepository[*SearchRun](db, repository.ModelHandlers[*SearchRun]{
		NewRecord: func() *SearchRun { return &SearchRun{} },
		GetID: func(r *SearchRun) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID:         func(r *SearchRun, id uuid.UUID) { r.ID = id },
		GetIdentifier: func() string { return "term" },
	})
}
