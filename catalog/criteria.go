package catalog

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// likeEscape is the LIKE escape character. A backslash would need different quoting
// in SQLite and PostgreSQL.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

// MatchingTerm keeps rows where the search term, track, artist or collection name
// contains term, ignoring case. It reads match_text, which is folded with FoldText
// at insert, so case folding does not depend on the database's LOWER.
// LIKE wildcards inside term match literally.
func MatchingTerm(term string) repository.SelectCriteria {
	pattern := "%" + likeReplacer.Replace(FoldText(term)) + "%"
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("match_text LIKE ? ESCAPE '"+likeEscape+"'", pattern)
	}
}

// ByTrackIDs keeps rows whose track id is in ids.
func ByTrackIDs(ids []int64) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("track_id IN (?)", bun.In(ids))
	}
}

// ByIDs keeps rows whose primary key is in ids.
func ByIDs(ids []uuid.UUID) repository.SelectCriteria {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id IN (?)", bun.In(keys))
	}
}

// TrackIDsOnly restricts the selected columns to the track id.
func TrackIDsOnly() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Column("track_id")
	}
}

// NewestFirst orders podcasts and episodes by insertion time, newest first.
// The track id breaks ties between rows inserted by the same search.
func NewestFirst() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("created_at DESC").OrderExpr("track_id DESC")
	}
}

// Page applies offset/limit pagination.
func Page(offset, limit int) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Offset(offset).Limit(limit)
	}
}

// ForTerm keeps search runs for the given normalized term.
func ForTerm(term string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("term = ?", term)
	}
}

// LatestRuns orders search runs newest first and keeps at most limit of them.
func LatestRuns(limit int) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("fetched_at DESC").Limit(limit)
	}
}

// OnConflictIgnore skips rows whose track id is already stored, keeping inserts
// write-once when two searches race on the same item.
func OnConflictIgnore() repository.InsertCriteria {
	return func(q *bun.InsertQuery) *bun.InsertQuery {
		return q.On("CONFLICT (track_id) DO NOTHING")
	}
}
