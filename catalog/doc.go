// Package catalog defines the stored podcast, episode and search run records, the
// go-repository-bun repositories for them, and the select criteria the search
// service composes into result queries.
//
// Podcasts and episodes are write-once: a row is inserted the first time its upstream
// track id is seen and never updated afterwards.
package catalog
