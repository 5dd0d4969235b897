// Package search populates the podcast catalog from the iTunes Search API and serves
// paged, formatted views of it.
//
// Populate is the fetch-and-store half: it queries upstream, drops results without a
// track id, and inserts the podcasts and episodes whose track ids are not stored yet,
// all in one transaction together with a SearchRun record. A run younger than
// Config.RefreshInterval lets repeated searches skip upstream entirely.
//
// Results is the query-and-format half: stored rows matching the term are read newest
// first through the cached repositories and rendered as PodcastView and EpisodeView.
//
// Feed chains both for consecutive pages.
package search
