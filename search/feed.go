package search

import (
	"context"
	"strings"
)

// NextOffset decides where the page after last starts. When the store reports more rows
// the next page follows on; otherwise up to maxPages pages are still requested at fixed
// page-size steps, since a later population may have added rows. done is true once
// maxPages pages were fetched without more rows.
func NextOffset(last Pagination, pagesFetched, pageSize, maxPages int) (offset int, done bool) {
	if last.HasMore {
		return last.Offset + last.Limit, false
	}
	if pagesFetched < maxPages {
		return pagesFetched * pageSize, false
	}
	return 0, true
}

// Feed accumulates pages for one term the way the results UI loads them: each page
// first populates the store, then reads the next page from it.
type Feed struct {
	svc   *Service
	term  string
	pages []Page
	next  int
	done  bool
}

// NewFeed starts a feed for term at offset zero.
func (s *Service) NewFeed(term string) *Feed {
	return &Feed{svc: s, term: strings.TrimSpace(term)}
}

// Next populates the store and appends the next page. It returns false once the feed
// is done; an empty page also ends the feed.
func (f *Feed) Next(ctx context.Context) (Page, bool, error) {
	if f.done {
		return Page{}, false, nil
	}

	if _, err := f.svc.Populate(ctx, Request{Term: f.term}); err != nil {
		return Page{}, false, err
	}

	cfg := f.svc.Config()
	page, err := f.svc.Results(ctx, Query{Term: f.term, Offset: f.next, Limit: cfg.PageSize})
	if err != nil {
		return Page{}, false, err
	}
	f.pages = append(f.pages, page)

	offset, done := NextOffset(page.Pagination, len(f.pages), cfg.PageSize, cfg.MaxPages)
	f.next = offset
	f.done = done || page.Len() == 0
	return page, true, nil
}

// Collect fetches pages until n pages are loaded or the feed is done, and returns
// every page loaded so far.
func (f *Feed) Collect(ctx context.Context, n int) ([]Page, error) {
	for len(f.pages) < n {
		_, ok, err := f.Next(ctx)
		if err != nil {
			return f.Pages(), err
		}
		if !ok {
			break
		}
	}
	return f.Pages(), nil
}

// Pages returns the pages loaded so far.
func (f *Feed) Pages() []Page {
	return append([]Page(nil), f.pages...)
}

// NextOffset is the offset the next call to Next reads from.
func (f *Feed) NextOffset() int {
	return f.next
}

// Done reports whether the feed has no more pages to load.
func (f *Feed) Done() bool {
	return f.done
}
