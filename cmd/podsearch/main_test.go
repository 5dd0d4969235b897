package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-podcast-search/catalog"
	"github.com/goliatone/go-podcast-search/pkg/testsupport"
	"github.com/goliatone/go-podcast-search/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) []byte {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.Bytes()
}

func TestCommands(t *testing.T) {
	fake := testsupport.NewFakeITunes(t)
	fake.Respond("serial",
		testsupport.PodcastResult(100, "Serial", "This American Life"),
		testsupport.EpisodeResult(200, "The Alibi", "Serial"),
	)

	dir := t.TempDir()
	path := filepath.Join(dir, "podsearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
database:
  dsn: %q
itunes:
  base_url: %q
  retry_attempts: 1
log:
  level: error
`, filepath.Join(dir, "podsearch.db"), fake.URL)), 0o600))

	execute(t, "--config", path, "migrate")

	var searched searchOutput
	require.NoError(t, json.Unmarshal(execute(t, "--config", path, "search", "serial", "--force", "--pages", "2"), &searched))
	require.NotNil(t, searched.Outcome)
	assert.Equal(t, 2, searched.Outcome.TotalNew())
	require.Len(t, searched.Pages, 2)
	assert.Equal(t, 2, searched.Pages[0].Len())
	assert.True(t, searched.Done)

	var page search.Page
	require.NoError(t, json.Unmarshal(execute(t, "--config", path, "results", "serial", "--limit", "1"), &page))
	assert.Len(t, page.Podcasts, 1)
	assert.Len(t, page.Episodes, 1)
	assert.Equal(t, 1, page.Pagination.Limit)

	var runs []catalog.SearchRun
	require.NoError(t, json.Unmarshal(execute(t, "--config", path, "runs"), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "serial", runs[0].Term)

	assert.Equal(t, 1, fake.Hits())
}
