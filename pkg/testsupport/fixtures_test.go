package testsupport

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFixtureJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"serial","count":3}`), 0o644))

	var got struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	LoadFixtureJSON(t, path, &got)

	assert.Equal(t, "serial", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("testdata", "a.json"), FixturePath("a.json"))
	assert.Equal(t, filepath.Join("testdata", "golden", "a.json"), GoldenPath("a.json"))
}

func TestCompareGoldenJSON_IgnoresFormatting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden.json")
	require.NoError(t, os.WriteFile(path, []byte(`{ "b": [1, 2], "a": "x" }`), 0o644))

	CompareGoldenJSON(t, path, map[string]any{"a": "x", "b": []int{1, 2}})
}

func TestNewTestDB_IsMigrated(t *testing.T) {
	db := NewTestDB(t)

	var count int
	err := db.NewSelect().TableExpr("search_runs").ColumnExpr("COUNT(*)").Scan(context.Background(), &count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFakeITunes(t *testing.T) {
	fake := NewFakeITunes(t)
	fake.Respond("Serial", PodcastResult(1, "Serial", "This American Life"), EpisodeResult(2, "The Alibi", "Serial"))

	resp, err := fake.Client().Search(context.Background(), "serial")
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.ResultCount)
	assert.Equal(t, "podcast-episode", resp.Results[1].Kind)

	resp, err = fake.Client().Search(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	fake.FailWith(http.StatusBadGateway)
	_, err = fake.Client().Search(context.Background(), "serial")
	require.Error(t, err)

	assert.Equal(t, []string{"serial", "unknown", "serial"}, fake.Terms())
	assert.Equal(t, 3, fake.Hits())
}

func TestEpisodeResult_RoundTripsThroughJSON(t *testing.T) {
	data, err := json.Marshal(EpisodeResult(7, "Pilot", "Show"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"trackTimeMillis":1800000`)
	assert.Contains(t, string(data), `"episodeContentType":"audio"`)
}
