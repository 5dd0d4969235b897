package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// LoadFixture reads a file relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON reads a JSON fixture into dest.
func LoadFixtureJSON(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// FixturePath returns testdata/<name>.
func FixturePath(name string) string {
	return filepath.Join("testdata", name)
}

// GoldenPath returns testdata/golden/<name>.
func GoldenPath(name string) string {
	return filepath.Join("testdata", "golden", name)
}

// UpdateGoldenEnv, when set to a non-empty value, rewrites golden files instead of
// comparing against them.
const UpdateGoldenEnv = "PODSEARCH_UPDATE_GOLDEN"

// CompareGoldenJSON marshals actual and compares it with the golden file at path,
// decoding both sides so formatting differences do not matter.
func CompareGoldenJSON(t *testing.T, path string, actual any) {
	t.Helper()

	got, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal %T: %v", actual, err)
	}

	if os.Getenv(UpdateGoldenEnv) != "" {
		writeGolden(t, path, got)
		return
	}

	want := LoadFixture(t, path)

	var gotValue, wantValue any
	if err := json.Unmarshal(got, &gotValue); err != nil {
		t.Fatalf("failed to decode actual JSON: %v", err)
	}
	if err := json.Unmarshal(want, &wantValue); err != nil {
		t.Fatalf("failed to decode golden file %s: %v", path, err)
	}

	if diff := cmp.Diff(wantValue, gotValue); diff != "" {
		t.Errorf("output mismatch for %s (-want +got):\n%s", path, diff)
	}
}

func writeGolden(t *testing.T, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		t.Fatalf("failed to write golden file %s: %v", path, err)
	}
}
