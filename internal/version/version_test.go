package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsDevelopmentVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"", true},
		{"unknown", true},
		{"dev", true},
		{"devel", true},
		{"devel+abc123", true},
		{"devel+abc+dirty", true},
		{"v0.1.0", false},
		{"1.0.0-beta", false},
		{"develop", false},
		{"DEV", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsDevelopmentVersion(tt.input); got != tt.expected {
				t.Errorf("IsDevelopmentVersion(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseSemver(t *testing.T) {
	tests := []struct {
		input    string
		expected [3]int
	}{
		{"v1.2.3", [3]int{1, 2, 3}},
		{"1.2.3", [3]int{1, 2, 3}},
		{"v1.0.0-beta", [3]int{1, 0, 0}},
		{"v1.0.0+build123", [3]int{1, 0, 0}},
		{"2.0", [3]int{2, 0, 0}},
		{"v5", [3]int{5, 0, 0}},
		{"", [3]int{0, 0, 0}},
		{"invalid", [3]int{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseSemver(tt.input); got != tt.expected {
				t.Errorf("parseSemver(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		latest, current string
		want            bool
	}{
		{"v1.1.0", "v1.0.0", true},
		{"v1.0.1", "v1.0.0", true},
		{"v2.0.0", "v1.9.9", true},
		{"v1.0.0", "v1.0.0", false},
		{"v1.0.0", "v1.1.0", false},
		{"v1.0.0", "v1.0.0-rc.1", true},
		{"v1.0.0-rc.2", "v1.0.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.latest+"_vs_"+tt.current, func(t *testing.T) {
			if got := IsNewer(tt.latest, tt.current); got != tt.want {
				t.Errorf("IsNewer(%q, %q) = %v, want %v", tt.latest, tt.current, got, tt.want)
			}
		})
	}
}

func TestUpdateCommand(t *testing.T) {
	if got := UpdateCommand("v1.2.3"); got == "" {
		t.Error("UpdateCommand(v1.2.3) is empty")
	}
	for _, bad := range []string{"v1.2.3; rm -rf /", "latest", "v1.2.3-"} {
		if got := UpdateCommand(bad); got != "" {
			t.Errorf("UpdateCommand(%q) = %q, want empty", bad, got)
		}
	}
}

func TestIsCacheValid(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		entry *CacheEntry
		want  bool
	}{
		{"nil entry", nil, false},
		{"recent", &CacheEntry{CurrentVersion: "v1.0.0", CheckedAt: now}, true},
		{"expired", &CacheEntry{CurrentVersion: "v1.0.0", CheckedAt: now.Add(-7 * time.Hour)}, false},
		{"version changed", &CacheEntry{CurrentVersion: "v0.9.0", CheckedAt: now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCacheValid(tt.entry, "v1.0.0"); got != tt.want {
				t.Errorf("IsCacheValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSaveAndLoadCache(t *testing.T) {
	t.Setenv("SHEETDASH_CONFIG_DIR", t.TempDir())

	if _, err := LoadCache(); err == nil {
		t.Error("LoadCache() should fail before anything is saved")
	}

	entry := &CacheEntry{
		LatestVersion:  "v1.2.3",
		CurrentVersion: "v1.0.0",
		CheckedAt:      time.Now().Round(time.Second),
		HasUpdate:      true,
	}
	if err := SaveCache(entry); err != nil {
		t.Fatalf("SaveCache() error = %v", err)
	}
	loaded, err := LoadCache()
	if err != nil {
		t.Fatalf("LoadCache() error = %v", err)
	}
	if loaded.LatestVersion != "v1.2.3" || !loaded.HasUpdate || !loaded.CheckedAt.Equal(entry.CheckedAt) {
		t.Errorf("loaded = %+v, want %+v", loaded, entry)
	}

	if err := os.WriteFile(cachePath(), []byte(`{invalid json}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCache(); err == nil {
		t.Error("LoadCache() should fail on corrupted JSON")
	}
}

func withReleases(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	old := ReleasesURL
	ReleasesURL = srv.URL
	t.Cleanup(func() { ReleasesURL = old })
}

func TestCheckAsyncFetchesAndCaches(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHEETDASH_CONFIG_DIR", dir)

	calls := 0
	withReleases(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"tag_name":"v1.5.0","html_url":"https://example.com/r"}`))
	})

	msg := CheckAsync(context.Background(), "v1.0.0")()
	update, ok := msg.(UpdateAvailableMsg)
	if !ok {
		t.Fatalf("msg = %T, want UpdateAvailableMsg", msg)
	}
	if update.LatestVersion != "v1.5.0" || update.UpdateCommand == "" {
		t.Errorf("update = %+v", update)
	}
	if _, err := os.Stat(filepath.Join(dir, "version_cache.json")); err != nil {
		t.Errorf("cache not written: %v", err)
	}

	// Second check is answered from the cache.
	CheckAsync(context.Background(), "v1.0.0")()
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCheckAsyncUpToDate(t *testing.T) {
	t.Setenv("SHEETDASH_CONFIG_DIR", t.TempDir())
	withReleases(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name":"v1.0.0"}`))
	})

	if msg := CheckAsync(context.Background(), "v1.0.0")(); msg != nil {
		t.Errorf("msg = %v, want nil", msg)
	}
}

func TestCheckErrorNotCached(t *testing.T) {
	t.Setenv("SHEETDASH_CONFIG_DIR", t.TempDir())
	withReleases(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	})

	result := CheckCached(context.Background(), "v1.0.0")
	if result.Error == nil {
		t.Fatal("expected error")
	}
	if _, err := LoadCache(); err == nil {
		t.Error("failed check should not be cached")
	}
}

func TestDevelopmentVersionSkipsNetwork(t *testing.T) {
	t.Setenv("SHEETDASH_CONFIG_DIR", t.TempDir())
	withReleases(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("dev builds should not query releases")
	})

	if msg := CheckAsync(context.Background(), "devel+abc123")(); msg != nil {
		t.Errorf("msg = %v, want nil", msg)
	}
}
