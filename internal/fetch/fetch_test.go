// ABOUTME: Tests for the sound fetcher
// ABOUTME: Tests local resolution, HTTP download, caching, and error handling
package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/zerohz/zerohz-go/internal/version"
)

func newTestFetcher(t *testing.T, soundsDir string) *Fetcher {
	t.Helper()
	f, err := New(Config{
		SoundsDir: soundsDir,
		CacheDir:  t.TempDir(),
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}
	return f
}

func TestNewCreatesCacheDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	if _, err := New(Config{CacheDir: dir}); err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("cache directory was not created")
	}
}

func TestFetchLocalRelative(t *testing.T) {
	sounds := t.TempDir()
	if err := os.WriteFile(filepath.Join(sounds, "rain.mp3"), []byte("drops"), 0644); err != nil {
		t.Fatal(err)
	}

	f := newTestFetcher(t, sounds)
	data, err := f.Fetch(context.Background(), "rain.mp3")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != "drops" {
		t.Errorf("unexpected data %q", data)
	}
}

func TestFetchLocalAbsoluteAndFileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wind.flac")
	if err := os.WriteFile(path, []byte("gust"), 0644); err != nil {
		t.Fatal(err)
	}

	f := newTestFetcher(t, "/nonexistent")
	for _, locator := range []string{path, "file://" + path} {
		data, err := f.Fetch(context.Background(), locator)
		if err != nil {
			t.Fatalf("Fetch(%s) failed: %v", locator, err)
		}
		if string(data) != "gust" {
			t.Errorf("Fetch(%s): unexpected data %q", locator, data)
		}
	}
}

func TestFetchMissingFile(t *testing.T) {
	f := newTestFetcher(t, t.TempDir())
	if _, err := f.Fetch(context.Background(), "nope.mp3"); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := f.Fetch(context.Background(), ""); err == nil {
		t.Error("expected error for empty locator")
	}
}

func TestFetchHTTPCaches(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if ua := r.Header.Get("User-Agent"); ua != version.UserAgent() {
			t.Errorf("expected user agent %s, got %s", version.UserAgent(), ua)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("remote waves"))
	}))
	defer server.Close()

	f := newTestFetcher(t, "")
	url := server.URL + "/waves.ogg?v=2"

	for i := 0; i < 2; i++ {
		data, err := f.Fetch(context.Background(), url)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if string(data) != "remote waves" {
			t.Errorf("unexpected data %q", data)
		}
	}

	if hits.Load() != 1 {
		t.Errorf("expected one download, got %d", hits.Load())
	}

	path, err := f.Resolve(context.Background(), url)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if filepath.Ext(path) != ".ogg" {
		t.Errorf("expected .ogg cache file, got %s", path)
	}
}

func TestFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := newTestFetcher(t, "")
	if _, err := f.Fetch(context.Background(), server.URL+"/gone.mp3"); err == nil {
		t.Fatal("expected error for 404")
	}

	entries, _ := os.ReadDir(f.cacheDir)
	if len(entries) != 0 {
		t.Errorf("failed download left %d files in cache", len(entries))
	}
}

func TestFetchHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	f := newTestFetcher(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Fetch(ctx, server.URL+"/slow.mp3"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestGetExtension(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/rain.mp3", ".mp3"},
		{"https://example.com/wind.flac?token=abc", ".flac"},
		{"https://example.com/stream", ".mp3"},
		{"https://example.com/a.b/stream", ".mp3"},
	}

	for _, tt := range tests {
		if got := getExtension(tt.url); got != tt.want {
			t.Errorf("getExtension(%s) = %s, want %s", tt.url, got, tt.want)
		}
	}
}
