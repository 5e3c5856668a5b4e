// ABOUTME: Sound resource fetcher for local files and remote URLs
// ABOUTME: Remote files are downloaded once and kept in a disk cache
package fetch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/zerohz/zerohz-go/internal/version"
)

// Config holds fetcher configuration
type Config struct {
	SoundsDir string
	CacheDir  string
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// Fetcher resolves catalog locators to bytes
type Fetcher struct {
	soundsDir string
	cacheDir  string
	client    *http.Client
	log       zerolog.Logger
}

// New creates a fetcher and its cache directory
func New(config Config) (*Fetcher, error) {
	if config.CacheDir == "" {
		config.CacheDir = filepath.Join(os.TempDir(), "zerohz-sounds")
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	if err := os.MkdirAll(config.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Fetcher{
		soundsDir: config.SoundsDir,
		cacheDir:  config.CacheDir,
		client:    &http.Client{Timeout: config.Timeout},
		log:       config.Logger.With().Str("component", "fetch").Logger(),
	}, nil
}

// Fetch returns the bytes behind locator. Relative paths are resolved
// against the sounds directory.
func (f *Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	path, err := f.Resolve(ctx, locator)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", locator, err)
	}
	return data, nil
}

// Resolve maps locator to a local file, downloading remote ones first
func (f *Fetcher) Resolve(ctx context.Context, locator string) (string, error) {
	switch {
	case locator == "":
		return "", fmt.Errorf("empty locator")
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		return f.download(ctx, locator)
	case strings.HasPrefix(locator, "file://"):
		return strings.TrimPrefix(locator, "file://"), nil
	case filepath.IsAbs(locator):
		return locator, nil
	default:
		return filepath.Join(f.soundsDir, locator), nil
	}
}

// download fetches url into the cache unless it is already there
func (f *Fetcher) download(ctx context.Context, url string) (string, error) {
	cachePath := filepath.Join(f.cacheDir, cacheName(url))

	if _, err := os.Stat(cachePath); err == nil {
		f.log.Debug().Str("path", cachePath).Msg("sound cache hit")
		return cachePath, nil
	}

	f.log.Info().Str("url", url).Msg("downloading sound")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download sound: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sound download failed: HTTP %d", resp.StatusCode)
	}

	// Write to a temp file first so a failed copy never looks like a cache hit
	tmp, err := os.CreateTemp(f.cacheDir, "download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create cache file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save sound: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save sound: %w", err)
	}

	if err := os.Rename(tmp.Name(), cachePath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store sound: %w", err)
	}

	f.log.Info().Str("path", cachePath).Msg("sound saved")
	return cachePath, nil
}

// Cleanup removes the download cache
func (f *Fetcher) Cleanup() error {
	return os.RemoveAll(f.cacheDir)
}

// cacheName derives a stable file name from the URL hash
func cacheName(url string) string {
	hash := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x%s", hash[:8], getExtension(url))
}

// getExtension extracts file extension from URL
func getExtension(url string) string {
	url = strings.Split(url, "?")[0]

	ext := filepath.Ext(url)
	if ext == "" || strings.Contains(ext, "/") {
		ext = ".mp3"
	}

	return ext
}
