// ABOUTME: Decoded buffer cache keyed by sound id
// ABOUTME: Each sound is fetched and decoded at most once per process
package mixer

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/zerohz/zerohz-go/pkg/audio"
)

// LoadState tracks a sound's buffer through loading
type LoadState int

const (
	LoadIdle LoadState = iota
	LoadLoading
	LoadReady
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadIdle:
		return "idle"
	case LoadLoading:
		return "loading"
	case LoadReady:
		return "ready"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type cacheEntry struct {
	state LoadState
	buf   *audio.Buffer
	done  chan struct{}
}

// BufferCache fetches and decodes sounds on demand. Failed loads are final.
type BufferCache struct {
	sounds   map[string]Sound
	fetcher  Fetcher
	decoder  Decoder
	dispatch Dispatcher
	log      zerolog.Logger

	entries map[string]*cacheEntry
	hooks   []func(id string)
}

// NewBufferCache creates a cache over the given catalog
func NewBufferCache(catalog []Sound, fetcher Fetcher, decoder Decoder, dispatch Dispatcher, logger zerolog.Logger) *BufferCache {
	c := &BufferCache{
		sounds:   make(map[string]Sound, len(catalog)),
		fetcher:  fetcher,
		decoder:  decoder,
		dispatch: dispatch,
		log:      logger,
		entries:  make(map[string]*cacheEntry, len(catalog)),
	}
	for _, s := range catalog {
		c.sounds[s.ID] = s
		c.entries[s.ID] = &cacheEntry{done: make(chan struct{})}
	}
	return c
}

// EnsureLoaded starts loading id unless a load already ran or is running.
// The returned channel closes once the load settles, success or not. It is
// closed on the host goroutine, so the host must never block on it.
func (c *BufferCache) EnsureLoaded(id string) <-chan struct{} {
	e, ok := c.entries[id]
	if !ok {
		done := make(chan struct{})
		close(done)
		return done
	}
	if e.state != LoadIdle {
		return e.done
	}

	e.state = LoadLoading
	sound := c.sounds[id]
	c.log.Debug().Str("sound", id).Str("locator", sound.Locator).Msg("loading sound")

	go func() {
		data, err := c.fetcher.Fetch(context.Background(), sound.Locator)
		var buf *audio.Buffer
		if err == nil {
			buf, err = c.decoder.Decode(data)
		}
		c.dispatch.Post(func() {
			c.finish(id, buf, err)
		})
	}()

	return e.done
}

func (c *BufferCache) finish(id string, buf *audio.Buffer, err error) {
	e := c.entries[id]

	if err != nil {
		e.state = LoadFailed
		c.log.Error().Err(err).Str("sound", id).Msg("failed to load sound, it will stay unavailable")
	} else {
		e.state = LoadReady
		e.buf = buf
		c.log.Info().
			Str("sound", id).
			Dur("duration", buf.Duration()).
			Int("frames", buf.Frames()).
			Msg("sound loaded")
	}
	close(e.done)

	for _, hook := range c.hooks {
		hook(id)
	}
}

// OnLoaded registers fn to run on the host goroutine after every settled load
func (c *BufferCache) OnLoaded(fn func(id string)) {
	c.hooks = append(c.hooks, fn)
}

// Buffer returns the decoded buffer for id, or nil if it is not loaded
func (c *BufferCache) Buffer(id string) *audio.Buffer {
	if e, ok := c.entries[id]; ok {
		return e.buf
	}
	return nil
}

// State returns the load state of id
func (c *BufferCache) State(id string) LoadState {
	if e, ok := c.entries[id]; ok {
		return e.state
	}
	return LoadFailed
}
