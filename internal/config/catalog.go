// ABOUTME: Sound catalog definitions and TOML catalog loading
// ABOUTME: The built-in catalog covers nature, life, places and work sounds
package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/zerohz/zerohz-go/pkg/mixer"
)

// ErrInvalidCatalog is returned for catalogs the mixer cannot use
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is a loaded catalog file
type Catalog struct {
	SoundsDir string
	Sounds    []mixer.Sound
	Volumes   map[string]float64
}

type catalogFile struct {
	SoundsDir string       `toml:"sounds_dir"`
	Sound     []soundEntry `toml:"sound"`
}

type soundEntry struct {
	ID     string   `toml:"id"`
	Label  string   `toml:"label"`
	Src    string   `toml:"src"`
	Volume *float64 `toml:"volume"`
}

// DefaultCatalog returns the built-in sounds, expected as <id>.mp3 in the
// sounds directory
func DefaultCatalog() []mixer.Sound {
	ids := []struct{ id, label string }{
		// Nature
		{"rain", "Rain"},
		{"wind", "Wind"},
		{"waves", "Waves"},
		// Life
		{"forest", "Forest"},
		{"stream", "Stream"},
		{"fire", "Fire"},
		// Places
		{"flight", "Flight"},
		{"train", "Train"},
		{"night", "Night"},
		// Work
		{"keyboard", "Keyboard"},
		{"thunder", "Thunder"},
	}

	sounds := make([]mixer.Sound, 0, len(ids))
	for _, s := range ids {
		sounds = append(sounds, mixer.Sound{ID: s.id, Label: s.label, Locator: s.id + ".mp3"})
	}
	return sounds
}

// LoadCatalog reads a TOML catalog:
//
//	sounds_dir = "/usr/share/zerohz"
//
//	[[sound]]
//	id = "rain"
//	label = "Rain"
//	src = "rain.flac"
//	volume = 0.6
func LoadCatalog(path string) (Catalog, error) {
	var file catalogFile
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Catalog{}, fmt.Errorf("%w: unknown key %s", ErrInvalidCatalog, undecoded[0])
	}

	cat := Catalog{
		SoundsDir: file.SoundsDir,
		Volumes:   make(map[string]float64),
	}
	for _, e := range file.Sound {
		label := e.Label
		if label == "" {
			label = e.ID
		}
		cat.Sounds = append(cat.Sounds, mixer.Sound{ID: e.ID, Label: label, Locator: e.Src})

		if e.Volume != nil {
			if *e.Volume < 0 || *e.Volume > 1 {
				return Catalog{}, fmt.Errorf("%w: volume of %s must be between 0 and 1", ErrInvalidCatalog, e.ID)
			}
			cat.Volumes[e.ID] = *e.Volume
		}
	}

	if err := validateSounds(cat.Sounds); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

func validateSounds(sounds []mixer.Sound) error {
	if len(sounds) == 0 {
		return fmt.Errorf("%w: no sounds", ErrInvalidCatalog)
	}

	seen := make(map[string]bool, len(sounds))
	for i, s := range sounds {
		if s.ID == "" {
			return fmt.Errorf("%w: sound %d has no id", ErrInvalidCatalog, i)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidCatalog, s.ID)
		}
		if s.Locator == "" {
			return fmt.Errorf("%w: sound %s has no src", ErrInvalidCatalog, s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}
