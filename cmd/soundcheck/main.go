// ABOUTME: Diagnostic that fetches and decodes every catalog sound
// ABOUTME: Prints each file's detected codec and format, and the converted length
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/zerohz/zerohz-go/internal/config"
	"github.com/zerohz/zerohz-go/internal/fetch"
	"github.com/zerohz/zerohz-go/pkg/audio/decode"
	"github.com/zerohz/zerohz-go/pkg/audio/resample"
	"github.com/zerohz/zerohz-go/pkg/mixer"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// result is the outcome for one sound
type result struct {
	Sound      mixer.Sound
	Codec      string
	SampleRate int
	Channels   int
	Duration   time.Duration
	Converted  int
	Err        error
}

func main() {
	cfg, err := config.Load("soundcheck", os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "soundcheck: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()

	fetcher, err := fetch.New(fetch.Config{
		SoundsDir: cfg.SoundsDir,
		CacheDir:  cfg.CacheDir,
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "soundcheck: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== Sound check: %d sounds, output %d Hz / %d ch ===\n", len(cfg.Catalog), cfg.SampleRate, cfg.Channels)

	failed := 0
	for _, s := range cfg.Catalog {
		r := check(context.Background(), fetcher, s, cfg.SampleRate, cfg.Channels)
		printResult(os.Stdout, r)
		if r.Err != nil {
			failed++
		}
	}

	fmt.Printf("\n%d ok, %d failed\n", len(cfg.Catalog)-failed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// check fetches, decodes and converts one sound
func check(ctx context.Context, fetcher mixer.Fetcher, s mixer.Sound, rate, channels int) result {
	r := result{Sound: s}

	data, err := fetcher.Fetch(ctx, s.Locator)
	if err != nil {
		r.Err = err
		return r
	}

	r.Codec = decode.Sniff(data)
	buf, err := decode.Decode(data)
	if err != nil {
		r.Err = err
		return r
	}

	r.SampleRate = buf.Format.SampleRate
	r.Channels = buf.Format.Channels
	r.Duration = buf.Duration()
	r.Converted = resample.Convert(buf, rate, channels).Frames()
	return r
}

func printResult(w io.Writer, r result) {
	if r.Err != nil {
		fmt.Fprintf(w, "%s %-10s %s\n", failStyle.Render("✗"), r.Sound.ID, dimStyle.Render(r.Err.Error()))
		return
	}

	fmt.Fprintf(w, "%s %-10s %-5s %6d Hz %d ch %8s %s\n",
		okStyle.Render("✓"), r.Sound.ID, r.Codec, r.SampleRate, r.Channels,
		r.Duration.Round(time.Millisecond), dimStyle.Render(fmt.Sprintf("→ %d frames", r.Converted)))
}
