// ABOUTME: Entry point for the zerohz ambient mixer and focus timer
// ABOUTME: Parses configuration and runs the host with the TUI or streaming logs
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zerohz/zerohz-go/internal/app"
	"github.com/zerohz/zerohz-go/internal/config"
	"github.com/zerohz/zerohz-go/internal/fetch"
	"github.com/zerohz/zerohz-go/internal/logging"
	"github.com/zerohz/zerohz-go/internal/ui"
	"github.com/zerohz/zerohz-go/internal/version"
	"github.com/zerohz/zerohz-go/pkg/audio"
	"github.com/zerohz/zerohz-go/pkg/audio/output"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "zerohz: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load("zerohz", args)
	if err != nil {
		return err
	}

	// TUI mode logs only to the file; -no-tui streams to stdout as well
	useTUI := !cfg.NoTUI
	logger, closeLog, err := logging.New(logging.Config{
		File:   cfg.LogFile,
		Level:  cfg.LogLevel,
		Stream: !useTUI,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	logger.Info().
		Str("name", cfg.Name).
		Str("version", version.Version).
		Str("backend", cfg.Backend).
		Msg("starting zerohz")

	out, err := output.Open(cfg.Backend, audio.Format{
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing audio output")
		}
	}()

	fetcher, err := fetch.New(fetch.Config{
		SoundsDir: cfg.SoundsDir,
		CacheDir:  cfg.CacheDir,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	host, err := app.New(out, fetcher, nil, app.ConfigFrom(cfg, logger))
	if err != nil {
		return err
	}

	if err := host.Listen(); err != nil {
		return err
	}

	// TUI setup
	var tuiProg *tea.Program
	tuiDone := make(chan struct{})
	if useTUI {
		ctrl := ui.NewControl()
		tuiProg, err = ui.Run(ctrl, cfg.Name)
		if err != nil {
			return fmt.Errorf("failed to start TUI: %w", err)
		}
		host.AttachTUI(tuiProg, ctrl)

		go func() {
			defer close(tuiDone)
			if _, err := tuiProg.Run(); err != nil {
				logger.Error().Err(err).Msg("TUI error")
			}
		}()
	} else {
		close(tuiDone)
		logger.Info().Msg("TUI disabled, streaming logs")
	}

	// Handle shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := host.Run(ctx)

	if tuiProg != nil {
		tuiProg.Quit()
	}
	<-tuiDone

	logger.Info().Msg("zerohz stopped")
	return runErr
}
