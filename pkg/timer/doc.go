// ABOUTME: Focus timer package
// ABOUTME: Stopwatch and countdown engine derived from wall-clock deltas
// Package timer implements a stopwatch/countdown timer that stays exact
// across pauses and late polls.
//
// The displayed seconds are always recomputed from absolute elapsed time, so
// a poll that arrives five seconds late shows five seconds passing. Warning
// and completion callbacks fire once per run.
//
// Example:
//
//	cfg := timer.DefaultConfig()
//	cfg.Scheduler = loop
//	cfg.OnComplete = func() { log.Info().Msg("done") }
//	e := timer.New(cfg)
//	e.SetPreset(timer.Presets[0])
//	e.Start()
package timer
