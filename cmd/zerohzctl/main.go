// ABOUTME: Command-line remote control for a running zerohz host
// ABOUTME: Finds the host via mDNS or -addr, sends one command and prints the state
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/zerohz/zerohz-go/internal/control"
	"github.com/zerohz/zerohz-go/internal/discovery"
	"github.com/zerohz/zerohz-go/internal/remote"
)

var (
	addr    = flag.String("addr", "", "Host remote address host:port (default: discover via mDNS)")
	timeout = flag.Duration("timeout", 5*time.Second, "Discovery and reply timeout")
	watch   = flag.Bool("watch", false, "Keep printing state updates until interrupted")
)

const usage = `usage: zerohzctl [flags] <command> [args]

commands:
  state                       print the current state
  toggle <sound>              toggle a sound
  on|off <sound>              turn a sound on or off
  volume <sound> <0-1>        set a sound's volume
  mute | unmute               master mute
  play | pause                transport
  timer start|pause|resume|reset|toggle
  mode [stopwatch|countdown]  switch or toggle timer mode
  preset <id>                 apply a countdown preset
  target <seconds>            set the countdown target
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "zerohzctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("missing command")
	}

	var cmd *control.Command
	if args[0] != "state" {
		c, err := parseCommand(args)
		if err != nil {
			return err
		}
		cmd = &c
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hostAddr := *addr
	path := ""
	if hostAddr == "" {
		host, err := discover(ctx, *timeout)
		if err != nil {
			return err
		}
		hostAddr = host.Addr()
		path = host.Path
	}

	client := remote.NewClient(remote.ClientConfig{ServerAddr: hostAddr, Path: path})
	dialCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	if err := client.Connect(dialCtx); err != nil {
		return err
	}
	defer client.Close()

	fmt.Printf("connected to %s (%s)\n", client.Hello().Name, hostAddr)

	// The host sends its current state right after the hello
	st, err := nextState(ctx, client, *timeout)
	if err != nil {
		return err
	}

	if cmd != nil {
		if err := client.Send(*cmd); err != nil {
			return err
		}
		if st, err = nextState(ctx, client, *timeout); err != nil {
			return err
		}
	}
	printState(os.Stdout, st)

	for *watch {
		st, err := nextState(ctx, client, 0)
		if err != nil {
			return nil
		}
		fmt.Println()
		printState(os.Stdout, st)
	}
	return nil
}

// discover returns the first host found via mDNS
func discover(ctx context.Context, timeout time.Duration) (*discovery.HostInfo, error) {
	mgr := discovery.NewManager(discovery.Config{})
	mgr.Browse()
	defer mgr.Stop()

	select {
	case host := <-mgr.Hosts():
		return host, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("no zerohz host found after %v", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// nextState waits for a state update; a zero timeout waits indefinitely.
// A command error from the host is returned as an error.
func nextState(ctx context.Context, client *remote.Client, timeout time.Duration) (remote.State, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		expired = time.After(timeout)
	}

	select {
	case st := <-client.States:
		return st, nil
	case e := <-client.Errors:
		return remote.State{}, fmt.Errorf("host rejected %s: %s", e.Command, e.Message)
	case <-client.Done():
		return remote.State{}, fmt.Errorf("connection closed")
	case <-expired:
		return remote.State{}, fmt.Errorf("timed out")
	case <-ctx.Done():
		return remote.State{}, ctx.Err()
	}
}

// parseCommand maps command-line words to a host command
func parseCommand(args []string) (control.Command, error) {
	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s: expected %d argument(s), got %d", args[0], n-1, len(args)-1)
		}
		return nil
	}

	switch args[0] {
	case "toggle":
		if err := need(2); err != nil {
			return control.Command{}, err
		}
		return control.Command{Type: control.ToggleSound, Sound: args[1]}, nil
	case "on", "off":
		if err := need(2); err != nil {
			return control.Command{}, err
		}
		return control.Command{Type: control.SetActive, Sound: args[1], On: args[0] == "on"}, nil
	case "volume":
		if err := need(3); err != nil {
			return control.Command{}, err
		}
		v, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return control.Command{}, fmt.Errorf("volume: %w", err)
		}
		return control.Command{Type: control.SetVolume, Sound: args[1], Value: v}, nil
	case "mute", "unmute":
		if err := need(1); err != nil {
			return control.Command{}, err
		}
		return control.Command{Type: control.SetMuted, On: args[0] == "mute"}, nil
	case "play", "pause":
		if err := need(1); err != nil {
			return control.Command{}, err
		}
		return control.Command{Type: control.SetPlaying, On: args[0] == "play"}, nil
	case "timer":
		if err := need(2); err != nil {
			return control.Command{}, err
		}
		types := map[string]string{
			"start":  control.TimerStart,
			"pause":  control.TimerPause,
			"resume": control.TimerResume,
			"reset":  control.TimerReset,
			"toggle": control.TimerToggle,
		}
		t, ok := types[args[1]]
		if !ok {
			return control.Command{}, fmt.Errorf("timer: unknown action %q", args[1])
		}
		return control.Command{Type: t}, nil
	case "mode":
		if len(args) == 1 {
			return control.Command{Type: control.TimerMode}, nil
		}
		if err := need(2); err != nil {
			return control.Command{}, err
		}
		return control.Command{Type: control.TimerMode, Mode: args[1]}, nil
	case "preset":
		if err := need(2); err != nil {
			return control.Command{}, err
		}
		return control.Command{Type: control.TimerPreset, Preset: args[1]}, nil
	case "target":
		if err := need(2); err != nil {
			return control.Command{}, err
		}
		secs, err := strconv.Atoi(args[1])
		if err != nil {
			return control.Command{}, fmt.Errorf("target: %w", err)
		}
		return control.Command{Type: control.TimerTarget, Seconds: secs}, nil
	default:
		return control.Command{}, fmt.Errorf("unknown command %q, want one of: %s", args[0], commandWords())
	}
}

// printState writes a compact text view of st
func printState(w io.Writer, st remote.State) {
	transport := "playing"
	if !st.Playing {
		transport = "paused"
	}
	if st.Muted {
		transport += ", muted"
	}
	fmt.Fprintf(w, "transport: %s\n", transport)

	t := st.Timer
	status := "idle"
	switch {
	case t.Completed:
		status = "done"
	case t.Running && t.Paused:
		status = "paused"
	case t.Running:
		status = "running"
	}
	line := fmt.Sprintf("timer: %s %s (%s)", t.Mode, t.Formatted, status)
	if t.Mode == "countdown" {
		line += " of " + t.FormattedTarget
	}
	if t.Warning {
		line += " !"
	}
	fmt.Fprintln(w, line)

	for _, s := range st.Sounds {
		mark := " "
		if s.Active {
			mark = "*"
		}
		extra := ""
		if s.Load == "loading" || s.Load == "failed" {
			extra = " " + s.Load
		}
		fmt.Fprintf(w, "  %s %-10s %3d%%%s\n", mark, s.ID, int(s.Volume*100+0.5), extra)
	}
}

// commandWords lists the accepted commands for error messages
func commandWords() string {
	return strings.Join([]string{"state", "toggle", "on", "off", "volume", "mute", "unmute", "play", "pause", "timer", "mode", "preset", "target"}, ", ")
}
