// ABOUTME: Multi-channel ambient mixer package
// ABOUTME: Buffer cache, per-sound channel graph and the reconciling controller
// Package mixer plays any number of looping ambient sounds through one shared
// output.
//
// The Mixer keeps the desired state (which sounds are on, their volumes,
// master mute and transport) and reconciles the ChannelGraph against it
// whenever that state changes or a buffer finishes loading. Buffers are
// fetched and decoded lazily by the BufferCache.
//
// All methods must be called from a single host goroutine. Load results are
// delivered back to that goroutine through a Dispatcher.
//
// Example:
//
//	cfg := mixer.DefaultConfig()
//	cfg.Catalog = sounds
//	m, err := mixer.New(out, fetcher, loop, cfg)
//	m.Preload()
//	err = m.ToggleSound("rain")
//	err = m.SetVolume("rain", 0.8)
package mixer
