// ABOUTME: Collaborator interfaces consumed by the mixer
// ABOUTME: Audio engine capability, resource fetcher and host dispatcher
package mixer

import (
	"context"

	"github.com/zerohz/zerohz-go/pkg/audio"
)

// Sound is one catalog entry
type Sound struct {
	ID      string
	Label   string
	Locator string
}

// Decoder turns fetched bytes into a playable buffer
type Decoder interface {
	Decode(data []byte) (*audio.Buffer, error)
}

// ChannelFactory wires a new source and gain pair into the shared output
type ChannelFactory interface {
	CreateChannel(buf *audio.Buffer) (audio.Source, audio.Gain, error)
}

// Engine is the audio capability the mixer drives
type Engine interface {
	Decoder
	ChannelFactory
	Suspend() error
	Resume() error
}

// Fetcher loads the raw bytes behind a catalog locator
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// Dispatcher runs fn later on the host goroutine
type Dispatcher interface {
	Post(fn func())
}
