// ABOUTME: Websocket client for a zerohz host's remote endpoint
// ABOUTME: Handles connection, hello, command sending and state routing
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/zerohz/zerohz-go/internal/control"
)

// ClientConfig holds client configuration
type ClientConfig struct {
	ServerAddr string
	Path       string
	Logger     zerolog.Logger
}

// Client is a remote control connection to a host
type Client struct {
	config ClientConfig
	log    zerolog.Logger
	conn   *websocket.Conn
	mu     sync.RWMutex

	// Message channels
	States chan State
	Errors chan ErrorPayload

	// Filled by the hello
	hello Hello

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new remote client
func NewClient(config ClientConfig) *Client {
	if config.Path == "" {
		config.Path = "/ws"
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: config,
		log:    config.Logger.With().Str("component", "remote-client").Logger(),
		States: make(chan State, 10),
		Errors: make(chan ErrorPayload, 10),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect dials the host and waits for its hello
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	c.log.Debug().Str("url", u.String()).Msg("connecting")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake reads the server/hello
func (c *Client) handshake() error {
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg inbound
	if err := c.conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	if msg.Type != TypeHello {
		return fmt.Errorf("expected %s, got %s", TypeHello, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, &c.hello); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	c.log.Debug().Str("name", c.hello.Name).Str("client_id", c.hello.ClientID).Msg("handshake complete")
	return nil
}

// Hello returns the host's hello; valid after Connect
func (c *Client) Hello() Hello {
	return c.hello
}

// Send sends a command to the host
func (c *Client) Send(cmd control.Command) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(Message{Type: TypeCommand, Payload: cmd})
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.ctx.Done():
			default:
				c.log.Debug().Err(err).Msg("read error")
			}
			return
		}

		switch msg.Type {
		case TypeState:
			var st State
			if err := json.Unmarshal(msg.Payload, &st); err != nil {
				c.log.Warn().Err(err).Msg("failed to parse state")
				continue
			}
			select {
			case c.States <- st:
			case <-c.ctx.Done():
				return
			}

		case TypeError:
			var e ErrorPayload
			if err := json.Unmarshal(msg.Payload, &e); err != nil {
				continue
			}
			select {
			case c.Errors <- e:
			case <-c.ctx.Done():
				return
			}

		default:
			c.log.Debug().Str("type", msg.Type).Msg("unknown message type")
		}
	}
}

// Done is closed once the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
