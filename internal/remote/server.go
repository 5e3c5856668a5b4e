// ABOUTME: Websocket remote control server
// ABOUTME: Streams host state to clients and forwards their commands to the host
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/zerohz/zerohz-go/internal/control"
)

const (
	// sendBuffer is the per-client outbound queue length
	sendBuffer = 16

	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// Config configures a remote server
type Config struct {
	// Addr to listen on, e.g. ":8928"
	Addr string

	// Name of the host for identification
	Name string

	// Version reported in the hello message
	Version string

	// OnCommand receives every command a client sends. It is called from
	// connection goroutines and must hand the command to the host loop.
	OnCommand func(clientID string, cmd control.Command)

	Logger zerolog.Logger
}

// Server is a websocket remote control endpoint
type Server struct {
	config   Config
	serverID string
	log      zerolog.Logger

	upgrader websocket.Upgrader
	mux      *http.ServeMux
	listener net.Listener

	// Client management
	clients   map[string]*client
	clientsMu sync.RWMutex

	// Latest published state, sent to new clients
	latest   *State
	latestMu sync.RWMutex

	wg sync.WaitGroup
}

// client represents a connected remote (internal)
type client struct {
	ID   string
	Conn *websocket.Conn

	// Output channel for messages
	sendChan chan Message
}

// NewServer creates a remote server
func NewServer(config Config) *Server {
	if config.Name == "" {
		config.Name = "zerohz"
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		log:      config.Logger.With().Str("component", "remote").Logger(),
		mux:      http.NewServeMux(),
		clients:  make(map[string]*client),
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin,
		},
	}

	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/state", s.handleState)

	return s
}

// Handler returns the HTTP handler serving /ws and /state
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Listen binds the configured address
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	s.log.Info().Str("addr", ln.Addr().String()).Msg("remote control listening")
	return nil
}

// Port returns the bound TCP port, or 0 before Listen
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Serve accepts connections until ctx is cancelled
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	httpServer := &http.Server{Handler: s.mux}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(s.listener); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errChan:
		s.log.Error().Err(serveErr).Msg("remote server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Warn().Err(err).Msg("remote shutdown error")
	}

	// Hijacked connections are not closed by Shutdown
	s.closeClients()
	s.wg.Wait()

	s.log.Info().Msg("remote control stopped")
	return serveErr
}

// Publish stores snap and sends it to every connected client
func (s *Server) Publish(snap control.Snapshot) {
	st := NewState(snap)

	s.latestMu.Lock()
	s.latest = &st
	s.latestMu.Unlock()

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, c := range s.clients {
		if err := s.sendMessage(c, TypeState, st); err != nil {
			s.log.Debug().Err(err).Str("client", c.ID).Msg("state dropped")
		}
	}
}

// SendError reports a failed command to the client that sent it
func (s *Server) SendError(clientID string, cmd control.Command, err error) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	c, ok := s.clients[clientID]
	if !ok {
		return
	}
	if sendErr := s.sendMessage(c, TypeError, ErrorPayload{Message: err.Error(), Command: cmd.Type}); sendErr != nil {
		s.log.Debug().Err(sendErr).Str("client", c.ID).Msg("error dropped")
	}
}

// Clients returns the number of connected clients
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// handleState serves the latest state as JSON
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.latestMu.RLock()
	st := s.latest
	s.latestMu.RUnlock()

	if st == nil {
		http.Error(w, "state not available yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		s.log.Warn().Err(err).Msg("failed to write state")
	}
}

// handleWebSocket upgrades and serves one remote
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}

	s.log.Info().Str("remote_addr", r.RemoteAddr).Msg("new remote connection")
	s.handleConnection(conn)
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	c := &client{
		ID:       uuid.New().String(),
		Conn:     conn,
		sendChan: make(chan Message, sendBuffer),
	}

	s.clientsMu.Lock()
	s.clients[c.ID] = c
	s.clientsMu.Unlock()

	defer func() {
		s.removeClient(c)
		s.log.Info().Str("client", c.ID).Msg("remote disconnected")
	}()

	hello := Hello{
		ServerID: s.serverID,
		ClientID: c.ID,
		Name:     s.config.Name,
		Version:  s.config.Version,
	}
	if err := s.sendMessage(c, TypeHello, hello); err != nil {
		return
	}

	s.latestMu.RLock()
	st := s.latest
	s.latestMu.RUnlock()
	if st != nil {
		s.sendMessage(c, TypeState, *st)
	}

	// Start writer goroutine
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(c)
	}()

	// Read messages from client
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Warn().Err(err).Str("client", c.ID).Msg("websocket error")
			}
			break
		}

		s.handleClientMessage(c, data)
	}
}

// clientWriter sends queued messages and keepalive pings
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.log.Warn().Err(err).Str("type", msg.Type).Msg("failed to marshal message")
				continue
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// handleClientMessage processes messages from clients
func (s *Server) handleClientMessage(c *client, data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendMessage(c, TypeError, ErrorPayload{Message: "malformed message"})
		return
	}

	switch msg.Type {
	case TypeCommand:
		var cmd control.Command
		if err := json.Unmarshal(msg.Payload, &cmd); err != nil || cmd.Type == "" {
			s.sendMessage(c, TypeError, ErrorPayload{Message: "malformed command"})
			return
		}
		s.log.Debug().Str("client", c.ID).Str("command", cmd.Type).Msg("remote command")
		if s.config.OnCommand != nil {
			s.config.OnCommand(c.ID, cmd)
		}
	default:
		s.log.Debug().Str("type", msg.Type).Msg("unknown message type")
		s.sendMessage(c, TypeError, ErrorPayload{Message: "unknown message type: " + msg.Type})
	}
}

// removeClient removes a client and stops its writer
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if _, ok := s.clients[c.ID]; !ok {
		return
	}
	delete(s.clients, c.ID)
	close(c.sendChan)
}

// closeClients drops every open connection
func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, c := range s.clients {
		c.Conn.Close()
	}
}

// sendMessage queues a JSON message for a client
func (s *Server) sendMessage(c *client, msgType string, payload interface{}) error {
	select {
	case c.sendChan <- Message{Type: msgType, Payload: payload}:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// checkOrigin accepts same-origin and local network browsers
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	h := u.Hostname()
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}
