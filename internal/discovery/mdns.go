// ABOUTME: mDNS advertisement and browsing of zerohz remote endpoints
// ABOUTME: Hosts advertise their websocket remote; zerohzctl browses for them
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
)

// ServiceType is the mDNS service of a zerohz remote endpoint
const ServiceType = "_zerohz._tcp"

// browseTimeout bounds one mDNS query round
const browseTimeout = 3 * time.Second

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Path        string
	Version     string
	Logger      zerolog.Logger
}

// Manager handles mDNS operations
type Manager struct {
	config Config
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	hosts  chan *HostInfo
}

// HostInfo describes a discovered host
type HostInfo struct {
	Name    string
	Host    string
	Port    int
	Path    string
	Version string
}

// Addr returns host:port
func (h *HostInfo) Addr() string {
	return net.JoinHostPort(h.Host, fmt.Sprintf("%d", h.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Path == "" {
		config.Path = "/ws"
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config: config,
		log:    config.Logger.With().Str("component", "discovery").Logger(),
		ctx:    ctx,
		cancel: cancel,
		hosts:  make(chan *HostInfo, 10),
	}
}

// Advertise announces the remote endpoint until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.txtRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.log.Info().
		Str("name", m.config.ServiceName).
		Int("port", m.config.Port).
		Str("type", ServiceType).
		Msg("advertising mDNS service")

	go func() {
		<-m.ctx.Done()
		if err := server.Shutdown(); err != nil {
			m.log.Warn().Err(err).Msg("mdns shutdown error")
		}
	}()

	return nil
}

// Browse searches for hosts until Stop; results arrive on Hosts
func (m *Manager) Browse() {
	go m.browseLoop()
}

// browseLoop continuously browses for hosts
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				host := hostFromEntry(entry)
				if host == nil {
					continue
				}

				m.log.Debug().Str("name", host.Name).Str("addr", host.Addr()).Msg("discovered host")

				select {
				case m.hosts <- host:
				case <-m.ctx.Done():
				}
			}
		}()

		params := &mdns.QueryParam{
			Service:     ServiceType,
			Domain:      "local",
			Timeout:     browseTimeout,
			Entries:     entries,
			DisableIPv6: true,
		}

		if err := mdns.Query(params); err != nil {
			m.log.Warn().Err(err).Msg("mdns query failed")
			select {
			case <-time.After(browseTimeout):
			case <-m.ctx.Done():
			}
		}
		close(entries)
		<-done
	}
}

// Hosts returns the channel of discovered hosts
func (m *Manager) Hosts() <-chan *HostInfo {
	return m.hosts
}

// Stop stops advertising and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// txtRecords describes the endpoint to browsers
func (m *Manager) txtRecords() []string {
	txt := []string{"path=" + m.config.Path}
	if m.config.Version != "" {
		txt = append(txt, "version="+m.config.Version)
	}
	return txt
}

// hostFromEntry converts an mDNS answer, or returns nil when it has no
// usable IPv4 address
func hostFromEntry(entry *mdns.ServiceEntry) *HostInfo {
	if entry == nil || entry.AddrV4 == nil {
		return nil
	}

	host := &HostInfo{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Path: "/ws",
	}

	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "path":
			host.Path = value
		case "version":
			host.Version = value
		}
	}

	return host
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
