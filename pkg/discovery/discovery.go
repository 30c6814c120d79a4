// Package discovery finds reliable UDP servers on the local network via
// DNS-SD over mDNS.
//
// Servers advertise the "_rudp._udp" service type. A Browser collects the
// instances that answer within a timeout and returns them as Server values
// whose Address can be passed straight to client.Connect.
package discovery

import (
	"context"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// Service parameters.
const (
	// ServiceType is the DNS-SD service type advertised by servers.
	ServiceType = "_rudp._udp"

	// DefaultDomain is the mDNS domain.
	DefaultDomain = "local."

	// DefaultBrowseTimeout bounds a Browse call whose context has no deadline.
	DefaultBrowseTimeout = 3 * time.Second
)

// Server is a discovered server instance.
type Server struct {
	// Instance is the DNS-SD instance name.
	Instance string

	// HostName is the target host name.
	HostName string

	// Port is the server's UDP port.
	Port int

	// IPs contains the resolved addresses, sorted by preference.
	IPs []net.IP

	// Text contains the TXT record key-value pairs.
	Text map[string]string
}

// Name returns the human-readable server name from the TXT record,
// falling back to the instance name.
func (s *Server) Name() string {
	if name, ok := s.Text[TXTKeyName]; ok && name != "" {
		return name
	}
	return s.Instance
}

// Address returns a "host:port" string for client.Connect, using the most
// preferred IP, or the host name when no address was resolved.
func (s *Server) Address() (string, error) {
	if s.Port <= 0 || s.Port > 65535 {
		return "", ErrInvalidPort
	}
	if len(s.IPs) > 0 {
		return net.JoinHostPort(s.IPs[0].String(), strconv.Itoa(s.Port)), nil
	}
	if s.HostName != "" {
		return net.JoinHostPort(s.HostName, strconv.Itoa(s.Port)), nil
	}
	return "", ErrNoAddress
}

// MDNSResolver is the interface for mDNS service resolution.
// This allows for dependency injection in tests.
type MDNSResolver interface {
	// Browse browses for services of the given type, sending each instance
	// found to entries until ctx is done.
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// zeroconfResolver is the production implementation using grandcat/zeroconf.
type zeroconfResolver struct {
	resolver *zeroconf.Resolver
}

func newZeroconfResolver() (*zeroconfResolver, error) {
	r, err := zeroconf.NewResolver()
	if err != nil {
		return nil, err
	}
	return &zeroconfResolver{resolver: r}, nil
}

func (z *zeroconfResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	return z.resolver.Browse(ctx, service, domain, entries)
}

// BrowserConfig holds configuration for a Browser.
type BrowserConfig struct {
	// MDNSResolver is the underlying mDNS resolver implementation.
	// If nil, the default zeroconf resolver is used.
	MDNSResolver MDNSResolver

	// Service is the service type to browse. Default: ServiceType.
	Service string

	// Domain is the mDNS domain. Default: DefaultDomain.
	Domain string

	// Timeout bounds Browse when the context has no deadline.
	// Default: DefaultBrowseTimeout.
	Timeout time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Browser discovers servers via DNS-SD.
type Browser struct {
	config   BrowserConfig
	resolver MDNSResolver
	log      logging.LeveledLogger
}

// NewBrowser creates a Browser with the given configuration.
func NewBrowser(config BrowserConfig) (*Browser, error) {
	resolver := config.MDNSResolver
	if resolver == nil {
		zr, err := newZeroconfResolver()
		if err != nil {
			return nil, err
		}
		resolver = zr
	}

	if config.Service == "" {
		config.Service = ServiceType
	}
	if config.Domain == "" {
		config.Domain = DefaultDomain
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultBrowseTimeout
	}

	b := &Browser{
		config:   config,
		resolver: resolver,
	}
	if config.LoggerFactory != nil {
		b.log = config.LoggerFactory.NewLogger("discovery")
	}
	return b, nil
}

// Browse collects the servers that answer until ctx is done or, if ctx
// has no deadline, the configured timeout expires. Instances are
// deduplicated by name and returned sorted by name. Cancellation is not
// an error.
func (b *Browser) Browse(ctx context.Context) ([]Server, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.Timeout)
		defer cancel()
	}

	entries := make(chan *zeroconf.ServiceEntry)
	errCh := make(chan error, 1)

	go func() {
		errCh <- b.resolver.Browse(ctx, b.config.Service, b.config.Domain, entries)
	}()

	found := make(map[string]Server)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				// The resolver closed the channel; nothing more will arrive.
				entries = nil
				continue
			}
			if entry == nil {
				continue
			}
			srv := entryToServer(entry)
			if b.log != nil {
				b.log.Debugf("found %q at %s:%d", srv.Instance, srv.HostName, srv.Port)
			}
			found[srv.Instance] = srv

		case err := <-errCh:
			errCh = nil
			if err != nil && ctx.Err() == nil {
				return nil, err
			}

		case <-ctx.Done():
			return sortServers(found), nil
		}
	}
}

func sortServers(found map[string]Server) []Server {
	servers := make([]Server, 0, len(found))
	for _, srv := range found {
		servers = append(servers, srv)
	}
	sort.Slice(servers, func(i, j int) bool {
		return servers[i].Instance < servers[j].Instance
	})
	return servers
}

// entryToServer converts a zeroconf.ServiceEntry to a Server.
func entryToServer(entry *zeroconf.ServiceEntry) Server {
	var ips []net.IP
	ips = append(ips, entry.AddrIPv4...)
	ips = append(ips, entry.AddrIPv6...)

	return Server{
		Instance: entry.Instance,
		HostName: entry.HostName,
		Port:     entry.Port,
		IPs:      SortIPsByPreference(ips),
		Text:     ParseTXT(entry.Text),
	}
}
