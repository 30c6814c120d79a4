package transport

import (
	"fmt"
	"net"
)

// Factory creates the client's datagram socket and resolves peer addresses.
// Implementations can provide real network connections or virtual pipes for testing.
type Factory interface {
	// CreateUDPConn creates a UDP-like packet connection bound to port.
	// Port 0 selects an ephemeral port.
	CreateUDPConn(port int) (net.PacketConn, error)

	// ResolveAddr parses a "host:port" string into an address the
	// connection returned by CreateUDPConn can send to. Errors wrap
	// ErrInvalidAddress.
	ResolveAddr(hostAddress string) (net.Addr, error)
}

// NetFactory creates real UDP sockets.
type NetFactory struct {
	// Host is the local interface to bind. Empty binds all interfaces.
	Host string
}

// CreateUDPConn opens a UDP socket.
func (f NetFactory) CreateUDPConn(port int) (net.PacketConn, error) {
	return net.ListenPacket("udp", net.JoinHostPort(f.Host, fmt.Sprint(port)))
}

// ResolveAddr resolves hostAddress to a UDP address with a non-zero port.
func (f NetFactory) ResolveAddr(hostAddress string) (net.Addr, error) {
	return resolveUDP(hostAddress)
}

func resolveUDP(hostAddress string) (*net.UDPAddr, error) {
	if hostAddress == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	addr, err := net.ResolveUDPAddr("udp", hostAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if addr.Port == 0 {
		return nil, fmt.Errorf("%w: %q has no port", ErrInvalidAddress, hostAddress)
	}

	return addr, nil
}

// SameAddr reports whether two addresses name the same endpoint.
func SameAddr(a, b net.Addr) bool {
	if a == nil || b == nil {
		return false
	}
	if ua, ok := a.(*net.UDPAddr); ok {
		if ub, ok := b.(*net.UDPAddr); ok {
			return ua.Port == ub.Port && ua.IP.Equal(ub.IP)
		}
	}
	return a.Network() == b.Network() && a.String() == b.String()
}

// Verify NetFactory implements Factory.
var _ Factory = NetFactory{}
