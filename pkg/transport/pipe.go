package transport

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v3/test"
)

// NetworkCondition configures network behavior simulation.
// Use this to test protocol behavior under adverse network conditions.
type NetworkCondition struct {
	// DropRate is the probability of dropping a packet (0.0 - 1.0).
	DropRate float64

	// DelayMin is the minimum delay to add to each packet.
	DelayMin time.Duration

	// DelayMax is the maximum delay to add to each packet.
	// Actual delay is uniformly distributed between DelayMin and DelayMax.
	DelayMax time.Duration

	// DuplicateRate is the probability of duplicating a packet (0.0 - 1.0).
	DuplicateRate float64
}

// PipeConfig configures a Pipe.
type PipeConfig struct {
	// AutoProcess enables automatic packet delivery in a background goroutine.
	// Default: true
	AutoProcess bool

	// ProcessInterval is how often the auto-processor delivers packets.
	// Default: 1ms
	ProcessInterval time.Duration
}

// DefaultPipeConfig returns the default pipe configuration.
func DefaultPipeConfig() PipeConfig {
	return PipeConfig{
		AutoProcess:     true,
		ProcessInterval: 1 * time.Millisecond,
	}
}

// Pipe provides bidirectional in-memory datagram delivery between two
// endpoints. It wraps pion's test.Bridge and adds network condition
// simulation.
//
// By default, Pipe delivers packets in a background goroutine.
// Use SetAutoProcess(false) or NewPipeWithConfig for manual control.
type Pipe struct {
	bridge *test.Bridge

	mu              sync.RWMutex
	condition       NetworkCondition
	closed          bool
	rng             *rand.Rand
	autoProcess     bool
	processInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

// NewPipe creates a new bidirectional pipe with auto-processing enabled.
func NewPipe() *Pipe {
	return NewPipeWithConfig(DefaultPipeConfig())
}

// NewPipeWithConfig creates a new pipe with the given configuration.
func NewPipeWithConfig(config PipeConfig) *Pipe {
	p := &Pipe{
		bridge:          test.NewBridge(),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		autoProcess:     config.AutoProcess,
		processInterval: config.ProcessInterval,
		stopCh:          make(chan struct{}),
	}

	if p.processInterval == 0 {
		p.processInterval = 1 * time.Millisecond
	}

	if p.autoProcess {
		p.startAutoProcess()
	}

	return p
}

func (p *Pipe) startAutoProcess() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.processInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.bridge.Tick()
			}
		}
	}()
}

// SetAutoProcess enables or disables automatic packet delivery.
// When disabled, call Tick or Process manually.
func (p *Pipe) SetAutoProcess(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.autoProcess == enabled {
		return
	}

	p.autoProcess = enabled

	if enabled {
		p.stopCh = make(chan struct{})
		p.startAutoProcess()
	} else {
		close(p.stopCh)
		p.wg.Wait()
	}
}

// AutoProcess returns whether auto-processing is enabled.
func (p *Pipe) AutoProcess() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.autoProcess
}

// SetCondition configures network condition simulation.
// The conditions apply to packets in both directions.
func (p *Pipe) SetCondition(cond NetworkCondition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.condition = cond
}

// Condition returns the current network condition configuration.
func (p *Pipe) Condition() NetworkCondition {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.condition
}

// DropNext drops the next n packets written by endpoint id.
func (p *Pipe) DropNext(id, n int) {
	p.bridge.DropNextNWrites(id, n)
}

// Queued returns the number of packets written by endpoint id and not yet
// delivered.
func (p *Pipe) Queued(id int) int {
	return p.bridge.Len(id)
}

// Tick delivers at most one waiting packet in each direction.
// Returns the number of packets delivered (0, 1, or 2).
func (p *Pipe) Tick() int {
	return p.bridge.Tick()
}

// Process delivers queued packets until none can be delivered.
// Returns the number of packets delivered.
func (p *Pipe) Process() int {
	count := 0
	for {
		n := p.Tick()
		if n == 0 {
			break
		}
		count += n
	}
	return count
}

// Close closes both endpoints of the pipe and stops auto-processing.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	if p.autoProcess {
		close(p.stopCh)
	}
	p.mu.Unlock()

	p.wg.Wait()

	// Closing only marks the bridge ends; a final tick completes it so
	// blocked readers return.
	p.bridge.GetConn0().Close()
	p.bridge.GetConn1().Close()
	p.bridge.Tick()

	return nil
}

// roll draws the fate of one packet under the current condition.
// Both endpoints call it concurrently; the rng is guarded by mu.
func (p *Pipe) roll() (drop bool, delay time.Duration, duplicate bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cond := p.condition
	if cond.DropRate > 0 && p.rng.Float64() < cond.DropRate {
		return true, 0, false
	}
	if cond.DelayMax > 0 {
		delay = cond.DelayMin
		if cond.DelayMax > cond.DelayMin {
			delay += time.Duration(p.rng.Int63n(int64(cond.DelayMax - cond.DelayMin)))
		}
	}
	duplicate = cond.DuplicateRate > 0 && p.rng.Float64() < cond.DuplicateRate
	return false, delay, duplicate
}

func (p *Pipe) conn(id int) net.Conn {
	if id == 0 {
		return p.bridge.GetConn0()
	}
	return p.bridge.GetConn1()
}

// PipeAddr implements net.Addr for pipe endpoints.
type PipeAddr struct {
	ID   int // Endpoint ID (0 or 1)
	Port int // Logical port number
}

// Network returns "pipe".
func (a PipeAddr) Network() string { return "pipe" }

// String returns a string representation of the address.
func (a PipeAddr) String() string { return fmt.Sprintf("pipe:%d:%d", a.ID, a.Port) }

// PipePacketConn wraps a Pipe endpoint to implement net.PacketConn.
// Every datagram read appears to come from the other endpoint, and every
// write goes to it regardless of the address given.
type PipePacketConn struct {
	conn      net.Conn
	localAddr PipeAddr
	peerAddr  PipeAddr
	pipe      *Pipe

	mu      sync.Mutex
	written int
}

// ReadFrom reads a datagram from the pipe.
func (c *PipePacketConn) ReadFrom(b []byte) (n int, addr net.Addr, err error) {
	n, err = c.conn.Read(b)
	return n, c.peerAddr, err
}

// WriteTo writes a datagram to the pipe, subject to the pipe's network condition.
func (c *PipePacketConn) WriteTo(b []byte, addr net.Addr) (n int, err error) {
	c.mu.Lock()
	c.written++
	c.mu.Unlock()

	drop, delay, duplicate := c.pipe.roll()
	if drop {
		return len(b), nil
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if duplicate {
		if _, err := c.conn.Write(b); err != nil {
			return 0, err
		}
	}

	return c.conn.Write(b)
}

// Written returns the number of WriteTo calls, including dropped datagrams.
func (c *PipePacketConn) Written() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written
}

// Close closes the pipe endpoint.
func (c *PipePacketConn) Close() error {
	return c.conn.Close()
}

// LocalAddr returns the local address.
func (c *PipePacketConn) LocalAddr() net.Addr {
	return c.localAddr
}

// SetDeadline sets the read and write deadlines.
func (c *PipePacketConn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline sets the read deadline.
func (c *PipePacketConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline.
func (c *PipePacketConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// Verify PipePacketConn implements net.PacketConn.
var _ net.PacketConn = (*PipePacketConn)(nil)

// PipeFactory creates packet connections on one end of a Pipe.
// Use this for in-memory testing without real network I/O.
//
// A pipe endpoint can only be opened once; CreateUDPConn returns the same
// connection on every call.
type PipeFactory struct {
	mu      sync.Mutex
	pipe    *Pipe
	localID int // 0 or 1
	udpConn *PipePacketConn
}

// NewPipeFactoryPair creates a pair of PipeFactory instances connected to
// each other via a Pipe with auto-processing enabled.
//
// Example:
//
//	f0, f1 := transport.NewPipeFactoryPair()
//	// Use f0 for the client, f1 for the test peer
func NewPipeFactoryPair() (*PipeFactory, *PipeFactory) {
	return NewPipeFactoryPairWithConfig(DefaultPipeConfig())
}

// NewPipeFactoryPairWithConfig creates a pair of PipeFactory instances
// with the given configuration.
//
// For manual packet control (deterministic testing):
//
//	f0, f1 := transport.NewPipeFactoryPairWithConfig(transport.PipeConfig{
//	    AutoProcess: false,
//	})
//	// ... do work ...
//	f0.Pipe().Process() // manually deliver packets
func NewPipeFactoryPairWithConfig(config PipeConfig) (*PipeFactory, *PipeFactory) {
	pipe := NewPipeWithConfig(config)
	return &PipeFactory{pipe: pipe, localID: 0}, &PipeFactory{pipe: pipe, localID: 1}
}

// Pipe returns the underlying pipe for configuration and manual packet control.
func (f *PipeFactory) Pipe() *Pipe {
	return f.pipe
}

// ID returns the pipe endpoint this factory opens.
func (f *PipeFactory) ID() int {
	return f.localID
}

// LocalAddr returns the local address for this side of the pipe.
func (f *PipeFactory) LocalAddr() net.Addr {
	return PipeAddr{ID: f.localID, Port: DefaultPort}
}

// PeerAddr returns the peer address for this side of the pipe.
func (f *PipeFactory) PeerAddr() net.Addr {
	return PipeAddr{ID: 1 - f.localID, Port: DefaultPort}
}

// CreateUDPConn returns the packet connection for this side of the pipe.
// The port is ignored; pipe endpoints have fixed addresses.
func (f *PipeFactory) CreateUDPConn(port int) (net.PacketConn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.udpConn != nil {
		return f.udpConn, nil
	}

	f.udpConn = &PipePacketConn{
		conn:      f.pipe.conn(f.localID),
		localAddr: PipeAddr{ID: f.localID, Port: DefaultPort},
		peerAddr:  PipeAddr{ID: 1 - f.localID, Port: DefaultPort},
		pipe:      f.pipe,
	}

	return f.udpConn, nil
}

// ResolveAddr validates hostAddress like a UDP address and maps it to the
// other end of the pipe, the only reachable peer.
func (f *PipeFactory) ResolveAddr(hostAddress string) (net.Addr, error) {
	if _, err := resolveUDP(hostAddress); err != nil {
		return nil, err
	}
	return f.PeerAddr(), nil
}

// Conn returns the connection created by CreateUDPConn, or nil.
func (f *PipeFactory) Conn() *PipePacketConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.udpConn
}

// SetCondition configures network condition simulation for this factory's pipe.
func (f *PipeFactory) SetCondition(cond NetworkCondition) {
	f.pipe.SetCondition(cond)
}

// Verify PipeFactory implements Factory.
var _ Factory = (*PipeFactory)(nil)
