package transport

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func readWithTimeout(t *testing.T, f *PipeFactory, d time.Duration) ([]byte, bool) {
	t.Helper()
	conn := f.Conn()
	conn.SetReadDeadline(time.Now().Add(d))
	defer conn.SetReadDeadline(time.Time{})

	buf := make([]byte, 1500)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		return nil, false
	}
	return buf[:n], true
}

func TestPipeFactoryAddresses(t *testing.T) {
	f0, f1 := NewPipeFactoryPair()
	defer f0.Pipe().Close()

	if f0.Pipe() != f1.Pipe() {
		t.Error("factories do not share a pipe")
	}
	if got, want := f0.PeerAddr(), f1.LocalAddr(); got != want {
		t.Errorf("f0.PeerAddr() = %v, want %v", got, want)
	}
	if got, want := f1.PeerAddr(), f0.LocalAddr(); got != want {
		t.Errorf("f1.PeerAddr() = %v, want %v", got, want)
	}
	if got := f0.LocalAddr().String(); got != "pipe:0:7777" {
		t.Errorf("LocalAddr().String() = %q, want %q", got, "pipe:0:7777")
	}
	if got := f0.LocalAddr().Network(); got != "pipe" {
		t.Errorf("Network() = %q, want %q", got, "pipe")
	}
}

func TestPipeFactoryCreateUDPConnReused(t *testing.T) {
	f0, _ := NewPipeFactoryPair()
	defer f0.Pipe().Close()

	if f0.Conn() != nil {
		t.Error("Conn() before CreateUDPConn should be nil")
	}

	c1, err := f0.CreateUDPConn(0)
	if err != nil {
		t.Fatalf("CreateUDPConn() error = %v", err)
	}
	c2, err := f0.CreateUDPConn(1234)
	if err != nil {
		t.Fatalf("CreateUDPConn() error = %v", err)
	}
	if c1 != c2 {
		t.Error("CreateUDPConn() returned a different conn on second call")
	}
	if !SameAddr(c1.LocalAddr(), f0.LocalAddr()) {
		t.Errorf("conn LocalAddr() = %v, want %v", c1.LocalAddr(), f0.LocalAddr())
	}
}

func TestPipeFactoryResolveAddr(t *testing.T) {
	f0, _ := NewPipeFactoryPair()
	defer f0.Pipe().Close()

	addr, err := f0.ResolveAddr("127.0.0.1:9000")
	if err != nil {
		t.Fatalf("ResolveAddr() error = %v", err)
	}
	if !SameAddr(addr, f0.PeerAddr()) {
		t.Errorf("ResolveAddr() = %v, want %v", addr, f0.PeerAddr())
	}

	if _, err := f0.ResolveAddr("not an address"); err == nil {
		t.Error("ResolveAddr(invalid) error = nil, want error")
	}
}

func TestPipeDelivery(t *testing.T) {
	f0, f1 := NewPipeFactoryPair()
	defer f0.Pipe().Close()

	c0, _ := f0.CreateUDPConn(0)
	f1.CreateUDPConn(0)

	data := []byte{1, 2, 3, 4}
	if _, err := c0.WriteTo(data, f0.PeerAddr()); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	got, ok := readWithTimeout(t, f1, time.Second)
	if !ok {
		t.Fatal("datagram not delivered")
	}
	if !bytes.Equal(got, data) {
		t.Errorf("received %x, want %x", got, data)
	}
}

func TestPipeManualProcess(t *testing.T) {
	f0, f1 := NewPipeFactoryPairWithConfig(PipeConfig{AutoProcess: false})
	defer f0.Pipe().Close()

	if f0.Pipe().AutoProcess() {
		t.Fatal("AutoProcess() = true, want false")
	}

	c0, _ := f0.CreateUDPConn(0)
	f1.CreateUDPConn(0)

	c0.WriteTo([]byte("a"), f0.PeerAddr())
	c0.WriteTo([]byte("b"), f0.PeerAddr())

	if got := f0.Pipe().Queued(0); got != 2 {
		t.Errorf("Queued(0) = %d, want 2", got)
	}

	// The bridge only hands a datagram to a blocked reader.
	done := make(chan []byte, 2)
	go func() {
		buf := make([]byte, 16)
		for i := 0; i < 2; i++ {
			n, _, err := f1.Conn().ReadFrom(buf)
			if err != nil {
				return
			}
			done <- append([]byte(nil), buf[:n]...)
		}
	}()

	for _, want := range []string{"a", "b"} {
		deadline := time.After(time.Second)
	loop:
		for {
			f0.Pipe().Tick()
			select {
			case got := <-done:
				if string(got) != want {
					t.Errorf("received %q, want %q", got, want)
				}
				break loop
			case <-deadline:
				t.Fatalf("timeout waiting for %q", want)
			default:
				time.Sleep(time.Millisecond)
			}
		}
	}
}

func TestPipeConditionDrop(t *testing.T) {
	f0, f1 := NewPipeFactoryPair()
	defer f0.Pipe().Close()

	f0.SetCondition(NetworkCondition{DropRate: 1.0})
	if got := f0.Pipe().Condition().DropRate; got != 1.0 {
		t.Errorf("Condition().DropRate = %v, want 1.0", got)
	}

	c0, _ := f0.CreateUDPConn(0)
	f1.CreateUDPConn(0)

	if n, err := c0.WriteTo([]byte{9}, f0.PeerAddr()); err != nil || n != 1 {
		t.Fatalf("WriteTo() = %d, %v, want 1, nil", n, err)
	}
	if got := f0.Conn().Written(); got != 1 {
		t.Errorf("Written() = %d, want 1", got)
	}

	if _, ok := readWithTimeout(t, f1, 50*time.Millisecond); ok {
		t.Error("dropped datagram was delivered")
	}
}

func TestPipeConditionConcurrentWriters(t *testing.T) {
	f0, f1 := NewPipeFactoryPairWithConfig(PipeConfig{AutoProcess: false})
	defer f0.Pipe().Close()
	f0.SetCondition(NetworkCondition{DropRate: 1.0, DuplicateRate: 0.5})

	c0, _ := f0.CreateUDPConn(0)
	c1, _ := f1.CreateUDPConn(0)

	const writes = 200
	var wg sync.WaitGroup
	for _, c := range []*PipePacketConn{c0.(*PipePacketConn), c1.(*PipePacketConn)} {
		wg.Add(1)
		go func(c *PipePacketConn) {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				if _, err := c.WriteTo([]byte{byte(i)}, c.peerAddr); err != nil {
					t.Errorf("WriteTo() error = %v", err)
					return
				}
			}
		}(c)
	}
	wg.Wait()

	for id, c := range []*PipePacketConn{c0.(*PipePacketConn), c1.(*PipePacketConn)} {
		if got := c.Written(); got != writes {
			t.Errorf("endpoint %d Written() = %d, want %d", id, got, writes)
		}
		if got := f0.Pipe().Queued(id); got != 0 {
			t.Errorf("endpoint %d Queued() = %d, want 0 with DropRate 1.0", id, got)
		}
	}
}

func TestPipeDropNext(t *testing.T) {
	f0, f1 := NewPipeFactoryPair()
	defer f0.Pipe().Close()

	c0, _ := f0.CreateUDPConn(0)
	f1.CreateUDPConn(0)

	f0.Pipe().DropNext(0, 1)
	c0.WriteTo([]byte("lost"), f0.PeerAddr())
	c0.WriteTo([]byte("kept"), f0.PeerAddr())

	got, ok := readWithTimeout(t, f1, time.Second)
	if !ok {
		t.Fatal("second datagram not delivered")
	}
	if string(got) != "kept" {
		t.Errorf("received %q, want %q", got, "kept")
	}
}

func TestPipeClose(t *testing.T) {
	f0, _ := NewPipeFactoryPair()
	f0.CreateUDPConn(0)

	if err := f0.Pipe().Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := f0.Pipe().Close(); err != nil {
		t.Errorf("Close() second call error = %v", err)
	}
	if _, err := f0.Conn().WriteTo([]byte{1}, f0.PeerAddr()); err == nil {
		t.Error("WriteTo() after Close error = nil, want error")
	}
}
