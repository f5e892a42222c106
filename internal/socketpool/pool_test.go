package socketpool

import (
	"net"
	"testing"
	"time"
)

// noopReactor satisfies this package's local Reactor interface without actually polling
// anything — these tests drive Socket.onFdReady directly instead of waiting on a real event loop.
type noopReactor struct{}

func (noopReactor) RegisterFd(fd int, readable, writable bool, handler func(bool, bool)) any {
	return nil
}
func (noopReactor) Cancel(token any) {}

func TestSendOpensSocketLazily(t *testing.T) {
	p := New(noopReactor{}, 1, nil)
	defer p.Close()

	p.mu.Lock()
	opened := len(p.subpool[familyV4])
	p.mu.Unlock()
	if opened != 0 {
		t.Fatalf("v4 sub-pool has %d sockets before any Send, want 0", opened)
	}

	if _, err := p.Send(net.ParseIP("127.0.0.1"), "", []byte("probe")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	p.mu.Lock()
	opened = len(p.subpool[familyV4])
	p.mu.Unlock()
	if opened != 1 {
		t.Fatalf("v4 sub-pool has %d sockets after Send, want 1", opened)
	}
}

func TestSendAndDequeueRoundTrip(t *testing.T) {
	var notified []string
	p := New(noopReactor{}, 1, func(key string) { notified = append(notified, key) })
	defer p.Close()

	if _, err := p.Send(net.ParseIP("127.0.0.1"), "", []byte("open the socket")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	p.mu.Lock()
	s := p.subpool[familyV4][0]
	p.mu.Unlock()

	sender, err := net.DialUDP("udp4", nil, s.conn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer sender.Close()
	if _, err := sender.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	time.Sleep(20 * time.Millisecond) // Let the kernel deliver the datagram to s's receive buffer
	s.onFdReady(true, false)

	got := p.Dequeue(10)
	if len(got) != 1 {
		t.Fatalf("Dequeue returned %d datagrams, want 1", len(got))
	}
	if string(got[0].Data) != "hello" {
		t.Errorf("Dequeue returned %q, want %q", got[0].Data, "hello")
	}
	if got[0].SocketKey != s.key {
		t.Errorf("SocketKey = %q, want %q", got[0].SocketKey, s.key)
	}

	if len(notified) != 1 {
		t.Errorf("onReadable notified %d times, want exactly 1 per batch", len(notified))
	}
}

func TestDequeueRespectsMax(t *testing.T) {
	p := New(noopReactor{}, 1, nil)
	defer p.Close()

	if _, err := p.Send(net.ParseIP("127.0.0.1"), "", []byte("open")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	p.mu.Lock()
	s := p.subpool[familyV4][0]
	p.mu.Unlock()

	sender, err := net.DialUDP("udp4", nil, s.conn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer sender.Close()
	for i := 0; i < 3; i++ {
		if _, err := sender.Write([]byte("x")); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	time.Sleep(20 * time.Millisecond)
	s.onFdReady(true, false)

	got := p.Dequeue(2)
	if len(got) != 2 {
		t.Fatalf("Dequeue(2) returned %d datagrams, want 2", len(got))
	}
	rest := p.Dequeue(10)
	if len(rest) != 1 {
		t.Fatalf("second Dequeue returned %d datagrams, want the 1 remaining", len(rest))
	}
}

func TestCloseClearsBuffers(t *testing.T) {
	p := New(noopReactor{}, 1, nil)

	if _, err := p.Send(net.ParseIP("127.0.0.1"), "", []byte("open")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	p.mu.Lock()
	s := p.subpool[familyV4][0]
	p.mu.Unlock()
	s.fifo = []Datagram{{Data: []byte("leftover")}}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(s.fifo) != 0 {
		t.Error("Close did not clear buffered datagrams")
	}
}
