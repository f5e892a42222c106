package socketpool

import (
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Socket holds one open UDP file descriptor, a FIFO of buffered inbound datagrams awaiting
// Core.deliver, and a back-reference to its pool for stats bookkeeping. Per spec.md §3 it is
// opened lazily on first send of its family and closed on pool destruction.
type Socket struct {
	pool *Pool
	conn *net.UDPConn
	fd   int
	key  string
	bufSize int

	watch any // Reactor registration token, used on Close

	mu   sync.Mutex
	fifo []Datagram
}

// maxInboundBacklog caps the number of undelivered datagrams a single socket will buffer before
// dropping further arrivals — an unbounded FIFO would let a slow consumer's backlog grow without
// limit, defeating the whole point of Core.deliver's bounded batches.
const maxInboundBacklog = 4096

func newSocket(pool *Pool, conn *net.UDPConn) (*Socket, error) {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("socketpool: SyscallConn: %w", err)
	}

	var fd int
	var rcvbuf int
	var ctrlErr error
	err = rawConn.Control(func(sysfd uintptr) {
		fd = int(sysfd)
		// golang.org/x/sys/unix is reached for here, past net's portable API, the same way
		// the teacher repo's internal/osutil drops to raw unix syscalls for setuid/setgid —
		// there's no portable way in net to tune SO_RCVBUF or read it back for reporting.
		if v, sockErr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF); sockErr == nil {
			rcvbuf = v
		}
		if ctrlErr = unix.SetNonblock(fd, true); ctrlErr != nil {
			return
		}
	})
	if err != nil {
		return nil, fmt.Errorf("socketpool: Control: %w", err)
	}
	if ctrlErr != nil {
		return nil, fmt.Errorf("socketpool: SetNonblock: %w", ctrlErr)
	}

	return &Socket{
		pool: pool, conn: conn, fd: fd, bufSize: rcvbuf,
		key: fmt.Sprintf("%s/%d", conn.LocalAddr(), fd),
	}, nil
}

// onFdReady is the reactor's readability callback for this socket. Per spec.md §4.C it drains
// every available datagram in a non-blocking recvfrom loop, appending each to the FIFO, then
// notifies the pool's onReadable hook at most once for the whole batch — one notification per
// reactor turn, regardless of how many datagrams arrived, is the back-pressure contract Core's
// bounded deliver() relies on.
func (s *Socket) onFdReady(readable, writable bool) {
	if !readable {
		return
	}

	buf := make([]byte, 65535)
	any := false

	for {
		n, _, _, from, err := unix.Recvmsg(s.fd, buf, nil, 0)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			break // Transient read errors are handled silently by the pool, per spec.md §7
		}

		peer, zone := sockaddrToIP(from)
		data := make([]byte, n)
		copy(data, buf[:n])

		s.mu.Lock()
		if len(s.fifo) >= maxInboundBacklog {
			s.mu.Unlock()
			s.pool.stats.Dropped(s.key)
			continue
		}
		s.fifo = append(s.fifo, Datagram{Peer: peer, Zone: zone, Data: data, SocketKey: s.key})
		s.mu.Unlock()

		s.pool.stats.Queued(s.key, time.Now())
		any = true
	}

	if any && s.pool.onReadable != nil {
		s.pool.onReadable(s.key)
	}
}

// popOne removes and returns the oldest buffered datagram, if any.
func (s *Socket) popOne() (Datagram, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.fifo) == 0 {
		return Datagram{}, false
	}
	d := s.fifo[0]
	s.fifo = s.fifo[1:]
	s.pool.stats.Dequeued(s.key, time.Now())

	return d, true
}

// RcvBufSize reports the kernel SO_RCVBUF this socket was opened with, for diagnostics.
func (s *Socket) RcvBufSize() int { return s.bufSize }

// clear discards any buffered datagrams. Called on pool Close so no Socket holds buffered bytes
// after its pool is destroyed, per spec.md §3 invariant 4.
func (s *Socket) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fifo = nil
}

func isWouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

func sockaddrToIP(sa unix.Sockaddr) (net.IP, string) {
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, net.IPv4len)
		copy(ip, addr.Addr[:])

		return ip, ""
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, addr.Addr[:])
		zone := ""
		if addr.ZoneId != 0 {
			if iface, err := net.InterfaceByIndex(int(addr.ZoneId)); err == nil {
				zone = iface.Name
			}
		}

		return ip, zone
	default:
		return nil, ""
	}
}
