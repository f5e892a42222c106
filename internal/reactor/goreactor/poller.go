package goreactor

import (
	"golang.org/x/sys/unix"
)

type ctrlOp int

const (
	ctrlAdd ctrlOp = iota
	ctrlRemove
)

type pollCtrl struct {
	op                 ctrlOp
	id                 uint64
	fd                 int
	readable, writable bool
}

type pollEntry struct {
	id                 uint64
	readable, writable bool
}

// poller is the goroutine that blocks in a raw unix.Poll syscall on behalf of the Reactor's
// dispatcher goroutine — the one place this engine drops past net's portable API, grounded the
// same way internal/socketpool reaches for golang.org/x/sys/unix (SO_RCVBUF readback, SetNonblock)
// and the teacher repo's internal/osutil reaches for it (setuid/setgid/chroot): there is no
// portable way to multiplex readiness across an unbounded, dynamically changing fd set without a
// syscall-level primitive.
//
// A self-pipe (the classic "self-pipe trick") wakes a blocked Poll call whenever the watched fd
// set changes, since Poll itself cannot be interrupted by a Go channel send.
type poller struct {
	wakeR, wakeW int
	ctrl         chan pollCtrl
	done         chan struct{}
}

func newPoller() (*poller, error) {
	fds := make([]int, 2)
	if err := unix.Pipe(fds); err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		return nil, err
	}

	return &poller{
		wakeR: fds[0], wakeW: fds[1],
		ctrl: make(chan pollCtrl, 256),
		done: make(chan struct{}),
	}, nil
}

func (p *poller) update(id uint64, fd int, readable, writable bool) {
	select {
	case p.ctrl <- pollCtrl{op: ctrlAdd, id: id, fd: fd, readable: readable, writable: writable}:
		p.wake()
	case <-p.done:
	}
}

func (p *poller) remove(fd int) {
	select {
	case p.ctrl <- pollCtrl{op: ctrlRemove, fd: fd}:
		p.wake()
	case <-p.done:
	}
}

func (p *poller) wake() {
	var b [1]byte
	_, _ = unix.Write(p.wakeW, b[:]) // EAGAIN (pipe already has a pending byte) is fine to ignore
}

func (p *poller) close() {
	select {
	case <-p.done:
		return // Already closed
	default:
	}
	close(p.done)
	p.wake()
}

// run is the poller goroutine's body, feeding readyCh (consumed by the dispatcher goroutine)
// until close is called.
func (p *poller) run(readyCh chan<- []readyEvent) {
	defer func() {
		unix.Close(p.wakeR)
		unix.Close(p.wakeW)
	}()

	entries := make(map[int]*pollEntry)

	for {
		select {
		case <-p.done:
			return
		default:
		}

	drain:
		for {
			select {
			case c := <-p.ctrl:
				applyCtrl(entries, c)
			default:
				break drain
			}
		}

		pollfds := make([]unix.PollFd, 1, len(entries)+1)
		pollfds[0] = unix.PollFd{Fd: int32(p.wakeR), Events: unix.POLLIN}
		order := make([]int, 0, len(entries))
		for fd, e := range entries {
			var ev int16
			if e.readable {
				ev |= unix.POLLIN
			}
			if e.writable {
				ev |= unix.POLLOUT
			}
			pollfds = append(pollfds, unix.PollFd{Fd: int32(fd), Events: ev})
			order = append(order, fd)
		}

		n, err := unix.Poll(pollfds, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			select {
			case <-p.done:
				return
			default:
				continue // Transient poll errors are retried, not fatal to the reactor
			}
		}
		if n == 0 {
			continue
		}

		if pollfds[0].Revents&unix.POLLIN != 0 {
			var buf [64]byte
			for {
				if _, rerr := unix.Read(p.wakeR, buf[:]); rerr != nil {
					break
				}
			}
		}

		var events []readyEvent
		for i, fd := range order {
			pf := pollfds[i+1]
			if pf.Revents == 0 {
				continue
			}
			e := entries[fd]
			events = append(events, readyEvent{
				id:       e.id,
				readable: pf.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0,
				writable: pf.Revents&unix.POLLOUT != 0,
			})
		}
		if len(events) == 0 {
			continue
		}

		select {
		case readyCh <- events:
		case <-p.done:
			return
		}
	}
}

func applyCtrl(entries map[int]*pollEntry, c pollCtrl) {
	switch c.op {
	case ctrlAdd:
		entries[c.fd] = &pollEntry{id: c.id, readable: c.readable, writable: c.writable}
	case ctrlRemove:
		delete(entries, c.fd)
	}
}
