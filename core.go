package evdns

import (
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/evdns-go/evdns/internal/concurrency"
	"github.com/evdns-go/evdns/internal/idgen"
	"github.com/evdns-go/evdns/internal/nsreport"
	"github.com/evdns-go/evdns/internal/socketpool"
	"github.com/evdns-go/evdns/internal/wire"
)

// corePool is the slice of *socketpool.Pool's behavior Core depends on, narrowed to an interface
// the same way reactorAdapter narrows Reactor for socketpool's own benefit. *socketpool.Pool
// satisfies it; tests substitute a fake transport to drive Core's real retry/search/TCP-fallback
// logic without opening real sockets.
type corePool interface {
	Send(ip net.IP, zone string, payload []byte) (socketKey string, err error)
	SendTCP(ip net.IP, zone string, query []byte, timeout time.Duration) ([]byte, error)
	Dequeue(max int) []socketpool.Datagram
	Close() error
	Name() string
	Report(resetCounters bool) string
}

// maxDeliverBatch bounds how many buffered datagrams one reactor-notified deliver() pass
// processes — the back-pressure valve spec.md §4.C describes, preventing one noisy reactor turn
// from running unboundedly much user-handler code before yielding back to other I/O.
const maxDeliverBatch = 64

// lookupEntry is Core's id-table slot: the live Lookup plus the generation it was issued under,
// so a stale Operation handle referencing a since-recycled id can never be mistaken for the
// current occupant (spec.md §9's reexpression of the source's "delete this" idiom).
type lookupEntry struct {
	lookup     *Lookup
	generation uint64
}

// Core is the engine's entry point and sole owner of every live Lookup (spec.md §4.E). It holds
// the configuration snapshot, the socket pool, the id table, and per-nameserver reliability
// stats. Grounded on the teacher repo's internal/resolver/local.local struct (config + nameserver
// list + best-server bookkeeping), reworked from a blocking Resolve() into the Reactor-driven
// Query/deliver/cancel entry points spec.md §4.E names.
type Core struct {
	config  Config
	reactor Reactor
	pool    corePool
	idgen   *idgen.Generator
	logger  *log.Logger

	mu           sync.Mutex
	lookups      map[uint16]*lookupEntry
	nextGen      uint64
	rotateCursor int
	closed       bool

	concurrency concurrency.Counter
	nsStats     *nsreport.Tracker
}

// NewCore constructs a Core bound to reactor, ready to accept Query calls. config.Nameservers
// must be non-empty.
func NewCore(config Config, reactor Reactor) (*Core, error) {
	if len(config.Nameservers) == 0 {
		return nil, ErrNoNameservers
	}
	if config.Timeout <= 0 {
		config.Timeout = 5
	}
	if config.Timeout > 30 {
		config.Timeout = 30
	}
	if config.Attempts <= 0 {
		config.Attempts = 2
	}
	if config.Attempts > 5 {
		config.Attempts = 5
	}
	if config.EDNSBufferSize == 0 {
		config.EDNSBufferSize = 4096
	}
	if config.SocketsPerFamily <= 0 {
		config.SocketsPerFamily = 1
	}

	logOutput := config.LogOutput
	if logOutput == nil {
		logOutput = io.Discard
	}

	c := &Core{
		config:  config,
		reactor: reactor,
		idgen:   idgen.New(),
		logger:  log.New(logOutput, "evdns: ", 0),
		lookups: make(map[uint16]*lookupEntry),
		nsStats: nsreport.New("Nameservers", nsreport.DefaultConfig),
	}
	c.pool = socketpool.New(reactorAdapter{reactor}, config.SocketsPerFamily, c.onReadable)

	return c, nil
}

// reactorAdapter narrows a root Reactor down to the minimal interface internal/socketpool needs,
// avoiding an import cycle (socketpool cannot import the root package, which itself must import
// socketpool).
type reactorAdapter struct{ r Reactor }

func (a reactorAdapter) RegisterFd(fd int, readable, writable bool, handler func(readable, writable bool)) any {
	return a.r.RegisterFd(fd, readable, writable, FdHandler(handler))
}

func (a reactorAdapter) Cancel(token any) { a.r.Cancel(token) }

// Query begins resolving name, consulting the search list and ndots rules per spec.md §4.D,
// composing a query, and sending it to the first nameserver. It returns an opaque Operation
// handle whose only public method is Cancel, or an error if the request could not even be
// attempted — per spec.md §7, malformed input never creates a Lookup and never invokes handler.
func (c *Core) Query(name string, qtype uint16, bits Bits, handler Handler) (*Operation, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if len(c.config.Nameservers) == 0 {
		c.mu.Unlock()
		return nil, ErrNoNameservers
	}
	nameservers := append([]Ip(nil), c.config.Nameservers...) // Copy-on-read, per spec.md §3
	nsStart := 0
	if c.config.Rotate {
		nsStart = c.rotateCursor % len(nameservers)
		c.rotateCursor++
	}
	c.mu.Unlock()

	search := newSearchSequence(name, c.config.Ndots, c.config.SearchPaths)

	id, generation, err := c.reserveID()
	if err != nil {
		return nil, err
	}

	l := &Lookup{
		core: c, id: id, generation: generation,
		handler:     handler,
		qtype:       qtype,
		bits:        bits,
		search:      search,
		nameservers: nameservers,
		nsStart:     nsStart,
		roundsLeft:  c.config.Attempts,
		state:       stateComposing,
		startedAt:   c.reactor.Now(),
	}

	c.mu.Lock()
	c.lookups[id] = &lookupEntry{lookup: l, generation: generation}
	c.mu.Unlock()
	c.concurrency.Add()

	l.state = stateSending
	// Deferred via a zero-delay timer, per spec.md §4.D's callback discipline: Query must
	// never invoke the Handler synchronously, even when the very first send fails outright.
	c.reactor.ArmTimer(0, func() { c.sendAttempt(l) })

	return &Operation{core: c, id: id, generation: generation}, nil
}

// reserveID allocates a transaction id unique among live Lookups (spec.md §3 invariant 5),
// retrying the generator a bounded number of times on collision before accepting a reused id —
// question-equality in Matches is the fallback disambiguator spec.md §4.B describes.
func (c *Core) reserveID() (uint16, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, 0, ErrClosed
	}

	id := c.idgen.Next(8, func(candidate uint16) bool {
		_, taken := c.lookups[candidate]
		return taken
	})
	c.nextGen++

	return id, c.nextGen, nil
}

// sendAttempt builds and sends the query for l's current round/nameserver/search-candidate. On a
// synchronous send failure it walks to the next nameserver (and, if the round's nameservers are
// exhausted, the next round) without ever invoking a Handler callback from this call frame when
// invoked from Query — success and exhaustion are both only ever observed by later
// deliver/timer/Post callbacks, never synchronously here.
func (c *Core) sendAttempt(l *Lookup) {
	for {
		if l.terminal() {
			return
		}

		ns := l.nameservers[(l.nsStart+l.nsIndex)%len(l.nameservers)]
		q, err := newQuery(l.id, l.currentName(), l.qtype, l.bits, c.config.EDNSBufferSize)
		if err != nil {
			c.finishFailed(l, err)
			return
		}
		l.query = q
		l.lastNS = ns

		_, sendErr := c.pool.Send(ns.Std(), ns.Zone(), q.Bytes())
		if sendErr == nil {
			l.state = stateAwaitingUDP
			timerLookup := l
			l.timerToken = c.reactor.ArmTimer(time.Duration(c.config.Timeout)*time.Second, func() {
				c.onTimeout(timerLookup)
			})

			return
		}

		l.lastErr = sendErr
		c.nsStats.Result(ns.String(), false, c.reactor.Now(), 0)
		if !c.advance(l) {
			c.finishFailed(l, sendErr)
			return
		}
		// Loop: try the next nameserver/round synchronously. Bounded by attempts×nameservers
		// per spec.md §8 property 7, so this can't spin forever.
	}
}

// advance moves l to its next nameserver, wrapping to the next round (and decrementing
// roundsLeft) when the current round's nameserver list is exhausted. Returns false once rounds
// are exhausted too.
func (c *Core) advance(l *Lookup) bool {
	l.nsIndex++
	if l.nsIndex >= len(l.nameservers) {
		l.nsIndex = 0
		l.roundsLeft--
	}

	return l.roundsLeft > 0
}

// onTimeout is the reactor callback for l's per-attempt timer firing with no matching reply.
func (c *Core) onTimeout(l *Lookup) {
	c.mu.Lock()
	entry, ok := c.lookups[l.id]
	live := ok && entry.lookup == l && entry.generation == l.generation
	c.mu.Unlock()
	if !live {
		return
	}

	c.nsStats.Result(l.lastNS.String(), false, c.reactor.Now(), 0)

	if !c.advance(l) {
		// Terminal: only now does the id-table entry come out. A retry (the branch below)
		// keeps l.id mapped to the same entry so deliverOne can still find it when the next
		// attempt's reply arrives.
		c.removeEntry(l, entry)
		c.finishTimeout(l)
		return
	}
	c.sendAttempt(l)
}

// onReadable is invoked by the socket pool whenever a socket's FIFO gained data. Per spec.md
// §4.C this is the trigger for a bounded deliver() pass, not a per-datagram callback.
func (c *Core) onReadable(socketKey string) {
	c.deliver(maxDeliverBatch)
}

// deliver pops up to max buffered datagrams from the socket pool, demultiplexes each by
// transaction id, validates it against the owning Lookup's outbound Query via wire.Matches, and
// dispatches matching responses. Unknown ids and non-matching datagrams are silently dropped
// (logged at debug), per spec.md §4.E — this is the engine's sole defense against spoofed or
// delayed packets.
func (c *Core) deliver(max int) {
	for _, d := range c.pool.Dequeue(max) {
		c.deliverOne(d)
	}
}

func (c *Core) deliverOne(d socketpool.Datagram) {
	hdr, err := wire.ParseHeader(d.Data)
	if err != nil {
		c.logger.Printf("dropping malformed datagram: peer=%v error=%v", d.Peer, err)
		return
	}

	c.mu.Lock()
	entry, ok := c.lookups[hdr.ID]
	c.mu.Unlock()
	if !ok {
		c.logger.Printf("dropping datagram for unknown id: id=%d peer=%v", hdr.ID, d.Peer)
		return
	}
	l := entry.lookup

	if !wire.Matches(l.query.ID(), l.query.opcode, l.query.Name(), l.query.Type(), l.query.qclass, d.Data) {
		c.logger.Printf("dropping non-matching datagram: id=%d peer=%v", hdr.ID, d.Peer)
		return
	}

	if hdr.Truncated {
		c.startTCPFallback(l, entry)
		return
	}

	c.finishMatched(l, entry, d.Data)
}

// finishMatched handles a validated, non-truncated UDP reply: classify it against the
// search-list rule, either advancing to the next suffix on NXDOMAIN or delivering it as-is.
func (c *Core) finishMatched(l *Lookup, entry *lookupEntry, buf []byte) {
	resp, err := parseResponse(buf)
	if err != nil {
		c.removeEntry(l, entry)
		c.finishFailed(l, err)
		return
	}

	if classifyForSearch(resp.Rcode()) == advanceSearch && l.searchIndex+1 < l.search.Len() {
		l.searchIndex++
		l.nsIndex = 0
		l.roundsLeft = c.config.Attempts
		l.disarmTimer()
		c.sendAttempt(l)
		return
	}

	c.nsStats.Result(l.lastNS.String(), true, c.reactor.Now(), c.reactor.Now().Sub(l.startedAt))
	c.removeEntry(l, entry)
	l.deliver(resp)
	c.concurrency.Done()
}

// startTCPFallback upgrades l to AwaitingTcp and launches the one-shot TCP exchange on its own
// goroutine (SendTCP blocks), posting the result back to the reactor thread via Reactor.Post so
// Core's data structures are never touched off-thread — the same rationale
// internal/socketpool's TCP connector is documented against.
func (c *Core) startTCPFallback(l *Lookup, entry *lookupEntry) {
	l.state = stateAwaitingTCP
	l.disarmTimer()
	query := l.query
	ns := l.lastNS
	timeout := time.Duration(c.config.Timeout) * time.Second

	go func() {
		resp, err := c.pool.SendTCP(ns.Std(), ns.Zone(), query.Bytes(), timeout)
		c.reactor.Post(func() {
			c.onTCPResult(l, entry, resp, err)
		})
	}()
}

func (c *Core) onTCPResult(l *Lookup, entry *lookupEntry, buf []byte, err error) {
	c.mu.Lock()
	current, ok := c.lookups[l.id]
	live := ok && current == entry
	c.mu.Unlock()
	if !live {
		return // Cancelled (or superseded) while the TCP exchange was in flight
	}

	if err != nil {
		l.lastErr = err
		c.nsStats.Result(l.lastNS.String(), false, c.reactor.Now(), 0)
		if !c.advance(l) {
			c.removeEntry(l, entry)
			c.finishFailed(l, err)
			return
		}
		c.sendAttempt(l)
		return
	}

	c.finishMatched(l, entry, buf)
}

func (c *Core) finishTimeout(l *Lookup) {
	l.timeout()
	c.concurrency.Done()
}

func (c *Core) finishFailed(l *Lookup, err error) {
	l.lastErr = err
	c.removeEntry(l, nil)
	l.fail()
	c.concurrency.Done()
}

// removeEntry deletes l's id-table slot if it still points at entry (or, when entry is nil,
// whatever is currently there for l.id). Safe to call more than once.
func (c *Core) removeEntry(l *Lookup, entry *lookupEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.lookups[l.id]
	if !ok {
		return
	}
	if entry != nil && current != entry {
		return
	}
	delete(c.lookups, l.id)
}

// cancel implements Operation.Cancel: detach l's id-table entry (if its generation still
// matches) and schedule its OnCancelled callback, never invoking the Handler synchronously.
func (c *Core) cancel(id uint16, generation uint64) {
	c.mu.Lock()
	entry, ok := c.lookups[id]
	if !ok || entry.generation != generation {
		c.mu.Unlock()
		return
	}
	delete(c.lookups, id)
	c.mu.Unlock()

	l := entry.lookup
	c.concurrency.Done()
	c.reactor.ArmTimer(0, func() {
		l.cancelled()
	})
}

// Close fails every surviving Lookup with ErrClosed — its OnFailure runs synchronously inside
// Close — before closing the socket pool (spec.md §3 invariant 3).
func (c *Core) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	entries := make([]*lookupEntry, 0, len(c.lookups))
	for _, e := range c.lookups {
		entries = append(entries, e)
	}
	c.lookups = make(map[uint16]*lookupEntry)
	c.mu.Unlock()

	for _, e := range entries {
		l := e.lookup
		l.disarmTimer()
		l.lastErr = ErrClosed
		c.concurrency.Done()
		l.fail() // ErrClosed is more accurate than OnCancelled for a Core shutting down beneath it
	}

	return c.pool.Close()
}

// Name implements internal/reporter.Reporter.
func (c *Core) Name() string { return "Core" }

// Report implements internal/reporter.Reporter, aggregating the socket pool's backpressure
// stats and per-nameserver reliability stats the way the teacher repo's top-level reporter
// aggregates sub-component reports (cmd/trustydns-proxy/reporter.go's pattern, one report per
// tracked subsystem).
func (c *Core) Report(resetCounters bool) string {
	peak := c.concurrency.Peak(resetCounters)

	return fmt.Sprintf("peakConcurrentLookups=%d\n%s\n%s",
		peak, c.pool.Report(resetCounters), c.nsStats.Report(resetCounters))
}
