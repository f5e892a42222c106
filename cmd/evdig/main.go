// Command evdig issues queries through the evdns query lifecycle engine, the same way
// cmd/trustydns-dig in the donor repo exercised that repo's DoH resolver package: a small,
// explicitly-unstable diagnostic program that uses the library exactly as any other caller would.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/evdns-go/evdns"
	"github.com/evdns-go/evdns/internal/constants"
	"github.com/evdns-go/evdns/internal/reactor/goreactor"

	"github.com/google/gops/agent"
	"github.com/miekg/dns"
)

// Program-wide variables, mirroring the donor CLI's mainInit/mainExecute split so tests can drive
// mainExecute directly without forking a process.
var (
	consts = constants.Get()
	cfg    *config

	stdout io.Writer
	stderr io.Writer

	flagSet *flag.FlagSet
)

func fatal(args ...interface{}) int {
	fmt.Fprint(stderr, "Fatal: ", consts.DigProgramName, ": ")
	fmt.Fprintln(stderr, args...)

	return 1
}

func mainInit(out io.Writer, err io.Writer) {
	cfg = &config{}
	stdout = out
	stderr = err
}

func main() {
	mainInit(os.Stdout, os.Stderr)
	os.Exit(mainExecute(os.Args))
}

func mainExecute(args []string) int {
	flagSet = flag.NewFlagSet(args[0], flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	if err := parseCommandLine(args); err != nil {
		return 1 // Error already printed by the flag package
	}
	if cfg.help {
		usage(stdout)
		return 0
	}
	if cfg.version {
		fmt.Fprintln(stdout, consts.DigProgramName, "Version:", consts.Version)
		return 0
	}
	if cfg.repeatCount < 0 {
		return fatal("Repeat count (-r) must be GE zero, not", cfg.repeatCount)
	}

	if cfg.gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			return fatal("gops:", err)
		}
		defer agent.Close()
	}

	remaining := flagSet.NArg()
	if remaining < 1 {
		return fatal("Require qName on command line. Consider -h")
	}
	qName := dns.Fqdn(flagSet.Arg(0))

	qTypeString := "A"
	if remaining > 1 {
		qTypeString = strings.ToUpper(flagSet.Arg(1))
	}
	qType, ok := dns.StringToType[qTypeString]
	if !ok {
		return fatal("Unrecognized qType of", qTypeString)
	}
	if remaining > 2 {
		return fatal("Don't know what to do with residual goop on command line:", flagSet.Arg(2))
	}

	econfig, err := buildConfig()
	if err != nil {
		return fatal(err)
	}

	reactor, err := goreactor.New()
	if err != nil {
		return fatal("starting reactor:", err)
	}
	defer reactor.Close()

	core, err := evdns.NewCore(econfig, reactor)
	if err != nil {
		return fatal(err)
	}
	defer core.Close()

	bits := evdns.DefaultBits()
	bits.RD = cfg.rd
	bits.AD = cfg.ad
	bits.CD = cfg.cd
	bits.DO = cfg.do

	var wg sync.WaitGroup
	var mu sync.Mutex // Serializes writes to stdout/stderr across concurrently completing queries
	for qx := 0; qx < cfg.repeatCount; qx++ {
		wg.Add(1)
		h := &digHandler{done: wg.Done, out: stdout, err: stderr, mu: &mu, short: cfg.short}
		if _, err := core.Query(qName, qType, bits, h); err != nil {
			mu.Lock()
			fmt.Fprintln(stderr, "Error:", err)
			mu.Unlock()
			wg.Done()
		}
	}
	wg.Wait()

	return 0
}

// digHandler prints exactly one terminal outcome, then reports completion. Grounded on the donor
// CLI's doQuery, which likewise prints one outcome per repeated query and funnels completion
// through a channel so -p (parallel) and sequential modes share one print path.
type digHandler struct {
	evdns.NoopHandler
	done  func()
	out   io.Writer
	err   io.Writer
	mu    *sync.Mutex
	short bool
}

func (h *digHandler) OnReceived(op *evdns.Operation, resp *evdns.Response) {
	defer h.done()
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.short {
		for _, rr := range resp.Answer() {
			fmt.Fprintln(h.out, rr.String())
		}

		return
	}

	fmt.Fprintf(h.out, ";; status: %s, id: %d\n", dns.RcodeToString[resp.Rcode()], resp.ID())
	for _, rr := range resp.Answer() {
		fmt.Fprintln(h.out, rr.String())
	}
	fmt.Fprintln(h.out)
}

func (h *digHandler) OnTimeout(op *evdns.Operation) {
	defer h.done()
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintln(h.err, "Error: timed out waiting for a reply")
}

func (h *digHandler) OnFailure(op *evdns.Operation, err error) {
	defer h.done()
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintln(h.err, "Error:", err)
}

func (h *digHandler) OnCancelled(op *evdns.Operation) {
	defer h.done()
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintln(h.err, "Error: cancelled")
}
