package main

import (
	"fmt"
	"io"
	"text/template"

	"github.com/evdns-go/evdns"
)

// The "flag" package is not tty aware so we've arbitrarily picked 100 columns as a conservative
// tty width for the usage output, matching the donor CLI's usage template.

const usageMessageTemplate = `
NAME
          {{.DigProgramName}} -- issue a single DNS query through the {{.PackageName}} query engine

SYNOPSIS
          {{.DigProgramName}} [options] qName [qType]

DESCRIPTION
          {{.DigProgramName}} resolves qName (default qType=A) using the {{.PackageName}} query
          lifecycle engine directly: its own reactor, its own retry and search-list logic, its
          own socket pool. Only qClass=IN is supported.

          **********
          Production Use Alert: {{.DigProgramName}} is a diagnostic program which will almost
          certainly change with each new package release. Please do not rely on its current
          behaviour or output format and definitely do not use it in a shell script.
          **********

EXAMPLES
          $ {{.DigProgramName}} --ns 8.8.8.8 --ns 1.1.1.1 example.com MX

          $ {{.DigProgramName}} --resolv-conf /etc/resolv.conf --rotate --attempts 3 example.com

OPTIONS
          [-h] [--version] [--gops]

          [--short] [-r repeat count]

          [--ns nameserver] ... [--search suffix] ... [--resolv-conf file]

          [--timeout duration] [--attempts count] [--ndots count] [--rotate]

          [--rd] [--ad] [--cd] [--do]
`

func usage(out io.Writer) {
	tmpl, err := template.New("usage").Parse(usageMessageTemplate)
	if err != nil {
		panic(err) // We've messed up our template
	}
	if err := tmpl.Execute(out, consts); err != nil {
		panic(err)
	}
	flagSet.SetOutput(out)
	flagSet.PrintDefaults()
	fmt.Fprintln(out, "\nVersion:", consts.Version)
}

// parseCommandLine sets up the flags-to-config mapping and parses the supplied command line
// arguments. It starts from scratch each time to make it easier for test wrappers to use.
func parseCommandLine(args []string) error {
	flagSet.BoolVar(&cfg.help, "h", false, "Print usage message to Stdout then exit(0)")
	flagSet.BoolVar(&cfg.version, "version", false, "Print version and exit")
	flagSet.BoolVar(&cfg.gops, "gops", false, "Start github.com/google/gops agent")

	flagSet.BoolVar(&cfg.short, "short", false, "Generate short output showing only Answer RRs")
	flagSet.IntVar(&cfg.repeatCount, "r", 1, "`Number` of times to issue the query (GE zero)")

	flagSet.Var(&cfg.nameservers, "ns", "Nameserver `address` to query (repeatable; overrides --resolv-conf)")
	flagSet.Var(&cfg.searchPaths, "search", "Search list `suffix` to try (repeatable; overrides --resolv-conf)")
	flagSet.StringVar(&cfg.resolvConf, "resolv-conf", "/etc/resolv.conf", "resolv.conf `file` to load defaults from")

	flagSet.DurationVar(&cfg.timeout, "timeout", 0, "Per-attempt `timeout` (0 uses the resolv.conf/default value)")
	flagSet.IntVar(&cfg.attempts, "attempts", 0, "Total attempts across the nameserver list (0 uses the default)")
	flagSet.IntVar(&cfg.ndots, "ndots", -1, "ndots threshold (-1 uses the default)")
	flagSet.BoolVar(&cfg.rotate, "rotate", false, "Cycle the starting nameserver offset per query")

	flagSet.BoolVar(&cfg.rd, "rd", true, "Set the Recursion Desired bit")
	flagSet.BoolVar(&cfg.ad, "ad", false, "Set the Authenticated Data bit")
	flagSet.BoolVar(&cfg.cd, "cd", false, "Set the Checking Disabled bit")
	flagSet.BoolVar(&cfg.do, "do", false, "Set the DNSSEC OK bit (EDNS)")

	return flagSet.Parse(args[1:])
}

// buildConfig assembles an evdns.Config from resolv.conf, or from evdns.DefaultConfig when any
// --ns is given (resolv.conf is then not read), and overlays --search/--timeout/--attempts/--ndots
// when set; --rotate is always taken from the flag. An unreadable resolv.conf is an error.
func buildConfig() (evdns.Config, error) {
	var base evdns.Config
	if cfg.nameservers.NArg() == 0 {
		rc, err := evdns.LoadResolvConf(cfg.resolvConf, false)
		if err != nil {
			return evdns.Config{}, fmt.Errorf("loading %s: %w", cfg.resolvConf, err)
		}
		base = rc
	} else {
		base = evdns.DefaultConfig()
		for _, s := range cfg.nameservers.Args() {
			ip, err := evdns.ParseIp(s)
			if err != nil {
				return evdns.Config{}, fmt.Errorf("--ns %s: %w", s, err)
			}
			base.Nameservers = append(base.Nameservers, ip)
		}
	}

	if cfg.searchPaths.NArg() > 0 {
		base.SearchPaths = cfg.searchPaths.Args()
	}
	if cfg.timeout > 0 {
		base.Timeout = int(cfg.timeout.Seconds())
		if base.Timeout == 0 {
			base.Timeout = 1
		}
	}
	if cfg.attempts > 0 {
		base.Attempts = cfg.attempts
	}
	if cfg.ndots >= 0 {
		base.Ndots = cfg.ndots
	}
	base.Rotate = cfg.rotate

	if len(base.Nameservers) == 0 {
		return evdns.Config{}, evdns.ErrNoNameservers
	}

	return base, nil
}
