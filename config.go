package evdns

import (
	"io"

	"dario.cat/mergo"

	"github.com/evdns-go/evdns/internal/constants"
	"github.com/evdns-go/evdns/internal/resolvconf"
)

// Config is the snapshot of tunables a Core is constructed with: timeout/attempts/ndots,
// rotate, the search list, EDNS buffer size advertised in every outbound query, and the number
// of UDP sockets to open per IP family.
type Config struct {
	Nameservers []Ip // At least one required; mixed v4/v6 is fine, split per §9's resolution

	SearchPaths []string // Ordered suffixes tried on an unqualified name
	Ndots       int      // Threshold of dots at or above which the bare name is tried first
	Rotate      bool     // Cycle the starting nameserver offset per query

	Timeout  int // Per-attempt timeout, seconds (capped at 30)
	Attempts int // Total attempts across the nameserver list (capped at 5)

	EDNSBufferSize   uint16 // Advertised UDP payload size in the outbound OPT record
	SocketsPerFamily int    // UDP sockets opened per v4/v6 sub-pool (default 1)

	// LogOutput is where Core writes its debug-level drop/diagnostic lines (dropped
	// malformed/unknown-id/non-matching datagrams). nil discards them. Core never reaches for
	// a global logger — this is the injected io.Writer the caller's mainInit (or equivalent)
	// owns, the same way cmd/evdig's stdout/stderr package vars are set by its own mainInit.
	LogOutput io.Writer
}

// DefaultConfig returns a Config with every tunable at its spec-mandated default and no
// nameservers — callers normally start from LoadResolvConf or explicitly set Nameservers.
func DefaultConfig() Config {
	c := constants.Get()

	return Config{
		Ndots:            c.DefaultNdots,
		Timeout:          c.DefaultTimeout,
		Attempts:         c.DefaultAttempts,
		EDNSBufferSize:   4096,
		SocketsPerFamily: 1,
	}
}

// LoadResolvConf reads filename (normally "/etc/resolv.conf") via internal/resolvconf and
// converts the result into a Config, merging any fields the file left unset over DefaultConfig.
func LoadResolvConf(filename string, strict bool) (Config, error) {
	rc, err := resolvconf.Load(filename, strict)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		SearchPaths:      rc.SearchPaths,
		Ndots:            rc.Ndots,
		Rotate:           rc.Rotate,
		Timeout:          rc.Timeout,
		Attempts:         rc.Attempts,
	}
	for _, ns := range rc.Nameservers {
		ip, err := ParseIp(ns)
		if err != nil {
			continue // Tolerant: an unparsable nameserver line is dropped, not fatal
		}
		cfg.Nameservers = append(cfg.Nameservers, ip)
	}

	def := DefaultConfig()
	if err := mergo.Merge(&cfg, def); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
