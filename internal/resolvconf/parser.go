/*
Package resolvconf is a tolerant resolv.conf(5) reader, grounded directly on the trimming,
whitespace and keyword-prefix handling of the original C++ parser this engine's search-list and
options handling was distilled from.

Differences from that original, per the spec this reader serves: keyword matching is
case-insensitive (nameserver/options/domain/search), and a strict mode returns a "file:line"
wrapped error on the first unrecognized line instead of silently ignoring it.
*/
package resolvconf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"dario.cat/mergo"

	"github.com/evdns-go/evdns/internal/constants"
)

// Config is the parsed, merged-with-defaults result of reading a resolv.conf.
type Config struct {
	Nameservers []string // dotted/colon textual addresses, in file order
	SearchPaths []string // ordered list of suffixes; "search" replaces, does not append
	Rotate      bool
	Timeout     int // seconds, 1..30
	Attempts    int // 1..5
	Ndots       int // 0..15
}

// DefaultConfig mirrors the defaults a bare resolv.conf (or no file at all) should produce.
func DefaultConfig() Config {
	c := constants.Get()

	return Config{
		Timeout:  c.DefaultTimeout,
		Attempts: c.DefaultAttempts,
		Ndots:    c.DefaultNdots,
	}
}

// Load reads and parses filename, merging the result over DefaultConfig(). In strict mode, the
// first unrecognized or malformed line aborts parsing with a "filename:line: ..." error; in
// lenient mode such lines are silently skipped, matching a typical libc stub resolver's
// tolerance for resolv.conf files edited by hand or by unrelated tooling.
func Load(filename string, strict bool) (Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Config{}, fmt.Errorf("resolvconf: %w", err)
	}
	defer f.Close()

	return parse(f, filename, strict)
}

func parse(r io.Reader, filename string, strict bool) (Config, error) {
	cfg := Config{}
	sawSearch := false

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r\n")

		if len(line) == 0 || line[0] == '#' || line[0] == ';' {
			continue
		}

		kw, rest, ok := splitKeyword(line)
		if !ok {
			if strict {
				return Config{}, fmt.Errorf("%s:%d: unrecognized: %s", filename, lineNo, line)
			}
			continue
		}

		switch strings.ToLower(kw) {
		case "nameserver":
			cfg.Nameservers = append(cfg.Nameservers, strings.TrimSpace(rest))

		case "search":
			cfg.SearchPaths = strings.Fields(rest)
			sawSearch = true

		case "domain":
			// Historically an alternative to "search" with a single suffix; the original
			// parser this engine is grounded on treats it as unimplemented. Honored here as
			// a single-entry search path when no explicit "search" line has been seen.
			if !sawSearch {
				d := strings.TrimSpace(rest)
				if d != "" {
					cfg.SearchPaths = []string{d}
				}
			}

		case "options":
			parseOptions(&cfg, rest)

		default:
			if strict {
				return Config{}, fmt.Errorf("%s:%d: unrecognized: %s", filename, lineNo, line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("resolvconf: %s: %w", filename, err)
	}

	def := DefaultConfig()
	if err := mergo.Merge(&cfg, def); err != nil {
		return Config{}, fmt.Errorf("resolvconf: merging defaults: %w", err)
	}

	return cfg, nil
}

// splitKeyword checks whether line begins with one of the recognized keywords followed by
// whitespace, case-insensitively, mirroring the original parser's check() helper (a keyword with
// no following whitespace — e.g. "searching") is not a match.
func splitKeyword(line string) (keyword, rest string, ok bool) {
	for _, kw := range []string{"nameserver", "options", "domain", "search"} {
		if len(line) <= len(kw) {
			continue
		}
		if !strings.EqualFold(line[:len(kw)], kw) {
			continue
		}
		if !isSpace(line[len(kw)]) {
			continue
		}
		return kw, strings.TrimLeft(line[len(kw):], " \t"), true
	}

	return "", "", false
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

// parseOptions handles the space-separated "key" or "key:value" tokens on an options line,
// capping timeout/attempts/ndots exactly as the original parser does.
func parseOptions(cfg *Config, rest string) {
	c := constants.Get()
	for _, tok := range strings.Fields(rest) {
		key, val, hasVal := strings.Cut(tok, ":")
		switch strings.ToLower(key) {
		case "rotate":
			cfg.Rotate = true
		case "timeout":
			if n, err := strconv.Atoi(val); hasVal && err == nil {
				cfg.Timeout = min(n, c.MaxTimeoutSeconds)
			}
		case "attempts":
			if n, err := strconv.Atoi(val); hasVal && err == nil {
				cfg.Attempts = min(n, c.MaxAttempts)
			}
		case "ndots":
			if n, err := strconv.Atoi(val); hasVal && err == nil {
				cfg.Ndots = min(n, c.MaxNdots)
			}
		}
	}
}
