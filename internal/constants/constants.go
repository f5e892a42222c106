/*
Package constants provides common values used across all evdns packages. Usage is to call the
global Get() function which returns the Constants by value ensuring that any modifications made
(accidental or otherwise) will not affect other modules when they call Get().

Typically usage:

    consts := constants.Get()
    fmt.Println("udp truncation threshold", consts.DNSTruncateThreshold)

The primary reason for making this a constructed struct rather than the more typical const () block
is so that it can be fed directly into templating packages for printing usage messages.
*/
package constants

// Constants contains the system-wide constants
type Constants struct {
	DigProgramName string
	Version        string
	PackageName    string
	PackageURL     string
	RFC            string

	DNSDefaultPort          string // DNS related constants
	MinimumViableDNSMessage uint   // MsgHdr + one Question with zero length name
	DNSTruncateThreshold    int    // A message larger than this size may be truncated unless EDNS0
	MaximumViableDNSMessage uint   // Largest message this library will ever assemble or accept

	DNSUDPTransport string // Suitable for the "net" package, but just to make sure we're
	DNSTCPTransport string // consistent across the whole package.

	MaxLabelSize  int // RFC1035 4.1.4
	MaxNameSize   int // RFC1035 2.3.4
	MaxSearchList int // Cap on resolv.conf search path entries; not applied by the parser or the search-list expansion

	DefaultNdots      int // resolv.conf(5)'s own default; MaxNdots is the cap
	DefaultTimeout    int // Seconds, per-attempt
	DefaultAttempts   int // Per nameserver
	MaxTimeoutSeconds int // resolv.conf(5) caps timeout at 30
	MaxAttempts       int // resolv.conf(5) caps attempts at 5
	MaxNdots          int // resolv.conf(5) caps ndots at 15

	MaxIDGenerationRetries int // §4.B collision-bounded retry ceiling
}

var readOnlyConstants *Constants

// createReadOnlyConstants creates a read-only copy of the Constants which is copied whenever a
// caller asks for the constants set. The main reason for returning a struct is so that callers can
// inspect and/or use packages that introspect - particularly */template packages.
func createReadOnlyConstants() {
	readOnlyConstants = &Constants{
		DigProgramName: "evdig",
		Version:        "v0.1.0",
		PackageName:    "evdns",
		PackageURL:     "https://github.com/evdns-go/evdns",
		RFC:            "RFC1035",

		DNSDefaultPort:          "53",
		MinimumViableDNSMessage: 16, // A legit binary DNS Message *cannot* be shorter than this
		DNSTruncateThreshold:    512,
		MaximumViableDNSMessage: 65535,

		DNSUDPTransport: "udp",
		DNSTCPTransport: "tcp",

		MaxLabelSize:  63,
		MaxNameSize:   255,
		MaxSearchList: 6,

		DefaultNdots:      1,
		DefaultTimeout:    5,
		DefaultAttempts:   2,
		MaxTimeoutSeconds: 30,
		MaxAttempts:       5,
		MaxNdots:          15,

		MaxIDGenerationRetries: 8,
	}
}

func init() {
	createReadOnlyConstants()
}

// Get returns a copy of the Constant struct. Return by value so internal values cannot be
// inadvertently changed by callers.
func Get() Constants {
	return *readOnlyConstants
}
