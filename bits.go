package evdns

// Bits is a small set of request/response flags. RD is the engine's deliberate extension beyond
// the original library's Bits (which carried only AD/CD/DO) — a stub resolver, unlike the library
// it was distilled from, always chooses whether it wants recursion per query, so RD belongs
// alongside AD/CD/DO rather than being hardwired true everywhere.
type Bits struct {
	RD bool // Recursion desired
	AD bool // Authenticated data requested in the query / asserted in the response
	CD bool // Checking disabled
	DO bool // DNSSEC OK (EDNS)
}

// DefaultBits returns the flag set a typical recursive stub query uses: recursion desired,
// nothing else set.
func DefaultBits() Bits {
	return Bits{RD: true}
}
