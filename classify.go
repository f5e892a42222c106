package evdns

import "github.com/miekg/dns"

// rcodeAction tells a Lookup what to do after a matching response is delivered while a
// search-list expansion is still in progress.
type rcodeAction int

const (
	// deliverNow means hand the response to the user's handler as-is — the search list does
	// not advance, per spec.md §4.D/§9: only NXDOMAIN advances to the next suffix, every other
	// rcode (including NOERROR and SERVFAIL) is terminal from the search list's perspective.
	deliverNow rcodeAction = iota

	// advanceSearch means this candidate name failed with NXDOMAIN and, if more search
	// suffixes remain, the Lookup should requery with the next one instead of delivering.
	advanceSearch
)

// classifyForSearch resolves spec.md §9's open question ("NXDOMAIN vs other rcodes in
// search-list expansion"): advance only on NXDOMAIN, deliver everything else as-is.
func classifyForSearch(rcode int) rcodeAction {
	if rcode == dns.RcodeNameError {
		return advanceSearch
	}

	return deliverNow
}
