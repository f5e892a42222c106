package wire

import "strings"

// Matches implements the spec's matches() predicate: the sole defense against spoofed or
// delayed datagrams. queryName/queryType/queryClass describe the single question this engine
// sent; buf is a candidate inbound datagram.
//
// Grounded on the original dnscpp query.cpp matches(): id equality first, then an opcode-aware
// check — UPDATE has no question to compare (RFC2136), everything else requires every response
// question to equal the outbound one, case-insensitively per RFC1035 2.3.3.
func Matches(queryID uint16, queryOpcode int, queryName string, queryType, queryClass uint16, buf []byte) bool {
	hdr, err := ParseHeader(buf)
	if err != nil {
		return false
	}
	if hdr.ID != queryID {
		return false
	}
	if hdr.Opcode == OpcodeUpdate && queryOpcode == OpcodeUpdate {
		return true
	}
	if int(hdr.Qdcount) == 0 {
		return false
	}

	questions, _, err := ParseQuestions(buf, hdr.Qdcount)
	if err != nil {
		return false
	}

	for _, q := range questions {
		if q.Qtype != queryType || q.Qclass != queryClass || !equalNameFold(q.Name, queryName) {
			return false
		}
	}

	return true
}

// equalNameFold compares two dotted names ignoring case and a single trailing dot, per RFC1035
// 2.3.3's case-insensitivity requirement for domain name comparison.
func equalNameFold(a, b string) bool {
	a = strings.TrimSuffix(a, ".")
	b = strings.TrimSuffix(b, ".")

	return strings.EqualFold(a, b)
}
