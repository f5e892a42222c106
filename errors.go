package evdns

import "errors"

// Sentinel errors a Handler or caller may test for with errors.Is.
var (
	// ErrEmptyName is returned synchronously by Query when name is empty.
	ErrEmptyName = errors.New("evdns: empty name")

	// ErrNameTooLong is passed to Handler.OnFailure when name exceeds the wire format's
	// 255-byte limit (or a label exceeds 63 bytes) once escaped into labels. Query itself does
	// not check the length; the error surfaces from the deferred send that encodes the query.
	ErrNameTooLong = errors.New("evdns: name too long")

	// ErrNoNameservers is returned synchronously by Query when Core has no nameservers
	// configured at all.
	ErrNoNameservers = errors.New("evdns: no nameservers configured")

	// ErrClosed is returned by Query (and is the failure delivered to any still-live
	// Lookup's handler) once Core.Close has been called.
	ErrClosed = errors.New("evdns: core is closed")
)
