package main

import (
	"time"

	"github.com/evdns-go/evdns/internal/flagutil"
)

// config holds every command-line-settable value for one run of evdig.
type config struct {
	help    bool
	version bool
	gops    bool

	short     bool
	repeatCount int

	nameservers flagutil.StringValue
	searchPaths flagutil.StringValue

	timeout  time.Duration
	attempts int
	ndots    int
	rotate   bool

	rd, ad, cd, do bool

	resolvConf string
}
