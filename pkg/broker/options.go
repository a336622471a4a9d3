package broker

import (
	"crypto/tls"
	"time"
)

// Options are options for the broker.
type Options struct {
	// URL encodes how we'll connect to the queue backend.
	URL string

	// Prefix namespaces our keys in the backend. Defaults to "ember".
	Prefix string

	// Block is how long Lease waits for work before returning nil.
	Block time.Duration

	// TLSConfig needed to connect to the backend (optional).
	TLSConfig *tls.Config
}

func (o *Options) SetDefaults() {
	if o.Prefix == "" {
		o.Prefix = "ember"
	}
	if o.Block <= 0 {
		o.Block = 2 * time.Second
	}
}
