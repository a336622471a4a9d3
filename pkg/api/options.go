package api

import (
	"time"
)

// Options passed to the ember API on creation
type Options struct {
	// AdmissionCeiling caps in-flight (queued, leased, running) jobs; past
	// it new submissions are refused rather than queued.
	AdmissionCeiling int64

	// BrokerAttempts is how many times we try the broker before giving up.
	BrokerAttempts int

	// BrokerBackoff is the initial delay between broker retries, doubled
	// each attempt up to BrokerBackoffCap.
	BrokerBackoff    time.Duration
	BrokerBackoffCap time.Duration
}

// OptionsDefault returns Options suited to a single gateway instance.
func OptionsDefault() *Options {
	return &Options{
		AdmissionCeiling: 10000,
		BrokerAttempts:   5,
		BrokerBackoff:    250 * time.Millisecond,
		BrokerBackoffCap: 10 * time.Second,
	}
}
