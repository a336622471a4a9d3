package api

import (
	"github.com/ostren/ember/internal/core"
	"github.com/ostren/ember/pkg/broker"
	"github.com/ostren/ember/pkg/database"
	"github.com/ostren/ember/pkg/search"
	"github.com/ostren/ember/pkg/store"
)

func NewAPI(db database.Database, qu broker.Broker, art store.Store, idx search.Index, opts *Options) (API, error) {
	if opts == nil {
		opts = OptionsDefault()
	}
	return core.NewService(db, qu, art, idx, &core.Options{
		AdmissionCeiling: opts.AdmissionCeiling,
		BrokerAttempts:   opts.BrokerAttempts,
		BrokerBackoff:    opts.BrokerBackoff,
		BrokerBackoffCap: opts.BrokerBackoffCap,
	})
}
