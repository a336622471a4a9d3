package main

import (
	"time"

	"github.com/ostren/ember/pkg/api"
	"github.com/ostren/ember/pkg/api/http/server"
)

const (
	docApi = `Run the API gateway`
)

type optsAPI struct {
	optsGeneral
	optsDatabase
	optsBroker
	optsStore
	optsEmbed

	Addr string `long:"addr" env:"ADDR" description:"Address to bind to" default:"localhost:8100"`

	AdmissionCeiling int64 `long:"admission-ceiling" env:"ADMISSION_CEILING" default:"10000" description:"Max in-flight jobs before new submissions are refused"`
}

func (c *optsAPI) Execute(args []string) error {
	// The gateway accepts, records & enqueues jobs and answers status and
	// search queries. It never executes anything itself; run one or more
	// "ember worker" processes alongside it.
	c.setup()

	db, err := c.buildDatabase()
	if err != nil {
		return err
	}
	qu, err := c.buildBroker()
	if err != nil {
		return err
	}
	art, err := buildStore(c.ArtifactRoot)
	if err != nil {
		return err
	}
	provider, err := c.buildEmbedder()
	if err != nil {
		return err
	}
	idx, err := buildIndex(c.DatabaseURL, provider)
	if err != nil {
		return err
	}

	svc, err := api.NewAPI(db, qu, art, idx, &api.Options{
		AdmissionCeiling: c.AdmissionCeiling,
		BrokerAttempts:   5,
		BrokerBackoff:    250 * time.Millisecond,
		BrokerBackoffCap: 10 * time.Second,
	})
	if err != nil {
		return err
	}

	s := server.NewServer(c.Addr, c.Debug)
	return s.ServeForever(svc)
}
