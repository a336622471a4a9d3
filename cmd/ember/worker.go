package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ostren/ember/pkg/search"
	"github.com/ostren/ember/pkg/worker"
)

const (
	docWorker = `Run an ember worker`
)

type optsWorker struct {
	optsGeneral
	optsDatabase
	optsBroker
	optsStore
	optsEmbed

	PoolSize     int           `long:"pool-size" env:"POOL_SIZE" default:"4" description:"Jobs worked on concurrently"`
	LeaseTimeout time.Duration `long:"lease-timeout" env:"LEASE_TIMEOUT" default:"5m" description:"Broker visibility timeout per leased job"`
}

func (c *optsWorker) Execute(args []string) error {
	// A worker leases jobs off the broker, executes them and writes
	// artifacts. It also consumes the index queue, projecting finished
	// artifacts into the search index.
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

	// completed artifacts flow into the index via a retried queue, so a
	// down search backend never fails a job
	sink, err := search.NewIndexer(c.BrokerURL)
	if err != nil {
		return err
	}
	defer sink.Close()
	indexSrv, err := search.RunIndexServer(c.BrokerURL, idx)
	if err != nil {
		return err
	}
	defer indexSrv.Shutdown()

	reg := worker.NewRegistry()
	err = reg.Register(worker.OpEmbed, worker.NewEmbedExecutor(provider))
	if err != nil {
		return err
	}

	opts := worker.OptionsDefault()
	opts.Size = c.PoolSize
	opts.LeaseTTL = c.LeaseTimeout
	pool := worker.NewPool(qu, db, art, sink, reg, opts)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exit := make(chan os.Signal, 1)
		signal.Notify(exit, os.Interrupt)
		<-exit
		log.Info("interrupt, draining workers")
		cancel()
	}()

	pool.Run(ctx)
	return nil
}
