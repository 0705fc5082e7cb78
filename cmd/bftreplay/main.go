package main

import (
	"context"
	"fmt"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jessevdk/go-flags"

	"github.com/quorumlab/bftreplay/harness"
	"github.com/quorumlab/bftreplay/membership"
	"github.com/quorumlab/bftreplay/sim"
)

func setupLogger() kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))

	if !opts.Verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	return logger
}

func run(logger kitlog.Logger) error {
	conf := harness.DefaultConfig()
	conf.Nodes = opts.Cluster.Nodes
	conf.Interval = opts.Cluster.Interval
	conf.Sampler = membership.NewQuorumSampler(opts.Cluster.Seed)
	conf.Logger = logger

	rec, err := harness.New(conf)
	if err != nil {
		return fmt.Errorf("failed to create cluster: %w", err)
	}

	driver := sim.New(rec, opts.Cluster.Seed, logger)
	if err := driver.Run(context.Background(), opts.Cluster.Heights); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	if err := rec.Save(opts.Snapshot.Path); err != nil {
		return err
	}

	if opts.Snapshot.Verify {
		loaded, err := harness.Load(opts.Snapshot.Path, conf)
		if err != nil {
			return err
		}

		want, err := rec.StateHash()
		if err != nil {
			return err
		}

		got, err := loaded.StateHash()
		if err != nil {
			return err
		}

		if got != want {
			return fmt.Errorf("state hash mismatch after reload: %016x != %016x", got, want)
		}

		level.Info(logger).Log("msg", "snapshot verified", "hash", fmt.Sprintf("%016x", got))
	}

	return nil
}

func main() {
	p := flags.NewParser(&opts, flags.Default)

	if _, err := p.Parse(); err != nil {
		if err.(*flags.Error).Type != flags.ErrHelp {
			fmt.Println("cli error:", err)
		}

		os.Exit(2)
	}

	logger := setupLogger()

	if err := run(logger); err != nil {
		level.Error(logger).Log("msg", "run failed", "err", err)
		os.Exit(1)
	}
}
