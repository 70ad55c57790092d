// Command ammapi serves AMM quotes and position sizings over HTTP, reading
// pool snapshots from an Ethereum node.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/defistate/defistate-amm/api"
	"github.com/defistate/defistate-amm/chains/ethereum"
	"github.com/defistate/defistate-amm/config"
	"github.com/defistate/defistate-amm/engine"
	"github.com/defistate/defistate-amm/logging"
)

const shutdownTimeout = 3 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	flags := pflag.NewFlagSet("ammapi", pflag.ExitOnError)
	cfgFile := flags.String("config", "", "config file path")
	config.RegisterFlags(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgFile, flags)
	if err != nil {
		return err
	}
	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required (--rpc or AMM_RPC)")
	}

	zl, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	logger := logging.Adapt(zl)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader, err := ethereum.Dial(ctx, cfg.RPCURL, logger.With("component", "reader"))
	if err != nil {
		return fmt.Errorf("failed to connect to Ethereum node: %w", err)
	}
	defer reader.Close()

	e, err := engine.New(&engine.Config{
		Registry:         registry,
		Logger:           logger.With("component", "engine"),
		Tolerance:        cfg.SlippageToleranceBps,
		UseFullPrecision: cfg.UseFullPrecision,
		Deadline:         cfg.Deadline,
	})
	if err != nil {
		return err
	}

	h, err := api.New(&api.Config{
		Engine:   e,
		Reader:   reader,
		Logger:   logger.With("component", "api"),
		Gatherer: registry,
	})
	if err != nil {
		return err
	}
	app := api.NewApp(h)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.ListenAddr)
	}()
	logger.Info("Server started", "addr", cfg.ListenAddr, "slippage", cfg.SlippageToleranceBps.Percent())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	logger.Info("Shutting down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}
