// Command ammctl quotes swaps and sizes liquidity positions from the command
// line, against pool snapshots read from a JSON file or an Ethereum node.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/defistate/defistate-amm/chains"
	"github.com/defistate/defistate-amm/chains/ethereum"
	"github.com/defistate/defistate-amm/config"
	"github.com/defistate/defistate-amm/engine"
	"github.com/defistate/defistate-amm/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ammctl",
		Short:        "AMM swap quotes and liquidity sizing",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "config file path")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newQuoteCmd(),
		newSizeCmd(),
		newTickCmd(),
		newConfigCmd(),
		newPoolCmd(),
	)
	return root
}

// env is what every subcommand needs: settings, a logger and an engine.
type env struct {
	settings config.Settings
	logger   *logging.Logger
	engine   *engine.Engine
	sync     func()
}

func setup(cmd *cobra.Command) (*env, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	settings, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	zl, err := logging.New(settings.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.Adapt(zl)
	e, err := engine.New(&engine.Config{
		Registry:         prometheus.NewRegistry(),
		Logger:           logger.With("component", "engine"),
		Tolerance:        settings.SlippageToleranceBps,
		UseFullPrecision: settings.UseFullPrecision,
		Deadline:         settings.Deadline,
	})
	if err != nil {
		return nil, err
	}
	return &env{settings: settings, logger: logger, engine: e, sync: func() { _ = zl.Sync() }}, nil
}

// addPoolFlags registers the two ways of naming a pool snapshot.
func addPoolFlags(cmd *cobra.Command) {
	cmd.Flags().String("pool-file", "", "JSON pool snapshot ({\"protocol\": ..., \"data\": ...})")
	cmd.Flags().String("pool", "", "pool address to read over --rpc")
}

// loadPool returns the snapshot named by --pool-file or --pool. A file must
// hold a pool of the expected protocol.
func loadPool(ctx context.Context, cmd *cobra.Command, e *env, protocol engine.ProtocolID) (engine.PoolState, error) {
	file, _ := cmd.Flags().GetString("pool-file")
	address, _ := cmd.Flags().GetString("pool")
	switch {
	case file != "":
		raw, err := os.ReadFile(file)
		if err != nil {
			return engine.PoolState{}, err
		}
		var state engine.PoolState
		if err := json.Unmarshal(raw, &state); err != nil {
			return engine.PoolState{}, fmt.Errorf("pool file %s: %w", file, err)
		}
		if state.Protocol() != protocol {
			return engine.PoolState{}, fmt.Errorf("pool file %s holds a %s pool, want %s", file, state.Protocol(), protocol)
		}
		return state, nil
	case address != "":
		if !common.IsHexAddress(address) {
			return engine.PoolState{}, fmt.Errorf("invalid pool address %q", address)
		}
		if e.settings.RPCURL == "" {
			return engine.PoolState{}, fmt.Errorf("--rpc is required to read pool %s", address)
		}
		reader, err := ethereum.Dial(ctx, e.settings.RPCURL, e.logger.With("component", "reader"))
		if err != nil {
			return engine.PoolState{}, err
		}
		defer reader.Close()
		return chains.ReadPoolState(ctx, reader, protocol, common.HexToAddress(address), nil)
	default:
		return engine.PoolState{}, fmt.Errorf("one of --pool-file or --pool is required")
	}
}

func parseBig(name, value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	n, ok := new(big.Int).SetString(value, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q: want a non-negative base-10 integer", name, value)
	}
	return n, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func protocolArg(arg string) (engine.ProtocolID, error) {
	switch arg {
	case "v2":
		return engine.ProtocolUniswapV2, nil
	case "v3":
		return engine.ProtocolUniswapV3, nil
	default:
		return "", fmt.Errorf("unknown protocol %q: want v2 or v3", arg)
	}
}
