package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/defistate/defistate-amm/config"
	tokenregistry "github.com/defistate/defistate-amm/protocols/tokenregistry"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/tickmath"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/position"
)

type tickOutput struct {
	Tick         int64    `json:"tick"`
	UsableTick   int64    `json:"usableTick"`
	SqrtPriceX96 *big.Int `json:"sqrtPriceX96"`
	Price        string   `json:"price"`
}

func newTickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Convert between ticks and whole-unit prices",
		Example: `  ammctl tick --tick -201000 --decimals0 6 --decimals1 18
  ammctl tick --price 0.0005 --decimals0 6 --decimals1 18 --spacing 10`,
		Args: cobra.NoArgs,
		RunE: runTick,
	}
	cmd.Flags().Int64("tick", 0, "tick to convert to a price")
	cmd.Flags().String("price", "", "price of token0 in token1 to convert to a tick")
	cmd.Flags().Uint8("decimals0", 18, "token0 decimals")
	cmd.Flags().Uint8("decimals1", 18, "token1 decimals")
	cmd.Flags().Int64("spacing", 0, "snap to the nearest usable tick of this spacing (default: spacing of --fee-tier)")
	cmd.Flags().Int32("precision", 18, "price decimal places")
	cmd.MarkFlagsMutuallyExclusive("tick", "price")
	cmd.MarkFlagsOneRequired("tick", "price")
	return cmd
}

func runTick(cmd *cobra.Command, _ []string) error {
	d0, _ := cmd.Flags().GetUint8("decimals0")
	d1, _ := cmd.Flags().GetUint8("decimals1")
	spacing, err := tickSpacing(cmd)
	if err != nil {
		return err
	}
	precision, _ := cmd.Flags().GetInt32("precision")
	// Addresses only matter for ordering, which the caller already did.
	token0 := tokenregistry.Token{Address: common.BigToAddress(big.NewInt(0)), Decimals: d0}
	token1 := tokenregistry.Token{Address: common.BigToAddress(big.NewInt(1)), Decimals: d1}

	var out tickOutput
	if cmd.Flags().Changed("price") {
		raw, _ := cmd.Flags().GetString("price")
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid --price %q: %w", raw, err)
		}
		sqrtPriceX96, err := position.SqrtPriceAtPrice(price, token0, token1)
		if err != nil {
			return err
		}
		if out.Tick, err = tickmath.GetTickAtSqrtRatio(sqrtPriceX96); err != nil {
			return err
		}
	} else {
		out.Tick, _ = cmd.Flags().GetInt64("tick")
	}

	usable, err := tickmath.NearestUsableTick(out.Tick, spacing)
	if err != nil {
		return err
	}
	out.UsableTick = usable

	out.SqrtPriceX96 = new(big.Int)
	if err := tickmath.GetSqrtRatioAtTick(out.SqrtPriceX96, out.Tick); err != nil {
		return err
	}
	price, err := position.PriceAtSqrtPrice(out.SqrtPriceX96, token0, token1, precision)
	if err != nil {
		return err
	}
	out.Price = price.String()
	return printJSON(cmd, out)
}

// tickSpacing is --spacing when given, else the spacing of the configured
// fee tier.
func tickSpacing(cmd *cobra.Command) (int64, error) {
	if cmd.Flags().Changed("spacing") {
		return cmd.Flags().GetInt64("spacing")
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	settings, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return 0, err
	}
	return settings.FeeTier.TickSpacing()
}
