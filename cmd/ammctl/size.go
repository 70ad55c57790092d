package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/defistate/defistate-amm/engine"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/position"
	"github.com/defistate/defistate-amm/slippage"
)

func newSizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "size v2|v3",
		Short:     "Size a liquidity deposit",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"v2", "v3"},
		RunE:      runSize,
	}
	addPoolFlags(cmd)
	cmd.Flags().String("amount0", "", "raw token0 amount")
	cmd.Flags().String("amount1", "", "raw token1 amount")
	cmd.Flags().Int64("tick-lower", 0, "lower tick (v3)")
	cmd.Flags().Int64("tick-upper", 0, "upper tick (v3)")
	cmd.Flags().String("min-price", "", "min price of token0 in token1 (v3)")
	cmd.Flags().String("max-price", "", "max price of token0 in token1 (v3)")
	cmd.Flags().Bool("full-range", false, "use the widest range (v3)")
	cmd.Flags().String("slippage", "", "slippage percentage for the minimum amounts, e.g. 0.5")
	return cmd
}

func runSize(cmd *cobra.Command, args []string) error {
	protocol, err := protocolArg(args[0])
	if err != nil {
		return err
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.sync()

	raw0, _ := cmd.Flags().GetString("amount0")
	raw1, _ := cmd.Flags().GetString("amount1")
	amount0, err := parseBig("amount0", raw0)
	if err != nil {
		return err
	}
	amount1, err := parseBig("amount1", raw1)
	if err != nil {
		return err
	}
	percent, _ := cmd.Flags().GetString("slippage")

	state, err := loadPool(cmd.Context(), cmd, e, protocol)
	if err != nil {
		return err
	}
	req := engine.SizeRequest{
		Pool:      state,
		Amount0:   amount0,
		Amount1:   amount1,
		Tolerance: slippage.Parse(percent, e.engine.Tolerance()),
	}
	if pool, ok := state.UniswapV3(); ok {
		if req.Range, req.FullRange, err = rangeFlags(cmd, pool); err != nil {
			return err
		}
	}
	sizing, err := e.engine.Size(req)
	if err != nil {
		return err
	}
	return printJSON(cmd, sizing)
}

func rangeFlags(cmd *cobra.Command, pool uniswapv3.Pool) (uniswapv3.PriceRange, bool, error) {
	if full, _ := cmd.Flags().GetBool("full-range"); full {
		return uniswapv3.PriceRange{}, true, nil
	}
	minPrice, _ := cmd.Flags().GetString("min-price")
	maxPrice, _ := cmd.Flags().GetString("max-price")
	if minPrice != "" || maxPrice != "" {
		spacing, err := pool.Spacing()
		if err != nil {
			return uniswapv3.PriceRange{}, false, err
		}
		r, err := position.RangeFromPrices(minPrice, maxPrice, pool.Token0, pool.Token1, spacing)
		return r, false, err
	}
	if !cmd.Flags().Changed("tick-lower") || !cmd.Flags().Changed("tick-upper") {
		return uniswapv3.PriceRange{}, false, fmt.Errorf("a range is required: --tick-lower/--tick-upper, --min-price/--max-price or --full-range")
	}
	lower, _ := cmd.Flags().GetInt64("tick-lower")
	upper, _ := cmd.Flags().GetInt64("tick-upper")
	return uniswapv3.PriceRange{TickLower: lower, TickUpper: upper}, false, nil
}
