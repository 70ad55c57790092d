package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/defistate/defistate-amm/amm"
	"github.com/defistate/defistate-amm/engine"
	"github.com/defistate/defistate-amm/slippage"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "quote v2|v3",
		Short:     "Quote a swap against one pool",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"v2", "v3"},
		RunE:      runQuote,
	}
	addPoolFlags(cmd)
	cmd.Flags().String("token-in", "", "address or symbol of the token sold")
	cmd.Flags().String("amount", "", "raw amount: input, or output with --exact-output")
	cmd.Flags().Bool("exact-output", false, "treat --amount as the exact output")
	cmd.Flags().String("sqrt-price-limit", "", "Q64.96 sqrt price limit (v3 only)")
	cmd.Flags().String("slippage", "", "slippage percentage for this quote, e.g. 0.5")
	return cmd
}

func runQuote(cmd *cobra.Command, args []string) error {
	protocol, err := protocolArg(args[0])
	if err != nil {
		return err
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.sync()

	tokenRef, _ := cmd.Flags().GetString("token-in")
	if tokenRef == "" {
		return fmt.Errorf("--token-in is required")
	}
	rawAmount, _ := cmd.Flags().GetString("amount")
	amount, err := parseBig("amount", rawAmount)
	if err != nil {
		return err
	}
	if amount == nil {
		return fmt.Errorf("--amount is required")
	}
	rawLimit, _ := cmd.Flags().GetString("sqrt-price-limit")
	limit, err := parseBig("sqrt-price-limit", rawLimit)
	if err != nil {
		return err
	}
	tradeType := amm.ExactInput
	if exact, _ := cmd.Flags().GetBool("exact-output"); exact {
		tradeType = amm.ExactOutput
	}
	percent, _ := cmd.Flags().GetString("slippage")

	state, err := loadPool(cmd.Context(), cmd, e, protocol)
	if err != nil {
		return err
	}
	tokenIn, err := state.ResolveToken(tokenRef)
	if err != nil {
		return err
	}
	quote, err := e.engine.Quote(engine.QuoteRequest{
		Pool:              state,
		TokenIn:           tokenIn.Address,
		TradeType:         tradeType,
		Amount:            amount,
		SqrtPriceLimitX96: limit,
		Tolerance:         slippage.Parse(percent, e.engine.Tolerance()),
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, quote)
}
