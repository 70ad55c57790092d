package amm

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatAmount renders a raw token amount in whole units, truncated to
// precision decimal places. Display only.
func FormatAmount(amount *big.Int, decimals uint8, precision int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).Truncate(precision).String()
}

// FormatWad renders a WAD value, truncated to precision decimal places.
func FormatWad(wad *big.Int, precision int32) string {
	return FormatAmount(wad, WadDecimals, precision)
}

// FormatBps renders basis points as a percentage, e.g. 55 -> "0.55%".
func FormatBps(bps uint32) string {
	return decimal.New(int64(bps), -2).String() + "%"
}
