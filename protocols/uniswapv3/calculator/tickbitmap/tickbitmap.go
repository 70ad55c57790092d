// Package tickbitmap locates initialized ticks in a pool snapshot. The
// snapshot carries the initialized ticks as a sorted slice rather than the
// on-chain bitmap words, so lookups are binary searches.
package tickbitmap

import (
	"sort"

	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
)

// NextInitializedTick finds the next initialized tick from tick.
//
// With lte it returns the largest initialized tick <= tick (the next boundary
// when the price moves down); otherwise the smallest initialized tick > tick.
// initialized is false when no tick exists in that direction.
func NextInitializedTick(
	ticks []uniswapv3.TickInfo,
	tick int64,
	lte bool,
) (next int64, initialized bool) {
	if len(ticks) == 0 {
		return 0, false
	}

	// first index strictly above tick
	index := sort.Search(len(ticks), func(i int) bool {
		return ticks[i].Index > tick
	})

	if lte {
		if index == 0 {
			return 0, false
		}
		return ticks[index-1].Index, true
	}
	if index >= len(ticks) {
		return 0, false
	}
	return ticks[index].Index, true
}

// Validate checks that ticks are strictly ascending, as NextInitializedTick requires.
func Validate(ticks []uniswapv3.TickInfo) error {
	return uniswapv3.ValidateTicks(ticks)
}
