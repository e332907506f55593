package builder

import "github.com/egpivo/metering-chain/internal/entity"

// assignRanges walks the windows in emission order with a single
// monotonic cursor, handing each one a contiguous [from_tx_id, to_tx_id)
// range. The ranges are positional, not chronological: a window's ids
// only encode how many records it folded and where it sits in the
// emitted order.
func assignRanges(windows []entity.Window, cursor int64) int64 {
	for i := range windows {
		n := windows[i].TxCount
		if n < 1 {
			n = 1
			windows[i].TxCount = n
		}
		windows[i].FromTxID = cursor
		windows[i].ToTxID = cursor + n
		cursor += n
	}
	return cursor
}
