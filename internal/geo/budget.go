package geo

import "sync/atomic"

// Budget caps external geocoding calls for one aggregation run. It is created
// per run and shared by every resolution in that run; it is never refilled.
//
// A slot is reserved before the call and handed back if the call fails, so a
// successful lookup costs exactly one unit and concurrent resolutions can
// never issue more calls than the budget allows. While calls are in flight
// Remaining may read lower than it will settle at.
type Budget struct {
	remaining atomic.Int64
	spent     atomic.Int64
}

// NewBudget returns a budget of n external lookups. n <= 0 disables the tier.
func NewBudget(n int) *Budget {
	b := &Budget{}
	if n > 0 {
		b.remaining.Store(int64(n))
	}
	return b
}

// Remaining returns the lookups left.
func (b *Budget) Remaining() int {
	if b == nil {
		return 0
	}
	return int(b.remaining.Load())
}

// Spent returns the successful lookups charged so far.
func (b *Budget) Spent() int {
	if b == nil {
		return 0
	}
	return int(b.spent.Load())
}

// TryReserve takes one slot if any is left.
func (b *Budget) TryReserve() bool {
	if b == nil {
		return false
	}
	for {
		cur := b.remaining.Load()
		if cur <= 0 {
			return false
		}
		if b.remaining.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// Commit charges a reserved slot after a successful lookup.
func (b *Budget) Commit() { b.spent.Add(1) }

// Refund returns a reserved slot after a failed lookup.
func (b *Budget) Refund() { b.remaining.Add(1) }
