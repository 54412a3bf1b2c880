package exchange

import "math/big"

// Mutation is the atomic write set of one exchange operation. The store
// must commit every field in a single durable batch: either the whole
// transition lands or none of it does.
type Mutation struct {
	// Balances holds the post-state of every balance entry the operation
	// touched (absolute values, not deltas).
	Balances map[BalanceKey]*big.Int

	// Order is the inserted or status-updated order, if any.
	Order *Order

	// OrderCount carries the new counter value when an order was created.
	OrderCount *uint64

	// Event is the audit record for this transition.
	Event *Record
}

// PersistedState is everything the exchange recovers at startup.
type PersistedState struct {
	Balances   map[BalanceKey]*big.Int
	Orders     map[uint64]*Order
	OrderCount uint64
	EventSeq   uint64
}

// Persistence is the durable store behind the exchange. Implemented by
// storage.ExchangeStore on pebble; tests may substitute their own.
type Persistence interface {
	LoadState() (*PersistedState, error)
	Commit(mut Mutation) error
	EventsSince(seq uint64, limit int) ([]Record, error)
	Close() error
}
