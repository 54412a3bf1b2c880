package exchange

import (
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/jeffreyhu16/nexchange/pkg/util"
)

// Exchange is the custodial token-exchange ledger: a per-(token, owner)
// balance table plus the order book that settles trades against it.
// One lock guards both tables, so every exposed operation is a single
// atomic transition and no caller ever observes intermediate state.
type Exchange struct {
	mu sync.RWMutex

	feeAccount common.Address
	feeRate    FeeRate

	bridge AssetBridge
	store  Persistence
	clock  util.Clock
	log    *zap.SugaredLogger

	balances map[BalanceKey]*big.Int
	orders   map[uint64]*Order
	count    uint64 // last issued order id; ids start at 1
	seq      uint64 // last committed audit record

	sinkMu sync.RWMutex
	sinks  []EventSink
}

// New constructs the exchange and recovers balances, orders and counters
// from the store. feeAccount and feeRate are fixed for the lifetime of
// the exchange.
func New(feeAccount common.Address, feeRate FeeRate, bridge AssetBridge, store Persistence, clock util.Clock, logger *zap.Logger) (*Exchange, error) {
	state, err := store.LoadState()
	if err != nil {
		return nil, fmt.Errorf("load exchange state: %w", err)
	}

	x := &Exchange{
		feeAccount: feeAccount,
		feeRate:    feeRate,
		bridge:     bridge,
		store:      store,
		clock:      clock,
		log:        logger.Sugar().Named("exchange"),
		balances:   state.Balances,
		orders:     state.Orders,
		count:      state.OrderCount,
		seq:        state.EventSeq,
	}
	if x.balances == nil {
		x.balances = make(map[BalanceKey]*big.Int)
	}
	if x.orders == nil {
		x.orders = make(map[uint64]*Order)
	}

	x.log.Infow("exchange_recovered",
		"fee_account", feeAccount.Hex(),
		"fee_rate", feeRate.String(),
		"orders", len(x.orders),
		"balances", len(x.balances),
		"event_seq", x.seq)
	return x, nil
}

// FeeAccount returns the fixed owner that collects taker fees.
func (x *Exchange) FeeAccount() common.Address { return x.feeAccount }

// FeeRate returns the fixed 1e18-scaled taker fee fraction.
func (x *Exchange) FeeRate() FeeRate { return x.feeRate }

// AddSink registers a live subscriber for committed audit records.
func (x *Exchange) AddSink(sink EventSink) {
	x.sinkMu.Lock()
	x.sinks = append(x.sinks, sink)
	x.sinkMu.Unlock()
}

func (x *Exchange) publish(rec Record) {
	x.sinkMu.RLock()
	defer x.sinkMu.RUnlock()
	for _, sink := range x.sinks {
		sink.Publish(rec)
	}
}

// nextRecord allocates the next audit record. Callers hold the write lock;
// x.seq is only advanced after the record's mutation commits.
func (x *Exchange) nextRecord(kind EventKind) Record {
	return Record{
		Seq:  x.seq + 1,
		Kind: kind,
		Time: x.clock.Now().UnixMilli(),
	}
}

// OrderByID returns a copy of the order, or ErrOrderNotFound for an id
// that was never issued. Finalized orders stay queryable forever.
func (x *Exchange) OrderByID(id uint64) (*Order, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	o, ok := x.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o.clone(), nil
}

// OrderCount returns the number of orders ever created.
func (x *Exchange) OrderCount() uint64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.count
}

// IsCancelled reports whether the order was cancelled.
func (x *Exchange) IsCancelled(id uint64) (bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	o, ok := x.orders[id]
	if !ok {
		return false, ErrOrderNotFound
	}
	return o.Status == OrderCancelled, nil
}

// IsFilled reports whether the order was filled.
func (x *Exchange) IsFilled(id uint64) (bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	o, ok := x.orders[id]
	if !ok {
		return false, ErrOrderNotFound
	}
	return o.Status == OrderFilled, nil
}

// Orders returns copies of every order, sorted by id.
func (x *Exchange) Orders() []*Order {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]*Order, 0, len(x.orders))
	for _, o := range x.orders {
		out = append(out, o.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OpenOrders returns copies of the orders still in their Open state,
// sorted by id.
func (x *Exchange) OpenOrders() []*Order {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]*Order, 0, len(x.orders))
	for _, o := range x.orders {
		if !o.IsClosed() {
			out = append(out, o.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EventsSince returns up to limit audit records with Seq > seq.
func (x *Exchange) EventsSince(seq uint64, limit int) ([]Record, error) {
	return x.store.EventsSince(seq, limit)
}
