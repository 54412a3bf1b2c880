// Package storage persists the exchange's balance table, order book and
// audit log in Pebble. Every exchange operation commits its whole write
// set through one batch, so the durable state never holds a partial
// transition.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/cockroachdb/pebble"

	"github.com/jeffreyhu16/nexchange/pkg/exchange"
)

// ExchangeStore is the Pebble-backed implementation of
// exchange.Persistence.
type ExchangeStore struct {
	db *pebble.DB
}

// Open opens (or creates) the Pebble database at path.
func Open(path string) (*ExchangeStore, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(64 << 20),
		MemTableSize: 32 << 20,
		MaxOpenFiles: 1000,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", path, err)
	}
	return &ExchangeStore{db: db}, nil
}

// Close closes the database.
func (s *ExchangeStore) Close() error {
	return s.db.Close()
}

// Commit writes the mutation's balances, order, counter and audit record
// in one synced batch.
func (s *ExchangeStore) Commit(mut exchange.Mutation) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for key, balance := range mut.Balances {
		if err := batch.Set(balanceKey(key), []byte(balance.String()), nil); err != nil {
			return fmt.Errorf("batch balance: %w", err)
		}
	}

	if mut.Order != nil {
		data, err := json.Marshal(mut.Order)
		if err != nil {
			return fmt.Errorf("marshal order: %w", err)
		}
		if err := batch.Set(orderKey(mut.Order.ID), data, nil); err != nil {
			return fmt.Errorf("batch order: %w", err)
		}
	}

	if mut.OrderCount != nil {
		if err := batch.Set(keyOrderCount, be64(*mut.OrderCount), nil); err != nil {
			return fmt.Errorf("batch order count: %w", err)
		}
	}

	if mut.Event != nil {
		data, err := json.Marshal(mut.Event)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if err := batch.Set(eventKey(mut.Event.Seq), data, nil); err != nil {
			return fmt.Errorf("batch event: %w", err)
		}
		if err := batch.Set(keyEventSeq, be64(mut.Event.Seq), nil); err != nil {
			return fmt.Errorf("batch event seq: %w", err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// LoadState recovers balances, orders and counters for startup.
func (s *ExchangeStore) LoadState() (*exchange.PersistedState, error) {
	state := &exchange.PersistedState{
		Balances: make(map[exchange.BalanceKey]*big.Int),
		Orders:   make(map[uint64]*exchange.Order),
	}

	if err := s.loadBalances(state); err != nil {
		return nil, err
	}
	if err := s.loadOrders(state); err != nil {
		return nil, err
	}

	var err error
	if state.OrderCount, err = s.loadCounter(keyOrderCount); err != nil {
		return nil, err
	}
	if state.EventSeq, err = s.loadCounter(keyEventSeq); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *ExchangeStore) loadBalances(state *exchange.PersistedState) error {
	prefix := []byte(prefixBalance)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("balance iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key, err := parseBalanceKey(iter.Key())
		if err != nil {
			return err
		}
		balance, ok := new(big.Int).SetString(string(iter.Value()), 10)
		if !ok {
			return fmt.Errorf("malformed balance value for %x", iter.Key())
		}
		state.Balances[key] = balance
	}
	return iter.Error()
}

func (s *ExchangeStore) loadOrders(state *exchange.PersistedState) error {
	prefix := []byte(prefixOrder)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("order iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var order exchange.Order
		if err := json.Unmarshal(iter.Value(), &order); err != nil {
			return fmt.Errorf("unmarshal order %x: %w", iter.Key(), err)
		}
		state.Orders[order.ID] = &order
	}
	return iter.Error()
}

func (s *ExchangeStore) loadCounter(key []byte) (uint64, error) {
	data, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	defer closer.Close()

	if len(data) != 8 {
		return 0, fmt.Errorf("malformed counter %s: %d bytes", key, len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// EventsSince returns up to limit audit records with Seq > seq, in
// sequence order.
func (s *ExchangeStore) EventsSince(seq uint64, limit int) ([]exchange.Record, error) {
	prefix := []byte(prefixEvent)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: eventKey(seq + 1),
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("event iterator: %w", err)
	}
	defer iter.Close()

	var records []exchange.Record
	for iter.First(); iter.Valid() && (limit <= 0 || len(records) < limit); iter.Next() {
		var rec exchange.Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal event %x: %w", iter.Key(), err)
		}
		records = append(records, rec)
	}
	return records, iter.Error()
}

var _ exchange.Persistence = (*ExchangeStore)(nil)
