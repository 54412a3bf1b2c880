package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/jeffreyhu16/nexchange/pkg/exchange"
)

// Key schema for Pebble storage:
//
//   bal:<20-byte token><20-byte owner> → balance (decimal string)
//   ord:<8-byte big-endian id>         → Order (JSON)
//   evt:<8-byte big-endian seq>        → audit Record (JSON)
//   cnt:orders                         → last issued order id
//   cnt:events                         → last committed event seq
//
// Order and event keys sort numerically under lexicographic iteration,
// so prefix scans replay them in issue order.

const (
	prefixBalance = "bal:"
	prefixOrder   = "ord:"
	prefixEvent   = "evt:"
)

var (
	keyOrderCount = []byte("cnt:orders")
	keyEventSeq   = []byte("cnt:events")
)

func balanceKey(key exchange.BalanceKey) []byte {
	k := make([]byte, 0, len(prefixBalance)+40)
	k = append(k, prefixBalance...)
	k = append(k, key.Token.Bytes()...)
	k = append(k, key.Owner.Bytes()...)
	return k
}

// parseBalanceKey recovers the (token, owner) pair from a balance key
func parseBalanceKey(k []byte) (exchange.BalanceKey, error) {
	raw := k[len(prefixBalance):]
	if len(raw) != 40 {
		return exchange.BalanceKey{}, fmt.Errorf("malformed balance key: %d bytes", len(k))
	}
	var key exchange.BalanceKey
	copy(key.Token[:], raw[:20])
	copy(key.Owner[:], raw[20:])
	return key, nil
}

func orderKey(id uint64) []byte {
	return append([]byte(prefixOrder), be64(id)...)
}

func eventKey(seq uint64) []byte {
	return append([]byte(prefixEvent), be64(seq)...)
}

func be64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
