package exchange

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OrderStatus represents the lifecycle state of a resting order
type OrderStatus int8

const (
	OrderOpen OrderStatus = iota
	OrderCancelled
	OrderFilled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderOpen:
		return "open"
	case OrderCancelled:
		return "cancelled"
	case OrderFilled:
		return "filled"
	default:
		return "unknown"
	}
}

// Order is a resting order against the maker's custodial balance.
// IDs start at 1 and are assigned in creation order. Status transitions
// exactly once away from OrderOpen and is never reversed; orders are
// never deleted and stay queryable by id forever.
type Order struct {
	ID         uint64         `json:"id"`
	Maker      common.Address `json:"maker"`
	TokenGet   common.Address `json:"tokenGet"`   // asset the maker wants
	AmountGet  *big.Int       `json:"amountGet"`  // amount the maker wants
	TokenGive  common.Address `json:"tokenGive"`  // asset the maker offers
	AmountGive *big.Int       `json:"amountGive"` // amount the maker offers
	CreatedAt  int64          `json:"createdAt"`  // Unix milliseconds
	Status     OrderStatus    `json:"status"`
}

// IsClosed returns true if the order left its Open state
func (o *Order) IsClosed() bool {
	return o.Status == OrderCancelled || o.Status == OrderFilled
}

// clone returns a defensive copy so callers cannot alias book-owned state
func (o *Order) clone() *Order {
	cp := *o
	cp.AmountGet = new(big.Int).Set(o.AmountGet)
	cp.AmountGive = new(big.Int).Set(o.AmountGive)
	return &cp
}
