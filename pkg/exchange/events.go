package exchange

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event kinds in the audit log
type EventKind string

const (
	KindDeposit        EventKind = "deposit"
	KindWithdraw       EventKind = "withdraw"
	KindOrderMade      EventKind = "order_made"
	KindOrderCancelled EventKind = "order_cancelled"
	KindTrade          EventKind = "trade"
)

// DepositEvent records a successful transfer-in and the resulting balance
type DepositEvent struct {
	Token   common.Address `json:"token"`
	Owner   common.Address `json:"owner"`
	Amount  *big.Int       `json:"amount"`
	Balance *big.Int       `json:"balance"`
}

// WithdrawEvent records a successful transfer-out and the resulting balance
type WithdrawEvent struct {
	Token   common.Address `json:"token"`
	Owner   common.Address `json:"owner"`
	Amount  *big.Int       `json:"amount"`
	Balance *big.Int       `json:"balance"`
}

// OrderMadeEvent echoes the full order tuple at creation time
type OrderMadeEvent struct {
	ID         uint64         `json:"id"`
	Maker      common.Address `json:"maker"`
	TokenGet   common.Address `json:"tokenGet"`
	AmountGet  *big.Int       `json:"amountGet"`
	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *big.Int       `json:"amountGive"`
	Timestamp  int64          `json:"timestamp"`
}

// OrderCancelledEvent carries the cancelled order tuple and cancel time
type OrderCancelledEvent struct {
	ID         uint64         `json:"id"`
	Maker      common.Address `json:"maker"`
	TokenGet   common.Address `json:"tokenGet"`
	AmountGet  *big.Int       `json:"amountGet"`
	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *big.Int       `json:"amountGive"`
	Timestamp  int64          `json:"timestamp"`
}

// TradeEvent records an executed fill. Creator is the maker of the order;
// Taker is the account that filled it and paid the fee.
type TradeEvent struct {
	ID         uint64         `json:"id"`
	Taker      common.Address `json:"taker"`
	TokenGet   common.Address `json:"tokenGet"`
	AmountGet  *big.Int       `json:"amountGet"`
	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *big.Int       `json:"amountGive"`
	Creator    common.Address `json:"creator"`
	Timestamp  int64          `json:"timestamp"`
}

// Record is one entry of the append-only audit log. Seq is assigned by the
// exchange inside the same atomic section as the mutation it describes, so
// replaying records in Seq order reconstructs every state transition.
// Exactly one payload pointer is set, selected by Kind.
type Record struct {
	Seq  uint64    `json:"seq"`
	Kind EventKind `json:"kind"`
	Time int64     `json:"time"` // Unix milliseconds

	Deposit        *DepositEvent        `json:"deposit,omitempty"`
	Withdraw       *WithdrawEvent       `json:"withdraw,omitempty"`
	OrderMade      *OrderMadeEvent      `json:"orderMade,omitempty"`
	OrderCancelled *OrderCancelledEvent `json:"orderCancelled,omitempty"`
	Trade          *TradeEvent          `json:"trade,omitempty"`
}

// EventSink receives committed audit records. Publish is called after the
// record and its mutation have been durably committed; sinks must not
// block the caller for long (the exchange lock is already released).
type EventSink interface {
	Publish(rec Record)
}
