package exchange

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MakeOrder posts a resting order: the maker wants amountGet of tokenGet
// in exchange for amountGive of tokenGive. The maker must hold at least
// amountGive of tokenGive on deposit at creation time; the collateral is
// checked but not reserved, so a later withdrawal can leave the order
// unfillable. Returns the new order id (ids start at 1).
func (x *Exchange) MakeOrder(maker, tokenGet common.Address, amountGet *big.Int, tokenGive common.Address, amountGive *big.Int) (uint64, error) {
	if amountGet == nil || amountGet.Sign() <= 0 || amountGive == nil || amountGive.Sign() <= 0 {
		return 0, ErrNonPositiveAmount
	}

	x.mu.Lock()
	rec, id, err := x.makeOrderLocked(maker, tokenGet, amountGet, tokenGive, amountGive)
	x.mu.Unlock()
	if err != nil {
		return 0, err
	}

	x.publish(rec)
	return id, nil
}

func (x *Exchange) makeOrderLocked(maker, tokenGet common.Address, amountGet *big.Int, tokenGive common.Address, amountGive *big.Int) (Record, uint64, error) {
	collateral := x.balanceLocked(BalanceKey{Token: tokenGive, Owner: maker})
	if collateral.Cmp(amountGive) < 0 {
		return Record{}, 0, ErrInsufficientDeposit
	}

	id := x.count + 1
	order := &Order{
		ID:         id,
		Maker:      maker,
		TokenGet:   tokenGet,
		AmountGet:  new(big.Int).Set(amountGet),
		TokenGive:  tokenGive,
		AmountGive: new(big.Int).Set(amountGive),
		CreatedAt:  x.clock.Now().UnixMilli(),
		Status:     OrderOpen,
	}

	rec := x.nextRecord(KindOrderMade)
	rec.OrderMade = &OrderMadeEvent{
		ID:         id,
		Maker:      maker,
		TokenGet:   tokenGet,
		AmountGet:  new(big.Int).Set(amountGet),
		TokenGive:  tokenGive,
		AmountGive: new(big.Int).Set(amountGive),
		Timestamp:  order.CreatedAt,
	}

	if err := x.store.Commit(Mutation{
		Order:      order,
		OrderCount: &id,
		Event:      &rec,
	}); err != nil {
		return Record{}, 0, fmt.Errorf("commit order: %w", err)
	}

	x.orders[id] = order
	x.count = id
	x.seq = rec.Seq
	x.log.Infow("order_made",
		"id", id, "maker", maker.Hex(),
		"token_get", tokenGet.Hex(), "amount_get", amountGet.String(),
		"token_give", tokenGive.Hex(), "amount_give", amountGive.String())
	return rec, id, nil
}

// CancelOrder moves an Open order to its terminal Cancelled state. Only
// the maker may cancel; cancelling never touches the balance table.
func (x *Exchange) CancelOrder(id uint64, actor common.Address) error {
	x.mu.Lock()
	rec, err := x.cancelOrderLocked(id, actor)
	x.mu.Unlock()
	if err != nil {
		return err
	}

	x.publish(rec)
	return nil
}

func (x *Exchange) cancelOrderLocked(id uint64, actor common.Address) (Record, error) {
	order, ok := x.orders[id]
	if !ok {
		return Record{}, ErrOrderNotFound
	}
	if order.Maker != actor {
		return Record{}, ErrNotOwner
	}
	switch order.Status {
	case OrderCancelled:
		return Record{}, ErrOrderCancelled
	case OrderFilled:
		return Record{}, ErrOrderFilled
	}

	rec := x.nextRecord(KindOrderCancelled)
	rec.OrderCancelled = &OrderCancelledEvent{
		ID:         order.ID,
		Maker:      order.Maker,
		TokenGet:   order.TokenGet,
		AmountGet:  new(big.Int).Set(order.AmountGet),
		TokenGive:  order.TokenGive,
		AmountGive: new(big.Int).Set(order.AmountGive),
		Timestamp:  rec.Time,
	}

	cancelled := order.clone()
	cancelled.Status = OrderCancelled

	if err := x.store.Commit(Mutation{
		Order: cancelled,
		Event: &rec,
	}); err != nil {
		return Record{}, fmt.Errorf("commit cancel: %w", err)
	}

	order.Status = OrderCancelled
	x.seq = rec.Seq
	x.log.Infow("order_cancelled", "id", id, "maker", actor.Hex())
	return rec, nil
}

// FillOrder executes an Open order against the taker's custodial balance.
// The taker pays amountGet plus the taker fee in tokenGet; the maker
// receives amountGet, the fee account receives the fee, and the maker's
// amountGive of tokenGive moves to the taker. The five balance moves and
// the status change commit as one transition; any failed debit aborts
// with no mutation at all. A maker whose collateral evaporated since
// creation surfaces as ErrInsufficientBalance.
func (x *Exchange) FillOrder(id uint64, taker common.Address) error {
	x.mu.Lock()
	rec, err := x.fillOrderLocked(id, taker)
	x.mu.Unlock()
	if err != nil {
		return err
	}

	x.publish(rec)
	return nil
}

func (x *Exchange) fillOrderLocked(id uint64, taker common.Address) (Record, error) {
	order, ok := x.orders[id]
	if !ok {
		return Record{}, ErrOrderNotFound
	}
	switch order.Status {
	case OrderCancelled:
		return Record{}, ErrOrderCancelled
	case OrderFilled:
		return Record{}, ErrOrderFilled
	}

	fee := x.feeRate.Apply(order.AmountGet)
	takerCost := new(big.Int).Add(order.AmountGet, fee)

	st := x.newStage()
	if err := st.debit(BalanceKey{Token: order.TokenGet, Owner: taker}, takerCost); err != nil {
		return Record{}, err
	}
	st.credit(BalanceKey{Token: order.TokenGet, Owner: order.Maker}, order.AmountGet)
	st.credit(BalanceKey{Token: order.TokenGet, Owner: x.feeAccount}, fee)
	if err := st.debit(BalanceKey{Token: order.TokenGive, Owner: order.Maker}, order.AmountGive); err != nil {
		return Record{}, err
	}
	st.credit(BalanceKey{Token: order.TokenGive, Owner: taker}, order.AmountGive)

	rec := x.nextRecord(KindTrade)
	rec.Trade = &TradeEvent{
		ID:         order.ID,
		Taker:      taker,
		TokenGet:   order.TokenGet,
		AmountGet:  new(big.Int).Set(order.AmountGet),
		TokenGive:  order.TokenGive,
		AmountGive: new(big.Int).Set(order.AmountGive),
		Creator:    order.Maker,
		Timestamp:  rec.Time,
	}

	filled := order.clone()
	filled.Status = OrderFilled

	if err := x.store.Commit(Mutation{
		Balances: st.touched,
		Order:    filled,
		Event:    &rec,
	}); err != nil {
		return Record{}, fmt.Errorf("commit fill: %w", err)
	}

	st.apply()
	order.Status = OrderFilled
	x.seq = rec.Seq
	x.log.Infow("trade",
		"id", id, "taker", taker.Hex(), "maker", order.Maker.Hex(),
		"amount_get", order.AmountGet.String(), "amount_give", order.AmountGive.String(),
		"fee", fee.String())
	return rec, nil
}
