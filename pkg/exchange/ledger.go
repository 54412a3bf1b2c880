package exchange

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BalanceKey identifies one custodial balance entry: (asset, owner).
type BalanceKey struct {
	Token common.Address
	Owner common.Address
}

// AssetBridge is the narrow capability the custody ledger needs from the
// external token collaborator. TransferIn moves value from the owner into
// custody (transferFrom against the owner's allowance); TransferOut moves
// value from custody back to the owner. Both are single blocking steps
// invoked inside the exchange's critical section.
type AssetBridge interface {
	TransferIn(token, owner common.Address, amount *big.Int) error
	TransferOut(token, owner common.Address, amount *big.Int) error
}

// Deposit moves amount of token from owner into custody and credits the
// owner's custodial balance. The credit happens only after the external
// transfer-in succeeds; a failed transfer leaves the ledger untouched.
func (x *Exchange) Deposit(token, owner common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrNonPositiveAmount
	}

	x.mu.Lock()
	rec, err := x.depositLocked(token, owner, amount)
	x.mu.Unlock()
	if err != nil {
		return err
	}

	x.publish(rec)
	return nil
}

func (x *Exchange) depositLocked(token, owner common.Address, amount *big.Int) (Record, error) {
	if err := x.bridge.TransferIn(token, owner, amount); err != nil {
		return Record{}, fmt.Errorf("transfer in: %w", err)
	}

	key := BalanceKey{Token: token, Owner: owner}
	balance := new(big.Int).Add(x.balanceLocked(key), amount)

	rec := x.nextRecord(KindDeposit)
	rec.Deposit = &DepositEvent{
		Token:   token,
		Owner:   owner,
		Amount:  new(big.Int).Set(amount),
		Balance: balance,
	}

	if err := x.store.Commit(Mutation{
		Balances: map[BalanceKey]*big.Int{key: balance},
		Event:    &rec,
	}); err != nil {
		return Record{}, fmt.Errorf("commit deposit: %w", err)
	}

	x.balances[key] = balance
	x.seq = rec.Seq
	x.log.Infow("deposit",
		"token", token.Hex(), "owner", owner.Hex(),
		"amount", amount.String(), "balance", balance.String())
	return rec, nil
}

// Withdraw debits the owner's custodial balance and moves amount of token
// out of custody back to the owner. Fails with ErrInsufficientBalance if
// the balance cannot cover the amount; a failed transfer-out aborts the
// whole operation with no observable debit.
func (x *Exchange) Withdraw(token, owner common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrNonPositiveAmount
	}

	x.mu.Lock()
	rec, err := x.withdrawLocked(token, owner, amount)
	x.mu.Unlock()
	if err != nil {
		return err
	}

	x.publish(rec)
	return nil
}

func (x *Exchange) withdrawLocked(token, owner common.Address, amount *big.Int) (Record, error) {
	key := BalanceKey{Token: token, Owner: owner}
	current := x.balanceLocked(key)
	if current.Cmp(amount) < 0 {
		return Record{}, ErrInsufficientBalance
	}

	if err := x.bridge.TransferOut(token, owner, amount); err != nil {
		return Record{}, fmt.Errorf("transfer out: %w", err)
	}

	balance := new(big.Int).Sub(current, amount)

	rec := x.nextRecord(KindWithdraw)
	rec.Withdraw = &WithdrawEvent{
		Token:   token,
		Owner:   owner,
		Amount:  new(big.Int).Set(amount),
		Balance: balance,
	}

	if err := x.store.Commit(Mutation{
		Balances: map[BalanceKey]*big.Int{key: balance},
		Event:    &rec,
	}); err != nil {
		return Record{}, fmt.Errorf("commit withdraw: %w", err)
	}

	x.balances[key] = balance
	x.seq = rec.Seq
	x.log.Infow("withdraw",
		"token", token.Hex(), "owner", owner.Hex(),
		"amount", amount.String(), "balance", balance.String())
	return rec, nil
}

// BalanceOf returns the custodial balance for (token, owner). Unknown
// entries read as zero. The returned value is a copy.
func (x *Exchange) BalanceOf(token, owner common.Address) *big.Int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return new(big.Int).Set(x.balanceLocked(BalanceKey{Token: token, Owner: owner}))
}

// balanceLocked returns the live balance entry, zero if absent.
// Callers must not mutate the returned value.
func (x *Exchange) balanceLocked(key BalanceKey) *big.Int {
	if b, ok := x.balances[key]; ok {
		return b
	}
	return zero
}

var zero = big.NewInt(0)

// stage is a working set of balance mutations for multi-entry settlement.
// Reads fall through to the live table, so repeated touches of the same
// key (self-trade, feeAccount == maker) compose correctly. Nothing is
// visible outside the stage until its map is committed.
type stage struct {
	x       *Exchange
	touched map[BalanceKey]*big.Int
}

func (x *Exchange) newStage() *stage {
	return &stage{x: x, touched: make(map[BalanceKey]*big.Int)}
}

func (s *stage) get(key BalanceKey) *big.Int {
	if v, ok := s.touched[key]; ok {
		return v
	}
	return new(big.Int).Set(s.x.balanceLocked(key))
}

func (s *stage) credit(key BalanceKey, amount *big.Int) {
	s.touched[key] = new(big.Int).Add(s.get(key), amount)
}

func (s *stage) debit(key BalanceKey, amount *big.Int) error {
	current := s.get(key)
	if current.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	s.touched[key] = new(big.Int).Sub(current, amount)
	return nil
}

// apply writes the staged values into the live table
func (s *stage) apply() {
	for key, value := range s.touched {
		s.x.balances[key] = value
	}
}
