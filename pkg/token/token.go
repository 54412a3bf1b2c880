// Package token provides the in-memory fungible-token collaborator that
// backs the exchange's custody pool: ERC-20 style balances, allowances
// and transfers, without any chain underneath.
package token

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrZeroAddressTransfer   = errors.New("token: transferring to zero address")
	ErrZeroAddressApproval   = errors.New("token: approving zero address")
)

// Token is a fungible token with 18-decimal precision. The full supply is
// minted to the deployer at construction. All mutations are atomic under
// one lock and no balance or allowance ever goes negative.
type Token struct {
	Address  common.Address
	Name     string
	Symbol   string
	Decimals uint8

	mu          sync.RWMutex
	totalSupply *big.Int
	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int

	log *zap.SugaredLogger
}

// New mints supply to the deployer. The token address is derived from the
// symbol, so a given symbol always lands at the same address.
func New(name, symbol string, supply *big.Int, deployer common.Address, logger *zap.Logger) *Token {
	t := &Token{
		Address:     DeriveAddress(symbol),
		Name:        name,
		Symbol:      symbol,
		Decimals:    18,
		totalSupply: new(big.Int).Set(supply),
		balances:    make(map[common.Address]*big.Int),
		allowances:  make(map[common.Address]map[common.Address]*big.Int),
		log:         logger.Sugar().Named("token").With("symbol", symbol),
	}
	t.balances[deployer] = new(big.Int).Set(supply)
	t.log.Infow("token_deployed",
		"address", t.Address.Hex(), "supply", supply.String(), "deployer", deployer.Hex())
	return t
}

// TotalSupply returns the fixed minted supply.
func (t *Token) TotalSupply() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.totalSupply)
}

// BalanceOf returns the holder's balance, zero for unknown holders.
func (t *Token) BalanceOf(owner common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.balanceLocked(owner))
}

// Allowance returns what spender may move on the owner's behalf.
func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.allowanceLocked(owner, spender))
}

// Transfer moves amount from the sender to the receiver.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddressTransfer
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transferLocked(from, to, amount)
}

// Approve lets spender move up to amount on the owner's behalf. Each call
// replaces the previous allowance.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) error {
	if spender == (common.Address{}) {
		return ErrZeroAddressApproval
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	grants, ok := t.allowances[owner]
	if !ok {
		grants = make(map[common.Address]*big.Int)
		t.allowances[owner] = grants
	}
	grants[spender] = new(big.Int).Set(amount)
	t.log.Debugw("approval",
		"owner", owner.Hex(), "spender", spender.Hex(), "amount", amount.String())
	return nil
}

// TransferFrom moves amount from the owner to the receiver using the
// spender's allowance. The allowance is debited before the transfer, and
// restored untouched if the transfer fails.
func (t *Token) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddressTransfer
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	allowance := t.allowanceLocked(from, spender)
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := t.transferLocked(from, to, amount); err != nil {
		return err
	}
	t.allowances[from][spender] = new(big.Int).Sub(allowance, amount)
	return nil
}

func (t *Token) transferLocked(from, to common.Address, amount *big.Int) error {
	balance := t.balanceLocked(from)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	t.balances[from] = new(big.Int).Sub(balance, amount)
	t.balances[to] = new(big.Int).Add(t.balanceLocked(to), amount)
	t.log.Debugw("transfer",
		"from", from.Hex(), "to", to.Hex(), "amount", amount.String())
	return nil
}

func (t *Token) balanceLocked(owner common.Address) *big.Int {
	if b, ok := t.balances[owner]; ok {
		return b
	}
	return big.NewInt(0)
}

func (t *Token) allowanceLocked(owner, spender common.Address) *big.Int {
	if grants, ok := t.allowances[owner]; ok {
		if a, ok := grants[spender]; ok {
			return a
		}
	}
	return big.NewInt(0)
}

// Ether scales a whole-token amount to its 18-decimal representation.
func Ether(n int64) *big.Int {
	wei := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return wei.Mul(wei, big.NewInt(n))
}
