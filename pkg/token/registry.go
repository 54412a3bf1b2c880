package token

import (
	"errors"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

var ErrUnknownToken = errors.New("token: unknown token address")

// DeriveAddress maps a token symbol to a deterministic 20-byte address:
// the last 20 bytes of keccak256(symbol), the same truncation Ethereum
// applies to public keys.
func DeriveAddress(symbol string) common.Address {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(symbol))
	sum := h.Sum(nil)
	return common.BytesToAddress(sum[12:])
}

// Registry holds every deployed token, keyed by address.
type Registry struct {
	mu     sync.RWMutex
	tokens map[common.Address]*Token
}

func NewRegistry() *Registry {
	return &Registry{tokens: make(map[common.Address]*Token)}
}

// Register adds a token. Re-registering an address overwrites it.
func (r *Registry) Register(t *Token) {
	r.mu.Lock()
	r.tokens[t.Address] = t
	r.mu.Unlock()
}

// Get returns the token at addr, or ErrUnknownToken.
func (r *Registry) Get(addr common.Address) (*Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[addr]
	if !ok {
		return nil, ErrUnknownToken
	}
	return t, nil
}

// List returns every registered token, sorted by symbol.
func (r *Registry) List() []*Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Bridge adapts the registry to the exchange's transfer-in/transfer-out
// capability. Custody is the address the exchange holds pooled funds
// under; TransferIn spends the owner's allowance granted to custody.
type Bridge struct {
	registry *Registry
	custody  common.Address
}

func NewBridge(registry *Registry, custody common.Address) *Bridge {
	return &Bridge{registry: registry, custody: custody}
}

// TransferIn pulls amount of token from owner into custody.
func (b *Bridge) TransferIn(tokenAddr, owner common.Address, amount *big.Int) error {
	t, err := b.registry.Get(tokenAddr)
	if err != nil {
		return err
	}
	return t.TransferFrom(b.custody, owner, b.custody, amount)
}

// TransferOut pushes amount of token from custody back to owner.
func (b *Bridge) TransferOut(tokenAddr, owner common.Address, amount *big.Int) error {
	t, err := b.registry.Get(tokenAddr)
	if err != nil {
		return err
	}
	return t.Transfer(b.custody, owner, amount)
}
