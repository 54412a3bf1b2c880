package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var (
	deployer = common.HexToAddress("0x1100000000000000000000000000000000000000")
	receiver = common.HexToAddress("0x2200000000000000000000000000000000000000")
	spender  = common.HexToAddress("0x3300000000000000000000000000000000000000")
)

func newTestToken(t *testing.T) *Token {
	t.Helper()
	return New("Nexus Pool", "NXP", Ether(1_000_000), deployer, zap.NewNop())
}

func TestNewMintsSupplyToDeployer(t *testing.T) {
	tok := newTestToken(t)

	if tok.Name != "Nexus Pool" || tok.Symbol != "NXP" || tok.Decimals != 18 {
		t.Errorf("metadata mismatch: %s %s %d", tok.Name, tok.Symbol, tok.Decimals)
	}
	if got := tok.TotalSupply(); got.Cmp(Ether(1_000_000)) != 0 {
		t.Errorf("total supply = %s", got)
	}
	if got := tok.BalanceOf(deployer); got.Cmp(Ether(1_000_000)) != 0 {
		t.Errorf("deployer balance = %s", got)
	}
}

func TestDeriveAddressIsStable(t *testing.T) {
	a := DeriveAddress("NXP")
	b := DeriveAddress("NXP")
	if a != b {
		t.Errorf("address not deterministic: %s vs %s", a.Hex(), b.Hex())
	}
	if a == DeriveAddress("mETH") {
		t.Error("distinct symbols collided")
	}
	if a == (common.Address{}) {
		t.Error("derived zero address")
	}
}

func TestTransfer(t *testing.T) {
	tok := newTestToken(t)

	if err := tok.Transfer(deployer, receiver, Ether(100)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := tok.BalanceOf(receiver); got.Cmp(Ether(100)) != 0 {
		t.Errorf("receiver balance = %s", got)
	}
	want := new(big.Int).Sub(Ether(1_000_000), Ether(100))
	if got := tok.BalanceOf(deployer); got.Cmp(want) != 0 {
		t.Errorf("deployer balance = %s", got)
	}
}

func TestTransferErrors(t *testing.T) {
	tok := newTestToken(t)

	if err := tok.Transfer(receiver, deployer, Ether(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("overdraw: got %v, want ErrInsufficientBalance", err)
	}
	if err := tok.Transfer(deployer, common.Address{}, Ether(1)); !errors.Is(err, ErrZeroAddressTransfer) {
		t.Errorf("zero address: got %v, want ErrZeroAddressTransfer", err)
	}
}

func TestApproveAndTransferFrom(t *testing.T) {
	tok := newTestToken(t)

	if err := tok.Approve(deployer, spender, Ether(500)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := tok.Allowance(deployer, spender); got.Cmp(Ether(500)) != 0 {
		t.Errorf("allowance = %s", got)
	}

	if err := tok.TransferFrom(spender, deployer, receiver, Ether(200)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if got := tok.BalanceOf(receiver); got.Cmp(Ether(200)) != 0 {
		t.Errorf("receiver balance = %s", got)
	}
	// allowance debited by the moved amount
	if got := tok.Allowance(deployer, spender); got.Cmp(Ether(300)) != 0 {
		t.Errorf("remaining allowance = %s", got)
	}
}

func TestTransferFromErrors(t *testing.T) {
	tok := newTestToken(t)

	// no allowance at all
	if err := tok.TransferFrom(spender, deployer, receiver, Ether(1)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Errorf("no allowance: got %v, want ErrInsufficientAllowance", err)
	}

	// allowance exceeds balance: the transfer itself must fail and the
	// allowance must stay untouched
	poor := common.HexToAddress("0x4400000000000000000000000000000000000000")
	if err := tok.Approve(poor, spender, Ether(10)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := tok.TransferFrom(spender, poor, receiver, Ether(5)); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("overdraw: got %v, want ErrInsufficientBalance", err)
	}
	if got := tok.Allowance(poor, spender); got.Cmp(Ether(10)) != 0 {
		t.Errorf("allowance changed on failed transfer: %s", got)
	}

	if err := tok.Approve(deployer, common.Address{}, Ether(1)); !errors.Is(err, ErrZeroAddressApproval) {
		t.Errorf("zero spender: got %v, want ErrZeroAddressApproval", err)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	tok := newTestToken(t)
	reg.Register(tok)

	got, err := reg.Get(tok.Address)
	if err != nil || got != tok {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if _, err := reg.Get(receiver); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("unknown lookup: got %v, want ErrUnknownToken", err)
	}

	reg.Register(New("Mock Ether", "mETH", Ether(1), deployer, zap.NewNop()))
	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("list length = %d", len(list))
	}
	// sorted by symbol
	if list[0].Symbol != "NXP" || list[1].Symbol != "mETH" {
		t.Errorf("list order: %s, %s", list[0].Symbol, list[1].Symbol)
	}
}

func TestBridge(t *testing.T) {
	reg := NewRegistry()
	tok := newTestToken(t)
	reg.Register(tok)

	custody := common.HexToAddress("0xCC00000000000000000000000000000000000000")
	bridge := NewBridge(reg, custody)

	// transfer-in requires an allowance granted to custody
	if err := bridge.TransferIn(tok.Address, deployer, Ether(10)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Errorf("unapproved transfer-in: got %v", err)
	}

	if err := tok.Approve(deployer, custody, Ether(10)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := bridge.TransferIn(tok.Address, deployer, Ether(10)); err != nil {
		t.Fatalf("transfer-in: %v", err)
	}
	if got := tok.BalanceOf(custody); got.Cmp(Ether(10)) != 0 {
		t.Errorf("custody balance = %s", got)
	}

	if err := bridge.TransferOut(tok.Address, receiver, Ether(4)); err != nil {
		t.Fatalf("transfer-out: %v", err)
	}
	if got := tok.BalanceOf(receiver); got.Cmp(Ether(4)) != 0 {
		t.Errorf("receiver balance = %s", got)
	}

	// unknown token address
	if err := bridge.TransferIn(receiver, deployer, Ether(1)); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("unknown token: got %v", err)
	}
}
