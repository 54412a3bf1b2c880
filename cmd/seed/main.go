// Command seed stands up a throwaway exchange, deposits funds for two
// users and posts a batch of orders, filling a handful of them. Useful
// for generating a realistic event log and order book to poke at.
package main

import (
	"log"
	"math/rand"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/jeffreyhu16/nexchange/params"
	"github.com/jeffreyhu16/nexchange/pkg/exchange"
	"github.com/jeffreyhu16/nexchange/pkg/storage"
	"github.com/jeffreyhu16/nexchange/pkg/token"
	"github.com/jeffreyhu16/nexchange/pkg/util"
)

func main() {
	logger, err := util.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data/seed.db"
	}
	os.RemoveAll(dataDir)

	user1 := params.DeployerAddress
	user2 := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	registry := token.NewRegistry()
	supply := token.Ether(1_000_000)
	nxp := token.New("Nexus Pool", "NXP", supply, user1, logger)
	meth := token.New("Mock Ether", "mETH", supply, user1, logger)
	registry.Register(nxp)
	registry.Register(meth)
	registry.Register(token.New("Mock Dai", "mDAI", supply, user1, logger))

	custody := token.DeriveAddress("nexchange:custody")
	bridge := token.NewBridge(registry, custody)

	store, err := storage.Open(dataDir)
	if err != nil {
		sugar.Fatalw("storage_open_failed", "err", err)
	}
	defer store.Close()

	feeRate, err := exchange.FeeRateFromPercent(1)
	if err != nil {
		sugar.Fatalw("bad_fee_rate", "err", err)
	}
	x, err := exchange.New(user1, feeRate, bridge, store, util.RealClock{}, logger)
	if err != nil {
		sugar.Fatalw("exchange_init_failed", "err", err)
	}

	amount := token.Ether(1000)

	// user1 deposits NXP
	must(sugar, nxp.Approve(user1, custody, amount))
	must(sugar, x.Deposit(nxp.Address, user1, amount))
	sugar.Infow("seeded_deposit", "user", user1.Hex(), "token", "NXP")

	// user2 receives mETH from user1 and deposits it
	must(sugar, meth.Transfer(user1, user2, amount))
	must(sugar, meth.Approve(user2, custody, amount))
	must(sugar, x.Deposit(meth.Address, user2, amount))
	sugar.Infow("seeded_deposit", "user", user2.Hex(), "token", "mETH")

	// user1 posts 15 orders wanting mETH for NXP; user2 fills the first 5
	for i := 0; i < 15; i++ {
		id, err := x.MakeOrder(user1,
			meth.Address, token.Ether(rand.Int63n(9)+1),
			nxp.Address, token.Ether(rand.Int63n(10)+10))
		must(sugar, err)
		sugar.Infow("order_seeded", "id", id, "maker", user1.Hex())
		if i < 5 {
			must(sugar, x.FillOrder(id, user2))
			sugar.Infow("order_filled", "id", id, "taker", user2.Hex())
		}
	}

	// user2 posts 15 orders the other way; user1 fills the first 5
	for i := 0; i < 15; i++ {
		id, err := x.MakeOrder(user2,
			nxp.Address, token.Ether(rand.Int63n(10)+10),
			meth.Address, token.Ether(rand.Int63n(9)+1))
		must(sugar, err)
		sugar.Infow("order_seeded", "id", id, "maker", user2.Hex())
		if i < 5 {
			must(sugar, x.FillOrder(id, user1))
			sugar.Infow("order_filled", "id", id, "taker", user1.Hex())
		}
	}

	sugar.Infow("seed_complete",
		"orders", x.OrderCount(),
		"open", len(x.OpenOrders()),
		"data_dir", dataDir)
}

func must(sugar *zap.SugaredLogger, err error) {
	if err != nil {
		sugar.Fatalw("seed_failed", "err", err)
	}
}
