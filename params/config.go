package params

import (
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

type Exchange struct {
	// FeeAccount collects the taker fee on every fill. Defaults to the
	// deployer account when unset.
	FeeAccount common.Address

	// FeeRatePercent is the taker fee in whole percent (1 = 1%).
	FeeRatePercent int64
}

type Node struct {
	ListenAddr string
	DataDir    string
	LogFile    string
}

type Config struct {
	Exchange Exchange
	Node     Node
}

// DeployerAddress is the default operator account: it receives seeded
// token supply and collects fees unless FEE_ACCOUNT overrides it.
var DeployerAddress = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func Default() Config {
	return Config{
		Exchange: Exchange{
			FeeAccount:     DeployerAddress,
			FeeRatePercent: 1,
		},
		Node: Node{
			ListenAddr: ":8080",
			DataDir:    "data/exchange.db",
			LogFile:    "data/node.log",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if fee := os.Getenv("FEE_ACCOUNT"); fee != "" && common.IsHexAddress(fee) {
		cfg.Exchange.FeeAccount = common.HexToAddress(fee)
	}
	if rate := os.Getenv("FEE_RATE_PERCENT"); rate != "" {
		if pct, err := strconv.ParseInt(rate, 10, 64); err == nil {
			cfg.Exchange.FeeRatePercent = pct
		}
	}
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.Node.ListenAddr = addr
	}
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.Node.DataDir = dir
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		cfg.Node.LogFile = logFile
	}

	return cfg
}
