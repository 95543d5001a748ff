package custody

import (
	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
	"orchai/storage"
)

var configKey = []byte("config")

const borrowerPrefix = "borrower/"

// Config wires a custody to its collateral token and the contracts that may
// move collateral on a borrower's behalf.
type Config struct {
	ContractAddr        crypto.Address
	Owner               crypto.Address
	CollateralToken     crypto.Address
	OverseerContract    crypto.Address
	MarketContract      crypto.Address
	LiquidationContract crypto.Address
	StableAddr          crypto.Address
	BAssetName          string
	BAssetSymbol        string
	BAssetDecimals      uint8
	RewardsThreshold    num.Uint256
}

func (c *Config) response() mm.CustodyConfigResponse {
	return mm.CustodyConfigResponse{
		Owner:               c.Owner,
		CollateralToken:     c.CollateralToken,
		OverseerContract:    c.OverseerContract,
		MarketContract:      c.MarketContract,
		LiquidationContract: c.LiquidationContract,
		StableAddr:          c.StableAddr,
		BAssetInfo: mm.BAssetInfo{
			Name:     c.BAssetName,
			Symbol:   c.BAssetSymbol,
			Decimals: c.BAssetDecimals,
		},
		RewardsThreshold: c.RewardsThreshold,
	}
}

// BorrowerInfo is a borrower's collateral position. Spendable never exceeds
// Balance; the difference is locked by the overseer.
type BorrowerInfo struct {
	Balance   num.Uint256
	Spendable num.Uint256
}

// Locked returns the part of the balance held by the overseer.
func (b *BorrowerInfo) Locked() (num.Uint256, error) {
	return b.Balance.Sub(b.Spendable)
}

func loadConfig(kv storage.Reader) (Config, error) {
	var cfg Config
	err := common.MustLoad(kv, configKey, &cfg)
	return cfg, err
}

func saveConfig(kv storage.KV, cfg *Config) error {
	return common.Save(kv, configKey, cfg)
}

func borrowerKey(addr crypto.Address) []byte {
	return common.Key(borrowerPrefix, addr.Bytes())
}

// loadBorrower returns a zero position for unknown borrowers.
func loadBorrower(kv storage.Reader, addr crypto.Address) (BorrowerInfo, error) {
	info := BorrowerInfo{Balance: num.ZeroUint(), Spendable: num.ZeroUint()}
	if _, err := common.Load(kv, borrowerKey(addr), &info); err != nil {
		return BorrowerInfo{}, err
	}
	return info, nil
}

func saveBorrower(kv storage.KV, addr crypto.Address, info *BorrowerInfo) error {
	return common.Save(kv, borrowerKey(addr), info)
}

func removeBorrower(kv storage.KV, addr crypto.Address) error {
	return common.Remove(kv, borrowerKey(addr))
}
