package market

import (
	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/common"
	"orchai/storage"
)

// InitialDepositAmount is the stable balance a market must hold when it is
// instantiated. The same amount of receipt tokens is minted to the market
// itself so the exchange rate starts at one.
const InitialDepositAmount = 1_000_000

var (
	configKey      = []byte("config")
	stateKey       = []byte("state")
	borrowerPrefix = "borrower/"
)

// Config is the market's wiring and policy.
type Config struct {
	ContractAddr         crypto.Address
	OwnerAddr            crypto.Address
	ATerraContract       crypto.Address
	InterestModel        crypto.Address
	DistributionModel    crypto.Address
	OverseerContract     crypto.Address
	CollectorContract    crypto.Address
	DistributorContract  crypto.Address
	StableAddr           crypto.Address
	MaxBorrowFactor      num.Decimal
	RewardClaimThreshold num.Uint256
	TaxRate              num.Decimal
	TaxCap               num.Uint256
}

// Tax returns the transfer tax applied to stable leaving the market.
func (c *Config) Tax() common.TaxPolicy {
	return common.TaxPolicy{Rate: c.TaxRate, Cap: c.TaxCap}
}

func (c *Config) contractsRegistered() bool {
	return !c.OverseerContract.IsZero() ||
		!c.InterestModel.IsZero() ||
		!c.DistributionModel.IsZero() ||
		!c.CollectorContract.IsZero() ||
		!c.DistributorContract.IsZero()
}

// State is the global accrual record. Both watermarks only move forward.
type State struct {
	TotalLiabilities    num.Decimal
	TotalReserves       num.Decimal
	LastInterestUpdated uint64
	LastRewardUpdated   uint64
	GlobalInterestIndex num.Decimal
	GlobalRewardIndex   num.Decimal
	AncEmissionRate     num.Decimal
	PrevATerraSupply    num.Uint256
	PrevExchangeRate    num.Decimal
}

// NewState returns the state of a market created at height.
func NewState(height uint64, emissionRate num.Decimal) State {
	return State{
		TotalLiabilities:    num.ZeroDec(),
		TotalReserves:       num.ZeroDec(),
		LastInterestUpdated: height,
		LastRewardUpdated:   height,
		GlobalInterestIndex: num.OneDec(),
		GlobalRewardIndex:   num.ZeroDec(),
		AncEmissionRate:     emissionRate,
		PrevATerraSupply:    num.ZeroUint(),
		PrevExchangeRate:    num.OneDec(),
	}
}

// BorrowerInfo is a borrower's liability. Records are never deleted.
type BorrowerInfo struct {
	LoanAmount     num.Uint256
	InterestIndex  num.Decimal
	RewardIndex    num.Decimal
	PendingRewards num.Decimal
}

func loadConfig(kv storage.Reader) (Config, error) {
	var cfg Config
	err := common.MustLoad(kv, configKey, &cfg)
	return cfg, err
}

func saveConfig(kv storage.KV, cfg *Config) error {
	return common.Save(kv, configKey, cfg)
}

func loadState(kv storage.Reader) (State, error) {
	var state State
	err := common.MustLoad(kv, stateKey, &state)
	return state, err
}

func saveState(kv storage.KV, state *State) error {
	return common.Save(kv, stateKey, state)
}

func borrowerKey(addr crypto.Address) []byte {
	return common.Key(borrowerPrefix, addr.Bytes())
}

// loadBorrower returns the stored liability of addr. A borrower seen for the
// first time starts at the current global indices.
func loadBorrower(kv storage.Reader, addr crypto.Address, state *State) (BorrowerInfo, error) {
	var info BorrowerInfo
	ok, err := common.Load(kv, borrowerKey(addr), &info)
	if err != nil {
		return BorrowerInfo{}, err
	}
	if !ok {
		info = BorrowerInfo{
			LoanAmount:     num.ZeroUint(),
			InterestIndex:  state.GlobalInterestIndex,
			RewardIndex:    state.GlobalRewardIndex,
			PendingRewards: num.ZeroDec(),
		}
	}
	return info, nil
}

func saveBorrower(kv storage.KV, addr crypto.Address, info *BorrowerInfo) error {
	return common.Save(kv, borrowerKey(addr), info)
}
