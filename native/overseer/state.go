package overseer

import (
	"fmt"

	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
	"orchai/storage"
)

var (
	configKey     = []byte("config")
	epochStateKey = []byte("epoch")
)

const (
	whitelistPrefix  = "whitelist/"
	collateralPrefix = "collaterals/"
)

// Config is the overseer's wiring and deposit rate policy. Rates are per
// block.
type Config struct {
	ContractAddr             crypto.Address
	OwnerAddr                crypto.Address
	OracleContract           crypto.Address
	MarketContract           crypto.Address
	LiquidationContract      crypto.Address
	CollectorContract        crypto.Address
	StableAddr               crypto.Address
	EpochPeriod              uint64
	ThresholdDepositRate     num.Decimal
	TargetDepositRate        num.Decimal
	BufferDistributionFactor num.Decimal
	AncPurchaseFactor        num.Decimal
	PriceTimeframe           uint64
}

func (c *Config) response() mm.OverseerConfigResponse {
	return mm.OverseerConfigResponse{
		OwnerAddr:                c.OwnerAddr,
		OracleContract:           c.OracleContract,
		MarketContract:           c.MarketContract,
		LiquidationContract:      c.LiquidationContract,
		CollectorContract:        c.CollectorContract,
		StableAddr:               c.StableAddr,
		EpochPeriod:              c.EpochPeriod,
		ThresholdDepositRate:     c.ThresholdDepositRate,
		TargetDepositRate:        c.TargetDepositRate,
		BufferDistributionFactor: c.BufferDistributionFactor,
		AncPurchaseFactor:        c.AncPurchaseFactor,
		PriceTimeframe:           c.PriceTimeframe,
	}
}

// EpochState is the snapshot taken at the end of the last epoch operation.
type EpochState struct {
	DepositRate        num.Decimal
	PrevATerraSupply   num.Uint256
	PrevExchangeRate   num.Decimal
	PrevInterestBuffer num.Uint256
	LastExecutedHeight uint64
}

// WhitelistElem describes an accepted collateral token.
type WhitelistElem struct {
	Name            string
	Symbol          string
	MaxLtv          num.Decimal
	CustodyContract crypto.Address
}

type collateralRecord struct {
	Collaterals mm.Collaterals
}

func loadConfig(kv storage.Reader) (Config, error) {
	var cfg Config
	err := common.MustLoad(kv, configKey, &cfg)
	return cfg, err
}

func saveConfig(kv storage.KV, cfg *Config) error {
	return common.Save(kv, configKey, cfg)
}

func loadEpochState(kv storage.Reader) (EpochState, error) {
	var state EpochState
	err := common.MustLoad(kv, epochStateKey, &state)
	return state, err
}

func saveEpochState(kv storage.KV, state *EpochState) error {
	return common.Save(kv, epochStateKey, state)
}

func whitelistKey(token crypto.Address) []byte {
	return common.Key(whitelistPrefix, token.Bytes())
}

func loadWhitelistElem(kv storage.Reader, token crypto.Address) (WhitelistElem, error) {
	var elem WhitelistElem
	ok, err := common.Load(kv, whitelistKey(token), &elem)
	if err != nil {
		return WhitelistElem{}, err
	}
	if !ok {
		return WhitelistElem{}, fmt.Errorf("%w: %s", ErrNotWhitelisted, token)
	}
	return elem, nil
}

func saveWhitelistElem(kv storage.KV, token crypto.Address, elem *WhitelistElem) error {
	return common.Save(kv, whitelistKey(token), elem)
}

func collateralKey(borrower crypto.Address) []byte {
	return common.Key(collateralPrefix, borrower.Bytes())
}

// loadCollaterals returns the tokens a borrower has locked, possibly none.
func loadCollaterals(kv storage.Reader, borrower crypto.Address) (mm.Collaterals, error) {
	var rec collateralRecord
	if _, err := common.Load(kv, collateralKey(borrower), &rec); err != nil {
		return nil, err
	}
	return rec.Collaterals, nil
}

func saveCollaterals(kv storage.KV, borrower crypto.Address, cs mm.Collaterals) error {
	if len(cs) == 0 {
		return common.Remove(kv, collateralKey(borrower))
	}
	return common.Save(kv, collateralKey(borrower), &collateralRecord{Collaterals: cs})
}
