package liquidation

import (
	"fmt"

	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
	"orchai/storage"
)

var configKey = []byte("config")

const bidPrefix = "bid/"

// Config is the liquidation policy. SafeRatio scales the borrow limit a
// partial liquidation aims for.
type Config struct {
	Owner                crypto.Address
	OracleContract       crypto.Address
	StableAddr           crypto.Address
	SafeRatio            num.Decimal
	BidFee               num.Decimal
	MaxPremiumRate       num.Decimal
	LiquidationThreshold num.Uint256
	PriceTimeframe       uint64
}

func (c *Config) response() mm.LiquidationConfigResponse {
	return mm.LiquidationConfigResponse{
		Owner:                c.Owner,
		OracleContract:       c.OracleContract,
		StableAddr:           c.StableAddr,
		SafeRatio:            c.SafeRatio,
		BidFee:               c.BidFee,
		MaxPremiumRate:       c.MaxPremiumRate,
		LiquidationThreshold: c.LiquidationThreshold,
		PriceTimeframe:       c.PriceTimeframe,
	}
}

// Bid is stable a bidder has committed to buy one collateral token at a
// discount of PremiumRate.
type Bid struct {
	Amount      num.Uint256
	PremiumRate num.Decimal
}

func loadConfig(kv storage.Reader) (Config, error) {
	var cfg Config
	err := common.MustLoad(kv, configKey, &cfg)
	return cfg, err
}

func saveConfig(kv storage.KV, cfg *Config) error {
	return common.Save(kv, configKey, cfg)
}

// Bids are keyed by bidder first so a bidder's bids list with one prefix
// scan.
func bidderPrefix(bidder crypto.Address) []byte {
	return common.Key(bidPrefix, bidder.Bytes())
}

func bidKey(collateral, bidder crypto.Address) []byte {
	return append(bidderPrefix(bidder), collateral.Bytes()...)
}

func loadBid(kv storage.Reader, collateral, bidder crypto.Address) (Bid, bool, error) {
	var bid Bid
	ok, err := common.Load(kv, bidKey(collateral, bidder), &bid)
	return bid, ok, err
}

func mustLoadBid(kv storage.Reader, collateral, bidder crypto.Address) (Bid, error) {
	bid, ok, err := loadBid(kv, collateral, bidder)
	if err != nil {
		return Bid{}, err
	}
	if !ok {
		return Bid{}, fmt.Errorf("%w: %s bid by %s", ErrNoBid, collateral, bidder)
	}
	return bid, nil
}

// storeBid saves bid, deleting it once it is fully consumed.
func storeBid(kv storage.KV, collateral, bidder crypto.Address, bid *Bid) error {
	if bid.Amount.IsZero() {
		return common.Remove(kv, bidKey(collateral, bidder))
	}
	return common.Save(kv, bidKey(collateral, bidder), bid)
}
