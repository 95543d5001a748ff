// Package genesis describes and bootstraps a money-market deployment: the
// stable and reward tokens, the oracle, both rate models, the market with its
// receipt token, the overseer, one custody per collateral, the liquidation
// contract and the reward distributor.
package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/market"
	mm "orchai/native/moneymarket"
)

// Spec is the JSON genesis document. Amounts and rates are decimal strings;
// accounts are bech32 addresses or "@name" development aliases.
type Spec struct {
	GenesisTime   string `json:"genesisTime"`
	ChainID       string `json:"chainId"`
	InitialHeight uint64 `json:"initialHeight,omitempty"`
	Owner         string `json:"owner"`
	Collector     string `json:"collector,omitempty"`

	Stable            TokenSpec             `json:"stable"`
	RewardToken       TokenSpec             `json:"rewardToken"`
	Market            MarketSpec            `json:"market"`
	InterestModel     InterestModelSpec     `json:"interestModel"`
	DistributionModel DistributionModelSpec `json:"distributionModel"`
	Overseer          OverseerSpec          `json:"overseer"`
	Liquidation       LiquidationSpec       `json:"liquidation"`
	Distributor       DistributorSpec       `json:"distributor"`
	Collaterals       []CollateralSpec      `json:"collaterals"`

	genesisTimestamp time.Time
	owner            crypto.Address
	collector        crypto.Address
}

type TokenSpec struct {
	Name     string            `json:"name"`
	Symbol   string            `json:"symbol"`
	Decimals uint8             `json:"decimals"`
	Alloc    map[string]string `json:"alloc,omitempty"`

	balances []mm.Coin
}

type MarketSpec struct {
	AncEmissionRate      string `json:"ancEmissionRate"`
	MaxBorrowFactor      string `json:"maxBorrowFactor"`
	RewardClaimThreshold string `json:"rewardClaimThreshold,omitempty"`
	TaxRate              string `json:"taxRate,omitempty"`
	TaxCap               string `json:"taxCap,omitempty"`

	emissionRate   num.Decimal
	maxBorrow      num.Decimal
	claimThreshold num.Uint256
	taxRate        num.Decimal
	taxCap         num.Uint256
}

type InterestModelSpec struct {
	BaseRate           string `json:"baseRate"`
	InterestMultiplier string `json:"interestMultiplier"`

	baseRate   num.Decimal
	multiplier num.Decimal
}

type DistributionModelSpec struct {
	EmissionCap         string `json:"emissionCap"`
	EmissionFloor       string `json:"emissionFloor"`
	IncrementMultiplier string `json:"incrementMultiplier"`
	DecrementMultiplier string `json:"decrementMultiplier"`

	cap, floor, inc, dec num.Decimal
}

type OverseerSpec struct {
	EpochPeriod              uint64 `json:"epochPeriod"`
	ThresholdDepositRate     string `json:"thresholdDepositRate"`
	TargetDepositRate        string `json:"targetDepositRate"`
	BufferDistributionFactor string `json:"bufferDistributionFactor"`
	AncPurchaseFactor        string `json:"ancPurchaseFactor"`
	PriceTimeframe           uint64 `json:"priceTimeframe"`

	threshold, target, buffer, purchase num.Decimal
}

type LiquidationSpec struct {
	SafeRatio            string `json:"safeRatio"`
	BidFee               string `json:"bidFee"`
	MaxPremiumRate       string `json:"maxPremiumRate"`
	LiquidationThreshold string `json:"liquidationThreshold"`
	PriceTimeframe       uint64 `json:"priceTimeframe"`

	safeRatio, bidFee, maxPremium num.Decimal
	threshold                     num.Uint256
}

type DistributorSpec struct {
	SpendLimit string `json:"spendLimit"`
	// Reserve is minted to the distributor as its reward treasury.
	Reserve string `json:"reserve,omitempty"`

	spendLimit num.Uint256
	reserve    num.Uint256
}

type CollateralSpec struct {
	Token            TokenSpec `json:"token"`
	MaxLtv           string    `json:"maxLtv"`
	Feeder           string    `json:"feeder"`
	InitialPrice     string    `json:"initialPrice,omitempty"`
	RewardsThreshold string    `json:"rewardsThreshold,omitempty"`

	maxLtv           num.Decimal
	feeder           crypto.Address
	price            *num.Decimal
	rewardsThreshold num.Uint256
}

// LoadSpec reads and validates the genesis document at path.
func LoadSpec(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseSpec decodes and validates a genesis document. Unknown fields are
// rejected.
func ParseSpec(raw []byte) (*Spec, error) {
	var spec Spec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *Spec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

// Height is the block height the deployment is created at.
func (s *Spec) Height() uint64 {
	if s.InitialHeight == 0 {
		return 1
	}
	return s.InitialHeight
}

// Validate parses every field. It must succeed before the spec is built.
func (s *Spec) Validate() error {
	ts, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = ts
	if strings.TrimSpace(s.ChainID) == "" {
		return fmt.Errorf("chainId must be provided")
	}
	if s.owner, err = ParseAccount(s.Owner); err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	s.collector = s.owner
	if strings.TrimSpace(s.Collector) != "" {
		if s.collector, err = ParseAccount(s.Collector); err != nil {
			return fmt.Errorf("collector: %w", err)
		}
	}

	symbols := make(map[string]struct{})
	tokens := []struct {
		field string
		spec  *TokenSpec
	}{{"stable", &s.Stable}, {"rewardToken", &s.RewardToken}}
	for i := range s.Collaterals {
		tokens = append(tokens, struct {
			field string
			spec  *TokenSpec
		}{fmt.Sprintf("collaterals[%d].token", i), &s.Collaterals[i].Token})
	}
	for _, tok := range tokens {
		if err := tok.spec.validate(); err != nil {
			return fmt.Errorf("%s: %w", tok.field, err)
		}
		key := strings.ToUpper(tok.spec.Symbol)
		if _, dup := symbols[key]; dup {
			return fmt.Errorf("%s: duplicate symbol %q", tok.field, tok.spec.Symbol)
		}
		symbols[key] = struct{}{}
	}
	required := num.NewUint(market.InitialDepositAmount)
	if held := s.Stable.allocated(s.owner); held.Lt(required) {
		return fmt.Errorf("stable: owner must hold at least %s for the initial market deposit, has %s", required, held)
	}

	if err := s.Market.validate(); err != nil {
		return fmt.Errorf("market: %w", err)
	}
	if err := s.InterestModel.validate(); err != nil {
		return fmt.Errorf("interestModel: %w", err)
	}
	if err := s.DistributionModel.validate(); err != nil {
		return fmt.Errorf("distributionModel: %w", err)
	}
	if err := s.Overseer.validate(); err != nil {
		return fmt.Errorf("overseer: %w", err)
	}
	if err := s.Liquidation.validate(); err != nil {
		return fmt.Errorf("liquidation: %w", err)
	}
	if err := s.Distributor.validate(); err != nil {
		return fmt.Errorf("distributor: %w", err)
	}
	for i := range s.Collaterals {
		if err := s.Collaterals[i].validate(); err != nil {
			return fmt.Errorf("collaterals[%d]: %w", i, err)
		}
	}
	return nil
}

func (t *TokenSpec) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name must be provided")
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("symbol must be provided")
	}
	if t.Decimals > 18 {
		return fmt.Errorf("decimals must be 18 or fewer")
	}
	accounts := make([]string, 0, len(t.Alloc))
	for account := range t.Alloc {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	t.balances = t.balances[:0]
	seen := make(map[crypto.Address]struct{}, len(accounts))
	for _, account := range accounts {
		addr, err := ParseAccount(account)
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", account, err)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("alloc[%q]: duplicate account", account)
		}
		seen[addr] = struct{}{}
		amount, err := parseAmount(t.Alloc[account], true)
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", account, err)
		}
		t.balances = append(t.balances, mm.Coin{Address: addr, Amount: amount})
	}
	return nil
}

func (t *TokenSpec) allocated(addr crypto.Address) num.Uint256 {
	for _, coin := range t.balances {
		if coin.Address == addr {
			return coin.Amount
		}
	}
	return num.ZeroUint()
}

func (m *MarketSpec) validate() (err error) {
	if m.emissionRate, err = parseDec("ancEmissionRate", m.AncEmissionRate, true); err != nil {
		return err
	}
	if m.maxBorrow, err = parseDec("maxBorrowFactor", m.MaxBorrowFactor, true); err != nil {
		return err
	}
	if m.maxBorrow.Gt(num.OneDec()) {
		return fmt.Errorf("maxBorrowFactor must not exceed 1")
	}
	if m.claimThreshold, err = parseAmount(m.RewardClaimThreshold, false); err != nil {
		return fmt.Errorf("rewardClaimThreshold: %w", err)
	}
	if m.taxRate, err = parseDec("taxRate", m.TaxRate, false); err != nil {
		return err
	}
	if m.taxCap, err = parseAmount(m.TaxCap, false); err != nil {
		return fmt.Errorf("taxCap: %w", err)
	}
	return nil
}

func (m *InterestModelSpec) validate() (err error) {
	if m.baseRate, err = parseDec("baseRate", m.BaseRate, true); err != nil {
		return err
	}
	m.multiplier, err = parseDec("interestMultiplier", m.InterestMultiplier, true)
	return err
}

func (m *DistributionModelSpec) validate() (err error) {
	if m.cap, err = parseDec("emissionCap", m.EmissionCap, true); err != nil {
		return err
	}
	if m.floor, err = parseDec("emissionFloor", m.EmissionFloor, true); err != nil {
		return err
	}
	if m.floor.Gt(m.cap) {
		return fmt.Errorf("emissionFloor must not exceed emissionCap")
	}
	if m.inc, err = parseDec("incrementMultiplier", m.IncrementMultiplier, true); err != nil {
		return err
	}
	m.dec, err = parseDec("decrementMultiplier", m.DecrementMultiplier, true)
	return err
}

func (o *OverseerSpec) validate() (err error) {
	if o.EpochPeriod == 0 {
		return fmt.Errorf("epochPeriod must be greater than zero")
	}
	if o.threshold, err = parseDec("thresholdDepositRate", o.ThresholdDepositRate, true); err != nil {
		return err
	}
	if o.target, err = parseDec("targetDepositRate", o.TargetDepositRate, true); err != nil {
		return err
	}
	if o.buffer, err = parseDec("bufferDistributionFactor", o.BufferDistributionFactor, true); err != nil {
		return err
	}
	if o.purchase, err = parseDec("ancPurchaseFactor", o.AncPurchaseFactor, true); err != nil {
		return err
	}
	if o.PriceTimeframe == 0 {
		return fmt.Errorf("priceTimeframe must be greater than zero")
	}
	return nil
}

func (l *LiquidationSpec) validate() (err error) {
	if l.safeRatio, err = parseDec("safeRatio", l.SafeRatio, true); err != nil {
		return err
	}
	if l.bidFee, err = parseDec("bidFee", l.BidFee, true); err != nil {
		return err
	}
	if l.maxPremium, err = parseDec("maxPremiumRate", l.MaxPremiumRate, true); err != nil {
		return err
	}
	if l.threshold, err = parseAmount(l.LiquidationThreshold, false); err != nil {
		return fmt.Errorf("liquidationThreshold: %w", err)
	}
	if l.PriceTimeframe == 0 {
		return fmt.Errorf("priceTimeframe must be greater than zero")
	}
	return nil
}

func (d *DistributorSpec) validate() (err error) {
	if d.spendLimit, err = parseAmount(d.SpendLimit, true); err != nil {
		return fmt.Errorf("spendLimit: %w", err)
	}
	if d.reserve, err = parseAmount(d.Reserve, false); err != nil {
		return fmt.Errorf("reserve: %w", err)
	}
	return nil
}

func (c *CollateralSpec) validate() (err error) {
	if c.maxLtv, err = parseDec("maxLtv", c.MaxLtv, true); err != nil {
		return err
	}
	if !c.maxLtv.Lt(num.OneDec()) {
		return fmt.Errorf("maxLtv must be below 1")
	}
	if c.feeder, err = ParseAccount(c.Feeder); err != nil {
		return fmt.Errorf("feeder: %w", err)
	}
	c.price = nil
	if strings.TrimSpace(c.InitialPrice) != "" {
		price, err := parseDec("initialPrice", c.InitialPrice, true)
		if err != nil {
			return err
		}
		c.price = &price
	}
	if c.rewardsThreshold, err = parseAmount(c.RewardsThreshold, false); err != nil {
		return fmt.Errorf("rewardsThreshold: %w", err)
	}
	return nil
}

// parseAmount reads a base-10 integer. Empty optional values are zero.
func parseAmount(value string, required bool) (num.Uint256, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if required {
			return num.Uint256{}, fmt.Errorf("amount must be provided")
		}
		return num.ZeroUint(), nil
	}
	amount, err := num.ParseUint(trimmed)
	if err != nil {
		return num.Uint256{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}

func parseDec(field, value string, required bool) (num.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if required {
			return num.Decimal{}, fmt.Errorf("%s must be provided", field)
		}
		return num.ZeroDec(), nil
	}
	d, err := num.ParseDec(trimmed)
	if err != nil {
		return num.Decimal{}, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}
