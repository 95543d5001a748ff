package genesis

import (
	"context"
	"fmt"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/custody"
	"orchai/native/distributionmodel"
	"orchai/native/distributor"
	"orchai/native/interestmodel"
	"orchai/native/liquidation"
	"orchai/native/market"
	mm "orchai/native/moneymarket"
	"orchai/native/oracle"
	"orchai/native/overseer"
	"orchai/native/token"
)

// Instantiation labels. Every contract address is derived from the owner and
// its label, so a deployment can be located without replaying genesis.
const (
	LabelStable            = "stable"
	LabelRewardToken       = "reward_token"
	LabelOracle            = "oracle"
	LabelInterestModel     = "interest_model"
	LabelDistributionModel = "distribution_model"
	LabelLiquidation       = "liquidation"
	LabelMarket            = "market"
	LabelDistributor       = "distributor"
	LabelOverseer          = "overseer"
)

func collateralLabel(symbol string) string { return "collateral/" + symbol }

func custodyLabel(symbol string) string { return "custody/" + symbol }

// Deployment lists the addresses of a bootstrapped money market.
type Deployment struct {
	ChainID           string                 `json:"chain_id"`
	Owner             crypto.Address         `json:"owner"`
	Collector         crypto.Address         `json:"collector"`
	Stable            crypto.Address         `json:"stable"`
	RewardToken       crypto.Address         `json:"reward_token"`
	Oracle            crypto.Address         `json:"oracle"`
	InterestModel     crypto.Address         `json:"interest_model"`
	DistributionModel crypto.Address         `json:"distribution_model"`
	Liquidation       crypto.Address         `json:"liquidation"`
	Market            crypto.Address         `json:"market"`
	ATerra            crypto.Address         `json:"aterra"`
	Distributor       crypto.Address         `json:"distributor"`
	Overseer          crypto.Address         `json:"overseer"`
	Collaterals       []CollateralDeployment `json:"collaterals"`
}

type CollateralDeployment struct {
	Symbol  string         `json:"symbol"`
	Token   crypto.Address `json:"token"`
	Custody crypto.Address `json:"custody"`
}

// Deployment derives the contract addresses Build creates. The spec must be
// validated.
func (s *Spec) Deployment() Deployment {
	at := func(label string) crypto.Address { return crypto.ContractAddress(s.owner, label) }
	d := Deployment{
		ChainID:           s.ChainID,
		Owner:             s.owner,
		Collector:         s.collector,
		Stable:            at(LabelStable),
		RewardToken:       at(LabelRewardToken),
		Oracle:            at(LabelOracle),
		InterestModel:     at(LabelInterestModel),
		DistributionModel: at(LabelDistributionModel),
		Liquidation:       at(LabelLiquidation),
		Market:            at(LabelMarket),
		Distributor:       at(LabelDistributor),
		Overseer:          at(LabelOverseer),
	}
	d.ATerra = crypto.ContractAddress(d.Market, market.ReceiptTokenLabel)
	for _, c := range s.Collaterals {
		d.Collaterals = append(d.Collaterals, CollateralDeployment{
			Symbol:  c.Token.Symbol,
			Token:   at(collateralLabel(c.Token.Symbol)),
			Custody: at(custodyLabel(c.Token.Symbol)),
		})
	}
	return d
}

// RegisterCodes makes every contract code of the money market available on h.
func RegisterCodes(h *host.Host) {
	h.Register(token.Code, token.Contract{})
	h.Register(oracle.Code, oracle.Contract{})
	h.Register(interestmodel.Code, interestmodel.Contract{})
	h.Register(distributionmodel.Code, distributionmodel.Contract{})
	h.Register(market.Code, market.Contract{})
	h.Register(overseer.Code, overseer.Contract{})
	h.Register(custody.Code, custody.Contract{})
	h.Register(liquidation.Code, liquidation.Contract{})
	h.Register(distributor.Code, distributor.Contract{})
}

type deployer struct {
	ctx   context.Context
	h     *host.Host
	owner crypto.Address
}

func (d *deployer) instantiate(code, label string, want crypto.Address, msg any) error {
	res, err := d.h.Instantiate(d.ctx, d.owner, code, label, msg)
	if err != nil {
		return fmt.Errorf("instantiate %s: %w", label, err)
	}
	if res.Contract != want {
		return fmt.Errorf("instantiate %s: address %s, expected %s", label, res.Contract, want)
	}
	return nil
}

func (d *deployer) execute(sender, contract crypto.Address, step string, msg any) error {
	if _, err := d.h.Execute(d.ctx, sender, contract, msg); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}

// Build sets the genesis block on h and instantiates the deployment described
// by spec. Codes must already be registered, see RegisterCodes.
func Build(ctx context.Context, spec *Spec, h *host.Host) (*Deployment, error) {
	if spec == nil {
		return nil, fmt.Errorf("genesis spec must not be nil")
	}
	if h == nil {
		return nil, fmt.Errorf("host must not be nil")
	}
	if spec.owner.IsZero() {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}
	ts := spec.GenesisTimestamp().Unix()
	if ts < 0 {
		return nil, fmt.Errorf("genesisTime must not precede the unix epoch")
	}
	if err := h.SetBlock(host.BlockInfo{Height: spec.Height(), Time: uint64(ts), ChainID: spec.ChainID}); err != nil {
		return nil, fmt.Errorf("set genesis block: %w", err)
	}

	dep := spec.Deployment()
	d := &deployer{ctx: ctx, h: h, owner: dep.Owner}

	// 1) Tokens
	if err := d.instantiate(token.Code, LabelStable, dep.Stable, mm.TokenInstantiateMsg{
		Name:            spec.Stable.Name,
		Symbol:          spec.Stable.Symbol,
		Decimals:        spec.Stable.Decimals,
		InitialBalances: spec.Stable.balances,
		Mint:            &mm.MinterResponse{Minter: dep.Owner},
	}); err != nil {
		return nil, err
	}
	rewards := append([]mm.Coin{}, spec.RewardToken.balances...)
	if !spec.Distributor.reserve.IsZero() {
		rewards = append(rewards, mm.Coin{Address: dep.Distributor, Amount: spec.Distributor.reserve})
	}
	if err := d.instantiate(token.Code, LabelRewardToken, dep.RewardToken, mm.TokenInstantiateMsg{
		Name:            spec.RewardToken.Name,
		Symbol:          spec.RewardToken.Symbol,
		Decimals:        spec.RewardToken.Decimals,
		InitialBalances: rewards,
		Mint:            &mm.MinterResponse{Minter: dep.Owner},
	}); err != nil {
		return nil, err
	}
	for i, c := range spec.Collaterals {
		if err := d.instantiate(token.Code, collateralLabel(c.Token.Symbol), dep.Collaterals[i].Token, mm.TokenInstantiateMsg{
			Name:            c.Token.Name,
			Symbol:          c.Token.Symbol,
			Decimals:        c.Token.Decimals,
			InitialBalances: c.Token.balances,
			Mint:            &mm.MinterResponse{Minter: dep.Owner},
		}); err != nil {
			return nil, err
		}
	}

	// 2) Oracle and rate models
	if err := d.instantiate(oracle.Code, LabelOracle, dep.Oracle, mm.OracleInstantiateMsg{
		Owner:     dep.Owner,
		BaseAsset: dep.Stable.String(),
	}); err != nil {
		return nil, err
	}
	if err := d.instantiate(interestmodel.Code, LabelInterestModel, dep.InterestModel, mm.InterestModelInstantiateMsg{
		Owner:              dep.Owner,
		BaseRate:           spec.InterestModel.baseRate,
		InterestMultiplier: spec.InterestModel.multiplier,
	}); err != nil {
		return nil, err
	}
	if err := d.instantiate(distributionmodel.Code, LabelDistributionModel, dep.DistributionModel, mm.DistributionModelInstantiateMsg{
		Owner:               dep.Owner,
		EmissionCap:         spec.DistributionModel.cap,
		EmissionFloor:       spec.DistributionModel.floor,
		IncrementMultiplier: spec.DistributionModel.inc,
		DecrementMultiplier: spec.DistributionModel.dec,
	}); err != nil {
		return nil, err
	}
	if err := d.instantiate(liquidation.Code, LabelLiquidation, dep.Liquidation, mm.LiquidationInstantiateMsg{
		Owner:                dep.Owner,
		OracleContract:       dep.Oracle,
		StableAddr:           dep.Stable,
		SafeRatio:            spec.Liquidation.safeRatio,
		BidFee:               spec.Liquidation.bidFee,
		MaxPremiumRate:       spec.Liquidation.maxPremium,
		LiquidationThreshold: spec.Liquidation.threshold,
		PriceTimeframe:       spec.Liquidation.PriceTimeframe,
	}); err != nil {
		return nil, err
	}

	// 3) Market, funded with the initial deposit before it is created
	if err := d.execute(dep.Owner, dep.Stable, "fund market", mm.TokenExecuteMsg{Transfer: &mm.TransferMsg{
		Recipient: dep.Market,
		Amount:    num.NewUint(market.InitialDepositAmount),
	}}); err != nil {
		return nil, err
	}
	if err := d.instantiate(market.Code, LabelMarket, dep.Market, mm.MarketInstantiateMsg{
		OwnerAddr:            dep.Owner,
		StableAddr:           dep.Stable,
		AncEmissionRate:      spec.Market.emissionRate,
		MaxBorrowFactor:      spec.Market.maxBorrow,
		RewardClaimThreshold: spec.Market.claimThreshold,
		TaxRate:              spec.Market.taxRate,
		TaxCap:               spec.Market.taxCap,
	}); err != nil {
		return nil, err
	}
	if err := d.instantiate(distributor.Code, LabelDistributor, dep.Distributor, mm.DistributorInstantiateMsg{
		GovContract: dep.Owner,
		RewardToken: dep.RewardToken,
		Whitelist:   []crypto.Address{dep.Market},
		SpendLimit:  spec.Distributor.spendLimit,
	}); err != nil {
		return nil, err
	}

	// 4) Overseer and market wiring
	if err := d.instantiate(overseer.Code, LabelOverseer, dep.Overseer, mm.OverseerInstantiateMsg{
		OwnerAddr:                dep.Owner,
		OracleContract:           dep.Oracle,
		MarketContract:           dep.Market,
		LiquidationContract:      dep.Liquidation,
		CollectorContract:        dep.Collector,
		StableAddr:               dep.Stable,
		EpochPeriod:              spec.Overseer.EpochPeriod,
		ThresholdDepositRate:     spec.Overseer.threshold,
		TargetDepositRate:        spec.Overseer.target,
		BufferDistributionFactor: spec.Overseer.buffer,
		AncPurchaseFactor:        spec.Overseer.purchase,
		PriceTimeframe:           spec.Overseer.PriceTimeframe,
	}); err != nil {
		return nil, err
	}
	if err := d.execute(dep.Owner, dep.Market, "register market contracts", mm.MarketExecuteMsg{RegisterContracts: &mm.RegisterContracts{
		OverseerContract:    dep.Overseer,
		InterestModel:       dep.InterestModel,
		DistributionModel:   dep.DistributionModel,
		CollectorContract:   dep.Collector,
		DistributorContract: dep.Distributor,
	}}); err != nil {
		return nil, err
	}

	// 5) Collaterals: custody, whitelist, feeder and opening price
	for i, c := range spec.Collaterals {
		cd := dep.Collaterals[i]
		if err := d.instantiate(custody.Code, custodyLabel(c.Token.Symbol), cd.Custody, mm.CustodyInstantiateMsg{
			Owner:               dep.Owner,
			CollateralToken:     cd.Token,
			OverseerContract:    dep.Overseer,
			MarketContract:      dep.Market,
			LiquidationContract: dep.Liquidation,
			StableAddr:          dep.Stable,
			BAssetInfo:          mm.BAssetInfo{Name: c.Token.Name, Symbol: c.Token.Symbol, Decimals: c.Token.Decimals},
			RewardsThreshold:    c.rewardsThreshold,
		}); err != nil {
			return nil, err
		}
		if err := d.execute(dep.Owner, dep.Overseer, "whitelist "+c.Token.Symbol, mm.OverseerExecuteMsg{Whitelist: &mm.Whitelist{
			Name:            c.Token.Name,
			Symbol:          c.Token.Symbol,
			CollateralToken: cd.Token,
			CustodyContract: cd.Custody,
			MaxLtv:          c.maxLtv,
		}}); err != nil {
			return nil, err
		}
		if err := d.execute(dep.Owner, dep.Oracle, "register feeder "+c.Token.Symbol, mm.OracleExecuteMsg{RegisterFeeder: &mm.RegisterFeeder{
			Asset:  cd.Token.String(),
			Feeder: c.feeder,
		}}); err != nil {
			return nil, err
		}
		if c.price != nil {
			if err := d.execute(c.feeder, dep.Oracle, "feed "+c.Token.Symbol, mm.OracleExecuteMsg{FeedPrice: &mm.FeedPrice{
				Prices: []mm.PriceInput{{Asset: cd.Token.String(), Price: *c.price}},
			}}); err != nil {
				return nil, err
			}
		}
	}
	return &dep, nil
}
