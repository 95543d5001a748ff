package moneymarket

import (
	"encoding/json"
	"fmt"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
)

// Querier issues smart queries to other contracts. *host.Querier satisfies
// it; tests may substitute a stub.
type Querier interface {
	Query(contract crypto.Address, req any, out any) error
}

// Empty marshals to {} and is used for unit enum variants.
type Empty struct{}

// Decode unmarshals a message and reports ErrUnknownMessage for malformed
// input.
func Decode(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownMessage, err)
	}
	return nil
}

// Execute builds a host message calling contract with payload.
func Execute(contract crypto.Address, payload any) host.Msg {
	return host.NewExecute(contract, payload)
}

// TimeConstraints bounds the acceptable age of oracle prices.
type TimeConstraints struct {
	BlockTime      uint64
	ValidTimeframe uint64
}

// QueryPrice fetches base/quote from the oracle, rejecting stale prices when
// constraints are set.
func QueryPrice(q Querier, oracle crypto.Address, base, quote string, tc *TimeConstraints) (PriceResponse, error) {
	var res PriceResponse
	if err := q.Query(oracle, OracleQueryMsg{Price: &PriceQuery{Base: base, Quote: quote}}, &res); err != nil {
		return PriceResponse{}, err
	}
	if tc != nil {
		var floor uint64
		if tc.BlockTime > tc.ValidTimeframe {
			floor = tc.BlockTime - tc.ValidTimeframe
		}
		if res.LastUpdatedBase < floor || res.LastUpdatedQuote < floor {
			return PriceResponse{}, ErrPriceTooOld
		}
	}
	return res, nil
}

// QueryBalance returns the token balance of addr.
func QueryBalance(q Querier, token, addr crypto.Address) (num.Uint256, error) {
	var res BalanceResponse
	if err := q.Query(token, TokenQueryMsg{Balance: &BalanceQuery{Address: addr}}, &res); err != nil {
		return num.Uint256{}, err
	}
	return res.Balance, nil
}

// QuerySupply returns the total supply of token.
func QuerySupply(q Querier, token crypto.Address) (num.Uint256, error) {
	var res TokenInfoResponse
	if err := q.Query(token, TokenQueryMsg{TokenInfo: &Empty{}}, &res); err != nil {
		return num.Uint256{}, err
	}
	return res.TotalSupply, nil
}

// QueryBorrowRate asks the interest model for the per-block borrow rate.
func QueryBorrowRate(q Querier, model crypto.Address, balance num.Uint256, liabilities, reserves num.Decimal) (num.Decimal, error) {
	var res BorrowRateResponse
	err := q.Query(model, InterestModelQueryMsg{BorrowRate: &BorrowRateQuery{
		MarketBalance:    balance,
		TotalLiabilities: liabilities,
		TotalReserves:    reserves,
	}}, &res)
	return res.Rate, err
}

// QueryEmissionRate asks the distribution model for the next emission rate.
func QueryEmissionRate(q Querier, model crypto.Address, req EmissionRateQuery) (num.Decimal, error) {
	var res EmissionRateResponse
	err := q.Query(model, DistributionModelQueryMsg{AncEmissionRate: &req}, &res)
	return res.EmissionRate, err
}

// QueryBorrowLimit asks the overseer for a borrower's limit.
func QueryBorrowLimit(q Querier, overseer, borrower crypto.Address, blockTime *uint64) (num.Uint256, error) {
	var res BorrowLimitResponse
	err := q.Query(overseer, OverseerQueryMsg{BorrowLimit: &BorrowLimitQuery{Borrower: borrower, BlockTime: blockTime}}, &res)
	return res.BorrowLimit, err
}

// QueryBorrowerInfo fetches a borrower's loan from the market advanced to
// height.
func QueryBorrowerInfo(q Querier, market, borrower crypto.Address, height uint64) (BorrowerInfoResponse, error) {
	var res BorrowerInfoResponse
	err := q.Query(market, MarketQueryMsg{BorrowerInfo: &BorrowerInfoQuery{Borrower: borrower, BlockHeight: &height}}, &res)
	return res, err
}

// QueryMarketEpochState fetches the exchange rate and receipt supply.
func QueryMarketEpochState(q Querier, market crypto.Address, height uint64, distributed *num.Uint256) (EpochStateResponse, error) {
	var res EpochStateResponse
	err := q.Query(market, MarketQueryMsg{EpochState: &EpochStateQuery{BlockHeight: &height, DistributedInterest: distributed}}, &res)
	return res, err
}

// QueryMarketConfig fetches the market configuration.
func QueryMarketConfig(q Querier, market crypto.Address) (MarketConfigResponse, error) {
	var res MarketConfigResponse
	err := q.Query(market, MarketQueryMsg{Config: &Empty{}}, &res)
	return res, err
}

// QueryLiquidationAmount asks the liquidation contract for the seizure
// schedule.
func QueryLiquidationAmount(q Querier, liquidation crypto.Address, req LiquidationAmountQuery) (LiquidationAmountResponse, error) {
	var res LiquidationAmountResponse
	err := q.Query(liquidation, LiquidationQueryMsg{LiquidationAmount: &req}, &res)
	return res, err
}

// QueryTokenInfo returns the metadata and supply of token.
func QueryTokenInfo(q Querier, token crypto.Address) (TokenInfoResponse, error) {
	var res TokenInfoResponse
	err := q.Query(token, TokenQueryMsg{TokenInfo: &Empty{}}, &res)
	return res, err
}

// QueryOverseerConfig fetches the overseer configuration, which carries the
// deposit rate targets.
func QueryOverseerConfig(q Querier, overseer crypto.Address) (OverseerConfigResponse, error) {
	var res OverseerConfigResponse
	err := q.Query(overseer, OverseerQueryMsg{Config: &Empty{}}, &res)
	return res, err
}
