package overseer

import (
	"encoding/json"

	"orchai/core/host"
	"orchai/crypto"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
)

func (Contract) Query(deps host.Deps, _ host.Env, raw json.RawMessage) (json.RawMessage, error) {
	var msg mm.OverseerQueryMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(deps.Store)
	if err != nil {
		return nil, err
	}
	var resp any
	switch {
	case msg.Config != nil:
		resp = cfg.response()
	case msg.EpochState != nil:
		resp, err = queryEpochState(deps)
	case msg.Whitelist != nil:
		resp, err = queryWhitelist(deps, msg.Whitelist)
	case msg.Collaterals != nil:
		resp, err = queryCollaterals(deps, msg.Collaterals.Borrower)
	case msg.AllCollaterals != nil:
		resp, err = queryAllCollaterals(deps, msg.AllCollaterals)
	case msg.BorrowLimit != nil:
		resp, err = queryBorrowLimit(deps, &cfg, msg.BorrowLimit)
	default:
		return nil, mm.ErrUnknownMessage
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

func queryEpochState(deps host.Deps) (mm.OverseerEpochStateResponse, error) {
	state, err := loadEpochState(deps.Store)
	if err != nil {
		return mm.OverseerEpochStateResponse{}, err
	}
	return mm.OverseerEpochStateResponse{
		DepositRate:        state.DepositRate,
		PrevATerraSupply:   state.PrevATerraSupply,
		PrevExchangeRate:   state.PrevExchangeRate,
		PrevInterestBuffer: state.PrevInterestBuffer,
		LastExecutedHeight: state.LastExecutedHeight,
	}, nil
}

func whitelistResponse(token crypto.Address, elem *WhitelistElem) mm.WhitelistResponseElem {
	return mm.WhitelistResponseElem{
		Name:            elem.Name,
		Symbol:          elem.Symbol,
		MaxLtv:          elem.MaxLtv,
		CustodyContract: elem.CustodyContract,
		CollateralToken: token,
	}
}

func queryWhitelist(deps host.Deps, q *mm.WhitelistQuery) (mm.WhitelistResponse, error) {
	out := mm.WhitelistResponse{Elems: []mm.WhitelistResponseElem{}}
	if q.CollateralToken != nil {
		elem, err := loadWhitelistElem(deps.Store, *q.CollateralToken)
		if err != nil {
			return mm.WhitelistResponse{}, err
		}
		out.Elems = append(out.Elems, whitelistResponse(*q.CollateralToken, &elem))
		return out, nil
	}
	var start []byte
	if q.StartAfter != nil {
		start = q.StartAfter.Bytes()
	}
	err := common.Range(deps.Store, []byte(whitelistPrefix), start, common.ClampLimit(q.Limit), func(suffix, value []byte) error {
		token, err := crypto.NewAddress(suffix)
		if err != nil {
			return err
		}
		var elem WhitelistElem
		if err := common.Decode(value, &elem); err != nil {
			return err
		}
		out.Elems = append(out.Elems, whitelistResponse(token, &elem))
		return nil
	})
	return out, err
}

func queryCollaterals(deps host.Deps, borrower crypto.Address) (mm.CollateralsResponse, error) {
	cs, err := loadCollaterals(deps.Store, borrower)
	if err != nil {
		return mm.CollateralsResponse{}, err
	}
	if cs == nil {
		cs = mm.Collaterals{}
	}
	return mm.CollateralsResponse{Borrower: borrower, Collaterals: cs}, nil
}

func queryAllCollaterals(deps host.Deps, q *mm.AllCollateralsQuery) (mm.AllCollateralsResponse, error) {
	var start []byte
	if q.StartAfter != nil {
		start = q.StartAfter.Bytes()
	}
	out := mm.AllCollateralsResponse{AllCollaterals: []mm.CollateralsResponse{}}
	err := common.Range(deps.Store, []byte(collateralPrefix), start, common.ClampLimit(q.Limit), func(suffix, value []byte) error {
		borrower, err := crypto.NewAddress(suffix)
		if err != nil {
			return err
		}
		var rec collateralRecord
		if err := common.Decode(value, &rec); err != nil {
			return err
		}
		out.AllCollaterals = append(out.AllCollaterals, mm.CollateralsResponse{Borrower: borrower, Collaterals: rec.Collaterals})
		return nil
	})
	return out, err
}

func queryBorrowLimit(deps host.Deps, cfg *Config, q *mm.BorrowLimitQuery) (mm.BorrowLimitResponse, error) {
	cs, err := loadCollaterals(deps.Store, q.Borrower)
	if err != nil {
		return mm.BorrowLimitResponse{}, err
	}
	limit, _, err := computeBorrowLimit(deps, cfg, cs, q.BlockTime)
	if err != nil {
		return mm.BorrowLimitResponse{}, err
	}
	return mm.BorrowLimitResponse{Borrower: q.Borrower, BorrowLimit: limit}, nil
}
