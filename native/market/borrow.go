package market

import (
	"fmt"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
)

// touch loads state and the borrower's liability, both advanced to height.
// pending is stable that arrived with the current message.
func touch(deps host.Deps, cfg *Config, borrower crypto.Address, height uint64, pending num.Uint256) (State, BorrowerInfo, error) {
	state, err := loadState(deps.Store)
	if err != nil {
		return State{}, BorrowerInfo{}, err
	}
	if err := accrueAll(deps.Querier, cfg, &state, height, pending); err != nil {
		return State{}, BorrowerInfo{}, err
	}
	info, err := loadBorrower(deps.Store, borrower, &state)
	if err != nil {
		return State{}, BorrowerInfo{}, err
	}
	if err := TouchBorrower(&state, &info); err != nil {
		return State{}, BorrowerInfo{}, err
	}
	return state, info, nil
}

func borrowStable(deps host.Deps, env host.Env, info host.MessageInfo, cfg *Config, msg *mm.BorrowStable) (*host.Response, error) {
	borrower := info.Sender
	state, liability, err := touch(deps, cfg, borrower, env.Block.Height, num.ZeroUint())
	if err != nil {
		return nil, err
	}
	blockTime := env.Block.Time
	limit, err := mm.QueryBorrowLimit(deps.Querier, cfg.OverseerContract, borrower, &blockTime)
	if err != nil {
		return nil, err
	}
	loan, err := liability.LoanAmount.Add(msg.BorrowAmount)
	if err != nil {
		return nil, err
	}
	if limit.Lt(loan) {
		return nil, &BorrowExceedsLimitError{Limit: limit}
	}
	balance, err := stableBalance(deps.Querier, cfg, num.ZeroUint())
	if err != nil {
		return nil, err
	}
	if err := assertMaxBorrowFactor(cfg, &state, balance, msg.BorrowAmount); err != nil {
		return nil, err
	}

	liability.LoanAmount = loan
	amount, err := msg.BorrowAmount.Decimal()
	if err != nil {
		return nil, err
	}
	if state.TotalLiabilities, err = state.TotalLiabilities.Add(amount); err != nil {
		return nil, err
	}
	if err := saveState(deps.Store, &state); err != nil {
		return nil, err
	}
	if err := saveBorrower(deps.Store, borrower, &liability); err != nil {
		return nil, err
	}

	recipient := borrower
	if msg.To != nil {
		recipient = *msg.To
	}
	payout, err := common.DeductTax(msg.BorrowAmount, cfg.Tax())
	if err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "borrow_stable").
		AddAttribute("borrower", borrower).
		AddAttribute("borrow_amount", msg.BorrowAmount).
		AddMessage(mm.Transfer(cfg.StableAddr, recipient, payout)), nil
}

func assertMaxBorrowFactor(cfg *Config, state *State, balance, borrow num.Uint256) error {
	amount, err := borrow.Decimal()
	if err != nil {
		return err
	}
	demand, err := state.TotalLiabilities.Add(amount)
	if err != nil {
		return err
	}
	pool, err := balance.Decimal()
	if err != nil {
		return err
	}
	if pool, err = pool.Add(state.TotalLiabilities); err != nil {
		return err
	}
	if pool, err = pool.Sub(state.TotalReserves); err != nil {
		return err
	}
	ceiling, err := pool.Mul(cfg.MaxBorrowFactor)
	if err != nil {
		return err
	}
	if demand.Gt(ceiling) {
		return ErrMaxBorrowFactorReached
	}
	return assertLiquidity(state, balance, borrow)
}

// repayStable settles up to amount of borrower's loan. Anything above the
// loan is refunded to the borrower.
func repayStable(deps host.Deps, env host.Env, cfg *Config, borrower crypto.Address, amount num.Uint256) (*host.Response, error) {
	if amount.IsZero() {
		return nil, ErrZeroRepay
	}
	state, liability, err := touch(deps, cfg, borrower, env.Block.Height, amount)
	if err != nil {
		return nil, err
	}

	resp := host.NewResponse()
	repaid := amount
	if liability.LoanAmount.Lt(amount) {
		repaid = liability.LoanAmount
		excess, err := amount.Sub(repaid)
		if err != nil {
			return nil, err
		}
		refund, err := common.DeductTax(excess, cfg.Tax())
		if err != nil {
			return nil, err
		}
		if !refund.IsZero() {
			resp.AddMessage(mm.Transfer(cfg.StableAddr, borrower, refund))
		}
		liability.LoanAmount = num.ZeroUint()
	} else if liability.LoanAmount, err = liability.LoanAmount.Sub(repaid); err != nil {
		return nil, err
	}

	if err := settleLiabilities(&state, repaid); err != nil {
		return nil, err
	}
	if err := saveBorrower(deps.Store, borrower, &liability); err != nil {
		return nil, err
	}
	if err := saveState(deps.Store, &state); err != nil {
		return nil, err
	}
	return resp.
		AddAttribute("action", "repay_stable").
		AddAttribute("borrower", borrower).
		AddAttribute("repay_amount", repaid), nil
}

// settleLiabilities removes repaid from the market-wide liabilities. A
// repayment larger than the aggregate means the books disagree and the
// transaction must revert.
func settleLiabilities(state *State, repaid num.Uint256) error {
	settled, err := repaid.Decimal()
	if err != nil {
		return err
	}
	rest, err := state.TotalLiabilities.Sub(settled)
	if err != nil {
		return fmt.Errorf("%w: repaying %s of %s", ErrLiabilitiesUnderflow, settled, state.TotalLiabilities)
	}
	state.TotalLiabilities = rest
	return nil
}

// repayFromLiquidation repays with whatever the market received since the
// overseer recorded prevBalance.
func repayFromLiquidation(deps host.Deps, env host.Env, info host.MessageInfo, cfg *Config, msg *mm.RepayStableFromLiquidation) (*host.Response, error) {
	if err := common.Guard(info.Sender, cfg.OverseerContract); err != nil {
		return nil, err
	}
	current, err := stableBalance(deps.Querier, cfg, num.ZeroUint())
	if err != nil {
		return nil, err
	}
	received, err := current.Sub(msg.PrevBalance)
	if err != nil {
		return nil, err
	}
	return repayStable(deps, env, cfg, msg.Borrower, received)
}

func claimRewards(deps host.Deps, env host.Env, info host.MessageInfo, cfg *Config, msg *mm.ClaimRewards) (*host.Response, error) {
	borrower := info.Sender
	state, liability, err := touch(deps, cfg, borrower, env.Block.Height, num.ZeroUint())
	if err != nil {
		return nil, err
	}
	claim, rest, err := claimable(&liability)
	if err != nil {
		return nil, err
	}
	resp := host.NewResponse()
	if claim.IsZero() || claim.Lt(cfg.RewardClaimThreshold) {
		claim = num.ZeroUint()
	} else {
		liability.PendingRewards = rest
		recipient := borrower
		if msg.To != nil {
			recipient = *msg.To
		}
		resp.AddMessage(mm.Execute(cfg.DistributorContract, mm.DistributorExecuteMsg{
			Spend: &mm.Spend{Recipient: recipient, Amount: claim},
		}))
	}
	if err := saveState(deps.Store, &state); err != nil {
		return nil, err
	}
	if err := saveBorrower(deps.Store, borrower, &liability); err != nil {
		return nil, err
	}
	return resp.
		AddAttribute("action", "claim_rewards").
		AddAttribute("claim_amount", claim), nil
}
