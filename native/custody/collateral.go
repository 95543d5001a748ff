package custody

import (
	"orchai/core/host"
	"orchai/crypto"
	mm "orchai/native/moneymarket"
)

func depositCollateral(deps host.Deps, borrower crypto.Address, msg *mm.Cw20ReceiveMsg) (*host.Response, error) {
	info, err := loadBorrower(deps.Store, borrower)
	if err != nil {
		return nil, err
	}
	if info.Balance, err = info.Balance.Add(msg.Amount); err != nil {
		return nil, err
	}
	if info.Spendable, err = info.Spendable.Add(msg.Amount); err != nil {
		return nil, err
	}
	if err := saveBorrower(deps.Store, borrower, &info); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "deposit_collateral").
		AddAttribute("borrower", borrower).
		AddAttribute("amount", msg.Amount), nil
}

// withdrawCollateral returns spendable collateral to its owner. Without an
// amount the whole spendable balance is withdrawn.
func withdrawCollateral(deps host.Deps, borrower crypto.Address, cfg *Config, msg *mm.WithdrawCollateral) (*host.Response, error) {
	info, err := loadBorrower(deps.Store, borrower)
	if err != nil {
		return nil, err
	}
	amount := info.Spendable
	if msg.Amount != nil {
		amount = *msg.Amount
	}
	if amount.Gt(info.Spendable) {
		return nil, exceeds(ErrWithdrawAmountExceedsSpendable, info.Spendable)
	}
	if info.Balance, err = info.Balance.Sub(amount); err != nil {
		return nil, err
	}
	if info.Spendable, err = info.Spendable.Sub(amount); err != nil {
		return nil, err
	}
	if info.Balance.IsZero() {
		err = removeBorrower(deps.Store, borrower)
	} else {
		err = saveBorrower(deps.Store, borrower, &info)
	}
	if err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "withdraw_collateral").
		AddAttribute("borrower", borrower).
		AddAttribute("amount", amount).
		AddMessage(mm.Transfer(cfg.CollateralToken, borrower, amount)), nil
}

func lockCollateral(deps host.Deps, msg *mm.CustodyAmount) (*host.Response, error) {
	info, err := loadBorrower(deps.Store, msg.Borrower)
	if err != nil {
		return nil, err
	}
	if msg.Amount.IsZero() {
		return nil, ErrZeroAmount
	}
	if msg.Amount.Gt(info.Spendable) {
		return nil, exceeds(ErrLockAmountExceedsSpendable, info.Spendable)
	}
	if info.Spendable, err = info.Spendable.Sub(msg.Amount); err != nil {
		return nil, err
	}
	if err := saveBorrower(deps.Store, msg.Borrower, &info); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "lock_collateral").
		AddAttribute("borrower", msg.Borrower).
		AddAttribute("amount", msg.Amount), nil
}

func unlockCollateral(deps host.Deps, msg *mm.CustodyAmount) (*host.Response, error) {
	info, err := loadBorrower(deps.Store, msg.Borrower)
	if err != nil {
		return nil, err
	}
	locked, err := info.Locked()
	if err != nil {
		return nil, err
	}
	if msg.Amount.IsZero() {
		return nil, ErrZeroAmount
	}
	if msg.Amount.Gt(locked) {
		return nil, exceeds(ErrUnlockAmountExceedsLocked, locked)
	}
	if info.Spendable, err = info.Spendable.Add(msg.Amount); err != nil {
		return nil, err
	}
	if err := saveBorrower(deps.Store, msg.Borrower, &info); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "unlock_collateral").
		AddAttribute("borrower", msg.Borrower).
		AddAttribute("amount", msg.Amount), nil
}

// liquidateCollateral removes locked collateral and sells it through the
// liquidation contract. Proceeds repay the market and the fee goes to the
// overseer.
func liquidateCollateral(deps host.Deps, cfg *Config, msg *mm.CustodyLiquidate) (*host.Response, error) {
	info, err := loadBorrower(deps.Store, msg.Borrower)
	if err != nil {
		return nil, err
	}
	locked, err := info.Locked()
	if err != nil {
		return nil, err
	}
	if msg.Amount.Gt(locked) {
		return nil, exceeds(ErrLiquidationAmountExceedsLocked, locked)
	}
	if msg.Amount.IsZero() {
		return nil, ErrZeroAmount
	}
	if info.Balance, err = info.Balance.Sub(msg.Amount); err != nil {
		return nil, err
	}
	if info.Balance.IsZero() {
		err = removeBorrower(deps.Store, msg.Borrower)
	} else {
		err = saveBorrower(deps.Store, msg.Borrower, &info)
	}
	if err != nil {
		return nil, err
	}
	fee, repay := cfg.OverseerContract, cfg.MarketContract
	sell, err := mm.Send(cfg.CollateralToken, cfg.LiquidationContract, msg.Amount, mm.LiquidationHookMsg{
		ExecuteBid: &mm.ExecuteBid{
			Liquidator:   msg.Liquidator,
			FeeAddress:   &fee,
			RepayAddress: &repay,
		},
	})
	if err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "liquidate_collateral").
		AddAttribute("liquidator", msg.Liquidator).
		AddAttribute("borrower", msg.Borrower).
		AddAttribute("amount", msg.Amount).
		AddMessage(sell), nil
}
