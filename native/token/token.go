// Package token implements a CW20-style fungible token ledger.
package token

import (
	"encoding/json"
	"errors"
	"fmt"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
	"orchai/native/common"
	mm "orchai/native/moneymarket"
	"orchai/storage"
)

var (
	ErrInvalidZeroAmount = errors.New("token: invalid zero amount")
	ErrInsufficientFunds = errors.New("token: insufficient funds")
	ErrCannotMint        = errors.New("token: minting disabled")
	ErrCapExceeded       = errors.New("token: minting cannot exceed the cap")
	ErrInvalidName       = errors.New("token: name and symbol must not be empty")
)

var (
	infoKey       = []byte("info")
	balancePrefix = "balance/"
)

// Code is the name under which the token is registered with the host.
const Code = "token"

type tokenInfo struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply num.Uint256
	Minter      crypto.Address
	HasCap      bool
	Cap         num.Uint256
}

// Contract is the token code.
type Contract struct{}

var _ host.Contract = Contract{}

func (Contract) Instantiate(deps host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.TokenInstantiateMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	if msg.Name == "" || msg.Symbol == "" {
		return nil, ErrInvalidName
	}
	info := tokenInfo{Name: msg.Name, Symbol: msg.Symbol, Decimals: msg.Decimals, TotalSupply: num.ZeroUint()}
	for _, coin := range msg.InitialBalances {
		if err := credit(deps.Store, coin.Address, coin.Amount); err != nil {
			return nil, err
		}
		supply, err := info.TotalSupply.Add(coin.Amount)
		if err != nil {
			return nil, err
		}
		info.TotalSupply = supply
	}
	if msg.Mint != nil {
		info.Minter = msg.Mint.Minter
		if msg.Mint.Cap != nil {
			info.HasCap = true
			info.Cap = *msg.Mint.Cap
			if info.TotalSupply.Gt(info.Cap) {
				return nil, ErrCapExceeded
			}
		}
	}
	if err := common.Save(deps.Store, infoKey, &info); err != nil {
		return nil, err
	}
	resp := host.NewResponse().
		AddAttribute("action", "instantiate").
		AddAttribute("symbol", info.Symbol).
		AddAttribute("total_supply", info.TotalSupply)
	if msg.InitHook != nil {
		resp.AddMessage(host.NewExecute(msg.InitHook.ContractAddr, msg.InitHook.Msg))
	}
	return resp, nil
}

func (Contract) Execute(deps host.Deps, _ host.Env, info host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg mm.TokenExecuteMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.Transfer != nil:
		return transfer(deps, info.Sender, msg.Transfer.Recipient, msg.Transfer.Amount)
	case msg.Send != nil:
		return send(deps, info.Sender, msg.Send)
	case msg.Mint != nil:
		return mint(deps, info.Sender, msg.Mint.Recipient, msg.Mint.Amount)
	case msg.Burn != nil:
		return burn(deps, info.Sender, msg.Burn.Amount)
	}
	return nil, mm.ErrUnknownMessage
}

func transfer(deps host.Deps, from, to crypto.Address, amount num.Uint256) (*host.Response, error) {
	if err := move(deps.Store, from, to, amount); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "transfer").
		AddAttribute("from", from).
		AddAttribute("to", to).
		AddAttribute("amount", amount), nil
}

func send(deps host.Deps, from crypto.Address, msg *mm.SendMsg) (*host.Response, error) {
	if err := move(deps.Store, from, msg.Contract, msg.Amount); err != nil {
		return nil, err
	}
	hook := msg.Msg
	if len(hook) == 0 {
		hook = json.RawMessage("{}")
	}
	return host.NewResponse().
		AddAttribute("action", "send").
		AddAttribute("from", from).
		AddAttribute("to", msg.Contract).
		AddAttribute("amount", msg.Amount).
		AddMessage(host.NewExecute(msg.Contract, mm.ReceiveEnvelope{Receive: &mm.Cw20ReceiveMsg{
			Sender: from,
			Amount: msg.Amount,
			Msg:    hook,
		}})), nil
}

func mint(deps host.Deps, sender, recipient crypto.Address, amount num.Uint256) (*host.Response, error) {
	if amount.IsZero() {
		return nil, ErrInvalidZeroAmount
	}
	var info tokenInfo
	if err := common.MustLoad(deps.Store, infoKey, &info); err != nil {
		return nil, err
	}
	if info.Minter.IsZero() {
		return nil, ErrCannotMint
	}
	if err := common.Guard(sender, info.Minter); err != nil {
		return nil, err
	}
	supply, err := info.TotalSupply.Add(amount)
	if err != nil {
		return nil, err
	}
	if info.HasCap && supply.Gt(info.Cap) {
		return nil, ErrCapExceeded
	}
	info.TotalSupply = supply
	if err := common.Save(deps.Store, infoKey, &info); err != nil {
		return nil, err
	}
	if err := credit(deps.Store, recipient, amount); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "mint").
		AddAttribute("to", recipient).
		AddAttribute("amount", amount), nil
}

func burn(deps host.Deps, sender crypto.Address, amount num.Uint256) (*host.Response, error) {
	if amount.IsZero() {
		return nil, ErrInvalidZeroAmount
	}
	if err := debit(deps.Store, sender, amount); err != nil {
		return nil, err
	}
	var info tokenInfo
	if err := common.MustLoad(deps.Store, infoKey, &info); err != nil {
		return nil, err
	}
	supply, err := info.TotalSupply.Sub(amount)
	if err != nil {
		return nil, err
	}
	info.TotalSupply = supply
	if err := common.Save(deps.Store, infoKey, &info); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "burn").
		AddAttribute("from", sender).
		AddAttribute("amount", amount), nil
}

func (Contract) Query(deps host.Deps, _ host.Env, raw json.RawMessage) (json.RawMessage, error) {
	var msg mm.TokenQueryMsg
	if err := mm.Decode(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.Balance != nil:
		bal, err := balance(deps.Store, msg.Balance.Address)
		if err != nil {
			return nil, err
		}
		return json.Marshal(mm.BalanceResponse{Balance: bal})
	case msg.TokenInfo != nil:
		var info tokenInfo
		if err := common.MustLoad(deps.Store, infoKey, &info); err != nil {
			return nil, err
		}
		return json.Marshal(mm.TokenInfoResponse{
			Name:        info.Name,
			Symbol:      info.Symbol,
			Decimals:    info.Decimals,
			TotalSupply: info.TotalSupply,
		})
	case msg.Minter != nil:
		var info tokenInfo
		if err := common.MustLoad(deps.Store, infoKey, &info); err != nil {
			return nil, err
		}
		if info.Minter.IsZero() {
			return json.Marshal(nil)
		}
		res := mm.MinterResponse{Minter: info.Minter}
		if info.HasCap {
			limit := info.Cap
			res.Cap = &limit
		}
		return json.Marshal(res)
	}
	return nil, mm.ErrUnknownMessage
}

func balanceKey(addr crypto.Address) []byte {
	return common.Key(balancePrefix, addr[:])
}

func balance(kv storage.Reader, addr crypto.Address) (num.Uint256, error) {
	var bal num.Uint256
	if _, err := common.Load(kv, balanceKey(addr), &bal); err != nil {
		return num.Uint256{}, err
	}
	return bal, nil
}

func credit(kv storage.KV, addr crypto.Address, amount num.Uint256) error {
	bal, err := balance(kv, addr)
	if err != nil {
		return err
	}
	next, err := bal.Add(amount)
	if err != nil {
		return err
	}
	return common.Save(kv, balanceKey(addr), &next)
}

func debit(kv storage.KV, addr crypto.Address, amount num.Uint256) error {
	bal, err := balance(kv, addr)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return fmt.Errorf("%w: balance %s, need %s", ErrInsufficientFunds, bal, amount)
	}
	next, err := bal.Sub(amount)
	if err != nil {
		return err
	}
	if next.IsZero() {
		return common.Remove(kv, balanceKey(addr))
	}
	return common.Save(kv, balanceKey(addr), &next)
}

func move(kv storage.KV, from, to crypto.Address, amount num.Uint256) error {
	if amount.IsZero() {
		return ErrInvalidZeroAmount
	}
	if err := debit(kv, from, amount); err != nil {
		return err
	}
	return credit(kv, to, amount)
}
