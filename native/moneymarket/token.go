package moneymarket

import (
	"encoding/json"
	"fmt"

	"orchai/core/host"
	"orchai/core/num"
	"orchai/crypto"
)

// Cw20ReceiveMsg is delivered to a contract by the token's Send handler.
// Msg carries the receiver's hook message.
type Cw20ReceiveMsg struct {
	Sender crypto.Address  `json:"sender"`
	Amount num.Uint256     `json:"amount"`
	Msg    json.RawMessage `json:"msg"`
}

// ReceiveEnvelope wraps Cw20ReceiveMsg for dispatch to the receiving contract.
type ReceiveEnvelope struct {
	Receive *Cw20ReceiveMsg `json:"receive"`
}

type Coin struct {
	Address crypto.Address `json:"address"`
	Amount  num.Uint256    `json:"amount"`
}

type MinterResponse struct {
	Minter crypto.Address `json:"minter"`
	Cap    *num.Uint256   `json:"cap,omitempty"`
}

// InitHook is executed by a freshly instantiated contract against
// ContractAddr, letting the creator learn the new address.
type InitHook struct {
	ContractAddr crypto.Address  `json:"contract_addr"`
	Msg          json.RawMessage `json:"msg"`
}

type TokenInstantiateMsg struct {
	Name            string          `json:"name"`
	Symbol          string          `json:"symbol"`
	Decimals        uint8           `json:"decimals"`
	InitialBalances []Coin          `json:"initial_balances"`
	Mint            *MinterResponse `json:"mint,omitempty"`
	InitHook        *InitHook       `json:"init_hook,omitempty"`
}

type TokenExecuteMsg struct {
	Transfer *TransferMsg `json:"transfer,omitempty"`
	Send     *SendMsg     `json:"send,omitempty"`
	Mint     *MintMsg     `json:"mint,omitempty"`
	Burn     *BurnMsg     `json:"burn,omitempty"`
}

type TransferMsg struct {
	Recipient crypto.Address `json:"recipient"`
	Amount    num.Uint256    `json:"amount"`
}

type SendMsg struct {
	Contract crypto.Address  `json:"contract"`
	Amount   num.Uint256     `json:"amount"`
	Msg      json.RawMessage `json:"msg"`
}

type MintMsg struct {
	Recipient crypto.Address `json:"recipient"`
	Amount    num.Uint256    `json:"amount"`
}

type BurnMsg struct {
	Amount num.Uint256 `json:"amount"`
}

type TokenQueryMsg struct {
	Balance   *BalanceQuery `json:"balance,omitempty"`
	TokenInfo *Empty        `json:"token_info,omitempty"`
	Minter    *Empty        `json:"minter,omitempty"`
}

type BalanceQuery struct {
	Address crypto.Address `json:"address"`
}

type BalanceResponse struct {
	Balance num.Uint256 `json:"balance"`
}

type TokenInfoResponse struct {
	Name        string      `json:"name"`
	Symbol      string      `json:"symbol"`
	Decimals    uint8       `json:"decimals"`
	TotalSupply num.Uint256 `json:"total_supply"`
}

// Transfer moves amount of token from the emitting contract to recipient.
func Transfer(token, recipient crypto.Address, amount num.Uint256) host.Msg {
	return Execute(token, TokenExecuteMsg{Transfer: &TransferMsg{Recipient: recipient, Amount: amount}})
}

// Send moves amount of token to contract and invokes its Receive handler
// with hook.
func Send(token, contract crypto.Address, amount num.Uint256, hook any) (host.Msg, error) {
	raw, err := json.Marshal(hook)
	if err != nil {
		return host.Msg{}, fmt.Errorf("encode hook: %w", err)
	}
	return Execute(token, TokenExecuteMsg{Send: &SendMsg{Contract: contract, Amount: amount, Msg: raw}}), nil
}

// Mint issues amount of token to recipient. The emitter must be the minter.
func Mint(token, recipient crypto.Address, amount num.Uint256) host.Msg {
	return Execute(token, TokenExecuteMsg{Mint: &MintMsg{Recipient: recipient, Amount: amount}})
}

// Burn destroys amount of the emitter's own token balance.
func Burn(token crypto.Address, amount num.Uint256) host.Msg {
	return Execute(token, TokenExecuteMsg{Burn: &BurnMsg{Amount: amount}})
}
