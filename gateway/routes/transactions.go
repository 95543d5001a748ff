package routes

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"orchai/core/genesis"
	"orchai/core/types"
	"orchai/crypto"
	"orchai/gateway/middleware"
	mm "orchai/native/moneymarket"
)

type executeRequest struct {
	// Sender must match the token subject when auth is enabled.
	Sender   string          `json:"sender,omitempty"`
	Contract string          `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
}

type executeResponse struct {
	TxHash   string          `json:"tx_hash"`
	Height   uint64          `json:"height"`
	Contract string          `json:"contract,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Events   []*types.Event  `json:"events"`
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sender, err := s.resolveSender(r, req.Sender)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	contract, err := crypto.DecodeAddress(strings.TrimSpace(req.Contract))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: contract: %v", errBadRequest, err))
		return
	}
	res, err := s.backend.Submit(r.Context(), sender, contract, req.Msg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := executeResponse{
		TxHash: res.TxHash,
		Height: res.Height,
		Data:   res.Data,
		Events: make([]*types.Event, 0, len(res.Events)),
	}
	if !res.Contract.IsZero() {
		out.Contract = res.Contract.String()
	}
	for _, ev := range res.Events {
		out.Events = append(out.Events, ev.Event())
	}
	s.logger.Debug("transaction submitted",
		slog.String("sender", sender.String()),
		slog.String("contract", contract.String()),
		slog.String("txHash", res.TxHash))
	writeJSON(w, http.StatusOK, out)
}

// resolveSender takes the account from the token subject, falling back to the
// request body when auth is disabled.
func (s *server) resolveSender(r *http.Request, claimed string) (crypto.Address, error) {
	claimed = strings.TrimSpace(claimed)
	subject, authenticated := middleware.Subject(r.Context())
	if !authenticated {
		if claimed == "" {
			return crypto.Address{}, fmt.Errorf("%w: sender required", errBadRequest)
		}
		addr, err := genesis.ParseAccount(claimed)
		if err != nil {
			return crypto.Address{}, fmt.Errorf("%w: sender: %v", errBadRequest, err)
		}
		return addr, nil
	}
	addr, err := genesis.ParseAccount(subject)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%w: token subject is not an account", mm.ErrUnauthorized)
	}
	if claimed != "" {
		other, err := genesis.ParseAccount(claimed)
		if err != nil || other != addr {
			return crypto.Address{}, fmt.Errorf("%w: sender does not match token subject", mm.ErrUnauthorized)
		}
	}
	return addr, nil
}

func (s *server) decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		if err == io.EOF {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
