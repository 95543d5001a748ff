package routes

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"orchai/core"
	"orchai/core/genesis"
	"orchai/crypto"
	mm "orchai/native/moneymarket"
)

func (s *server) handleContractQuery(w http.ResponseWriter, r *http.Request) {
	contract, err := s.pathAddress(r, "address")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req json.RawMessage
	if r.Method == http.MethodPost {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		req = raw
	} else {
		req = json.RawMessage(r.URL.Query().Get("msg"))
	}
	if !json.Valid(req) {
		s.writeError(w, r, fmt.Errorf("%w: query message must be a JSON object", errBadRequest))
		return
	}
	res, err := s.backend.Query(r.Context(), contract, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res)
}

type marketStateResponse struct {
	core.MarketSnapshot
	BorrowAPR  string `json:"borrow_apr"`
	DepositAPR string `json:"deposit_apr"`
}

func (s *server) handleMarketState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.backend.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var epoch mm.OverseerEpochStateResponse
	if err := s.query(r, s.backend.Deployment().Overseer, mm.OverseerQueryMsg{EpochState: &mm.Empty{}}, &epoch); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, marketStateResponse{
		MarketSnapshot: snap,
		BorrowAPR:      snap.BorrowRate.Std().Mul(s.blockRate).StringFixed(6),
		DepositAPR:     epoch.DepositRate.Std().Mul(s.blockRate).StringFixed(6),
	})
}

func (s *server) handleBorrower(w http.ResponseWriter, r *http.Request) {
	borrower, err := s.pathAccount(r, "address")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	height := s.backend.Block().Height
	var info mm.BorrowerInfoResponse
	req := mm.MarketQueryMsg{BorrowerInfo: &mm.BorrowerInfoQuery{Borrower: borrower, BlockHeight: &height}}
	if err := s.query(r, s.backend.Deployment().Market, req, &info); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *server) handleBorrowLimit(w http.ResponseWriter, r *http.Request) {
	borrower, err := s.pathAccount(r, "address")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var limit mm.BorrowLimitResponse
	if err := s.query(r, s.backend.Deployment().Overseer, mm.OverseerQueryMsg{BorrowLimit: &mm.BorrowLimitQuery{Borrower: borrower}}, &limit); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, limit)
}

func (s *server) handleLatestBlock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Block())
}

func (s *server) handleDeployment(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Deployment())
}

func (s *server) query(r *http.Request, contract crypto.Address, req, out any) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	res, err := s.backend.Query(r.Context(), contract, raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(res, out)
}

func (s *server) pathAddress(r *http.Request, param string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(chi.URLParam(r, param)))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%w: %s: %v", errBadRequest, param, err)
	}
	return addr, nil
}

// pathAccount also accepts "@name" aliases.
func (s *server) pathAccount(r *http.Request, param string) (crypto.Address, error) {
	addr, err := genesis.ParseAccount(chi.URLParam(r, param))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%w: %s: %v", errBadRequest, param, err)
	}
	return addr, nil
}
