package routes

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"orchai/services/indexer"
)

// History lists indexed contract events.
type History interface {
	Events(ctx context.Context, f indexer.Filter) ([]indexer.Event, error)
}

type historyResponse struct {
	Events []indexer.Event `json:"events"`
}

func (s *server) handleEventHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := indexer.Filter{
		Contract: q.Get("contract"),
		Sender:   q.Get("sender"),
		Action:   q.Get("action"),
		Type:     q.Get("type"),
		TxHash:   q.Get("tx"),
	}
	var err error
	if filter.FromHeight, err = uintParam(q.Get("from")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if filter.ToHeight, err = uintParam(q.Get("to")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, r, fmt.Errorf("%w: invalid limit %q", errBadRequest, raw))
			return
		}
		filter.Limit = limit
	}
	evs, err := s.history.Events(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if evs == nil {
		evs = []indexer.Event{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Events: evs})
}

func uintParam(raw string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid height %q", errBadRequest, raw)
	}
	return v, nil
}
