package routes

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"orchai/core/events"
	"orchai/core/types"
	"orchai/gateway/config"
)

const wsWriteTimeout = 10 * time.Second

var errSlowConsumer = errors.New("subscriber fell behind")

type streamHub struct {
	max    int64
	buffer int
	active atomic.Int64
}

func newStreamHub(cfg config.WebsocketConfig) *streamHub {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 128
	}
	return &streamHub{max: int64(cfg.MaxSubscribers), buffer: buffer}
}

func (h *streamHub) acquire() bool {
	if h.max <= 0 {
		h.active.Add(1)
		return true
	}
	if h.active.Add(1) > h.max {
		h.active.Add(-1)
		return false
	}
	return true
}

func (h *streamHub) release() { h.active.Add(-1) }

// eventFilter narrows a stream by event type and contract attribute.
type eventFilter struct {
	types    map[string]struct{}
	contract string
}

func parseFilter(r *http.Request) eventFilter {
	f := eventFilter{contract: strings.TrimSpace(r.URL.Query().Get("contract"))}
	for _, raw := range r.URL.Query()["type"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				if f.types == nil {
					f.types = make(map[string]struct{})
				}
				f.types[t] = struct{}{}
			}
		}
	}
	return f
}

func (f eventFilter) match(ev *types.Event) bool {
	if len(f.types) > 0 {
		if _, ok := f.types[ev.Type]; !ok {
			return false
		}
	}
	return f.contract == "" || ev.Attributes["contract"] == f.contract
}

func (s *server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if !s.streams.acquire() {
		http.Error(w, "too many subscribers", http.StatusServiceUnavailable)
		return
	}
	defer s.streams.release()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	// Reads are discarded; CloseRead cancels ctx when the client goes away.
	ctx := conn.CloseRead(r.Context())
	if err := s.streamEvents(ctx, conn, parseFilter(r)); err != nil {
		switch {
		case errors.Is(err, errSlowConsumer):
			_ = conn.Close(websocket.StatusPolicyViolation, err.Error())
		case websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled):
			s.logger.Debug("event stream ended", slog.Any("error", err))
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *server) streamEvents(ctx context.Context, conn *websocket.Conn, filter eventFilter) error {
	queue := make(chan *types.Event, s.streams.buffer)
	var overflow atomic.Bool
	unsubscribe := s.backend.Events().Subscribe(events.EmitterFunc(func(ev events.Event) {
		payload := ev.Event()
		if payload == nil || !filter.match(payload) {
			return
		}
		select {
		case queue <- payload:
		default:
			overflow.Store(true)
		}
	}))
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-queue:
			if overflow.Load() {
				return errSlowConsumer
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev *types.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
