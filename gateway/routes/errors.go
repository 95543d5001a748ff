package routes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"orchai/core/host"
	"orchai/core/num"
	mm "orchai/native/moneymarket"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("bad request")

// statusFor maps node errors onto HTTP status codes.
func statusFor(err error) (int, string) {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var contractErr *host.ContractError
	switch {
	case errors.Is(err, mm.ErrUnauthorized), errors.Is(err, host.ErrContractSender):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, host.ErrUnknownContract):
		return http.StatusNotFound, "unknown_contract"
	case errors.Is(err, errBadRequest),
		errors.Is(err, host.ErrEmptyMessage),
		errors.Is(err, num.ErrInvalidNumber),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return http.StatusBadRequest, "invalid_request"
	case errors.As(err, &contractErr):
		return http.StatusBadRequest, "rejected"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
