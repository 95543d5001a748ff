package rpc

import (
	"encoding/json"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"orchai/core/host"
	"orchai/core/num"
	mm "orchai/native/moneymarket"
)

var errInvalidArgument = errors.New("invalid argument")

func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	var contractErr *host.ContractError
	switch {
	case errors.Is(err, host.ErrUnknownContract):
		return status.Errorf(codes.NotFound, "%v", err)
	case errors.Is(err, mm.ErrUnauthorized):
		return status.Errorf(codes.PermissionDenied, "unauthorized")
	case errors.Is(err, errInvalidArgument),
		errors.Is(err, num.ErrInvalidNumber),
		errors.As(err, &syntaxErr),
		errors.As(err, &contractErr):
		return status.Errorf(codes.InvalidArgument, "%v", err)
	default:
		return status.Errorf(codes.Internal, "internal error")
	}
}
