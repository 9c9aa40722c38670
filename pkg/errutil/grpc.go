package errutil

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var grpcCodes = map[CoreStatus]codes.Code{
	StatusBadRequest:           codes.InvalidArgument,
	StatusValidationFailed:     codes.InvalidArgument,
	StatusUnsupportedMediaType: codes.InvalidArgument,
	StatusUnauthorized:         codes.Unauthenticated,
	StatusForbidden:            codes.PermissionDenied,
	StatusNotFound:             codes.NotFound,
	StatusConflict:             codes.AlreadyExists,
	// ledger rules (threshold, empty balance) reject a well formed request
	StatusUnprocessableEntity: codes.FailedPrecondition,
	StatusTooManyRequests:     codes.ResourceExhausted,
	StatusClientClosedRequest: codes.Canceled,
	StatusTimeout:             codes.DeadlineExceeded,
	StatusGatewayTimeout:      codes.DeadlineExceeded,
	StatusNotImplemented:      codes.Unimplemented,
	StatusBadGateway:          codes.Unavailable,
	StatusServiceUnavailable:  codes.Unavailable,
	StatusInternal:            codes.Internal,
}

// GRPCCode is the gRPC counterpart of HTTPStatus. Unmapped statuses are Unknown.
func (s CoreStatus) GRPCCode() codes.Code {
	if code, ok := grpcCodes[s]; ok {
		return code
	}
	return codes.Unknown
}

// ToGRPCError converts err into a status error. Errors that already carry a
// gRPC status pass through; anything unclassified becomes Internal.
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	var be BaseError
	if errors.As(err, &be) {
		return status.Error(be.Code.GRPCCode(), be.Message)
	}
	return status.Error(codes.Internal, err.Error())
}
