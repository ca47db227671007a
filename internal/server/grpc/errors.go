package grpc

import (
	"errors"

	"github.com/dmitrijs2005/webxfer/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus converts a service error into a gRPC status. Missing, exhausted
// and expired files share one response.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case common.IsUnavailable(err):
		return status.Error(codes.NotFound, "file unavailable")
	case errors.Is(err, common.ErrMalformedToken),
		errors.Is(err, common.ErrMalformedSalt),
		errors.Is(err, common.ErrInvalidPolicy),
		errors.Is(err, common.ErrPayloadTooLarge):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limit exceeded")
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "unauthorized")
	}
	return status.Error(codes.Internal, "internal error")
}
