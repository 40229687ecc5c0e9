package grpc

import (
	"context"
	"errors"

	"github.com/fjod/bookcart/internal/domain"
	"github.com/fjod/bookcart/pkg/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrInvalidQuantity):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrCartNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrBookNotFound),
		errors.Is(err, domain.ErrCustomerNotFound),
		errors.Is(err, domain.ErrInvoiceNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInsufficientStock):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return codes.Aborted
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// toStatus converts a service error. Internal failures are logged here and
// reach the client only as a generic message.
func toStatus(ctx context.Context, method string, err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := codeFor(err)
	if code == codes.Internal {
		logger.FromContext(ctx).Error().Err(err).Str("method", method).Msg("grpc call failed")
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
