package relay

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies a failed notification.
type Kind string

const (
	KindTimeout        Kind = "timeout"
	KindUnknownTarget  Kind = "unknown_target"
	KindUnavailable    Kind = "unavailable"
	KindInvalidRequest Kind = "invalid_request"
	KindInternal       Kind = "internal"
)

// NotificationError reports a state notification that did not reach its target.
type NotificationError struct {
	Kind        Kind
	TargetID    string
	AccountName string
	State       string
	Routing     Routing
	Err         error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf(
		"relay: notify %s (account %q, state %q) [%s] via %s namespace=%s task_queue=%s open_account_task_queue=%s cert_configured=%t: %v",
		e.TargetID, e.AccountName, e.State, e.Kind,
		e.Routing.Address, e.Routing.Namespace, e.Routing.TaskQueue, e.Routing.OpenAccountTaskQueue, e.Routing.CertConfigured,
		e.Err,
	)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// Retryable is false when repeating the signal cannot succeed.
func (e *NotificationError) Retryable() bool {
	return e.Kind != KindUnknownTarget && e.Kind != KindInvalidRequest
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		return KindUnknownTarget
	}

	code := codes.Unknown
	var svcErr serviceerror.ServiceError
	if errors.As(err, &svcErr) {
		code = svcErr.Status().Code()
	} else if s, ok := status.FromError(err); ok {
		code = s.Code()
	}

	switch code {
	case codes.DeadlineExceeded:
		return KindTimeout
	case codes.NotFound:
		return KindUnknownTarget
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		return KindUnavailable
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange, codes.PermissionDenied, codes.Unauthenticated:
		return KindInvalidRequest
	default:
		return KindInternal
	}
}
