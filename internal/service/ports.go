package service

import (
	"context"
	"errors"

	"github.com/pailhq/courier/pkg/errcode"
)

// BlockChecker is the read-only predicate supplied by the social-graph
// component. The core never mutates block state.
type BlockChecker interface {
	// IsBlocked reports whether a has blocked b (one direction).
	IsBlocked(ctx context.Context, a, b string) (bool, error)
}

// NotificationSink receives append-only notification records. Sink failures
// are logged and swallowed by callers; they never fail the triggering
// messaging operation.
type NotificationSink interface {
	Append(ctx context.Context, userId, actorId, verb, conversationId string) error
}

// AllowAllBlockChecker is the default BlockChecker when no social-graph
// component is wired.
type AllowAllBlockChecker struct{}

// IsBlocked always reports false
func (AllowAllBlockChecker) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	return false, nil
}

// toStoreErr translates a store error into the caller-facing taxonomy.
// Deadline expiry becomes the retryable timeout error; anything else is an
// internal error.
func toStoreErr(err error) *errcode.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errcode.ErrStoreTimeout
	}
	return errcode.ErrInternalServer
}
