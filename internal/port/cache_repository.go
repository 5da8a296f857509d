package port

import "context"

type IdempotencyStore interface {
	// SetIdempotency claims a request id, returning false if it was
	// already claimed by an earlier submission.
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
