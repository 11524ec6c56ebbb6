package driven

import "context"

// TokenSource supplies a valid bearer token for the remote backend, minting
// or refreshing one as needed. Implementations cache aggressively; callers
// must not hold returned values across requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
