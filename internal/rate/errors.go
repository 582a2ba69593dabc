package rate

import "errors"

var (
	// ErrRateLimited reports a key whose attempt budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable reports a failed Redis round trip.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
