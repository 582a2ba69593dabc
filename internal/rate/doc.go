// Package rate bounds login attempts per key.
//
// # Window semantics
//
// [RedisLimiter] uses fixed-window counters: INCR plus EXPIRE on the first hit
// of a window, keyed as <prefix>:<key>. It is shared by every relay replica.
//
// [MemoryLimiter] keeps one token bucket per key in process memory and evicts
// idle keys in the background. It is used when no Redis client is configured.
//
// Both report an exhausted budget as [ErrRateLimited] and a backend failure as
// [ErrRedisUnavailable].
package rate
