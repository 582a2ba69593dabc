// Package internal contains helpers private to idrelay: login state generation
// and comparison.
//
// # Sub-packages
//
//   - config: viper-backed process configuration for cmd/idrelay
//   - logging: zerolog setup
//   - rate: login attempt limiters (Redis fixed window, in-memory token bucket)
package internal
