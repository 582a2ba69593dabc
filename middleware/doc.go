// Package middleware exposes an HTTP guard that authenticates the session
// credential cookie through an idrelay.Relay.
//
// # Guards
//
//   - [Guard] reads the access_token cookie, calls Relay.Authenticate and stores
//     the [idrelay.VerificationResult] in the request context.
//
// Rejections are answered with a JSON body carrying a human message and a
// machine-readable reason (absent, malformed, bad_signature, expired, revoked).
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Relay calls. It does NOT parse
// tokens or read Redis itself; every decision comes from Relay.Authenticate.
package middleware
