// Package idrelay is a minimal identity relay: it delegates login to an external
// identity provider through an authorization-code exchange, then issues its own
// signed, 24-hour session credential so downstream services never call the
// provider per request.
//
// The credential lifecycle has three parts, each usable on its own:
//
//   - [Issuer] signs verified [IdentityClaims] into a [SessionCredential].
//   - [Transport] carries the token in the HttpOnly cookie named [CookieName].
//   - [Verifier] accepts or rejects a presented token at a given instant.
//
// [Relay], assembled by [Builder], wires them to a [Provider] and adds the login
// challenge, an optional Redis denylist for logout, attempt limiting, metrics
// and audit events. Relay methods are safe for concurrent use after Build.
//
// # Architecture boundaries
//
// idrelay is the public surface. Signing lives in the jwt sub-package, HTTP
// routing in httpapi, providers under provider/. Nothing in this package reads
// the process environment; cmd/idrelay loads configuration once at startup.
package idrelay
