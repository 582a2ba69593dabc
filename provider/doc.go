// Package provider groups the identity providers a Relay can delegate login to.
//
// Each sub-package implements idrelay.Provider:
//
//   - google: OAuth 2.0 against Google, identity read from the userinfo endpoint.
//   - oidc: any OpenID Connect issuer, identity read from the verified ID token.
//   - static: a fixed identity for local development and tests.
//
// Providers return identity facts only. They never issue credentials or touch
// cookies; that is the Relay's job.
package provider
