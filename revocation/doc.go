// Package revocation stores revoked credential token IDs in Redis.
//
// Each entry lives only as long as the credential it revokes would have, so the
// denylist never outgrows the set of still-unexpired credentials.
package revocation
