// Package jwt signs and parses idrelay session credentials as compact HMAC-signed
// JWTs with a pinned algorithm and strict, leeway-free expiry semantics.
//
// Every parse failure is reported as exactly one of [ErrMalformed],
// [ErrSignatureInvalid] or [ErrExpired] so callers can classify rejections
// without inspecting golang-jwt internals.
package jwt
