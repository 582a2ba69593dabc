package idrelay

import "errors"

var (
	// ErrConfiguration reports a missing secret, unsupported algorithm or any other
	// invalid setting. It is a startup error and never returned while serving.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrProviderExchange reports a failed authorization-code exchange or identity
	// lookup at the external provider.
	ErrProviderExchange = errors.New("provider exchange failed")
	// ErrIdentityEmailMissing reports provider identity claims without an email.
	ErrIdentityEmailMissing = errors.New("identity email missing")
	// ErrStateMismatch reports a login callback whose state does not match the
	// challenge cookie.
	ErrStateMismatch = errors.New("login state mismatch")
	// ErrAuthorizationCodeMissing reports a login callback without a code.
	ErrAuthorizationCodeMissing = errors.New("authorization code missing")
	// ErrRateLimited reports a client that exhausted its login attempt budget.
	ErrRateLimited = errors.New("login rate limited")

	// ErrCredentialAbsent reports a request carrying no credential cookie.
	ErrCredentialAbsent = errors.New("credential absent")
	// ErrCredentialMalformed reports a credential that is not a well-formed token.
	ErrCredentialMalformed = errors.New("credential malformed")
	// ErrCredentialSignatureInvalid reports a credential whose signature does not verify.
	ErrCredentialSignatureInvalid = errors.New("credential signature invalid")
	// ErrCredentialExpired reports a correctly signed credential past its expiry.
	ErrCredentialExpired = errors.New("credential expired")
	// ErrCredentialRevoked reports a credential whose token ID is on the denylist.
	ErrCredentialRevoked = errors.New("credential revoked")
	// ErrRevocationUnavailable reports that the denylist backend could not be reached.
	ErrRevocationUnavailable = errors.New("revocation backend unavailable")

	// ErrRelayNotReady reports use of a nil or unbuilt Relay.
	ErrRelayNotReady = errors.New("relay not initialized")
)
