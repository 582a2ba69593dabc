package idrelay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/idrelay/internal"
	"github.com/MrEthical07/idrelay/internal/rate"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Relay ties a Provider to the credential lifecycle: it runs the login
// handshake, issues and attaches credentials, and authenticates later requests.
//
// Relay is built once by Builder and safe for concurrent use.
type Relay struct {
	config    Config
	issuer    *Issuer
	verifier  *Verifier
	transport *Transport
	provider  Provider
	limiter   AttemptLimiter
	denylist  Denylist
	audit     *auditDispatcher
	metrics   *Metrics
	log       zerolog.Logger
	now       func() time.Time
	closers   []func()
}

// Close flushes pending audit events and stops background workers.
func (r *Relay) Close() {
	if r == nil {
		return
	}
	if r.audit != nil {
		r.audit.Close()
	}
	for _, c := range r.closers {
		c()
	}
	r.closers = nil
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (r *Relay) AuditDropped() uint64 {
	if r == nil || r.audit == nil {
		return 0
	}
	return r.audit.Dropped()
}

// MetricsSnapshot returns a copy of the relay counters.
func (r *Relay) MetricsSnapshot() MetricsSnapshot {
	if r == nil || r.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return r.metrics.Snapshot()
}

// ProviderName returns the configured provider's name, or "" without one.
func (r *Relay) ProviderName() string {
	if r == nil || r.provider == nil {
		return ""
	}
	return r.provider.Name()
}

// RevocationEnabled reports whether logout writes to a denylist.
func (r *Relay) RevocationEnabled() bool {
	return r != nil && r.denylist != nil
}

func (r *Relay) metricInc(id MetricID) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.Inc(id)
}

// Issue signs claims at the relay clock.
func (r *Relay) Issue(claims IdentityClaims) (SessionCredential, error) {
	if r == nil || r.issuer == nil {
		return SessionCredential{}, ErrRelayNotReady
	}
	cred, err := r.issuer.Issue(claims, r.now())
	if err != nil {
		return SessionCredential{}, err
	}
	r.metricInc(MetricCredentialIssued)
	return cred, nil
}

// Verify checks token at the relay clock without consulting the denylist.
func (r *Relay) Verify(token string) VerificationResult {
	if r == nil || r.verifier == nil {
		return invalidResult(ReasonMalformed)
	}
	return r.verifier.Verify(token, r.now())
}

// BeginLogin stores a fresh state and PKCE verifier in short-lived cookies and
// returns the provider URL the browser should be redirected to.
func (r *Relay) BeginLogin(w http.ResponseWriter, req *http.Request) (string, error) {
	if r == nil || r.provider == nil {
		return "", ErrRelayNotReady
	}

	state, err := internal.NewState()
	if err != nil {
		return "", fmt.Errorf("generate login state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	r.transport.attachChallenge(w, state, verifier, r.config.Login.ChallengeTTL)
	return r.provider.AuthCodeURL(state, verifier), nil
}

// CompleteLogin handles the provider callback: it checks the attempt budget and
// the state, exchanges the code, then issues and attaches a credential.
func (r *Relay) CompleteLogin(ctx context.Context, w http.ResponseWriter, req *http.Request) (SessionCredential, error) {
	if r == nil || r.provider == nil || r.issuer == nil {
		return SessionCredential{}, ErrRelayNotReady
	}

	key := attemptKey(ctx)
	if err := r.checkAttempt(ctx, key); err != nil {
		return SessionCredential{}, err
	}

	query := req.URL.Query()
	storedState, verifier := r.transport.readChallenge(req)
	r.transport.clearChallenge(w)

	if !internal.EqualState(query.Get("state"), storedState) {
		return SessionCredential{}, r.loginFailed(ctx, ErrStateMismatch)
	}
	code := query.Get("code")
	if code == "" {
		return SessionCredential{}, r.loginFailed(ctx, ErrAuthorizationCodeMissing)
	}

	claims, err := r.provider.Exchange(ctx, code, verifier)
	if err != nil {
		if !errors.Is(err, ErrProviderExchange) && !errors.Is(err, ErrIdentityEmailMissing) {
			err = fmt.Errorf("%w: %v", ErrProviderExchange, err)
		}
		return SessionCredential{}, r.loginFailed(ctx, err)
	}
	if claims.IsZero() {
		return SessionCredential{}, r.loginFailed(ctx, ErrIdentityEmailMissing)
	}

	cred, err := r.Issue(claims)
	if err != nil {
		return SessionCredential{}, r.loginFailed(ctx, err)
	}
	r.transport.Attach(w, cred)

	if r.limiter != nil {
		if err := r.limiter.Reset(ctx, key); err != nil {
			r.log.Warn().Err(err).Msg("login limiter reset failed")
		}
	}

	r.metricInc(MetricLoginSuccess)
	r.emitAudit(ctx, auditEventLoginSuccess, true, cred.Claims.Email(), cred.TokenID, nil, func() map[string]string {
		return map[string]string{"provider": r.provider.Name()}
	})

	return cred, nil
}

// Authenticate extracts and verifies the request credential at the relay clock
// and, when revocation is enabled, checks the denylist. Invalid credentials
// return the rejecting result together with its error.
func (r *Relay) Authenticate(ctx context.Context, req *http.Request) (VerificationResult, error) {
	if r == nil || r.verifier == nil {
		return VerificationResult{}, ErrRelayNotReady
	}

	start := time.Now()
	defer func() {
		if r.metrics.LatencyEnabled() {
			r.metrics.Observe(MetricVerifyLatency, time.Since(start))
		}
	}()

	token, err := r.transport.Extract(req)
	if err != nil {
		r.metricInc(MetricVerifyAbsent)
		return VerificationResult{}, ErrCredentialAbsent
	}

	res := r.verifier.Verify(token, r.now())
	if !res.Valid() {
		return r.rejected(ctx, res), res.Err()
	}

	if r.denylist != nil {
		revoked, err := r.denylist.IsRevoked(ctx, res.TokenID)
		if err != nil {
			r.log.Error().Err(err).Msg("denylist lookup failed")
			return VerificationResult{}, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
		}
		if revoked {
			return r.rejected(ctx, invalidResult(ReasonRevoked)), ErrCredentialRevoked
		}
	}

	r.metricInc(MetricVerifySuccess)
	return res, nil
}

// Logout clears the credential cookie. With revocation enabled the presented
// credential's token ID is denylisted for its remaining lifetime.
func (r *Relay) Logout(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
	if r == nil || r.transport == nil {
		return ErrRelayNotReady
	}
	r.transport.Clear(w)
	r.metricInc(MetricLogout)

	token, err := r.transport.Extract(req)
	if err != nil {
		r.emitAudit(ctx, auditEventLogout, true, "", "", nil, nil)
		return nil
	}

	now := r.now()
	res := r.verifier.Verify(token, now)
	if !res.Valid() {
		r.emitAudit(ctx, auditEventLogout, true, "", "", nil, nil)
		return nil
	}

	if r.denylist != nil {
		if err := r.denylist.Revoke(ctx, res.TokenID, res.ExpiresAt.Sub(now)); err != nil {
			r.log.Error().Err(err).Str("jti", res.TokenID).Msg("denylist write failed")
			r.emitAudit(ctx, auditEventLogout, false, res.Claims.Email(), res.TokenID, ErrRevocationUnavailable, nil)
			return fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
		}
	}

	r.emitAudit(ctx, auditEventLogout, true, res.Claims.Email(), res.TokenID, nil, func() map[string]string {
		return map[string]string{"revoked": fmt.Sprint(r.denylist != nil)}
	})
	return nil
}

func (r *Relay) checkAttempt(ctx context.Context, key string) error {
	if r.limiter == nil {
		return nil
	}
	err := r.limiter.Allow(ctx, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRateLimited), errors.Is(err, rate.ErrRateLimited):
		r.metricInc(MetricLoginRateLimited)
		r.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrRateLimited, nil)
		return ErrRateLimited
	default:
		// fail open on limiter outages
		r.log.Warn().Err(err).Msg("login limiter unavailable")
		return nil
	}
}

func (r *Relay) loginFailed(ctx context.Context, err error) error {
	r.metricInc(MetricLoginFailure)
	r.emitAudit(ctx, auditEventLoginFailure, false, "", "", err, nil)
	return err
}

func (r *Relay) rejected(ctx context.Context, res VerificationResult) VerificationResult {
	r.metricInc(metricForReason(res.Reason))
	r.emitAudit(ctx, auditEventCredentialRejected, false, "", "", res.Err(), func() map[string]string {
		return map[string]string{"reason": res.Reason.String()}
	})
	return res
}

func attemptKey(ctx context.Context) string {
	if ip := clientIPFromContext(ctx); ip != "" {
		return ip
	}
	return "unknown"
}
