package idrelay

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginRateLimited   = "login_rate_limited"
	auditEventCredentialRejected = "credential_rejected"
	auditEventLogout             = "logout"
)

// AuditErrorCode is the stable error label written into audit events.
type AuditErrorCode string

const (
	auditErrStateMismatch    AuditErrorCode = "state_mismatch"
	auditErrCodeMissing      AuditErrorCode = "code_missing"
	auditErrEmailMissing     AuditErrorCode = "email_missing"
	auditErrProviderExchange AuditErrorCode = "provider_exchange"
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrMalformed        AuditErrorCode = "malformed"
	auditErrBadSignature     AuditErrorCode = "bad_signature"
	auditErrExpired          AuditErrorCode = "expired"
	auditErrRevoked          AuditErrorCode = "revoked"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (r *Relay) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if r == nil || r.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if id := CorrelationIDFromContext(ctx); id != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["correlation_id"] = id
	}

	event := AuditEvent{
		Timestamp: r.now().UTC(),
		EventType: eventType,
		Subject:   subject,
		TokenID:   tokenID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	r.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrStateMismatch):
		return auditErrStateMismatch
	case errors.Is(err, ErrAuthorizationCodeMissing):
		return auditErrCodeMissing
	case errors.Is(err, ErrIdentityEmailMissing):
		return auditErrEmailMissing
	case errors.Is(err, ErrProviderExchange):
		return auditErrProviderExchange
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrCredentialMalformed):
		return auditErrMalformed
	case errors.Is(err, ErrCredentialSignatureInvalid):
		return auditErrBadSignature
	case errors.Is(err, ErrCredentialExpired):
		return auditErrExpired
	case errors.Is(err, ErrCredentialRevoked):
		return auditErrRevoked
	case errors.Is(err, ErrRevocationUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
