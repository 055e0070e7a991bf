package authtokens

import (
	"context"
	"time"

	"github.com/backcommerce/authtokens/internal/audit"
)

// Audit event vocabulary. One event per boundary operation outcome;
// Authenticate is deliberately unaudited (hot path, no state change).
const (
	auditEventLoginSuccess   = "login_success"
	auditEventLoginFailure   = "login_failure"
	auditEventReissueSuccess = "reissue_success"
	auditEventReissueReject  = "reissue_rejected"
	auditEventLogout         = "logout"
)

// Rejection reasons carried in event metadata.
const (
	auditReasonExpired   = "expired"
	auditReasonInvalid   = "invalid"
	auditReasonMissing   = "missing"
	auditReasonMismatch  = "mismatch"
	auditReasonNoSubject = "subject_not_found"
	auditReasonStore     = "store_unavailable"
)

func (e *Engine) emitAudit(ctx context.Context, eventType, subjectID string, success bool, opErr error, metadata map[string]string) {
	if e.audit == nil {
		return
	}

	event := audit.Event{
		Timestamp: time.Now(),
		EventType: eventType,
		SubjectID: subjectID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}

	e.audit.Emit(ctx, event)
}

func reasonMetadata(reason string) map[string]string {
	return map[string]string{"reason": reason}
}
