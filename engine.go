package authtokens

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/backcommerce/authtokens/internal/audit"
	"github.com/backcommerce/authtokens/refresh"
	"github.com/backcommerce/authtokens/token"
)

// Engine defines a public type used by authtokens APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	cfg      Config
	codec    *token.Codec
	store    *refresh.Store
	identity IdentityProvider
	audit    *audit.Dispatcher
	metrics  *Metrics
}

func (e *Engine) ready() bool {
	return e != nil && e.codec != nil && e.store != nil && e.identity != nil
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Login mints an access/refresh pair for an already-authenticated principal
// and unconditionally installs the refresh credential as the subject's single
// live record. A prior record from another device is overwritten: login
// always wins, and the displaced session loses its reissue path.
func (e *Engine) Login(ctx context.Context, principal Principal) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}
	if principal.SubjectID == "" || !principal.Role.Valid() {
		return TokenPair{}, ErrInvalidPrincipal
	}

	access, err := e.codec.IssueAccess(principal.SubjectID, principal.DisplayName, principal.Email, string(principal.Role))
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return TokenPair{}, err
	}

	refreshToken, err := e.codec.IssueRefresh(principal.SubjectID)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return TokenPair{}, err
	}

	if err := e.store.Put(ctx, principal.SubjectID, refreshToken, e.cfg.JWT.RefreshTTL); err != nil {
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricStoreUnavailable)
		e.emitAudit(ctx, auditEventLoginFailure, principal.SubjectID, false, err, reasonMetadata(auditReasonStore))
		return TokenPair{}, ErrStoreUnavailable
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, principal.SubjectID, true, nil, nil)

	return TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Authenticate resolves an access credential to a [Principal] purely from the
// credential itself: signature, then claims, no store round trip. The
// returned snapshot is the identity as of issue time. [ErrTokenExpired]
// means the caller should reissue; [ErrTokenInvalid] means re-authenticate.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	}()

	claims, err := e.codec.VerifyAccess(accessToken)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			e.metricInc(MetricAuthenticateExpired)
			return nil, ErrTokenExpired
		}
		e.metricInc(MetricAuthenticateInvalid)
		return nil, ErrTokenInvalid
	}

	role := Role(claims.Role)
	if !role.Valid() {
		e.metricInc(MetricAuthenticateInvalid)
		return nil, ErrTokenInvalid
	}

	e.metricInc(MetricAuthenticateSuccess)

	return &Principal{
		SubjectID:   claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		Role:        role,
	}, nil
}

// Reissue describes the reissue operation and its observable behavior.
//
// Reissue may return an error when input validation, dependency calls, or security checks fail.
// Reissue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Reissue exchanges a live refresh credential for a fresh pair. The presented
// credential is verified, a successor is minted, and the store slot is
// rotated by atomic compare-and-swap; only the winner of the swap receives
// tokens. The new access credential is built from the identity provider's
// current record, not from the old credential, so identity changes take
// effect here.
//
// A presented credential that no longer matches the slot (already rotated,
// logged out, or overwritten by a newer login) fails with
// [ErrRotationConflict] and is never retried: the caller's only remedy is a
// full re-login.
func (e *Engine) Reissue(ctx context.Context, refreshToken string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	claims, err := e.codec.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			e.metricInc(MetricReissueExpired)
			e.emitAudit(ctx, auditEventReissueReject, "", false, err, reasonMetadata(auditReasonExpired))
			return TokenPair{}, ErrTokenExpired
		}
		e.metricInc(MetricReissueInvalid)
		e.emitAudit(ctx, auditEventReissueReject, "", false, err, reasonMetadata(auditReasonInvalid))
		return TokenPair{}, ErrTokenInvalid
	}

	subjectID := claims.Subject

	next, err := e.codec.IssueRefresh(subjectID)
	if err != nil {
		e.metricInc(MetricReissueInvalid)
		return TokenPair{}, err
	}

	status, err := e.store.Rotate(ctx, subjectID, refreshToken, next, e.cfg.JWT.RefreshTTL)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		e.emitAudit(ctx, auditEventReissueReject, subjectID, false, err, reasonMetadata(auditReasonStore))
		return TokenPair{}, ErrStoreUnavailable
	}

	switch status {
	case refresh.RotateMissing:
		e.metricInc(MetricReissueConflict)
		e.emitAudit(ctx, auditEventReissueReject, subjectID, false, ErrRotationConflict, reasonMetadata(auditReasonMissing))
		return TokenPair{}, ErrRotationConflict
	case refresh.RotateMismatch:
		// The slot holds a different live credential: the presented one was
		// already rotated or displaced. Classic replay shape.
		e.metricInc(MetricReissueConflict)
		e.metricInc(MetricReplayDetected)
		e.emitAudit(ctx, auditEventReissueReject, subjectID, false, ErrRotationConflict, reasonMetadata(auditReasonMismatch))
		return TokenPair{}, ErrRotationConflict
	}

	principal, err := e.identity.GetByID(ctx, subjectID)
	if err != nil {
		// Rotation already happened but the subject is gone. Clear the slot
		// so the minted successor (which the caller never receives) cannot
		// linger as a live credential.
		if delErr := e.store.Delete(ctx, subjectID); delErr != nil {
			log.Print("authtokens: failed to clear refresh slot after identity lookup failure: ", delErr)
		}
		e.metricInc(MetricReissueInvalid)
		e.emitAudit(ctx, auditEventReissueReject, subjectID, false, err, reasonMetadata(auditReasonNoSubject))
		if errors.Is(err, ErrSubjectNotFound) {
			return TokenPair{}, ErrSubjectNotFound
		}
		return TokenPair{}, err
	}

	access, err := e.codec.IssueAccess(principal.SubjectID, principal.DisplayName, principal.Email, string(principal.Role))
	if err != nil {
		e.metricInc(MetricReissueInvalid)
		return TokenPair{}, err
	}

	e.metricInc(MetricReissueSuccess)
	e.emitAudit(ctx, auditEventReissueSuccess, subjectID, true, nil, nil)

	return TokenPair{AccessToken: access, RefreshToken: next}, nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Logout deletes the subject's refresh record, killing the reissue path.
// Outstanding access credentials stay usable until they expire; there is no
// revocation list. Logging out a subject with no record is a success.
func (e *Engine) Logout(ctx context.Context, subjectID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if subjectID == "" {
		return ErrInvalidPrincipal
	}

	if err := e.store.Delete(ctx, subjectID); err != nil {
		e.metricInc(MetricStoreUnavailable)
		e.emitAudit(ctx, auditEventLogout, subjectID, false, err, reasonMetadata(auditReasonStore))
		return ErrStoreUnavailable
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, subjectID, true, nil, nil)
	return nil
}

// RefreshCookie builds the HttpOnly cookie carrying the refresh credential.
// SameSite=Strict keeps the credential off cross-site requests; Secure comes
// from config so local development over plain HTTP stays possible.
func (e *Engine) RefreshCookie(refreshToken string) *http.Cookie {
	return &http.Cookie{
		Name:     e.cfg.Cookie.Name,
		Value:    refreshToken,
		Path:     e.cfg.Cookie.Path,
		MaxAge:   int(e.cfg.JWT.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   e.cfg.Cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// LogoutCookie builds the deletion counterpart of [Engine.RefreshCookie].
func (e *Engine) LogoutCookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.cfg.Cookie.Name,
		Value:    "",
		Path:     e.cfg.Cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   e.cfg.Cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}
