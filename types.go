package authtokens

import (
	"context"
	"io"

	"github.com/backcommerce/authtokens/internal/audit"
)

// Role defines a public type used by authtokens APIs.
//
// Role instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Role string

const (
	// RoleUser is an exported constant or variable used by the token engine.
	RoleUser Role = "USER"
	// RoleAdmin is an exported constant or variable used by the token engine.
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// Principal defines a public type used by authtokens APIs.
//
// Principal instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Principal struct {
	SubjectID   string
	DisplayName string
	Email       string
	Role        Role
}

// TokenPair defines a public type used by authtokens APIs.
//
// TokenPair instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// IdentityProvider supplies the authoritative identity record for a subject.
// Reissue re-reads the subject through it so identity changes (display name,
// email, role) take effect on the next rotation. Implementations must return
// [ErrSubjectNotFound] (or an error wrapping it) when the subject no longer
// exists.
type IdentityProvider interface {
	GetByID(ctx context.Context, subjectID string) (Principal, error)
}

// AuditEvent defines a public type used by authtokens APIs.
//
// AuditEvent instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditEvent = audit.Event

// AuditSink defines a public type used by authtokens APIs.
//
// AuditSink instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditSink = audit.Sink

// NoOpAuditSink describes the noopauditsink operation and its observable behavior.
//
// NoOpAuditSink may return an error when input validation, dependency calls, or security checks fail.
// NoOpAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NoOpAuditSink() AuditSink {
	return audit.NoOpSink{}
}

// NewChannelAuditSink describes the newchannelauditsink operation and its observable behavior.
//
// NewChannelAuditSink may return an error when input validation, dependency calls, or security checks fail.
// NewChannelAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewChannelAuditSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONAuditSink describes the newjsonauditsink operation and its observable behavior.
//
// NewJSONAuditSink may return an error when input validation, dependency calls, or security checks fail.
// NewJSONAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewJSONAuditSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
