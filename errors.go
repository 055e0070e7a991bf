package authtokens

import "errors"

var (
	// ErrTokenExpired is an exported constant or variable used by the token engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is an exported constant or variable used by the token engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrRotationConflict is an exported constant or variable used by the token engine.
	ErrRotationConflict = errors.New("refresh rotation conflict")
	// ErrStoreUnavailable is an exported constant or variable used by the token engine.
	ErrStoreUnavailable = errors.New("refresh store unavailable")
	// ErrSubjectNotFound is an exported constant or variable used by the token engine.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrInvalidPrincipal is an exported constant or variable used by the token engine.
	ErrInvalidPrincipal = errors.New("invalid principal")
	// ErrEngineNotReady is an exported constant or variable used by the token engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
