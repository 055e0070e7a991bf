package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrExpired reports a correctly signed credential whose lifetime has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalid reports a credential that failed any check other than expiry.
	ErrInvalid = errors.New("invalid token")
)

const (
	// RefreshTokenType is the value of the "type" claim carried by refresh
	// credentials. Access credentials never carry the claim.
	RefreshTokenType = "refresh"

	signingAlg = "HS256"

	minSecretLen = 16
	maxLeeway    = 2 * time.Minute
)

// Config defines a public type used by authtokens APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// Secret is the HMAC key shared by issue and verify. Minimum 16 bytes.
	Secret []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Leeway is the clock-skew grace window applied on verification only.
	// Bounded to [0, 2m].
	Leeway time.Duration

	// Issuer is stamped into the "iss" claim when non-empty. It is not
	// enforced on verification.
	Issuer string
}

// AccessClaims is the claim set of an access credential: identity snapshot
// plus the registered claims. The snapshot is whatever the subject looked
// like at issue time and goes stale until the next reissue.
type AccessClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims is the minimal claim set of a refresh credential. The type
// marker prevents an access credential from being replayed through the
// reissue path.
type RefreshClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Codec defines a public type used by authtokens APIs.
//
// Codec instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Codec struct {
	cfg    Config
	parser *jwt.Parser
}

// NewCodec describes the newcodec operation and its observable behavior.
//
// NewCodec may return an error when input validation, dependency calls, or security checks fail.
// NewCodec does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < minSecretLen {
		return nil, fmt.Errorf("token: secret must be at least %d bytes", minSecretLen)
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("token: access ttl must be positive")
	}
	if cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: refresh ttl must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, fmt.Errorf("token: leeway must be within [0, %s]", maxLeeway)
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret

	return &Codec{
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingAlg}),
			jwt.WithLeeway(cfg.Leeway),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// IssueAccess mints a signed access credential carrying the subject's
// identity snapshot. Lifetime is Config.AccessTTL from now.
func (c *Codec) IssueAccess(subjectID, name, email, role string) (string, error) {
	if subjectID == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalid)
	}

	now := time.Now()
	claims := AccessClaims{
		Name:  name,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.AccessTTL)),
		},
	}

	return c.sign(claims)
}

// IssueRefresh mints a signed refresh credential for the subject. The "jti"
// claim is a fresh UUID so two credentials minted within the same second are
// still distinct strings; rotation depends on new != old.
func (c *Codec) IssueRefresh(subjectID string) (string, error) {
	if subjectID == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalid)
	}

	now := time.Now()
	claims := RefreshClaims{
		TokenType: RefreshTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    c.cfg.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.RefreshTTL)),
		},
	}

	return c.sign(claims)
}

// VerifyAccess checks signature first, then claims, and returns the decoded
// claim set. A tampered credential is always [ErrInvalid] even when its
// payload says it is expired: claims from an unverifiable credential are
// never inspected.
func (c *Codec) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.verify(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalid)
	}
	return claims, nil
}

// VerifyRefresh is VerifyAccess for refresh credentials, plus the type-marker
// check. A credential without type="refresh" (an access credential fed to the
// reissue path) is [ErrInvalid].
func (c *Codec) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.verify(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalid)
	}
	if claims.TokenType != RefreshTokenType {
		return nil, fmt.Errorf("%w: not a refresh credential", ErrInvalid)
	}
	return claims, nil
}

func (c *Codec) sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("token: signing failed: %w", err)
	}
	return signed, nil
}

func (c *Codec) verify(tokenString string, claims jwt.Claims) error {
	parsed, err := c.parser.ParseWithClaims(tokenString, claims, c.keyFunc)
	if err != nil {
		// jwt/v5 verifies the signature before validating claims, so an
		// expiry error here implies the signature already checked out.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !parsed.Valid {
		return ErrInvalid
	}
	return nil
}

func (c *Codec) keyFunc(*jwt.Token) (any, error) {
	return c.cfg.Secret, nil
}
