package authtokens

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubIdentity struct {
	mu      sync.RWMutex
	records map[string]Principal
}

func newStubIdentity() *stubIdentity {
	return &stubIdentity{records: map[string]Principal{}}
}

func (s *stubIdentity) put(p Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[p.SubjectID] = p
}

func (s *stubIdentity) GetByID(_ context.Context, subjectID string) (Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.records[subjectID]
	if !ok {
		return Principal{}, fmt.Errorf("%w: %s", ErrSubjectNotFound, subjectID)
	}
	return p, nil
}

func redisClientFor(t testing.TB, addr string) *redis.Client {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

type testFixture struct {
	engine   *Engine
	identity *stubIdentity
	redis    *miniredis.Miniredis
}

func newTestEngine(t testing.TB, mutate func(*Config)) *testFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.Leeway = 0
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	identity := newStubIdentity()
	identity.put(Principal{
		SubjectID:   "42",
		DisplayName: "alice",
		Email:       "alice@example.com",
		Role:        RoleUser,
	})

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithIdentityProvider(identity).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testFixture{engine: engine, identity: identity, redis: mr}
}

func (f *testFixture) login(t testing.TB) TokenPair {
	t.Helper()

	p, err := f.identity.GetByID(context.Background(), "42")
	if err != nil {
		t.Fatalf("identity lookup failed: %v", err)
	}
	pair, err := f.engine.Login(context.Background(), p)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return pair
}

func TestLoginIssuesPairAndStoresRefresh(t *testing.T) {
	f := newTestEngine(t, nil)
	pair := f.login(t)

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("Login returned an incomplete pair")
	}

	stored, err := f.redis.Get("rt:42")
	if err != nil {
		t.Fatalf("reading refresh record: %v", err)
	}
	if stored != pair.RefreshToken {
		t.Fatal("stored refresh record does not match the issued credential")
	}

	principal, err := f.engine.Authenticate(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if principal.SubjectID != "42" || principal.Role != RoleUser {
		t.Fatalf("unexpected principal: %+v", principal)
	}
	if principal.DisplayName != "alice" || principal.Email != "alice@example.com" {
		t.Fatalf("identity snapshot not carried in claims: %+v", principal)
	}
}

func TestLoginOverwritesPreviousSession(t *testing.T) {
	f := newTestEngine(t, nil)

	first := f.login(t)
	second := f.login(t)

	if first.RefreshToken == second.RefreshToken {
		t.Fatal("two logins issued the same refresh credential")
	}

	// The displaced credential has lost its reissue path.
	if _, err := f.engine.Reissue(context.Background(), first.RefreshToken); !errors.Is(err, ErrRotationConflict) {
		t.Fatalf("err = %v, want ErrRotationConflict", err)
	}

	// The live one still works.
	if _, err := f.engine.Reissue(context.Background(), second.RefreshToken); err != nil {
		t.Fatalf("Reissue of live credential failed: %v", err)
	}
}

func TestLoginRejectsInvalidPrincipal(t *testing.T) {
	f := newTestEngine(t, nil)

	cases := []Principal{
		{SubjectID: "", Role: RoleUser},
		{SubjectID: "42", Role: Role("SUPERVISOR")},
		{SubjectID: "42"},
	}
	for _, p := range cases {
		if _, err := f.engine.Login(context.Background(), p); !errors.Is(err, ErrInvalidPrincipal) {
			t.Errorf("Login(%+v): err = %v, want ErrInvalidPrincipal", p, err)
		}
	}
}

func TestAuthenticateExpired(t *testing.T) {
	f := newTestEngine(t, func(cfg *Config) {
		cfg.JWT.AccessTTL = time.Nanosecond
	})
	pair := f.login(t)

	_, err := f.engine.Authenticate(context.Background(), pair.AccessToken)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestAuthenticateTamperedIsInvalid(t *testing.T) {
	f := newTestEngine(t, nil)
	pair := f.login(t)

	parts := strings.Split(pair.AccessToken, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err := f.engine.Authenticate(context.Background(), tampered)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
	if errors.Is(err, ErrTokenExpired) {
		t.Fatal("tampered credential reported as expired")
	}
}

func TestAuthenticateGarbage(t *testing.T) {
	f := newTestEngine(t, nil)

	for _, input := range []string{"", "garbage", "a.b.c"} {
		if _, err := f.engine.Authenticate(context.Background(), input); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Authenticate(%q): err = %v, want ErrTokenInvalid", input, err)
		}
	}
}

func TestReissueRotatesAndKillsOldCredential(t *testing.T) {
	f := newTestEngine(t, nil)
	pair := f.login(t)

	next, err := f.engine.Reissue(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Reissue failed: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("Reissue returned the presented credential")
	}
	if next.AccessToken == "" {
		t.Fatal("Reissue returned no access credential")
	}

	// Replaying the consumed credential must conflict, not mint again.
	if _, err := f.engine.Reissue(context.Background(), pair.RefreshToken); !errors.Is(err, ErrRotationConflict) {
		t.Fatalf("replay err = %v, want ErrRotationConflict", err)
	}

	if got := f.engine.metrics.Value(MetricReplayDetected); got != 1 {
		t.Errorf("replay metric = %d, want 1", got)
	}

	// The successor credential chains on.
	if _, err := f.engine.Reissue(context.Background(), next.RefreshToken); err != nil {
		t.Fatalf("chained Reissue failed: %v", err)
	}
}

func TestReissuePicksUpIdentityChanges(t *testing.T) {
	f := newTestEngine(t, nil)
	pair := f.login(t)

	f.identity.put(Principal{
		SubjectID:   "42",
		DisplayName: "alice",
		Email:       "alice@example.com",
		Role:        RoleAdmin,
	})

	next, err := f.engine.Reissue(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Reissue failed: %v", err)
	}

	principal, err := f.engine.Authenticate(context.Background(), next.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if principal.Role != RoleAdmin {
		t.Fatalf("role = %q, want %q after reissue", principal.Role, RoleAdmin)
	}
}

func TestReissueRejectsAccessCredential(t *testing.T) {
	f := newTestEngine(t, nil)
	pair := f.login(t)

	if _, err := f.engine.Reissue(context.Background(), pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestReissueExpiredRefreshCredential(t *testing.T) {
	f := newTestEngine(t, func(cfg *Config) {
		cfg.JWT.RefreshTTL = time.Nanosecond
	})
	pair := f.login(t)

	if _, err := f.engine.Reissue(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestReissueAfterSubjectDeleted(t *testing.T) {
	f := newTestEngine(t, nil)
	pair := f.login(t)

	f.identity.mu.Lock()
	delete(f.identity.records, "42")
	f.identity.mu.Unlock()

	if _, err := f.engine.Reissue(context.Background(), pair.RefreshToken); !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("err = %v, want ErrSubjectNotFound", err)
	}

	// The slot was cleared: nothing for a later reissue to win.
	if f.redis.Exists("rt:42") {
		t.Fatal("refresh slot survived identity lookup failure")
	}
}

func TestLogoutKillsReissuePath(t *testing.T) {
	f := newTestEngine(t, nil)
	pair := f.login(t)

	if err := f.engine.Logout(context.Background(), "42"); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := f.engine.Reissue(context.Background(), pair.RefreshToken); !errors.Is(err, ErrRotationConflict) {
		t.Fatalf("err = %v, want ErrRotationConflict", err)
	}

	// Access credentials keep working until they expire.
	if _, err := f.engine.Authenticate(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("Authenticate after logout failed: %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newTestEngine(t, nil)
	f.login(t)

	for i := 0; i < 3; i++ {
		if err := f.engine.Logout(context.Background(), "42"); err != nil {
			t.Fatalf("Logout round %d failed: %v", i, err)
		}
	}
	if err := f.engine.Logout(context.Background(), "never-logged-in"); err != nil {
		t.Fatalf("Logout of unknown subject failed: %v", err)
	}
}

func TestStoreOutageSurfacesAsUnavailable(t *testing.T) {
	f := newTestEngine(t, nil)
	pair := f.login(t)

	f.redis.Close()

	p, err := f.identity.GetByID(context.Background(), "42")
	if err != nil {
		t.Fatalf("identity lookup failed: %v", err)
	}

	if _, err := f.engine.Login(context.Background(), p); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Login err = %v, want ErrStoreUnavailable", err)
	}
	if _, err := f.engine.Reissue(context.Background(), pair.RefreshToken); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Reissue err = %v, want ErrStoreUnavailable", err)
	}
	if err := f.engine.Logout(context.Background(), "42"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Logout err = %v, want ErrStoreUnavailable", err)
	}

	// Authenticate needs no store and keeps working through the outage.
	if _, err := f.engine.Authenticate(context.Background(), pair.AccessToken); err != nil {
		t.Errorf("Authenticate during outage failed: %v", err)
	}
}

func TestRefreshCookieShape(t *testing.T) {
	f := newTestEngine(t, nil)

	cookie := f.engine.RefreshCookie("credential")
	if cookie.Name != "refreshToken" || cookie.Value != "credential" {
		t.Fatalf("unexpected cookie: %+v", cookie)
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("cookie not hardened: %+v", cookie)
	}
	if cookie.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Fatalf("cookie max-age = %d", cookie.MaxAge)
	}

	logout := f.engine.LogoutCookie()
	if logout.Name != "refreshToken" || logout.Value != "" || logout.MaxAge != -1 {
		t.Fatalf("unexpected logout cookie: %+v", logout)
	}
}

func TestEngineNotReady(t *testing.T) {
	var e *Engine

	if _, err := e.Login(context.Background(), Principal{}); !errors.Is(err, ErrEngineNotReady) {
		t.Errorf("Login err = %v, want ErrEngineNotReady", err)
	}
	if _, err := e.Authenticate(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Errorf("Authenticate err = %v, want ErrEngineNotReady", err)
	}
	if _, err := e.Reissue(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Errorf("Reissue err = %v, want ErrEngineNotReady", err)
	}
	if err := e.Logout(context.Background(), "42"); !errors.Is(err, ErrEngineNotReady) {
		t.Errorf("Logout err = %v, want ErrEngineNotReady", err)
	}
}
