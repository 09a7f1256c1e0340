package respondentgate

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/censusops/respondentgate/internal/rate"
	"github.com/censusops/respondentgate/lookup"
)

// stubFinder is an in-memory case-lookup collaborator with a call counter.
type stubFinder struct {
	mu    sync.Mutex
	cases map[string]lookup.CaseSummary
	calls int
	err   error
}

func (f *stubFinder) FindCase(ctx context.Context, code string) (*lookup.CaseSummary, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	summary, ok := f.cases[code]
	if !ok {
		return nil, lookup.ErrCaseNotFound
	}
	return &summary, nil
}

func (f *stubFinder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// failingStore simulates an attempt store outage.
type failingStore struct{}

func (failingStore) Count(ctx context.Context, key string) (int64, error) {
	return 0, rate.ErrStoreUnavailable
}

func (failingStore) IncrementAndExpire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return 0, rate.ErrStoreUnavailable
}

func testKeyPEMs(t *testing.T) (privPEM, pubPEM []byte) {
	t.Helper()

	signKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate signing key: %v", err)
	}
	encryptKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate encryption key: %v", err)
	}

	privPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(signKey),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&encryptKey.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM
}

func newTestGate(t *testing.T, finder lookup.Finder) (*Gate, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := DefaultConfig()
	cfg.Policy.MaxAttempts = 3
	cfg.EQ = EQConfig{Protocol: "https", Host: "eq.example", Port: 443}

	privPEM, pubPEM := testKeyPEMs(t)
	gate, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCaseFinder(finder).
		WithKeys(privPEM, "", pubPEM).
		Build()
	if err != nil {
		t.Fatalf("build gate: %v", err)
	}

	return gate, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func activeCaseFinder() *stubFinder {
	return &stubFinder{cases: map[string]lookup.CaseSummary{
		"abcdefgh1234": {CaseRef: "1000000001", QuestionSet: "H1", Active: true},
		"usedusedused": {CaseRef: "1000000002", QuestionSet: "I1", Active: false},
	}}
}

func validRequest(segments ...string) AuthRequest {
	if len(segments) == 0 {
		segments = []string{"ABCD", "EFGH", "1234"}
	}
	return AuthRequest{
		Segments:   segments,
		RemoteAddr: "203.0.113.7:52110",
	}
}

func TestAuthenticateIssuesGrant(t *testing.T) {
	finder := activeCaseFinder()
	gate, done := newTestGate(t, finder)
	defer done()

	grant, err := gate.Authenticate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if segments := strings.Split(grant.Token, "."); len(segments) != 5 {
		t.Fatalf("expected 5-segment token, got %d segments", len(segments))
	}
	if grant.TransactionID == "" {
		t.Fatal("expected a transaction id")
	}
	if grant.LanguageCode != LocaleEnglish {
		t.Fatalf("expected en locale, got %q", grant.LanguageCode)
	}
	if !strings.HasPrefix(grant.LaunchURL, "https://eq.example:443/session?token=") {
		t.Fatalf("unexpected launch url %q", grant.LaunchURL)
	}
	if finder.callCount() != 1 {
		t.Fatalf("expected one lookup call, got %d", finder.callCount())
	}
}

func TestAuthenticateWelshLocale(t *testing.T) {
	gate, done := newTestGate(t, activeCaseFinder())
	defer done()

	req := validRequest()
	req.AcceptLanguage = "cy-GB,cy;q=0.9,en;q=0.5"

	grant, err := gate.Authenticate(context.Background(), req)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if grant.LanguageCode != LocaleWelsh {
		t.Fatalf("expected cy locale, got %q", grant.LanguageCode)
	}
}

func TestSyntacticallyInvalidCodeSkipsLookup(t *testing.T) {
	finder := activeCaseFinder()
	gate, done := newTestGate(t, finder)
	defer done()

	_, err := gate.Authenticate(context.Background(), validRequest("AB!!", "EFGH", "1234"))
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if finder.callCount() != 0 {
		t.Fatalf("expected no lookup call for malformed code, got %d", finder.callCount())
	}
}

func TestUnknownCodeIsInvalid(t *testing.T) {
	gate, done := newTestGate(t, activeCaseFinder())
	defer done()

	_, err := gate.Authenticate(context.Background(), validRequest("zzzz", "zzzz", "zzzz"))
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}

func TestRateLimiterBlocksWithoutLookup(t *testing.T) {
	finder := activeCaseFinder()
	gate, done := newTestGate(t, finder)
	defer done()
	ctx := context.Background()

	// MaxAttempts is 3, so the second recorded failure blocks the client.
	for i := 0; i < 2; i++ {
		if _, err := gate.Authenticate(ctx, validRequest("zzzz", "zzzz", "zzzz")); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("expected ErrInvalidCode on failure %d, got %v", i, err)
		}
	}
	lookupsSoFar := finder.callCount()

	if !gate.Blocked(ctx, validRequest()) {
		t.Fatal("expected admission check to report blocked")
	}

	_, err := gate.Authenticate(ctx, validRequest())
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
	if finder.callCount() != lookupsSoFar {
		t.Fatal("expected no lookup call for a blocked client")
	}
}

func TestUsedCodeDoesNotCountAsFailure(t *testing.T) {
	gate, done := newTestGate(t, activeCaseFinder())
	defer done()
	ctx := context.Background()

	// Far more already-used submissions than the attempt budget.
	for i := 0; i < 10; i++ {
		_, err := gate.Authenticate(ctx, validRequest("USED", "USED", "USED"))
		if !errors.Is(err, ErrCodeAlreadyUsed) {
			t.Fatalf("expected ErrCodeAlreadyUsed on attempt %d, got %v", i, err)
		}
	}

	if gate.Blocked(ctx, validRequest()) {
		t.Fatal("already-used submissions must not engage the rate limiter")
	}

	if _, err := gate.Authenticate(ctx, validRequest()); err != nil {
		t.Fatalf("expected valid code to still authenticate, got %v", err)
	}
}

func TestSuccessDoesNotClearCounter(t *testing.T) {
	gate, done := newTestGate(t, activeCaseFinder())
	defer done()
	ctx := context.Background()

	if _, err := gate.Authenticate(ctx, validRequest("zzzz", "zzzz", "zzzz")); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if _, err := gate.Authenticate(ctx, validRequest()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	// One more failure reaches max-1; a reset-on-success would have
	// forgiven the earlier one.
	if _, err := gate.Authenticate(ctx, validRequest("zzzz", "zzzz", "zzzz")); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if !gate.Blocked(ctx, validRequest()) {
		t.Fatal("expected counter to survive the successful authentication")
	}
}

func TestLookupOutageIsDependencyUnavailable(t *testing.T) {
	finder := &stubFinder{err: lookup.ErrUnavailable}
	gate, done := newTestGate(t, finder)
	defer done()

	_, err := gate.Authenticate(context.Background(), validRequest())
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestLookupTimeoutIsDependencyTimeout(t *testing.T) {
	finder := &stubFinder{err: context.DeadlineExceeded}
	gate, done := newTestGate(t, finder)
	defer done()

	_, err := gate.Authenticate(context.Background(), validRequest())
	if !errors.Is(err, ErrDependencyTimeout) {
		t.Fatalf("expected ErrDependencyTimeout, got %v", err)
	}
}

func TestAttemptStoreOutageFailsOpen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EQ = EQConfig{Protocol: "https", Host: "eq.example", Port: 443}

	privPEM, pubPEM := testKeyPEMs(t)
	gate, err := New().
		WithConfig(cfg).
		WithAttemptStore(failingStore{}).
		WithCaseFinder(activeCaseFinder()).
		WithKeys(privPEM, "", pubPEM).
		Build()
	if err != nil {
		t.Fatalf("build gate: %v", err)
	}
	ctx := context.Background()

	if gate.Blocked(ctx, validRequest()) {
		t.Fatal("expected fail-open admission during store outage")
	}
	if _, err := gate.Authenticate(ctx, validRequest()); err != nil {
		t.Fatalf("expected authentication to proceed during store outage, got %v", err)
	}
}

func TestBuildRejectsCorruptKeys(t *testing.T) {
	_, pubPEM := testKeyPEMs(t)

	_, err := New().
		WithAttemptStore(failingStore{}).
		WithCaseFinder(activeCaseFinder()).
		WithKeys([]byte("not a key"), "", pubPEM).
		Build()
	if err == nil {
		t.Fatal("expected build to fail with a corrupt private key")
	}
}

func TestClientIdentityPrefersForwardedFor(t *testing.T) {
	req := AuthRequest{
		RemoteAddr:   "10.1.2.3:4100",
		ForwardedFor: "198.51.100.9, 10.1.2.3",
	}
	if got := clientIdentity(req); got != "198.51.100.9" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}

	req.ForwardedFor = ""
	if got := clientIdentity(req); got != "10.1.2.3" {
		t.Fatalf("expected remote host without port, got %q", got)
	}
}
