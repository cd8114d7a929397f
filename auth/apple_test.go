package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/go-cmp/cmp"

	"github.com/monibu1548/JKFirebaseSDK/events"
)

var appleTestKey, _ = rsa.GenerateKey(rand.Reader, 2048)

// appleToken signs an identity token the way Apple would, carrying the given
// nonce claim.
func appleToken(t *testing.T, nonce string) string {
	t.Helper()
	claims := appleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://appleid.apple.com",
			Subject:   "apple-user",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Nonce: nonce,
		Email: "user@example.com",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(appleTestKey)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func newAppleTestClient(backend Backend) (*Client, *events.Broadcaster) {
	client, broadcaster := newTestClient(backend, newMemoryStore())
	client.appleKeys = func(token *jwt.Token) (interface{}, error) {
		return &appleTestKey.PublicKey, nil
	}
	return client, broadcaster
}

func TestAppleSignInFlow(t *testing.T) {
	backend := &fakeBackend{identity: testIdentity}
	client, broadcaster := newAppleTestClient(backend)
	got := recordEvents(broadcaster)

	req, err := client.SignInWithApple()
	if err != nil {
		t.Fatalf("SignInWithApple() = %v", err)
	}
	if len(req.Nonce) != appleNonceLength {
		t.Errorf("challenge length = %d; want = %d", len(req.Nonce), appleNonceLength)
	}

	event := client.CompleteSignInWithApple(context.Background(), appleToken(t, req.HashedNonce))
	if event != events.SignInSuccess {
		t.Errorf("CompleteSignInWithApple() = %q; want = %q", event, events.SignInSuccess)
	}
	if want := []events.Event{events.SignInSuccess}; !cmp.Equal(*got, want) {
		t.Errorf("published events = %v; want = %v", *got, want)
	}
	if client.CurrentIdentity() == nil {
		t.Error("CurrentIdentity() = nil; want identity after apple sign-in")
	}
}

func TestAppleSignInRejectsConcurrentRequest(t *testing.T) {
	backend := &fakeBackend{identity: testIdentity}
	client, _ := newAppleTestClient(backend)

	first, err := client.SignInWithApple()
	if err != nil {
		t.Fatalf("SignInWithApple() = %v", err)
	}
	if _, err := client.SignInWithApple(); err != ErrSignInInProgress {
		t.Fatalf("SignInWithApple(second) = %v; want = %v", err, ErrSignInInProgress)
	}

	// The rejected second request must not have disturbed the outstanding
	// challenge: the first callback still validates.
	event := client.CompleteSignInWithApple(context.Background(), appleToken(t, first.HashedNonce))
	if event != events.SignInSuccess {
		t.Errorf("CompleteSignInWithApple() = %q; want = %q", event, events.SignInSuccess)
	}
}

func TestAppleCallbackWithoutRequestPanics(t *testing.T) {
	client, _ := newAppleTestClient(&fakeBackend{identity: testIdentity})

	defer func() {
		if r := recover(); r == nil {
			t.Error("CompleteSignInWithApple() with no outstanding request did not panic")
		}
	}()
	client.CompleteSignInWithApple(context.Background(), appleToken(t, "whatever"))
}

func TestAppleNonceMismatchPanics(t *testing.T) {
	client, _ := newAppleTestClient(&fakeBackend{identity: testIdentity})
	if _, err := client.SignInWithApple(); err != nil {
		t.Fatalf("SignInWithApple() = %v", err)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("CompleteSignInWithApple() with a mismatched nonce did not panic")
		}
	}()
	_, other := GenerateNonce(appleNonceLength)
	client.CompleteSignInWithApple(context.Background(), appleToken(t, other))
}

func TestAppleInvalidTokenFiresSignInError(t *testing.T) {
	client, broadcaster := newAppleTestClient(&fakeBackend{identity: testIdentity})
	got := recordEvents(broadcaster)

	if _, err := client.SignInWithApple(); err != nil {
		t.Fatalf("SignInWithApple() = %v", err)
	}
	event := client.CompleteSignInWithApple(context.Background(), "not-a-token")
	if event != events.SignInError {
		t.Errorf("CompleteSignInWithApple() = %q; want = %q", event, events.SignInError)
	}
	if want := []events.Event{events.SignInError}; !cmp.Equal(*got, want) {
		t.Errorf("published events = %v; want = %v", *got, want)
	}
	if client.CurrentIdentity() != nil {
		t.Errorf("CurrentIdentity() = %v; want = nil", client.CurrentIdentity())
	}
}

func TestAppleCancelClearsChallenge(t *testing.T) {
	client, broadcaster := newAppleTestClient(&fakeBackend{identity: testIdentity})
	got := recordEvents(broadcaster)

	if _, err := client.SignInWithApple(); err != nil {
		t.Fatalf("SignInWithApple() = %v", err)
	}
	if event := client.CancelSignInWithApple(); event != events.SignInError {
		t.Errorf("CancelSignInWithApple() = %q; want = %q", event, events.SignInError)
	}
	if want := []events.Event{events.SignInError}; !cmp.Equal(*got, want) {
		t.Errorf("published events = %v; want = %v", *got, want)
	}

	// The flow can start over after a cancel.
	if _, err := client.SignInWithApple(); err != nil {
		t.Errorf("SignInWithApple() after cancel = %v", err)
	}
}
