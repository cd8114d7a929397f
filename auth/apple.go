package auth

import (
	"context"
	"errors"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/monibu1548/JKFirebaseSDK/events"
)

// appleKeysURL serves the JSON Web Key Set Apple identity tokens are signed
// with.
const appleKeysURL = "https://appleid.apple.com/auth/keys"

// appleNonceLength is the challenge length used for Apple sign-in requests.
const appleNonceLength = 32

// ErrSignInInProgress is returned by SignInWithApple while an earlier Apple
// sign-in request is still outstanding. The outstanding challenge is never
// overwritten: a second concurrent request could otherwise race its callback
// against the first one's nonce.
var ErrSignInInProgress = errors.New("auth: an apple sign-in request is already outstanding")

// appleChallenge is the single outstanding nonce protecting an in-flight
// Apple sign-in request against replay.
type appleChallenge struct {
	raw    string
	hashed string
}

// AppleSignInRequest carries the challenge material for an Apple sign-in
// request about to be dispatched. HashedNonce is the value to set as the
// nonce of the outgoing authorization request; the raw Nonce stays with the
// client to validate the callback.
type AppleSignInRequest struct {
	Nonce       string
	HashedNonce string
}

type appleClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
	Email string `json:"email"`
}

// SignInWithApple begins an Apple sign-in flow.
//
// It generates and stores the challenge for the request before the provider
// handshake is dispatched. At most one Apple sign-in may be in flight per
// client; a second call while one is outstanding returns ErrSignInInProgress.
// The flow completes with CompleteSignInWithApple or CancelSignInWithApple.
func (c *Client) SignInWithApple() (*AppleSignInRequest, error) {
	c.appleMu.Lock()
	defer c.appleMu.Unlock()

	if c.appleChallenge != nil {
		return nil, ErrSignInInProgress
	}

	raw, hashed := GenerateNonce(appleNonceLength)
	c.appleChallenge = &appleChallenge{raw: raw, hashed: hashed}
	return &AppleSignInRequest{Nonce: raw, HashedNonce: hashed}, nil
}

// CompleteSignInWithApple consumes the outstanding challenge and resolves
// the identity token yielded by the Apple authorization callback.
//
// A callback arriving with no challenge outstanding, or carrying a token
// whose nonce claim does not hash-match the outstanding challenge, indicates
// a callback routed to the wrong client or reentrancy. Both are process
// integrity violations, not user errors, and panic. A token that fails to
// parse or verify is an ordinary provider failure and fires sign-in:error.
func (c *Client) CompleteSignInWithApple(ctx context.Context, idToken string) events.Event {
	c.appleMu.Lock()
	challenge := c.appleChallenge
	c.appleChallenge = nil
	c.appleMu.Unlock()

	if challenge == nil {
		panic("auth: apple sign-in callback received, but no sign-in request is outstanding")
	}

	claims, err := c.parseAppleToken(idToken)
	if err != nil {
		c.logger.Debug("apple identity token rejected", zap.Error(err))
		c.events.Publish(events.SignInError)
		return events.SignInError
	}

	if claims.Nonce != challenge.hashed {
		panic("auth: apple identity token nonce does not match the outstanding challenge")
	}

	event, _ := c.ResolveCredential(ctx, NewAppleCredential(idToken, challenge.raw))
	return event
}

// CancelSignInWithApple abandons the outstanding Apple sign-in flow after a
// failed or dismissed provider handshake, and fires sign-in:error.
func (c *Client) CancelSignInWithApple() events.Event {
	c.appleMu.Lock()
	c.appleChallenge = nil
	c.appleMu.Unlock()

	c.events.Publish(events.SignInError)
	return events.SignInError
}

func (c *Client) parseAppleToken(idToken string) (*appleClaims, error) {
	kf, err := c.appleKeyfunc()
	if err != nil {
		return nil, err
	}

	claims := &appleClaims{}
	if _, err := jwt.ParseWithClaims(idToken, claims, kf); err != nil {
		return nil, err
	}
	return claims, nil
}

// appleKeyfunc returns the key resolver for Apple identity tokens, fetching
// Apple's JWKS on first use. Tests inject their own resolver through the
// appleKeys field.
func (c *Client) appleKeyfunc() (jwt.Keyfunc, error) {
	if c.appleKeys != nil {
		return c.appleKeys, nil
	}

	c.appleOnce.Do(func() {
		c.appleJWKS, c.appleErr = keyfunc.Get(appleKeysURL, keyfunc.Options{
			RefreshInterval: time.Hour,
		})
	})
	if c.appleErr != nil {
		return nil, c.appleErr
	}
	return c.appleJWKS.Keyfunc, nil
}
