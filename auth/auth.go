// Package auth implements the Authentication service of the SDK.
//
// It unifies the supported sign-in providers (email/password, Google,
// Facebook, Apple, anonymous) into a single identity model. Credentials
// produced by a provider handshake are resolved into either a new session or
// a link onto the existing session, and every resolution broadcasts exactly
// one lifecycle event through the events.Broadcaster the client was
// constructed with.
package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/monibu1548/JKFirebaseSDK/errorutils"
	"github.com/monibu1548/JKFirebaseSDK/events"
	"github.com/monibu1548/JKFirebaseSDK/internal"
)

// usersCollection is the document store collection holding user profile
// records, keyed by backend user ID.
const usersCollection = "users"

// ErrCredentialConsumed is returned when a Credential is resolved more than
// once. Credentials represent a single provider handshake and are destroyed
// by their first exchange.
var ErrCredentialConsumed = errors.New("auth: credential has already been consumed")

// ErrNoCurrentIdentity is returned by operations that require a signed-in
// identity when the session is absent.
var ErrNoCurrentIdentity = errors.New("auth: no identity is currently signed in")

// Client is the entry point to all authentication operations.
//
// A Client is constructed once per App and shared; all methods are safe for
// concurrent use. Provider and backend failures never propagate out of the
// sign-in entry points as errors. They terminate locally into exactly one
// published lifecycle event, which the entry points also return for the
// caller's convenience.
type Client struct {
	backend Backend
	store   internal.DocumentStore
	events  *events.Broadcaster
	session *Session
	logger  *zap.Logger

	appleMu        sync.Mutex
	appleChallenge *appleChallenge
	appleKeys      jwt.Keyfunc
	appleJWKS      *keyfunc.JWKS
	appleOnce      sync.Once
	appleErr       error

	regFailures atomic.Int64
}

// NewClient creates a new instance of the Authentication Client.
//
// This function can only be invoked from within the SDK. Client applications
// should access the Authentication service through the App.
func NewClient(ctx context.Context, conf *internal.AuthConfig) (*Client, error) {
	backend, err := newRESTBackend(ctx, conf)
	if err != nil {
		return nil, err
	}

	logger := conf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		backend: backend,
		store:   conf.Store,
		events:  conf.Events,
		session: newSession(conf.Store),
		logger:  logger,
	}, nil
}

// Session returns the session state holding the current identity.
func (c *Client) Session() *Session {
	return c.session
}

// CurrentIdentity returns a snapshot of the currently signed-in identity, or
// nil when the session is absent.
func (c *Client) CurrentIdentity() *Identity {
	return c.session.Current()
}

// SignUpWithEmail creates a new email/password account and signs it in.
//
// Email credentials are primary, not supplementary: sign-up always
// establishes a fresh session and never attempts to link onto an existing
// one. Publishes sign-in:success or sign-in:error.
func (c *Client) SignUpWithEmail(ctx context.Context, email, password string) events.Event {
	return c.signIn(ctx, func() (*Identity, error) {
		return c.backend.CreateUser(ctx, email, password)
	})
}

// SignInWithEmail signs in an existing email/password account. Publishes
// sign-in:success or sign-in:error.
func (c *Client) SignInWithEmail(ctx context.Context, email, password string) events.Event {
	return c.signIn(ctx, func() (*Identity, error) {
		return c.backend.SignInWithPassword(ctx, email, password)
	})
}

// SignInAnonymously establishes an anonymous session. Publishes
// sign-in:success or sign-in:error.
func (c *Client) SignInAnonymously(ctx context.Context) events.Event {
	return c.signIn(ctx, func() (*Identity, error) {
		return c.backend.SignInAnonymously(ctx)
	})
}

// SignInWithGoogle resolves a Google ID token obtained from the native
// Google sign-in handshake. Signs in when no session exists, links onto the
// current session otherwise.
func (c *Client) SignInWithGoogle(ctx context.Context, idToken, accessToken string) events.Event {
	event, _ := c.ResolveCredential(ctx, NewGoogleCredential(idToken, accessToken))
	return event
}

// SignInWithFacebook resolves a Facebook access token obtained from the
// native Facebook login handshake. Signs in when no session exists, links
// onto the current session otherwise.
func (c *Client) SignInWithFacebook(ctx context.Context, accessToken string) events.Event {
	event, _ := c.ResolveCredential(ctx, NewFacebookCredential(accessToken))
	return event
}

// ResolveCredential exchanges a provider credential for a session.
//
// With no current session the credential establishes a new one: the backend
// identity is registered in the document store, the session is set, and
// sign-in:success fires. With a session already present the credential is
// linked onto it instead: the current identity is left untouched and
// link:success fires. Backend failures leave all state unchanged and fire
// the corresponding error event. Exactly one event is published per call.
//
// The credential is consumed by the call; resolving it a second time returns
// ErrCredentialConsumed without publishing anything.
func (c *Client) ResolveCredential(ctx context.Context, cred *Credential) (events.Event, error) {
	if !cred.consume() {
		return "", ErrCredentialConsumed
	}

	if c.session.Current() == nil {
		event := c.signIn(ctx, func() (*Identity, error) {
			return c.backend.SignInWithCredential(ctx, cred)
		})
		return event, nil
	}

	if _, err := c.backend.LinkWithCredential(ctx, cred); err != nil {
		c.logger.Debug("credential link failed",
			zap.String("provider", cred.ProviderID()), zap.Error(err))
		c.events.Publish(events.LinkError)
		return events.LinkError, nil
	}
	c.events.Publish(events.LinkSuccess)
	return events.LinkSuccess, nil
}

// signIn runs the direct sign-in path shared by every provider: on backend
// success the identity is registered and becomes current before the success
// event fires; on failure no state changes.
func (c *Client) signIn(ctx context.Context, fn func() (*Identity, error)) events.Event {
	identity, err := fn()
	if err != nil {
		c.logger.Debug("sign-in failed", zap.Error(err))
		c.events.Publish(events.SignInError)
		return events.SignInError
	}

	c.registerUser(ctx, identity)
	c.session.set(identity)
	c.events.Publish(events.SignInSuccess)
	return events.SignInSuccess
}

// SignOut terminates the current session.
//
// The session is cleared, along with any memoized user key, only after the
// backend confirms; a backend failure leaves the session untouched and fires
// sign-out:error.
func (c *Client) SignOut(ctx context.Context) events.Event {
	if err := c.backend.SignOut(ctx); err != nil {
		c.logger.Debug("sign-out failed", zap.Error(err))
		c.events.Publish(events.SignOutError)
		return events.SignOutError
	}

	c.session.clear()
	c.events.Publish(events.SignOutSuccess)
	return events.SignOutSuccess
}

// UpdateProfile changes the display name and photo URL of the currently
// signed-in identity. Empty arguments leave the corresponding attribute
// unchanged. The session identity and the stored profile record are updated
// on success. No lifecycle event fires.
func (c *Client) UpdateProfile(ctx context.Context, displayName, photoURL string) error {
	if c.session.Current() == nil {
		return ErrNoCurrentIdentity
	}

	identity, err := c.backend.UpdateProfile(ctx, displayName, photoURL)
	if err != nil {
		return err
	}

	c.registerUser(ctx, identity)
	c.session.set(identity)
	return nil
}

// DeleteUser permanently deletes the currently signed-in account from the
// backend. The session is cleared on success. No lifecycle event fires.
func (c *Client) DeleteUser(ctx context.Context) error {
	if err := c.backend.DeleteUser(ctx); err != nil {
		return err
	}
	c.session.clear()
	return nil
}

// registerUser persists the profile record for a freshly signed-in identity.
//
// The write is fire-and-forget with respect to the sign-in flow: a failure
// does not roll back the session and is not surfaced through the lifecycle
// event. It is logged and counted instead, and healed lazily by the next
// successful sign-in or Profile read.
func (c *Client) registerUser(ctx context.Context, identity *Identity) {
	if c.store == nil {
		return
	}
	if err := c.store.Upsert(ctx, usersCollection, identity.UID, identity); err != nil {
		c.regFailures.Add(1)
		c.logger.Warn("failed to persist user profile",
			zap.String("uid", identity.UID), zap.Error(err))
	}
}

// RegistrationFailures reports how many profile registration writes have
// failed since the client was created.
func (c *Client) RegistrationFailures() int64 {
	return c.regFailures.Load()
}

// Profile returns the stored profile record of the current identity.
//
// An identity can exist in the auth backend without a profile record when an
// earlier registration write was lost. Profile repairs that gap on read: a
// missing record is rebuilt from the session identity, re-registered, and
// returned.
func (c *Client) Profile(ctx context.Context) (*Identity, error) {
	current := c.session.Current()
	if current == nil {
		return nil, ErrNoCurrentIdentity
	}

	var record Identity
	err := c.store.Read(ctx, usersCollection, current.UID, &record)
	if err == nil {
		return &record, nil
	}
	if !errorutils.IsNotFound(err) {
		return nil, err
	}

	c.logger.Info("profile record missing, repairing", zap.String("uid", current.UID))
	c.registerUser(ctx, current)
	return current, nil
}
