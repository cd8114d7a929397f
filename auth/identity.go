package auth

import "sync/atomic"

// Provider IDs of the supported sign-in providers, matching the identifiers
// used by the Identity Toolkit backend.
const (
	ProviderPassword  = "password"
	ProviderAnonymous = "anonymous"
	ProviderGoogle    = "google.com"
	ProviderFacebook  = "facebook.com"
	ProviderApple     = "apple.com"
)

// Identity represents an authenticated principal and its profile attributes.
//
// Which of the optional attributes are populated depends on the provider the
// identity was established with. The same shape is persisted as the profile
// record in the document store, keyed by UID.
type Identity struct {
	UID         string `json:"id" firestore:"id"`
	DisplayName string `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	Email       string `json:"email,omitempty" firestore:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty" firestore:"phoneNumber,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty" firestore:"photoURL,omitempty"`
}

// Credential is an opaque proof of a completed provider-side authentication.
//
// A Credential is consumed exactly once, by the resolution that exchanges it
// for a session or a link. It is never persisted.
type Credential struct {
	providerID  string
	idToken     string
	accessToken string
	rawNonce    string

	consumed int32
}

// NewGoogleCredential wraps the tokens yielded by a completed Google sign-in
// handshake.
func NewGoogleCredential(idToken, accessToken string) *Credential {
	return &Credential{
		providerID:  ProviderGoogle,
		idToken:     idToken,
		accessToken: accessToken,
	}
}

// NewFacebookCredential wraps the access token yielded by a completed
// Facebook login handshake.
func NewFacebookCredential(accessToken string) *Credential {
	return &Credential{
		providerID:  ProviderFacebook,
		accessToken: accessToken,
	}
}

// NewAppleCredential wraps an Apple identity token together with the raw
// nonce the matching sign-in request was issued with.
func NewAppleCredential(idToken, rawNonce string) *Credential {
	return &Credential{
		providerID: ProviderApple,
		idToken:    idToken,
		rawNonce:   rawNonce,
	}
}

// ProviderID identifies the provider that issued the credential.
func (c *Credential) ProviderID() string {
	return c.providerID
}

// consume marks the credential as exchanged. It reports false if the
// credential was consumed before.
func (c *Credential) consume() bool {
	return atomic.CompareAndSwapInt32(&c.consumed, 0, 1)
}
