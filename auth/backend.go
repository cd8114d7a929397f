package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/monibu1548/JKFirebaseSDK/internal"
)

// Backend is the asynchronous authentication capability the Client is built
// on. Every call either reports success, with the resulting identity where
// one applies, or a backend error. The default implementation talks to the
// Identity Toolkit REST API; tests substitute their own.
type Backend interface {
	CreateUser(ctx context.Context, email, password string) (*Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, error)
	SignInWithCredential(ctx context.Context, cred *Credential) (*Identity, error)
	LinkWithCredential(ctx context.Context, cred *Credential) (*Identity, error)
	SignInAnonymously(ctx context.Context) (*Identity, error)
	UpdateProfile(ctx context.Context, displayName, photoURL string) (*Identity, error)
	SignOut(ctx context.Context) error
	DeleteUser(ctx context.Context) error
}

const idToolkitEndpoint = "https://identitytoolkit.googleapis.com/v1"

// restBackend implements Backend over the Identity Toolkit v1 REST API,
// authenticating requests with the project's Web API key. It holds the token
// pair of the established session; linking sends the session's ID token
// along with the new provider credential.
type restBackend struct {
	hc      *internal.HTTPClient
	baseURL string
	apiKey  string

	mu           sync.Mutex
	idToken      string
	refreshToken string
}

func newRESTBackend(ctx context.Context, conf *internal.AuthConfig) (*restBackend, error) {
	if conf.APIKey == "" {
		return nil, fmt.Errorf("api key is required to access the authentication service")
	}

	hc, _, err := internal.NewHTTPClient(ctx, conf.Opts...)
	if err != nil {
		return nil, err
	}
	// Identity Toolkit reports its machine-readable reason in the standard
	// GCP error payload.
	hc.CreateErrFn = func(resp *internal.Response) error {
		return internal.NewFirebaseErrorOnePlatform(resp)
	}
	hc.Opts = []internal.HTTPOption{
		internal.WithHeader("X-Client-Version", fmt.Sprintf("Go/JKFirebase/%s", conf.Version)),
	}

	return &restBackend{
		hc:      hc,
		baseURL: idToolkitEndpoint,
		apiKey:  conf.APIKey,
	}, nil
}

// accountResponse is the subset of the Identity Toolkit exchange response
// shared by the signUp, signInWithPassword and signInWithIdp calls.
type accountResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

func (b *restBackend) CreateUser(ctx context.Context, email, password string) (*Identity, error) {
	return b.exchange(ctx, "signUp", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

func (b *restBackend) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	return b.exchange(ctx, "signInWithPassword", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

func (b *restBackend) SignInAnonymously(ctx context.Context) (*Identity, error) {
	return b.exchange(ctx, "signUp", map[string]interface{}{
		"returnSecureToken": true,
	})
}

func (b *restBackend) SignInWithCredential(ctx context.Context, cred *Credential) (*Identity, error) {
	return b.exchange(ctx, "signInWithIdp", map[string]interface{}{
		"postBody":            idpPostBody(cred),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	})
}

func (b *restBackend) LinkWithCredential(ctx context.Context, cred *Credential) (*Identity, error) {
	b.mu.Lock()
	sessionToken := b.idToken
	b.mu.Unlock()
	if sessionToken == "" {
		return nil, internal.Errorf(internal.FailedPrecondition,
			"no session is established to link the credential to")
	}

	return b.exchange(ctx, "signInWithIdp", map[string]interface{}{
		"idToken":             sessionToken,
		"postBody":            idpPostBody(cred),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	})
}

func (b *restBackend) UpdateProfile(ctx context.Context, displayName, photoURL string) (*Identity, error) {
	b.mu.Lock()
	sessionToken := b.idToken
	b.mu.Unlock()
	if sessionToken == "" {
		return nil, internal.Errorf(internal.FailedPrecondition,
			"no session is established to update")
	}

	body := map[string]interface{}{
		"idToken":           sessionToken,
		"returnSecureToken": true,
	}
	if displayName != "" {
		body["displayName"] = displayName
	}
	if photoURL != "" {
		body["photoUrl"] = photoURL
	}
	return b.exchange(ctx, "update", body)
}

// SignOut discards the session token pair. The Identity Toolkit API has no
// revocation call for client sessions, so sign-out is local by design.
func (b *restBackend) SignOut(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.idToken = ""
	b.refreshToken = ""
	return nil
}

func (b *restBackend) DeleteUser(ctx context.Context) error {
	b.mu.Lock()
	sessionToken := b.idToken
	b.mu.Unlock()
	if sessionToken == "" {
		return internal.Errorf(internal.FailedPrecondition,
			"no session is established to delete")
	}

	if _, err := b.post(ctx, "delete", map[string]interface{}{
		"idToken": sessionToken,
	}, nil); err != nil {
		return err
	}

	b.mu.Lock()
	b.idToken = ""
	b.refreshToken = ""
	b.mu.Unlock()
	return nil
}

// exchange performs an account exchange call, stores the resulting token
// pair, and assembles the identity. Profile attributes missing from the
// exchange response are backfilled from an accounts:lookup call on a best
// effort basis.
func (b *restBackend) exchange(ctx context.Context, action string, body map[string]interface{}) (*Identity, error) {
	var parsed accountResponse
	if _, err := b.post(ctx, action, body, &parsed); err != nil {
		return nil, err
	}

	if parsed.IDToken != "" {
		b.mu.Lock()
		b.idToken = parsed.IDToken
		b.refreshToken = parsed.RefreshToken
		b.mu.Unlock()
	}

	identity := &Identity{
		UID:         parsed.LocalID,
		DisplayName: parsed.DisplayName,
		Email:       parsed.Email,
		PhotoURL:    parsed.PhotoURL,
	}
	b.lookup(ctx, parsed.IDToken, identity)
	return identity, nil
}

// lookup enriches an identity with the attributes only accounts:lookup
// reports, such as the phone number. Lookup failures leave the identity as
// assembled from the exchange response.
func (b *restBackend) lookup(ctx context.Context, idToken string, identity *Identity) {
	if idToken == "" {
		return
	}
	var parsed struct {
		Users []struct {
			LocalID     string `json:"localId"`
			Email       string `json:"email"`
			DisplayName string `json:"displayName"`
			PhotoURL    string `json:"photoUrl"`
			PhoneNumber string `json:"phoneNumber"`
		} `json:"users"`
	}
	if _, err := b.post(ctx, "lookup", map[string]interface{}{
		"idToken": idToken,
	}, &parsed); err != nil || len(parsed.Users) == 0 {
		return
	}

	user := parsed.Users[0]
	identity.PhoneNumber = user.PhoneNumber
	if user.DisplayName != "" {
		identity.DisplayName = user.DisplayName
	}
	if user.Email != "" {
		identity.Email = user.Email
	}
	if user.PhotoURL != "" {
		identity.PhotoURL = user.PhotoURL
	}
}

func (b *restBackend) post(ctx context.Context, action string, body, v interface{}) (*internal.Response, error) {
	req := &internal.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/accounts:%s", b.baseURL, action),
		Body:   internal.NewJSONEntity(body),
		Opts: []internal.HTTPOption{
			internal.WithQueryParam("key", b.apiKey),
		},
	}
	return b.hc.DoAndUnmarshal(ctx, req, v)
}

func idpPostBody(cred *Credential) string {
	values := url.Values{}
	values.Set("providerId", cred.providerID)
	if cred.idToken != "" {
		values.Set("id_token", cred.idToken)
	}
	if cred.accessToken != "" {
		values.Set("access_token", cred.accessToken)
	}
	if cred.rawNonce != "" {
		values.Set("nonce", cred.rawNonce)
	}
	return values.Encode()
}
