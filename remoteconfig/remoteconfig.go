// Package remoteconfig fetches parameter values from the Firebase Remote
// Config backend and exposes them through typed accessors.
//
// Fetched values are cached in memory. Repeated fetches inside the minimum
// fetch interval are served from the cache without touching the network;
// the "development" environment sets the interval to zero so every call
// reaches the backend.
package remoteconfig

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/monibu1548/JKFirebaseSDK/internal"
)

const (
	defaultBaseURL       = "https://firebaseremoteconfig.googleapis.com"
	firebaseClientHeader = "X-Firebase-Client"

	// developmentEnvironment disables fetch throttling.
	developmentEnvironment = "development"

	defaultFetchInterval = time.Hour
)

// Client is the interface for the Remote Config service.
type Client struct {
	hc            *internal.HTTPClient
	baseURL       string
	project       string
	fetchInterval time.Duration
	clock         internal.Clock

	mu          sync.Mutex
	values      map[string]string
	etag        string
	lastFetched time.Time
}

// NewClient creates a new instance of the Remote Config Client.
//
// This function can only be invoked from within the SDK. Client applications
// should access the Remote Config service through the App.
func NewClient(ctx context.Context, conf *internal.RemoteConfigConfig) (*Client, error) {
	if conf.ProjectID == "" {
		return nil, errors.New("project ID is required to access remote config")
	}

	hc, _, err := internal.NewHTTPClient(ctx, conf.Opts...)
	if err != nil {
		return nil, err
	}
	// Remote Config reports failures in the standard GCP error payload.
	hc.CreateErrFn = func(resp *internal.Response) error {
		return internal.NewFirebaseErrorOnePlatform(resp)
	}
	hc.Opts = []internal.HTTPOption{
		internal.WithHeader(firebaseClientHeader, fmt.Sprintf("jk-firebase-go/%s", conf.Version)),
		internal.WithHeader("X-Firebase-ETag", "true"),
	}

	interval := defaultFetchInterval
	if conf.Environment == developmentEnvironment {
		interval = 0
	}

	return &Client{
		hc:            hc,
		baseURL:       defaultBaseURL,
		project:       conf.ProjectID,
		fetchInterval: interval,
		clock:         &internal.SystemClock{},
		values:        map[string]string{},
	}, nil
}

// remoteConfigResponse mirrors the template resource returned by the
// Remote Config REST API.
type remoteConfigResponse struct {
	Parameters      map[string]parameter      `json:"parameters"`
	ParameterGroups map[string]parameterGroup `json:"parameterGroups"`
}

type parameterGroup struct {
	Parameters map[string]parameter `json:"parameters"`
}

type parameter struct {
	DefaultValue parameterValue `json:"defaultValue"`
}

type parameterValue struct {
	Value string `json:"value"`
}

// Fetch retrieves the current parameter values from the backend.
//
// Calls made within the minimum fetch interval of the previous successful
// fetch are satisfied from the cached values and do not issue a request.
func (c *Client) Fetch(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if !c.lastFetched.IsZero() && now.Sub(c.lastFetched) < c.fetchInterval {
		return nil
	}

	var result remoteConfigResponse
	resp, err := c.hc.DoAndUnmarshal(ctx, &internal.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/v1/projects/%s/remoteConfig", c.baseURL, c.project),
	}, &result)
	if err != nil {
		return err
	}

	values := make(map[string]string)
	for key, param := range result.Parameters {
		values[key] = param.DefaultValue.Value
	}
	for _, group := range result.ParameterGroups {
		for key, param := range group.Parameters {
			values[key] = param.DefaultValue.Value
		}
	}

	c.values = values
	c.etag = resp.Header.Get("ETag")
	c.lastFetched = now
	return nil
}

// ETag returns the entity tag of the most recently fetched template.
func (c *Client) ETag() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.etag
}

// StringValue returns the string value for the given key. The second return
// value reports whether the key was present in the fetched template.
func (c *Client) StringValue(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// IntValue returns the value for the given key parsed as an integer.
func (c *Client) IntValue(key string) (int64, bool) {
	raw, ok := c.StringValue(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// DoubleValue returns the value for the given key parsed as a float.
func (c *Client) DoubleValue(key string) (float64, bool) {
	raw, ok := c.StringValue(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// BoolValue returns the value for the given key parsed as a boolean.
func (c *Client) BoolValue(key string) (bool, bool) {
	raw, ok := c.StringValue(key)
	if !ok {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
