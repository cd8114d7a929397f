// Package database provides access to the Firebase Realtime Database over
// its REST API.
//
// Values are addressed by Ref instances obtained from Client.NewRef. A Ref
// knows its path within the database tree and supports reading, writing,
// pushing auto-keyed children, partial updates, and deletion.
package database

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strings"

	"github.com/monibu1548/JKFirebaseSDK/internal"
)

// invalidChars must not appear in a Ref path.
const invalidChars = "[].#$"

// userAgentFormat identifies the SDK in Realtime Database requests.
const userAgentFormat = "Firebase/HTTP/%s/%s/JKGo"

// Client is the interface for the Realtime Database service.
type Client struct {
	hc      *internal.HTTPClient
	baseURL string
}

// NewClient creates a new instance of the Realtime Database Client.
//
// This function can only be invoked from within the SDK. Client applications
// should access the Database service through the App.
func NewClient(ctx context.Context, conf *internal.DatabaseConfig) (*Client, error) {
	if conf.BaseURL == "" {
		return nil, fmt.Errorf("database url not specified")
	}
	parsed, err := url.ParseRequestURI(conf.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %v", err)
	} else if parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid database URL: %q; want scheme: %q", conf.BaseURL, "https")
	} else if parsed.Query().Encode() != "" {
		return nil, fmt.Errorf("invalid database URL: %q; query parameters are not allowed", conf.BaseURL)
	}

	hc, _, err := internal.NewHTTPClient(ctx, conf.Opts...)
	if err != nil {
		return nil, err
	}
	hc.Opts = []internal.HTTPOption{
		internal.WithHeader("User-Agent",
			fmt.Sprintf(userAgentFormat, conf.Version, runtime.Version())),
	}

	return &Client{
		hc:      hc,
		baseURL: fmt.Sprintf("https://%s", parsed.Host),
	}, nil
}

// NewRef returns a new database reference representing the node at the
// specified path.
func (c *Client) NewRef(path string) *Ref {
	segs := parsePath(path)
	key := ""
	if len(segs) > 0 {
		key = segs[len(segs)-1]
	}

	return &Ref{
		Key:    key,
		Path:   "/" + strings.Join(segs, "/"),
		client: c,
		segs:   segs,
	}
}

func parsePath(path string) []string {
	var segs []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

func (c *Client) send(ctx context.Context, method, path string, body internal.HTTPEntity, v interface{}) error {
	if strings.ContainsAny(path, invalidChars) {
		return fmt.Errorf("invalid path with illegal characters: %q", path)
	}
	req := &internal.Request{
		Method: method,
		URL:    fmt.Sprintf("%s%s.json", c.baseURL, path),
		Body:   body,
	}
	_, err := c.hc.DoAndUnmarshal(ctx, req, v)
	return err
}

// Ref represents a node in the Realtime Database.
type Ref struct {
	Key  string
	Path string

	client *Client
	segs   []string
}

// Parent returns a reference to the parent of the current node, or nil at
// the root.
func (r *Ref) Parent() *Ref {
	l := len(r.segs)
	if l > 0 {
		path := strings.Join(r.segs[:l-1], "/")
		return r.client.NewRef(path)
	}
	return nil
}

// Child returns a reference to the specified child node.
func (r *Ref) Child(path string) *Ref {
	fullPath := fmt.Sprintf("%s/%s", strings.Trim(r.Path, "/"), path)
	return r.client.NewRef(fullPath)
}

// Get retrieves the value at the current node, and unmarshals it into v.
func (r *Ref) Get(ctx context.Context, v interface{}) error {
	return r.client.send(ctx, http.MethodGet, r.Path, nil, v)
}

// Set stores the value v at the current node, replacing whatever was there.
func (r *Ref) Set(ctx context.Context, v interface{}) error {
	return r.client.send(ctx, http.MethodPut, r.Path, internal.NewJSONEntity(v), nil)
}

// Push creates a new child node with an auto-generated key under the
// current node, stores v there, and returns the generated key.
func (r *Ref) Push(ctx context.Context, v interface{}) (string, error) {
	if v == nil {
		v = ""
	}
	var resp struct {
		Name string `json:"name"`
	}
	if err := r.client.send(ctx, http.MethodPost, r.Path, internal.NewJSONEntity(v), &resp); err != nil {
		return "", err
	}
	return resp.Name, nil
}

// Update applies the given child values to the current node without
// replacing siblings.
func (r *Ref) Update(ctx context.Context, v map[string]interface{}) error {
	if len(v) == 0 {
		return fmt.Errorf("value argument must be a non-empty map")
	}
	return r.client.send(ctx, http.MethodPatch, r.Path, internal.NewJSONEntity(v), nil)
}

// Delete removes the current node from the database.
func (r *Ref) Delete(ctx context.Context) error {
	return r.client.send(ctx, http.MethodDelete, r.Path, nil, nil)
}
