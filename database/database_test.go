package database

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/monibu1548/JKFirebaseSDK/errorutils"
	"github.com/monibu1548/JKFirebaseSDK/internal"
)

type person struct {
	Name string `json:"name"`
	Age  int32  `json:"age"`
}

type mockServer struct {
	Resp   interface{}
	Status int
	Reqs   []*http.Request
	Bodies [][]byte
	srv    *httptest.Server
}

func (s *mockServer) Start(c *Client) *httptest.Server {
	if s.srv == nil {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Reqs = append(s.Reqs, r)
			b, _ := io.ReadAll(r.Body)
			s.Bodies = append(s.Bodies, b)

			if s.Status != 0 {
				w.WriteHeader(s.Status)
			}
			w.Header().Set("Content-Type", "application/json")
			out, _ := json.Marshal(s.Resp)
			w.Write(out)
		})
		s.srv = httptest.NewServer(handler)
		c.baseURL = s.srv.URL
	}
	return s.srv
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), &internal.DatabaseConfig{
		BaseURL: "https://test-db.firebaseio.com",
		Version: "test-version",
	})
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}
	return client
}

func TestNewClient(t *testing.T) {
	client := newTestClient(t)
	if got, want := client.baseURL, "https://test-db.firebaseio.com"; got != want {
		t.Errorf("baseURL = %q; want = %q", got, want)
	}
}

func TestNewClientError(t *testing.T) {
	cases := []string{
		"",
		"foo",
		"http://db.firebaseio.com",
		"https://db.firebaseio.com?param=value",
	}
	for _, baseURL := range cases {
		client, err := NewClient(context.Background(), &internal.DatabaseConfig{
			BaseURL: baseURL,
		})
		if client != nil || err == nil {
			t.Errorf("NewClient(%q) = (%v, %v); want = (nil, error)", baseURL, client, err)
		}
	}
}

func TestNewRef(t *testing.T) {
	client := newTestClient(t)
	cases := []struct {
		path     string
		wantPath string
		wantKey  string
	}{
		{"", "/", ""},
		{"/", "/", ""},
		{"foo", "/foo", "foo"},
		{"/foo/bar", "/foo/bar", "bar"},
		{"foo/bar/", "/foo/bar", "bar"},
	}
	for _, tc := range cases {
		ref := client.NewRef(tc.path)
		if ref.Path != tc.wantPath {
			t.Errorf("NewRef(%q).Path = %q; want = %q", tc.path, ref.Path, tc.wantPath)
		}
		if ref.Key != tc.wantKey {
			t.Errorf("NewRef(%q).Key = %q; want = %q", tc.path, ref.Key, tc.wantKey)
		}
	}
}

func TestRefParentAndChild(t *testing.T) {
	client := newTestClient(t)

	ref := client.NewRef("users/u1/settings")
	parent := ref.Parent()
	if parent == nil || parent.Path != "/users/u1" {
		t.Fatalf("Parent() = %v; want path = /users/u1", parent)
	}

	child := parent.Child("profile")
	if child.Path != "/users/u1/profile" {
		t.Errorf("Child() path = %q; want = /users/u1/profile", child.Path)
	}

	root := client.NewRef("/")
	if root.Parent() != nil {
		t.Errorf("root Parent() = %v; want = nil", root.Parent())
	}
}

func TestGet(t *testing.T) {
	client := newTestClient(t)
	want := person{Name: "gopher", Age: 5}
	srv := &mockServer{Resp: want}
	defer srv.Start(client).Close()

	var got person
	if err := client.NewRef("people/gopher").Get(context.Background(), &got); err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get() diff (-want +got):\n%s", diff)
	}

	req := srv.Reqs[0]
	if got, want := req.Method, http.MethodGet; got != want {
		t.Errorf("method = %q; want = %q", got, want)
	}
	if got, want := req.RequestURI, "/people/gopher.json"; got != want {
		t.Errorf("request URI = %q; want = %q", got, want)
	}
	wantAgent := fmt.Sprintf(userAgentFormat, "test-version", runtime.Version())
	if got := req.Header.Get("User-Agent"); got != wantAgent {
		t.Errorf("User-Agent = %q; want = %q", got, wantAgent)
	}
}

func TestSet(t *testing.T) {
	client := newTestClient(t)
	srv := &mockServer{Resp: map[string]interface{}{}}
	defer srv.Start(client).Close()

	want := person{Name: "gopher", Age: 5}
	if err := client.NewRef("people/gopher").Set(context.Background(), want); err != nil {
		t.Fatalf("Set() = %v", err)
	}

	if got, want := srv.Reqs[0].Method, http.MethodPut; got != want {
		t.Errorf("method = %q; want = %q", got, want)
	}
	var sent person
	if err := json.Unmarshal(srv.Bodies[0], &sent); err != nil {
		t.Fatalf("request body did not parse: %v", err)
	}
	if diff := cmp.Diff(want, sent); diff != "" {
		t.Errorf("Set() body diff (-want +got):\n%s", diff)
	}
}

func TestPush(t *testing.T) {
	client := newTestClient(t)
	srv := &mockServer{Resp: map[string]interface{}{"name": "-generated-key"}}
	defer srv.Start(client).Close()

	key, err := client.NewRef("people").Push(context.Background(), person{Name: "gopher"})
	if err != nil {
		t.Fatalf("Push() = %v", err)
	}
	if want := "-generated-key"; key != want {
		t.Errorf("Push() = %q; want = %q", key, want)
	}
	if got, want := srv.Reqs[0].Method, http.MethodPost; got != want {
		t.Errorf("method = %q; want = %q", got, want)
	}
}

func TestUpdate(t *testing.T) {
	client := newTestClient(t)
	srv := &mockServer{Resp: map[string]interface{}{}}
	defer srv.Start(client).Close()

	ref := client.NewRef("people/gopher")
	if err := ref.Update(context.Background(), nil); err == nil {
		t.Error("Update(nil) = nil; want error")
	}

	if err := ref.Update(context.Background(), map[string]interface{}{"age": 6}); err != nil {
		t.Fatalf("Update() = %v", err)
	}
	if got, want := srv.Reqs[0].Method, http.MethodPatch; got != want {
		t.Errorf("method = %q; want = %q", got, want)
	}
}

func TestDelete(t *testing.T) {
	client := newTestClient(t)
	srv := &mockServer{Resp: map[string]interface{}{}}
	defer srv.Start(client).Close()

	if err := client.NewRef("people/gopher").Delete(context.Background()); err != nil {
		t.Fatalf("Delete() = %v", err)
	}
	if got, want := srv.Reqs[0].Method, http.MethodDelete; got != want {
		t.Errorf("method = %q; want = %q", got, want)
	}
}

func TestInvalidPath(t *testing.T) {
	client := newTestClient(t)
	srv := &mockServer{Resp: map[string]interface{}{}}
	defer srv.Start(client).Close()

	cases := []string{"foo#", "foo.bar", "foo$", "foo[bar]"}
	for _, path := range cases {
		if err := client.NewRef(path).Get(context.Background(), nil); err == nil {
			t.Errorf("Get(%q) = nil; want error", path)
		}
	}
	if len(srv.Reqs) != 0 {
		t.Errorf("requests sent = %d; want = 0", len(srv.Reqs))
	}
}

func TestHTTPError(t *testing.T) {
	client := newTestClient(t)
	srv := &mockServer{
		Status: http.StatusNotFound,
		Resp:   map[string]interface{}{"error": "Data not found"},
	}
	defer srv.Start(client).Close()

	var got person
	err := client.NewRef("people/missing").Get(context.Background(), &got)
	if err == nil {
		t.Fatal("Get() = nil; want error")
	}
	if !errorutils.IsNotFound(err) {
		t.Errorf("error = %v; want NOT_FOUND", err)
	}
}
