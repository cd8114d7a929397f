package firestore

import (
	"context"
	"os"
	"testing"

	fs "cloud.google.com/go/firestore"
	"github.com/google/go-cmp/cmp"

	"github.com/monibu1548/JKFirebaseSDK/errorutils"
	"github.com/monibu1548/JKFirebaseSDK/internal"
)

// profileRecord mirrors the struct shape the auth service registers through
// the DocumentStore interface.
type profileRecord struct {
	ID          string `firestore:"id"`
	DisplayName string `firestore:"displayName,omitempty"`
	Email       string `firestore:"email,omitempty"`
}

func TestNewClientRequiresProjectID(t *testing.T) {
	client, err := NewClient(context.Background(), &internal.FirestoreConfig{})
	if client != nil || err == nil {
		t.Errorf("NewClient() = (%v, %v); want = (nil, error)", client, err)
	}
}

func TestEnvironmentDefault(t *testing.T) {
	client := &Client{env: DefaultEnvironment}
	if got, want := client.Environment(), "production"; got != want {
		t.Errorf("Environment() = %q; want = %q", got, want)
	}
}

func TestUpsertOptions(t *testing.T) {
	// MergeAll is only legal for map data; a struct write must not carry it,
	// or the client rejects the call before any RPC is issued.
	cases := []struct {
		name string
		data interface{}
		want []fs.SetOption
	}{
		{"struct pointer", &profileRecord{ID: "u1", Email: "a@x.com"}, nil},
		{"struct value", profileRecord{ID: "u1"}, nil},
		{"map", map[string]interface{}{"id": "u1"}, []fs.SetOption{fs.MergeAll}},
	}
	for _, tc := range cases {
		got := upsertOptions(tc.data)
		if len(got) != len(tc.want) {
			t.Errorf("upsertOptions(%s) = %v; want = %v", tc.name, got, tc.want)
		}
	}
}

// TestUpsertAndReadStructRecord exercises the document store round trip with
// the same struct shape the auth service persists. It runs only against the
// Firestore emulator.
func TestUpsertAndReadStructRecord(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, &internal.FirestoreConfig{
		ProjectID:   "mock-project-id",
		Environment: "development",
	})
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}
	defer client.Close()

	want := &profileRecord{ID: "u1", DisplayName: "Test User", Email: "user@example.com"}
	if err := client.Upsert(ctx, "users", "u1", want); err != nil {
		t.Fatalf("Upsert() = %v", err)
	}

	var got profileRecord
	if err := client.Read(ctx, "users", "u1", &got); err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if diff := cmp.Diff(want, &got); diff != "" {
		t.Errorf("Read() diff (-want +got):\n%s", diff)
	}

	err = client.Read(ctx, "users", "missing", &got)
	if !errorutils.IsNotFound(err) {
		t.Errorf("Read(missing) = %v; want NOT_FOUND", err)
	}
}

func TestConditionApplyDoesNotMutateInput(t *testing.T) {
	// Conditions are value types; building a query from them repeatedly must
	// be deterministic.
	cond := Equal("name", "gopher")
	if cond.key != "name" || cond.value != "gopher" {
		t.Errorf("Equal() = %+v; want key=name value=gopher", cond)
	}

	order := OrderDescending("createdAt")
	if order.kind != orderDescending {
		t.Errorf("OrderDescending() kind = %v; want = %v", order.kind, orderDescending)
	}
	if contains := ArrayContains("tags", "go"); contains.kind != arrayContains {
		t.Errorf("ArrayContains() kind = %v; want = %v", contains.kind, arrayContains)
	}
}
