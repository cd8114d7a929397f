// Package firestore provides the simplified document store API of the SDK.
//
// All documents live beneath an environment-scoped root document
// (environment/development or environment/production), so that the same
// project can serve both build configurations without collections mixing.
// The wrapper exposes the handful of operations the mobile application
// needs: typed reads, inserts with optional ID backfill, merge-upserts,
// deletes, and condition-based listing with cursor paging.
package firestore

import (
	"context"
	"errors"

	fs "cloud.google.com/go/firestore"

	"github.com/monibu1548/JKFirebaseSDK/internal"
)

// DefaultEnvironment is used when the App configuration does not name one.
const DefaultEnvironment = internal.DefaultEnvironment

const environmentCollection = "environment"

// Client is the interface for the Firestore-backed document store.
type Client struct {
	fs  *fs.Client
	env string
}

// NewClient creates a new instance of the document store Client.
//
// This function can only be invoked from within the SDK. Client applications
// should access the Firestore service through the App.
func NewClient(ctx context.Context, conf *internal.FirestoreConfig) (*Client, error) {
	if conf.ProjectID == "" {
		return nil, errors.New("project id is required to access Firestore")
	}

	env := conf.Environment
	if env == "" {
		env = DefaultEnvironment
	}

	client, err := fs.NewClient(ctx, conf.ProjectID, conf.Opts...)
	if err != nil {
		return nil, err
	}
	return &Client{fs: client, env: env}, nil
}

// Environment returns the environment scope all documents live under.
func (c *Client) Environment() string {
	return c.env
}

// Close closes the underlying Firestore connection.
func (c *Client) Close() error {
	return c.fs.Close()
}

func (c *Client) collection(name string) *fs.CollectionRef {
	return c.fs.Collection(environmentCollection).Doc(c.env).Collection(name)
}

// Insert adds a new document with an auto-generated ID to the collection and
// returns that ID. When withID is set, the generated ID is additionally
// merged into the document under the field "id".
func (c *Client) Insert(ctx context.Context, collection string, data interface{}, withID bool) (string, error) {
	ref, _, err := c.collection(collection).Add(ctx, data)
	if err != nil {
		return "", err
	}

	if withID {
		if _, err := ref.Set(ctx, map[string]interface{}{"id": ref.ID}, fs.MergeAll); err != nil {
			return "", err
		}
	}
	return ref.ID, nil
}

// Update applies the given field values to an existing document. Updating a
// document that does not exist fails.
func (c *Client) Update(ctx context.Context, collection, id string, data map[string]interface{}) error {
	updates := make([]fs.Update, 0, len(data))
	for key, value := range data {
		updates = append(updates, fs.Update{Path: key, Value: value})
	}
	_, err := c.collection(collection).Doc(id).Update(ctx, updates)
	return err
}

// Upsert writes the given data into the document, creating it when absent.
// Map data is merged field by field; struct data replaces the document
// whole. Last write wins either way.
func (c *Client) Upsert(ctx context.Context, collection, id string, data interface{}) error {
	_, err := c.collection(collection).Doc(id).Set(ctx, data, upsertOptions(data)...)
	return err
}

// upsertOptions selects the set options for Upsert. The Firestore client
// rejects MergeAll for anything but map data, so struct records must be
// written without it.
func upsertOptions(data interface{}) []fs.SetOption {
	if _, ok := data.(map[string]interface{}); ok {
		return []fs.SetOption{fs.MergeAll}
	}
	return nil
}

// Delete removes the document. Deleting a missing document is not an error.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	_, err := c.collection(collection).Doc(id).Delete(ctx)
	return err
}

// Read decodes the document into v. A missing document is reported as a
// NOT_FOUND error recognizable through the errorutils package.
func (c *Client) Read(ctx context.Context, collection, id string, v interface{}) error {
	snap, err := c.collection(collection).Doc(id).Get(ctx)
	if snap != nil && !snap.Exists() {
		return internal.Errorf(internal.NotFound, "no document at %s/%s", collection, id)
	}
	if err != nil {
		return err
	}
	return snap.DataTo(v)
}
