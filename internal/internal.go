// Package internal contains functionality that is only accessible from within the SDK.
package internal

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/monibu1548/JKFirebaseSDK/events"
)

// DefaultEnvironment scopes service data when the App configuration does not
// name an environment.
const DefaultEnvironment = "production"

// AuthConfig represents the configuration of the Authentication service.
type AuthConfig struct {
	ProjectID string
	APIKey    string
	Version   string
	Opts      []option.ClientOption

	// Store receives user profile records written during registration.
	Store DocumentStore

	// Events receives the lifecycle events emitted on authentication state
	// transitions. Required.
	Events *events.Broadcaster

	// Logger records persistence side effects that are not surfaced through
	// lifecycle events. Defaults to a no-op logger when nil.
	Logger *zap.Logger
}

// FirestoreConfig represents the configuration of the Firestore wrapper.
type FirestoreConfig struct {
	ProjectID   string
	Environment string
	Opts        []option.ClientOption
}

// DatabaseConfig represents the configuration of the Realtime Database service.
type DatabaseConfig struct {
	BaseURL string
	Version string
	Opts    []option.ClientOption
}

// StorageConfig represents the configuration of the Storage service.
type StorageConfig struct {
	Bucket      string
	Environment string
	Opts        []option.ClientOption
}

// RemoteConfigConfig represents the configuration of the Remote Config service.
type RemoteConfigConfig struct {
	ProjectID   string
	Environment string
	Version     string
	Opts        []option.ClientOption
}

// DocumentStore is the external document store capability consumed by the
// Authentication service. Upsert semantics are last write wins.
type DocumentStore interface {
	Upsert(ctx context.Context, collection, id string, data interface{}) error
	Read(ctx context.Context, collection, id string, v interface{}) error
}

// Clock is used to query the current local time.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the current system time.
type SystemClock struct{}

// Now returns the current system time by calling time.Now().
func (s *SystemClock) Now() time.Time {
	return time.Now()
}

// MockClock can be used to mock current time during tests.
type MockClock struct {
	Timestamp time.Time
}

// Now returns the timestamp set in the MockClock.
func (m *MockClock) Now() time.Time {
	return m.Timestamp
}
