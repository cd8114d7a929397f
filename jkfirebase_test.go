package jkfirebase

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const testConfigJSON = `{
	"projectId": "mock-project-id",
	"apiKey": "mock-api-key",
	"databaseURL": "https://mock-db.firebaseio.com",
	"storageBucket": "mock-bucket",
	"environment": "development"
}`

func TestNewAppEmptyConfig(t *testing.T) {
	t.Setenv(firebaseEnvName, "")
	app, err := NewApp(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewApp() = %v", err)
	}
	if got, want := app.environment, "production"; got != want {
		t.Errorf("environment = %q; want = %q", got, want)
	}
	if app.Events() == nil {
		t.Error("Events() = nil; want broadcaster")
	}
}

func TestNewAppConfigFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(testConfigJSON), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(firebaseEnvName, path)

	app, err := NewApp(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewApp() = %v", err)
	}
	if got, want := app.projectID, "mock-project-id"; got != want {
		t.Errorf("projectID = %q; want = %q", got, want)
	}
	if got, want := app.apiKey, "mock-api-key"; got != want {
		t.Errorf("apiKey = %q; want = %q", got, want)
	}
	if got, want := app.environment, "development"; got != want {
		t.Errorf("environment = %q; want = %q", got, want)
	}
}

func TestNewAppConfigFromEnvLiteral(t *testing.T) {
	t.Setenv(firebaseEnvName, testConfigJSON)

	app, err := NewApp(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewApp() = %v", err)
	}
	if got, want := app.databaseURL, "https://mock-db.firebaseio.com"; got != want {
		t.Errorf("databaseURL = %q; want = %q", got, want)
	}
	if got, want := app.storageBucket, "mock-bucket"; got != want {
		t.Errorf("storageBucket = %q; want = %q", got, want)
	}
}

func TestNewAppConfigUnknownField(t *testing.T) {
	t.Setenv(firebaseEnvName, `{"projectId": "p", "unknownKey": "v"}`)
	app, err := NewApp(context.Background(), nil)
	if app != nil || err == nil {
		t.Errorf("NewApp() = (%v, %v); want = (nil, error)", app, err)
	}
}

func TestNewAppConfigPrecedence(t *testing.T) {
	t.Setenv(firebaseEnvName, testConfigJSON)

	app, err := NewApp(context.Background(), &Config{ProjectID: "explicit-project"})
	if err != nil {
		t.Fatalf("NewApp() = %v", err)
	}
	if got, want := app.projectID, "explicit-project"; got != want {
		t.Errorf("projectID = %q; want = %q", got, want)
	}
	if got, want := app.apiKey, "mock-api-key"; got != want {
		t.Errorf("apiKey = %q; want = %q", got, want)
	}
}

func TestNewAppConfigMissingFile(t *testing.T) {
	t.Setenv(firebaseEnvName, "testdata/no-such-config.json")
	app, err := NewApp(context.Background(), nil)
	if app != nil || err == nil {
		t.Errorf("NewApp() = (%v, %v); want = (nil, error)", app, err)
	}
}

func TestAuthRequiresAPIKey(t *testing.T) {
	t.Setenv(firebaseEnvName, "")
	app, err := NewApp(context.Background(), &Config{ProjectID: "mock-project-id"})
	if err != nil {
		t.Fatalf("NewApp() = %v", err)
	}
	if client, err := app.Auth(context.Background()); client != nil || err == nil {
		t.Errorf("Auth() = (%v, %v); want = (nil, error)", client, err)
	}
}

func TestDatabaseRequiresURL(t *testing.T) {
	t.Setenv(firebaseEnvName, "")
	app, err := NewApp(context.Background(), &Config{ProjectID: "mock-project-id"})
	if err != nil {
		t.Fatalf("NewApp() = %v", err)
	}
	if client, err := app.Database(context.Background()); client != nil || err == nil {
		t.Errorf("Database() = (%v, %v); want = (nil, error)", client, err)
	}
}

func TestStorageRequiresBucket(t *testing.T) {
	t.Setenv(firebaseEnvName, "")
	app, err := NewApp(context.Background(), &Config{ProjectID: "mock-project-id"})
	if err != nil {
		t.Fatalf("NewApp() = %v", err)
	}
	if client, err := app.Storage(context.Background()); client != nil || err == nil {
		t.Errorf("Storage() = (%v, %v); want = (nil, error)", client, err)
	}
}

func TestRemoteConfigRequiresProjectID(t *testing.T) {
	t.Setenv(firebaseEnvName, "")
	app, err := NewApp(context.Background(), &Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewApp() = %v", err)
	}
	if client, err := app.RemoteConfig(context.Background()); client != nil || err == nil {
		t.Errorf("RemoteConfig() = (%v, %v); want = (nil, error)", client, err)
	}
}
