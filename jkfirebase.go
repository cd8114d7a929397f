// Package jkfirebase is the entry point to the JKFirebaseSDK. It provides
// functionality for initializing App instances, which serve as the central
// entities that provide access to the Firebase services exposed from the SDK.
//
// An App owns a single events.Broadcaster. Every Auth client created from
// the same App publishes its lifecycle events through that broadcaster, so
// consumers such as navigation.Router observe one coherent event stream.
package jkfirebase

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/monibu1548/JKFirebaseSDK/auth"
	"github.com/monibu1548/JKFirebaseSDK/database"
	"github.com/monibu1548/JKFirebaseSDK/events"
	"github.com/monibu1548/JKFirebaseSDK/firestore"
	"github.com/monibu1548/JKFirebaseSDK/internal"
	"github.com/monibu1548/JKFirebaseSDK/remoteconfig"
	"github.com/monibu1548/JKFirebaseSDK/storage"
)

// Version of the JKFirebaseSDK.
const Version = "1.0.0"

// firebaseEnvName is the name of the environment variable with the Config.
const firebaseEnvName = "JKFIREBASE_CONFIG"

// Config represents the configuration used to initialize an App.
type Config struct {
	ProjectID     string `json:"projectId"`
	APIKey        string `json:"apiKey"`
	DatabaseURL   string `json:"databaseURL"`
	StorageBucket string `json:"storageBucket"`
	Environment   string `json:"environment"`
}

// An App holds configuration and state common to all Firebase services that
// are exposed from the SDK.
type App struct {
	projectID     string
	apiKey        string
	databaseURL   string
	storageBucket string
	environment   string
	opts          []option.ClientOption
	events        *events.Broadcaster
	logger        *zap.Logger
}

// NewApp creates a new App from the provided config and client options.
//
// If the config is nil, it is read from the environment variable
// JKFIREBASE_CONFIG, whose value may be either a path to a JSON file or a
// literal JSON string. Fields set in the given config take precedence over
// the environment.
func NewApp(ctx context.Context, config *Config, opts ...option.ClientOption) (*App, error) {
	fromEnv, err := getConfigDefaults()
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	pick := func(explicit, def string) string {
		if explicit != "" {
			return explicit
		}
		return def
	}
	env := pick(config.Environment, fromEnv.Environment)
	if env == "" {
		env = internal.DefaultEnvironment
	}

	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}

	return &App{
		projectID:     pick(config.ProjectID, fromEnv.ProjectID),
		apiKey:        pick(config.APIKey, fromEnv.APIKey),
		databaseURL:   pick(config.DatabaseURL, fromEnv.DatabaseURL),
		storageBucket: pick(config.StorageBucket, fromEnv.StorageBucket),
		environment:   env,
		opts:          opts,
		events:        events.NewBroadcaster(),
		logger:        logger,
	}, nil
}

// getConfigDefaults reads the default config, defined by the
// JKFIREBASE_CONFIG env variable. Unknown fields in the JSON are rejected
// to catch misspelled keys early.
func getConfigDefaults() (*Config, error) {
	fbc := &Config{}
	confFileName := os.Getenv(firebaseEnvName)
	if confFileName == "" {
		return fbc, nil
	}
	var dat []byte
	if strings.HasPrefix(strings.TrimSpace(confFileName), "{") {
		dat = []byte(confFileName)
	} else {
		var err error
		if dat, err = os.ReadFile(confFileName); err != nil {
			return nil, err
		}
	}
	d := json.NewDecoder(strings.NewReader(string(dat)))
	d.DisallowUnknownFields()
	if err := d.Decode(fbc); err != nil {
		return nil, err
	}
	return fbc, nil
}

// SetLogger replaces the logger handed to service clients created after the
// call. The default is a production zap logger.
func (a *App) SetLogger(logger *zap.Logger) {
	if logger != nil {
		a.logger = logger
	}
}

// Events returns the broadcaster carrying this App's lifecycle events.
func (a *App) Events() *events.Broadcaster {
	return a.events
}

// Auth returns an instance of auth.Client.
//
// The client registers user profiles through this App's Firestore service
// and publishes lifecycle events on this App's broadcaster.
func (a *App) Auth(ctx context.Context) (*auth.Client, error) {
	if a.apiKey == "" {
		return nil, errors.New("api key is required to access Auth")
	}
	store, err := a.Firestore(ctx)
	if err != nil {
		return nil, err
	}
	conf := &internal.AuthConfig{
		ProjectID: a.projectID,
		APIKey:    a.apiKey,
		Version:   Version,
		Opts:      a.opts,
		Store:     store,
		Events:    a.events,
		Logger:    a.logger,
	}
	return auth.NewClient(ctx, conf)
}

// Firestore returns an instance of firestore.Client.
func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	conf := &internal.FirestoreConfig{
		ProjectID:   a.projectID,
		Environment: a.environment,
		Opts:        a.opts,
	}
	return firestore.NewClient(ctx, conf)
}

// Database returns an instance of database.Client.
func (a *App) Database(ctx context.Context) (*database.Client, error) {
	conf := &internal.DatabaseConfig{
		BaseURL: a.databaseURL,
		Version: Version,
		Opts:    a.opts,
	}
	return database.NewClient(ctx, conf)
}

// Storage returns an instance of storage.Client.
func (a *App) Storage(ctx context.Context) (*storage.Client, error) {
	conf := &internal.StorageConfig{
		Bucket:      a.storageBucket,
		Environment: a.environment,
		Opts:        a.opts,
	}
	return storage.NewClient(ctx, conf)
}

// RemoteConfig returns an instance of remoteconfig.Client.
func (a *App) RemoteConfig(ctx context.Context) (*remoteconfig.Client, error) {
	conf := &internal.RemoteConfigConfig{
		ProjectID:   a.projectID,
		Environment: a.environment,
		Version:     Version,
		Opts:        a.opts,
	}
	return remoteconfig.NewClient(ctx, conf)
}
