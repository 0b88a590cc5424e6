package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"smstudio/pkg/client"
)

type TestEnv struct {
	MongoURI     string
	DatabaseName string
	ServerURL    string
}

// NewTestEnv skips the calling test unless TEST_SERVER_URL points at a running API.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	serverURL := os.Getenv("TEST_SERVER_URL")
	if serverURL == "" {
		t.Skip("TEST_SERVER_URL not set, skipping integration test")
	}

	return &TestEnv{
		MongoURI:     getEnv("TEST_MONGO_URI", DefaultMongoURI),
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
		ServerURL:    serverURL,
	}
}

func (e *TestEnv) Setup(t *testing.T) (*MongoHelper, *client.HttpClient) {
	t.Helper()

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	mongo.CleanDatabase(t)

	httpClient := client.NewHttpClient(e.ServerURL)
	ctx, cancel := context.WithTimeout(context.Background(), DefaultHealthCheckTimeout)
	defer cancel()
	if err := httpClient.WaitForHealthy(ctx, DefaultHealthCheckTimeout); err != nil {
		t.Fatalf("server not healthy: %v", err)
	}

	return mongo, httpClient
}

func (e *TestEnv) Cleanup(t *testing.T, mongo *MongoHelper) {
	t.Helper()

	if mongo != nil {
		mongo.CleanDatabase(t)
		mongo.Close(t)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

const (
	DefaultHealthCheckTimeout = 30 * time.Second
)
