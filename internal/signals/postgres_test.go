package signals

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getPostgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

func TestPostgresStoreConnectionError(t *testing.T) {
	_, err := NewPostgresStore(Config{ConnectionString: ""})
	assert.Error(t, err)
}

func TestPostgresStoreInvalidDSN(t *testing.T) {
	_, err := NewPostgresStore(Config{ConnectionString: "postgres://invalid:5432/nonexistent?connect_timeout=1"})
	assert.Error(t, err)
}

func TestPostgresStore(t *testing.T) {
	dsn := getPostgresDSN(t)
	runStoreContract(t, func(t *testing.T) Store {
		s, err := NewPostgresStore(Config{ConnectionString: dsn})
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = s.pool.Exec(context.Background(), "TRUNCATE abuse_events, usage_events")
			s.Close()
		})
		_, err = s.pool.Exec(context.Background(), "TRUNCATE abuse_events, usage_events")
		require.NoError(t, err)
		return s
	})
}
