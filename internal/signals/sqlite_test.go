package signals

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, err := NewSQLiteStore(Config{
			Type:             "sqlite",
			ConnectionString: filepath.Join(t.TempDir(), "signals.db"),
		})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteStoreErrors(t *testing.T) {
	t.Run("Invalid Connection String", func(t *testing.T) {
		_, err := NewSQLiteStore(Config{Type: "sqlite", ConnectionString: ""})
		assert.Error(t, err)
	})

	t.Run("Reopen keeps schema", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "signals.db")
		first, err := NewSQLiteStore(Config{ConnectionString: path})
		require.NoError(t, err)
		require.NoError(t, first.Close())

		second, err := NewSQLiteStore(Config{ConnectionString: path})
		require.NoError(t, err)
		assert.NoError(t, second.Close())
	})
}
