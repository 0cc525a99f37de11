package solstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/solstore/sizegate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotEmpty(t, cfg.Root)
	assert.Equal(t, sizegate.DefaultThreshold, cfg.SizeThreshold)
	assert.Equal(t, 2, cfg.DisposerPoolSize)
	assert.False(t, cfg.Remote)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(
		WithRoot("/var/cache/stores/"),
		WithSizeThreshold(10),
		WithDisposerPoolSize(4),
		WithSyncWrites(true),
		WithWatchRoot(true),
		WithRemote(true),
	)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, filepath.Clean("/var/cache/stores"), cfg.Root)
	assert.Equal(t, int64(10), cfg.SizeThreshold)
	assert.Equal(t, 4, cfg.DisposerPoolSize)
	assert.True(t, cfg.SyncWrites)
	assert.True(t, cfg.WatchRoot)
	assert.True(t, cfg.Remote)
}

func TestConfig_Normalize(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := NewConfig(WithRoot("~/stores"))
	cfg.Normalize()
	assert.Equal(t, filepath.Join(home, "stores"), cfg.Root)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"missing root", NewConfig(WithRoot(""))},
		{"negative threshold", NewConfig(WithSizeThreshold(-1))},
		{"zero pool", NewConfig(WithDisposerPoolSize(0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "stores")
		path := filepath.Join(t.TempDir(), "solstore.yaml")
		data := "root: " + root + "\nsize_threshold: 2048\nwatch_root: true\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, root, cfg.Root)
		assert.Equal(t, int64(2048), cfg.SizeThreshold)
		assert.True(t, cfg.WatchRoot)
		assert.Equal(t, 2, cfg.DisposerPoolSize, "unset fields keep defaults")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("root: [unterminated"), 0644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "neg.yaml")
		require.NoError(t, os.WriteFile(path, []byte("disposer_pool_size: 0\n"), 0644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}
