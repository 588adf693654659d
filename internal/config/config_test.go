package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlist-tui/internal/virtual"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"item_count": 250, "gap": 0, "frame_interval": "33ms", "backend_url": "ws://localhost:9000/rpc"}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.ItemCount)
	assert.Equal(t, 0.0, cfg.Gap)
	assert.Equal(t, Duration(33*time.Millisecond), cfg.FrameInterval)
	assert.Equal(t, "ws://localhost:9000/rpc", cfg.BackendURL)

	// untouched fields keep their defaults
	assert.Equal(t, Defaults().EstimatedItemSize, cfg.EstimatedItemSize)
	assert.Equal(t, Defaults().Overscan, cfg.Overscan)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "malformed", data: `{"item_count": `},
		{name: "bad duration", data: `{"frame_interval": "soon"}`},
		{name: "negative count", data: `{"item_count": -1}`, wantErr: virtual.ErrInvalidItemCount},
		{name: "zero estimate", data: `{"estimated_item_size": 0}`, wantErr: virtual.ErrInvalidItemSize},
		{name: "negative overscan", data: `{"overscan": -2}`, wantErr: virtual.ErrInvalidOverscan},
		{name: "zero cache", data: `{"cache_size": 0}`, wantErr: ErrInvalidSetting},
		{name: "zero retry interval", data: `{"retry_interval": "0s"}`, wantErr: ErrInvalidSetting},
		{name: "theme", data: `{"theme": "neon"}`, wantErr: ErrInvalidTheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o644))

			cfg, err := Load(path)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, Defaults(), cfg)
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Defaults()
	cfg.ItemCount = 12
	cfg.PrefetchInterval = Duration(time.Second)
	cfg.Theme = "light"

	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"prefetch_interval": "1s"`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestScrollConfig(t *testing.T) {
	cfg := Defaults()
	sc := cfg.ScrollConfig()

	assert.Equal(t, cfg.EngineConfig(), sc.Engine)
	assert.Equal(t, 16*time.Millisecond, sc.FrameInterval)
	assert.Equal(t, 200*time.Millisecond, sc.PrefetchInterval)
	assert.True(t, sc.EnableCache)
	assert.NoError(t, sc.Engine.Validate())
}
