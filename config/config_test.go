package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 150.0/512.0, cfg.VoxelSize(), 1e-7)
	assert.Equal(t, VoxelizeOnce, cfg.Voxelize.Mode)
	assert.Positive(t, cfg.WorkerCount())
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
voxel_dimensions = 64
voxel_grid_world_size = 16.0

[light]
direction = [0.0, 1.0, 0.0]

[voxelize]
mode = "interval"
interval = 10
`))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.VoxelDimensions)
	assert.Equal(t, float32(0.25), cfg.VoxelSize())
	assert.Equal(t, [3]float32{0, 1, 0}, cfg.Light.Direction)
	assert.Equal(t, VoxelizeInterval, cfg.Voxelize.Mode)
	assert.Equal(t, 4096, cfg.ShadowMapResolution, "untouched keys keep defaults")
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":        "voxel_count = 3\n",
		"not power of two":   "voxel_dimensions = 100\n",
		"inverted bounds":    "[light]\nbounds = [10.0, -10.0, -1.0, 1.0, -1.0, 1.0]\n",
		"unknown mode":       "[voxelize]\nmode = \"sometimes\"\n",
		"interval without n": "[voxelize]\nmode = \"interval\"\n",
		"zero light":         "[light]\ndirection = [0.0, 0.0, 0.0]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.VoxelDimensions = 128
	cfg.Trace.MaxSteps = 32
	data, err := cfg.Encode()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vct.toml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}
