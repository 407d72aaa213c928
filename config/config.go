// Package config holds the tunables of the voxel cone tracing pipeline and
// loads them from TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"runtime"

	"vct-renderer/math"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalid = errors.New("invalid configuration")

// VoxelizeMode selects when the scene is re-voxelized.
type VoxelizeMode string

const (
	VoxelizeOnce       VoxelizeMode = "once"
	VoxelizeEveryFrame VoxelizeMode = "every-frame"
	VoxelizeInterval   VoxelizeMode = "interval"
	VoxelizeOnChange   VoxelizeMode = "on-change"
)

type Light struct {
	Direction [3]float32 `toml:"direction"`
	Color     [3]float32 `toml:"color"`
	Intensity float32    `toml:"intensity"`
	// Orthographic extents of the light frustum: left, right, bottom, top, near, far.
	Bounds [6]float32 `toml:"bounds"`
}

type Camera struct {
	Position [3]float32 `toml:"position"`
	Yaw      float32    `toml:"yaw"`   // degrees
	Pitch    float32    `toml:"pitch"` // degrees
	FOV      float32    `toml:"fov"`   // degrees
	Near     float32    `toml:"near"`
	Far      float32    `toml:"far"`
}

type Trace struct {
	DiffuseAperture      float32 `toml:"diffuse_aperture"`
	MaxDistance          float32 `toml:"max_distance"`
	AlphaThreshold       float32 `toml:"alpha_threshold"`
	MaxSteps             int     `toml:"max_steps"`
	OcclusionFalloff     float32 `toml:"occlusion_falloff"`
	DiffuseScale         float32 `toml:"diffuse_scale"`
	IndirectDiffuseScale float32 `toml:"indirect_diffuse_scale"`
	SpecularScale        float32 `toml:"specular_scale"`
}

type Shadow struct {
	VoxelBias  float32 `toml:"voxel_bias"`
	DirectBias float32 `toml:"direct_bias"`
}

type Voxelize struct {
	Mode VoxelizeMode `toml:"mode"`
	// Frames between re-voxelizations in interval mode.
	Interval int `toml:"interval"`
}

type Config struct {
	VoxelDimensions     int     `toml:"voxel_dimensions"`
	VoxelGridWorldSize  float32 `toml:"voxel_grid_world_size"`
	ShadowMapResolution int     `toml:"shadow_map_resolution"`
	Width               int     `toml:"width"`
	Height              int     `toml:"height"`
	Workers             int     `toml:"workers"`
	Debug               bool    `toml:"debug"`

	Light    Light    `toml:"light"`
	Camera   Camera   `toml:"camera"`
	Trace    Trace    `toml:"trace"`
	Shadow   Shadow   `toml:"shadow"`
	Voxelize Voxelize `toml:"voxelize"`
}

func Default() Config {
	return Config{
		VoxelDimensions:     512,
		VoxelGridWorldSize:  150,
		ShadowMapResolution: 4096,
		Width:               640,
		Height:              360,
		Light: Light{
			Direction: [3]float32{-0.3, 0.9, -0.25},
			Color:     [3]float32{1, 1, 1},
			Intensity: 1,
			Bounds:    [6]float32{-120, 120, -120, 120, -500, 500},
		},
		Camera: Camera{
			Position: [3]float32{0, 0, 5},
			Yaw:      -90,
			FOV:      45,
			Near:     0.1,
			Far:      1000,
		},
		Trace: Trace{
			DiffuseAperture:      0.577,
			MaxDistance:          100,
			AlphaThreshold:       0.95,
			MaxSteps:             256,
			OcclusionFalloff:     0.03,
			DiffuseScale:         2,
			IndirectDiffuseScale: 4,
			SpecularScale:        2,
		},
		Shadow: Shadow{
			VoxelBias:  0.001,
			DirectBias: 0.0005,
		},
		Voxelize: Voxelize{Mode: VoxelizeOnce},
	}
}

// Load decodes a TOML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode renders cfg as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func (c Config) Validate() error {
	switch {
	case !math.IsPowerOfTwo(c.VoxelDimensions):
		return fmt.Errorf("%w: voxel_dimensions %d is not a power of two", ErrInvalid, c.VoxelDimensions)
	case c.VoxelGridWorldSize <= 0:
		return fmt.Errorf("%w: voxel_grid_world_size must be positive", ErrInvalid)
	case c.ShadowMapResolution <= 0:
		return fmt.Errorf("%w: shadow_map_resolution must be positive", ErrInvalid)
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalid, c.Width, c.Height)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative", ErrInvalid)
	}

	b := c.Light.Bounds
	if b[0] >= b[1] || b[2] >= b[3] || b[4] >= b[5] {
		return fmt.Errorf("%w: light bounds %v are inverted", ErrInvalid, b)
	}
	if c.LightDirection().LengthSqr() == 0 {
		return fmt.Errorf("%w: light direction is zero", ErrInvalid)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("%w: camera clip range %v..%v", ErrInvalid, c.Camera.Near, c.Camera.Far)
	}
	if c.Trace.MaxSteps <= 0 || c.Trace.DiffuseAperture <= 0 || c.Trace.MaxDistance <= 0 {
		return fmt.Errorf("%w: trace limits must be positive", ErrInvalid)
	}

	switch c.Voxelize.Mode {
	case VoxelizeOnce, VoxelizeEveryFrame, VoxelizeOnChange:
	case VoxelizeInterval:
		if c.Voxelize.Interval <= 0 {
			return fmt.Errorf("%w: interval mode needs a positive interval", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown voxelize mode %q", ErrInvalid, c.Voxelize.Mode)
	}
	return nil
}

// VoxelSize is the world-space edge length of one level-0 voxel.
func (c Config) VoxelSize() float32 {
	return c.VoxelGridWorldSize / float32(c.VoxelDimensions)
}

// WorkerCount resolves Workers, where zero means one per CPU.
func (c Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

func (c Config) LightDirection() math.Vec3 {
	d := c.Light.Direction
	return math.NewVec3(d[0], d[1], d[2])
}

func (c Config) LightColor() math.Vec3 {
	d := c.Light.Color
	return math.NewVec3(d[0], d[1], d[2])
}

func (c Config) CameraPosition() math.Vec3 {
	p := c.Camera.Position
	return math.NewVec3(p[0], p[1], p[2])
}
