// Package renderer drives the voxel cone tracing passes: shadow depth,
// voxelization with mip generation, and the cone traced camera view.
package renderer

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"vct-renderer/config"
	"vct-renderer/conetrace"
	"vct-renderer/core"
	"vct-renderer/internal/parallel"
	"vct-renderer/math"
	"vct-renderer/scene"
	"vct-renderer/shadow"
	"vct-renderer/volume"
	"vct-renderer/voxelize"
)

var (
	ErrClosed   = errors.New("renderer: pipeline closed")
	ErrNotReady = errors.New("renderer: no scene set up")
)

// FrameStats describes the most recent frame.
type FrameStats struct {
	Frame       uint64
	Revoxelized bool

	Casters  int            // objects that reached the shadow map
	Voxelize voxelize.Stats // from the last voxelization, not necessarily this frame
	Trace    conetrace.Stats

	ShadowTime   time.Duration
	VoxelizeTime time.Duration
	TraceTime    time.Duration
}

// Pipeline owns the volume, the shadow map and the worker pool, and renders
// frames of one scene. Frame, Setup and Revoxelize must be called from a
// single goroutine; the toggle methods may be called from any.
type Pipeline struct {
	cfg config.Config
	log core.Logger

	res    *Resources
	pool   *parallel.Pool
	vol    *volume.Texture
	shadow *shadow.Pass
	voxels *voxelize.Pass
	tracer *conetrace.Tracer
	trace  *conetrace.Pass

	light   scene.DirectionalLight
	scene   *scene.Scene
	version uint64

	mu      sync.Mutex
	toggles conetrace.Toggles

	stats  FrameStats
	closed bool
}

// New validates cfg and allocates every resource the passes need. If any
// allocation fails the ones already made are released and no pipeline is
// returned.
func New(cfg config.Config, log core.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = core.NewNopLogger()
	}

	res := &Resources{}
	pool, err := Acquire(res, "worker pool",
		func() (*parallel.Pool, error) { return parallel.NewPool(cfg.WorkerCount()), nil },
		func(p *parallel.Pool) error { p.Release(); return nil })
	if err != nil {
		return nil, errors.Join(err, res.Release())
	}

	vol, err := Acquire(res, "voxel volume",
		func() (*volume.Texture, error) { return volume.New(cfg.VoxelDimensions, volume.WithPool(pool)) },
		func(t *volume.Texture) error { t.Release(); return nil })
	if err != nil {
		return nil, errors.Join(err, res.Release())
	}

	sm, err := Acquire(res, "shadow map",
		func() (*shadow.Pass, error) { return shadow.New(cfg.ShadowMapResolution, pool) },
		func(s *shadow.Pass) error { s.Release(); return nil })
	if err != nil {
		return nil, errors.Join(err, res.Release())
	}

	params := conetrace.DefaultParams(cfg.VoxelGridWorldSize, cfg.VoxelDimensions)
	params.DiffuseAperture = cfg.Trace.DiffuseAperture
	params.MaxDistance = cfg.Trace.MaxDistance
	params.AlphaThreshold = cfg.Trace.AlphaThreshold
	params.MaxSteps = cfg.Trace.MaxSteps
	params.OcclusionFalloff = cfg.Trace.OcclusionFalloff
	params.DiffuseScale = cfg.Trace.DiffuseScale
	params.IndirectDiffuseScale = cfg.Trace.IndirectDiffuseScale
	params.SpecularScale = cfg.Trace.SpecularScale
	params.DirectBias = cfg.Shadow.DirectBias
	tracer := conetrace.NewTracer(vol, params)

	p := &Pipeline{
		cfg:     cfg,
		log:     log,
		res:     res,
		pool:    pool,
		vol:     vol,
		shadow:  sm,
		voxels:  voxelize.New(vol, sm, cfg.VoxelGridWorldSize, cfg.Shadow.VoxelBias, pool),
		tracer:  tracer,
		trace:   conetrace.NewPass(tracer, sm, pool),
		light:   LightFromConfig(cfg),
		toggles: conetrace.AllToggles(),
	}
	log.Infof("pipeline ready: %d^3 voxels in %d levels, %dx%d shadow map, %d workers",
		vol.Size(), vol.Levels(), sm.Resolution(), sm.Resolution(), pool.Workers())
	return p, nil
}

// LightFromConfig builds the directional light described by cfg.
func LightFromConfig(cfg config.Config) scene.DirectionalLight {
	l := scene.NewDirectionalLight(cfg.LightDirection())
	l.Color = core.ColorFromVec3(cfg.LightColor())
	l.Intensity = cfg.Light.Intensity
	l.Bounds = cfg.Light.Bounds
	return l
}

// CameraFromConfig builds the start camera described by cfg for a frame of
// the configured size.
func CameraFromConfig(cfg config.Config) *scene.Camera {
	c := cfg.Camera
	cam := scene.NewCamera(math.Radians(c.FOV), float32(cfg.Width)/float32(cfg.Height), c.Near, c.Far)
	cam.Position = cfg.CameraPosition()
	cam.Yaw = math.Radians(c.Yaw)
	cam.Pitch = math.Radians(c.Pitch)
	return cam
}

func (p *Pipeline) Config() config.Config         { return p.cfg }
func (p *Pipeline) Light() scene.DirectionalLight { return p.light }
func (p *Pipeline) Volume() *volume.Texture       { return p.vol }
func (p *Pipeline) ShadowMap() *shadow.Pass       { return p.shadow }
func (p *Pipeline) Stats() FrameStats             { return p.stats }

// SetLight replaces the light. The volume is stale until the next
// voxelization, which on-change mode runs on the next frame.
func (p *Pipeline) SetLight(l scene.DirectionalLight) {
	p.light = l
	if p.scene != nil {
		p.scene.MarkChanged()
	}
}

// Setup makes s the rendered scene and runs the shadow and voxelization
// passes once. Calling it again switches scenes.
func (p *Pipeline) Setup(s *scene.Scene) error {
	if p.closed {
		return ErrClosed
	}
	if s == nil {
		return fmt.Errorf("renderer: setup: nil scene")
	}
	s.SortOpaqueFirst()
	p.scene = s
	p.log.Infof("scene: %d objects, %d triangles", s.Len(), s.TriangleCount())
	return p.revoxelize()
}

// Revoxelize reruns the shadow and voxelization passes now.
func (p *Pipeline) Revoxelize() error {
	if p.closed {
		return ErrClosed
	}
	if p.scene == nil {
		return ErrNotReady
	}
	return p.revoxelize()
}

func (p *Pipeline) revoxelize() error {
	p.version = p.scene.Version()
	objects := p.scene.Objects()

	start := time.Now()
	p.stats.Casters = p.shadow.Render(p.light, objects)
	p.stats.ShadowTime = time.Since(start)
	p.log.Debugf("shadow pass: %d casters in %v", p.stats.Casters, p.stats.ShadowTime)

	start = time.Now()
	vs, err := p.voxels.Run(p.light, objects)
	if err != nil {
		return fmt.Errorf("renderer: voxelize: %w", err)
	}
	p.stats.Voxelize = vs
	p.stats.VoxelizeTime = time.Since(start)
	p.stats.Revoxelized = true
	p.log.Debugf("voxelization: %d triangles (%d degenerate), %d fragments, %d cells in %v",
		vs.Triangles, vs.Degenerate, vs.Fragments, vs.Cells, p.stats.VoxelizeTime)
	return nil
}

// due reports whether the configured cadence asks for a voxelization before
// the given frame. Frame 0 follows Setup, which already voxelized.
func (p *Pipeline) due(frame uint64) bool {
	switch p.cfg.Voxelize.Mode {
	case config.VoxelizeEveryFrame:
		return frame > 0
	case config.VoxelizeInterval:
		return frame > 0 && frame%uint64(p.cfg.Voxelize.Interval) == 0
	case config.VoxelizeOnChange:
		return p.scene.Version() != p.version
	}
	return false
}

// Frame renders the scene from cam at the configured size with the current
// toggle snapshot, voxelizing first if the cadence asks for it.
func (p *Pipeline) Frame(cam *scene.Camera) (*image.RGBA, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if p.scene == nil {
		return nil, ErrNotReady
	}
	if cam == nil {
		return nil, fmt.Errorf("renderer: frame: nil camera")
	}

	frame := p.stats.Frame
	p.stats.Revoxelized = false
	if p.due(frame) {
		if err := p.revoxelize(); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	img := p.trace.Render(conetrace.View{
		Camera:  cam,
		Light:   p.light,
		Objects: p.scene.Objects(),
		Width:   p.cfg.Width,
		Height:  p.cfg.Height,
	}, p.Toggles())
	p.stats.Trace = p.trace.Stats()
	p.stats.TraceTime = time.Since(start)
	p.stats.Frame = frame + 1
	p.log.Debugf("frame %d: %d objects, %d triangles, %d pixels covered in %v",
		frame, p.stats.Trace.Objects, p.stats.Trace.Triangles, p.stats.Trace.Covered, p.stats.TraceTime)
	return img, nil
}

// Toggle flips one output term and returns the new snapshot.
func (p *Pipeline) Toggle(ch conetrace.Channel) conetrace.Toggles {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toggles = p.toggles.Flip(ch)
	p.log.Infof("%v: %v", ch, p.toggles.Enabled(ch))
	return p.toggles
}

func (p *Pipeline) SetToggles(t conetrace.Toggles) {
	p.mu.Lock()
	p.toggles = t
	p.mu.Unlock()
}

func (p *Pipeline) Toggles() conetrace.Toggles {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.toggles
}

// Close releases the volume, the shadow map and the worker pool. Every later
// call, Close included, returns ErrClosed.
func (p *Pipeline) Close() error {
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	p.scene = nil
	return p.res.Release()
}
