package conetrace

import (
	"math/rand"
	"testing"

	"vct-renderer/core"
	"vct-renderer/internal/parallel"
	"vct-renderer/math"
	"vct-renderer/scene"
	"vct-renderer/volume"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyVolume(t *testing.T, size int) *volume.Texture {
	t.Helper()
	v, err := volume.New(size)
	require.NoError(t, err)
	return v
}

func filledVolume(t *testing.T, size int, tx volume.Texel) *volume.Texture {
	t.Helper()
	v := emptyVolume(t, size)
	w, err := v.BeginWrite()
	require.NoError(t, err)
	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				w.Blend(x, y, z, tx)
			}
		}
	}
	w.End()
	v.GenerateMips()
	return v
}

func randomVolume(t *testing.T, size int, seed int64) *volume.Texture {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	v := emptyVolume(t, size)
	w, _ := v.BeginWrite()
	for i := 0; i < size*size*size/4; i++ {
		w.Blend(rng.Intn(size), rng.Intn(size), rng.Intn(size),
			volume.Texel{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
	}
	w.End()
	v.GenerateMips()
	return v
}

func TestEmptyVolumeGathersNothing(t *testing.T) {
	tr := NewTracer(emptyVolume(t, 16), DefaultParams(16, 16))
	c := tr.TraceCone(math.Vec3Zero, math.Vec3Right, 0.577)
	assert.Equal(t, math.Vec3Zero, c.Color)
	assert.Zero(t, c.Alpha)
	assert.Zero(t, c.Occlusion)
	assert.Less(t, c.Steps, 20, "leaves the volume early")

	indirect, ao := tr.IndirectDiffuse(math.Vec3Zero, math.Vec3Up)
	assert.Equal(t, math.Vec3Zero, indirect)
	assert.Equal(t, float32(1), ao)
}

func TestOpaqueVolumeStopsAtFirstSample(t *testing.T) {
	p := DefaultParams(16, 16)
	tr := NewTracer(filledVolume(t, 16, volume.Texel{255, 128, 0, 255}), p)

	var steps []Step
	c := tr.March(math.Vec3Zero, math.Vec3Up, 0.577, func(s Step) { steps = append(steps, s) })
	require.Len(t, steps, 1)
	assert.Equal(t, float32(1), steps[0].Distance, "first sample one voxel out")
	assert.InDelta(t, 1.154, steps[0].Diameter, 1e-5)
	assert.InDelta(t, math32.Log2(1.154), steps[0].Lod, 1e-5)

	assert.InDelta(t, 1, c.Alpha, 1e-5)
	assert.InDelta(t, 1, c.Color.X, 1e-5)
	assert.InDelta(t, 128.0/255.0, c.Color.Y, 1e-5)
	assert.InDelta(t, 1/(1+0.03*1.154), c.Occlusion, 1e-5)
}

func TestAlphaIsMonotoneAndBounded(t *testing.T) {
	vol := randomVolume(t, 32, 11)
	p := DefaultParams(32, 32)
	p.AlphaThreshold = 1.1 // never stop early on alpha
	tr := NewTracer(vol, p)
	rng := rand.New(rand.NewSource(5))

	for i := 0; i < 200; i++ {
		origin := math.NewVec3(rng.Float32()*32-16, rng.Float32()*32-16, rng.Float32()*32-16)
		dir := math.NewVec3(rng.Float32()*2-1, rng.Float32()*2-1, rng.Float32()*2-1).Normalize()
		if dir.LengthSqr() == 0 {
			continue
		}
		tanHalf := 0.05 + rng.Float32()

		prevAlpha, prevDiameter, prevDist := float32(0), float32(0), float32(0)
		c := tr.March(origin, dir, tanHalf, func(s Step) {
			require.GreaterOrEqual(t, s.Alpha, prevAlpha)
			require.LessOrEqual(t, s.Alpha, float32(1+1e-5))
			require.GreaterOrEqual(t, s.Diameter, prevDiameter)
			require.Greater(t, s.Distance, prevDist)
			require.GreaterOrEqual(t, s.Lod, float32(0))
			prevAlpha, prevDiameter, prevDist = s.Alpha, s.Diameter, s.Distance
		})
		assert.LessOrEqual(t, c.Steps, p.MaxSteps)
		assert.LessOrEqual(t, c.Alpha, float32(1+1e-5))
		assert.LessOrEqual(t, c.Occlusion, c.Alpha+1e-5)
	}
}

func TestStepCapTerminates(t *testing.T) {
	p := DefaultParams(16, 16)
	p.MaxSteps = 3
	p.MaxDistance = 1e9
	tr := NewTracer(emptyVolume(t, 16), p)
	c := tr.TraceCone(math.Vec3Zero, math.Vec3Right, 0)
	assert.Equal(t, 3, c.Steps)
	assert.InDelta(t, 2.5, c.Distance, 1e-6)
}

func TestOccludedSurface(t *testing.T) {
	vol := emptyVolume(t, 16)
	w, _ := vol.BeginWrite()
	// a white ceiling two voxels above the origin
	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			w.Blend(x, 10, z, volume.Texel{255, 255, 255, 255})
		}
	}
	w.End()
	vol.GenerateMips()

	tr := NewTracer(vol, DefaultParams(16, 16))
	up, aoUp := tr.IndirectDiffuse(math.Vec3Zero, math.Vec3Up)
	assert.Greater(t, up.X, float32(0))
	assert.Less(t, aoUp, float32(1))

	// facing away from the ceiling only coarse mips leak a little
	down, aoDown := tr.IndirectDiffuse(math.NewVec3(0, 0.5, 0), math.Vec3Down)
	assert.Less(t, down.X, up.X*0.1)
	assert.Greater(t, aoDown, aoUp)
	assert.Greater(t, aoDown, float32(0.9))

	spec := tr.IndirectSpecular(math.Vec3Zero, math.Vec3Up, math.Vec3Up, 0)
	assert.Greater(t, spec.X, float32(0.5), "mirror cone hits the ceiling")
}

func TestSpecularAperture(t *testing.T) {
	assert.InDelta(t, math32.Tan(math.Radians(4)), SpecularAperture(0), 1e-6)
	assert.InDelta(t, math32.Tan(math.Radians(30)), SpecularAperture(1), 1e-6)
	assert.InDelta(t, math32.Tan(math.Radians(17)), SpecularAperture(0.5), 1e-6)
	assert.Equal(t, SpecularAperture(1), SpecularAperture(3))
}

func TestToggles(t *testing.T) {
	all := AllToggles()
	for _, ch := range []Channel{ChannelDiffuse, ChannelIndirectDiffuse, ChannelIndirectSpecular, ChannelAmbientOcclusion} {
		assert.True(t, all.Enabled(ch))
		off := all.Flip(ch)
		assert.False(t, off.Enabled(ch), ch.String())
		assert.True(t, all.Enabled(ch), "snapshots are values")
		assert.Equal(t, all, off.Flip(ch))
	}
	assert.Equal(t, Toggles{Diffuse: true}, Toggles{}.With(ChannelDiffuse, true))
	assert.Equal(t, "ambient occlusion", ChannelAmbientOcclusion.String())
}

func testSurface() Surface {
	return Surface{
		Position:  math.Vec3Zero,
		Normal:    math.Vec3Up,
		View:      math.NewVec3(0, 1, 1).Normalize(),
		Albedo:    core.NewColor(0.5, 0.25, 0.5),
		Specular:  core.NewColor(1, 1, 1),
		Roughness: 0.3,
	}
}

type constOccluder float32

func (c constOccluder) Visibility(math.Vec3, float32) float32 { return float32(c) }

func TestShadeToggles(t *testing.T) {
	light := scene.NewDirectionalLight(math.Vec3Up)
	empty := NewTracer(emptyVolume(t, 16), DefaultParams(16, 16))
	full := NewTracer(filledVolume(t, 16, volume.Texel{200, 100, 50, 255}), DefaultParams(16, 16))
	s := testSurface()

	for _, tr := range []*Tracer{empty, full} {
		black := tr.Shade(s, light, nil, Toggles{})
		assert.Equal(t, core.NewColor(0, 0, 0), black)
	}

	// direct only: 2 * N.L * albedo, whatever the volume holds
	want := core.NewColor(1, 0.5, 1)
	assert.Equal(t, want, empty.Shade(s, light, nil, Toggles{Diffuse: true}))
	assert.Equal(t, want, full.Shade(s, light, nil, Toggles{Diffuse: true}))

	half := empty.Shade(s, light, constOccluder(0.5), Toggles{Diffuse: true})
	assert.InDelta(t, 0.5, half.R, 1e-6)

	// a fully occluded point goes dark with AO on
	withAO := full.Shade(s, light, nil, Toggles{Diffuse: true, AmbientOcclusion: true})
	assert.Less(t, withAO.R, want.R)
	aoOnly := full.Shade(s, light, nil, Toggles{AmbientOcclusion: true})
	assert.Equal(t, core.NewColor(0, 0, 0), aoOnly)

	indirect := full.Shade(s, light, nil, Toggles{IndirectDiffuse: true})
	assert.Greater(t, indirect.R, float32(0))
	specular := full.Shade(s, light, nil, Toggles{IndirectSpecular: true})
	assert.Greater(t, specular.R, float32(0))
	assert.Equal(t, core.NewColor(0, 0, 0), empty.Shade(s, light, nil, Toggles{IndirectDiffuse: true, IndirectSpecular: true}))
}

func floorView(cam *scene.Camera) View {
	floor := scene.NewObject("floor", scene.CreatePlane(20, 20, 2), scene.NewMaterial("grey", core.NewColor(0.5, 0.5, 0.5)))
	return View{
		Camera:  cam,
		Light:   scene.NewDirectionalLight(math.Vec3Up),
		Objects: []*scene.Object{floor},
		Width:   32,
		Height:  24,
	}
}

func aboveCamera() *scene.Camera {
	cam := scene.NewCamera(math.Radians(45), 1, 0.1, 100)
	cam.Position = math.NewVec3(0, 5, 10)
	cam.LookAt(math.Vec3Zero)
	return cam
}

func TestRenderAllTogglesOffIsBlack(t *testing.T) {
	tr := NewTracer(filledVolume(t, 16, volume.Texel{255, 255, 255, 255}), DefaultParams(32, 16))
	pass := NewPass(tr, nil, nil)
	img := pass.Render(floorView(aboveCamera()), Toggles{})

	require.Equal(t, 32, img.Bounds().Dx())
	require.Equal(t, 24, img.Bounds().Dy())
	for i := 0; i < len(img.Pix); i += 4 {
		require.Equal(t, []uint8{0, 0, 0, 255}, img.Pix[i:i+4])
	}
	assert.NotZero(t, pass.Stats().Covered)
}

func TestRenderDiffuseOnlyIgnoresVolume(t *testing.T) {
	view := floorView(aboveCamera())
	a := NewPass(NewTracer(emptyVolume(t, 16), DefaultParams(32, 16)), nil, nil).
		Render(view, Toggles{Diffuse: true})
	b := NewPass(NewTracer(filledVolume(t, 16, volume.Texel{255, 0, 0, 255}), DefaultParams(32, 16)), nil, nil).
		Render(view, Toggles{Diffuse: true})
	assert.Equal(t, a.Pix, b.Pix)

	// floor lit straight on: 2 * 0.5 = 1 in the bottom row, sky above the horizon
	assert.Equal(t, []uint8{255, 255, 255, 255}, a.Pix[a.PixOffset(16, 23):a.PixOffset(16, 23)+4])
	assert.Equal(t, []uint8{0, 0, 0, 255}, a.Pix[a.PixOffset(16, 0):a.PixOffset(16, 0)+4])
}

func TestRenderFallsBackToFaceNormal(t *testing.T) {
	view := floorView(aboveCamera())
	plane := scene.CreatePlane(20, 20, 2)
	verts := plane.Vertices()
	for i := range verts {
		verts[i].Normal = math.Vec3Zero
	}
	flat, err := scene.CreateMeshFromData("flat", verts, plane.Indices())
	require.NoError(t, err)

	tr := NewTracer(emptyVolume(t, 16), DefaultParams(32, 16))
	want := NewPass(tr, nil, nil).Render(view, Toggles{Diffuse: true})
	view.Objects = []*scene.Object{scene.NewObject("flat", flat, view.Objects[0].Material)}
	got := NewPass(tr, nil, nil).Render(view, Toggles{Diffuse: true})
	assert.Equal(t, want.Pix, got.Pix)
}

func TestRenderCullsBackFacesAndFrustum(t *testing.T) {
	tr := NewTracer(emptyVolume(t, 16), DefaultParams(32, 16))
	pass := NewPass(tr, nil, nil)

	below := scene.NewCamera(math.Radians(45), 1, 0.1, 100)
	below.Position = math.NewVec3(0, -5, 10)
	below.LookAt(math.Vec3Zero)
	pass.Render(floorView(below), AllToggles())
	assert.Equal(t, 1, pass.Stats().Objects)
	assert.Zero(t, pass.Stats().Covered, "floor seen from below is culled")

	away := aboveCamera()
	away.LookAt(math.NewVec3(0, 5, 20))
	pass.Render(floorView(away), AllToggles())
	assert.Zero(t, pass.Stats().Objects, "floor behind the camera")
	assert.Zero(t, pass.Stats().Triangles)
}

func TestRenderParallelMatchesSerial(t *testing.T) {
	pool := parallel.NewPool(4)
	defer pool.Release()

	vol := randomVolume(t, 16, 3)
	view := floorView(aboveCamera())
	box := scene.NewObject("box", scene.CreateCube(3), scene.NewMaterial("red", core.NewColor(0.8, 0.1, 0.1)))
	box.Transform.Position = math.NewVec3(1, 1.5, 0)
	view.Objects = append(view.Objects, box)
	occ := constOccluder(0.75)

	serial := NewPass(NewTracer(vol, DefaultParams(32, 16)), occ, nil).Render(view, AllToggles())
	par := NewPass(NewTracer(vol, DefaultParams(32, 16)), occ, pool).Render(view, AllToggles())
	assert.Equal(t, serial.Pix, par.Pix)
}
