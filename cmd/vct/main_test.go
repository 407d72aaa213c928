package main

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vct-renderer/conetrace"
	"vct-renderer/core"
	"vct-renderer/math"
	"vct-renderer/renderer"
	"vct-renderer/scene"
)

type fakeInput struct {
	keys  map[glfw.Key]bool
	right bool
	x, y  float64
}

func (f *fakeInput) IsKeyPressed(key glfw.Key) bool { return f.keys[key] }
func (f *fakeInput) IsMouseButtonPressed(b glfw.MouseButton) bool {
	return b == glfw.MouseButtonRight && f.right
}
func (f *fakeInput) GetCursorPos() (float64, float64) { return f.x, f.y }

func TestParseChannel(t *testing.T) {
	tests := map[string]conetrace.Channel{
		"diffuse":           conetrace.ChannelDiffuse,
		"Indirect-Diffuse":  conetrace.ChannelIndirectDiffuse,
		"indirect_specular": conetrace.ChannelIndirectSpecular,
		"ambient occlusion": conetrace.ChannelAmbientOcclusion,
		" ao ":              conetrace.ChannelAmbientOcclusion,
	}
	for in, want := range tests {
		got, err := parseChannel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseChannel("bloom")
	assert.Error(t, err)
}

func TestTogglesLatchPerKeyDown(t *testing.T) {
	in := &fakeInput{keys: map[glfw.Key]bool{}}
	cc := NewCameraController(1)

	assert.Empty(t, cc.Toggles(in))
	in.keys[glfw.Key2] = true
	assert.Equal(t, []conetrace.Channel{conetrace.ChannelIndirectDiffuse}, cc.Toggles(in))
	assert.Empty(t, cc.Toggles(in), "held key fires once")
	assert.Empty(t, cc.Toggles(in))

	in.keys[glfw.Key2] = false
	in.keys[glfw.Key1] = true
	in.keys[glfw.Key4] = true
	assert.Equal(t, []conetrace.Channel{conetrace.ChannelDiffuse, conetrace.ChannelAmbientOcclusion}, cc.Toggles(in))

	in.keys[glfw.Key2] = true
	assert.Equal(t, []conetrace.Channel{conetrace.ChannelIndirectDiffuse}, cc.Toggles(in), "released key fires again")
}

func TestCameraControllerMoves(t *testing.T) {
	cam := scene.NewCamera(math.Radians(45), 1, 0.1, 100)
	cam.Position = math.Vec3Zero
	in := &fakeInput{keys: map[glfw.Key]bool{glfw.KeyW: true, glfw.KeyE: true}}
	cc := NewCameraController(2)

	cc.Update(in, cam, 0.5)
	// default yaw looks down -Z
	assert.InDelta(t, 0, cam.Position.X, 1e-5)
	assert.InDelta(t, 1, cam.Position.Y, 1e-5)
	assert.InDelta(t, -1, cam.Position.Z, 1e-5)

	in.keys = map[glfw.Key]bool{glfw.KeyD: true, glfw.KeyLeftShift: true}
	cc.Update(in, cam, 5) // clamped to 0.1 s
	assert.InDelta(t, 0.8, cam.Position.X, 1e-5)

	in.keys = map[glfw.Key]bool{}
	yaw := cam.Yaw
	in.right, in.x, in.y = true, 100, 100
	cc.Update(in, cam, 0.016)
	assert.Equal(t, yaw, cam.Yaw, "first drag sample only anchors the cursor")
	in.x = 200
	cc.Update(in, cam, 0.016)
	assert.InDelta(t, yaw+0.3, cam.Yaw, 1e-5)
}

func TestDebugOverlay(t *testing.T) {
	hud := &DebugOverlay{}
	st := renderer.FrameStats{Frame: 3}
	st.Trace.Triangles, st.Trace.Covered = 12, 40
	st.Voxelize.Cells = 99
	hud.Describe(st, conetrace.AllToggles().With(conetrace.ChannelIndirectSpecular, false), 2500*time.Microsecond)
	assert.Equal(t,
		"frame 3 | 2.5 ms | 12 tris, 40 px | 99 voxels | "+
			"1 diffuse:on 2 indirect diffuse:on 3 indirect specular:off 4 ambient occlusion:on",
		hud.GetText())

	hud.Clear()
	assert.Empty(t, hud.GetText())
}

func TestFrameWriterPaths(t *testing.T) {
	assert.Equal(t, "out.png", frameWriter{pattern: "out.png", frames: 1}.path(0))
	assert.Equal(t, "out_002.png", frameWriter{pattern: "out.png", frames: 3}.path(2))
	assert.Equal(t, "shot-7.jpg", frameWriter{pattern: "shot-%d.jpg", frames: 9}.path(7))

	for _, ok := range []string{"a.png", "a.JPG", "a.jpeg", "a.bmp"} {
		_, err := encoderFor(ok)
		assert.NoError(t, err, ok)
	}
	_, err := encoderFor("a.tga")
	assert.Error(t, err)
}

func TestFrameWriterSaves(t *testing.T) {
	p := core.NewColor(0.5, 0.5, 0.5).RGBA8()
	img := solidImage(8, 4, p)

	dir := t.TempDir()
	fw := frameWriter{pattern: filepath.Join(dir, "f.png"), frames: 1, gamma: 2.2, width: 4, height: 2}
	path, err := fw.write(0, img)
	require.NoError(t, err)

	got, err := imgio.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Bounds().Dx())
	assert.Equal(t, 2, got.Bounds().Dy())
	r, _, _, _ := got.At(1, 1).RGBA()
	assert.Greater(t, r>>8, uint32(p[0]), "gamma brightens mid grey")
}

func TestSunCycle(t *testing.T) {
	sc := NewSunCycle(10)
	require.True(t, sc.Active)
	base := scene.NewDirectionalLight(math.Vec3Up)

	noon := sc.Light(base)
	assert.Greater(t, noon.Direction.Y, float32(0.9))
	assert.InDelta(t, 1.2, noon.Intensity, 1e-5)

	assert.True(t, sc.Update(2.5))
	assert.InDelta(t, 0.25, sc.Time, 1e-5)
	assert.True(t, sc.Update(10))
	assert.InDelta(t, 0.25, sc.Time, 1e-5, "time wraps")

	sc.Time = 0.5
	night := sc.Light(base)
	assert.Greater(t, night.Direction.Y, float32(0.9), "moonlight comes from above")
	assert.InDelta(t, 0.12, night.Intensity, 1e-5)

	c, i := sampleSun(0.11)
	assert.InDelta(t, 1.05, i, 1e-5)
	assert.InDelta(t, 0.815, c.G, 1e-4)

	still := NewSunCycle(0)
	assert.False(t, still.Update(1))
}

func TestSceneWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte("# empty\n"), 0o644))

	w, err := newSceneWatcher(path, core.NewNopLogger())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("[[shape]]\nshape = \"cube\"\n"), 0o644))
	select {
	case <-w.Changed():
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "vct.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
voxel_dimensions = 16
voxel_grid_world_size = 24.0
shadow_map_resolution = 64
width = 16
height = 12
workers = 2

[camera]
position = [0.0, 0.0, 25.0]

[trace]
max_steps = 8
`), 0o644))
	scenePath := filepath.Join(dir, "scene.toml")
	desc, err := scene.CornellBox(12).Encode()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(scenePath, desc, 0o644))

	root := newRootCommand()
	root.SetArgs([]string{
		"--config", cfgPath, "--scene", scenePath,
		"render", "-n", "2", "-o", filepath.Join(dir, "frame.png"), "--off", "indirect-specular",
	})
	require.NoError(t, root.Execute())

	for _, name := range []string{"frame_000.png", "frame_001.png"} {
		img, err := imgio.Open(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Equal(t, 16, img.Bounds().Dx())
		assert.Equal(t, 12, img.Bounds().Dy())
	}

	root = newRootCommand()
	root.SetArgs([]string{"--config", cfgPath, "render", "-o", filepath.Join(dir, "frame.tga")})
	assert.Error(t, root.Execute())
}

func solidImage(w, h int, px [4]uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], px[:])
	}
	return img
}
