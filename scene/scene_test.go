package scene

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"vct-renderer/core"
	"vct-renderer/math"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeshValidation(t *testing.T) {
	pos := []math.Vec3{{}, {X: 1}, {Y: 1}}

	_, err := NewMesh("short", pos, nil, nil, []uint32{0, 1})
	assert.ErrorIs(t, err, ErrInvalidMesh)

	_, err = NewMesh("range", pos, nil, nil, []uint32{0, 1, 3})
	assert.ErrorIs(t, err, ErrInvalidMesh)

	_, err = NewMesh("normals", pos, []math.Vec3{{}}, nil, []uint32{0, 1, 2})
	assert.ErrorIs(t, err, ErrInvalidMesh)
}

func TestMeshIsImmutable(t *testing.T) {
	pos := []math.Vec3{{}, {X: 1}, {Y: 1}}
	idx := []uint32{0, 1, 2}
	m, err := NewMesh("tri", pos, nil, nil, idx)
	require.NoError(t, err)

	pos[0] = math.NewVec3(9, 9, 9)
	idx[0] = 2
	verts := m.Vertices()
	verts[1].Position = math.NewVec3(7, 7, 7)

	tri := m.Triangle(0)
	assert.Equal(t, math.Vec3Zero, tri.V[0].Position)
	assert.Equal(t, math.Vec3Right, tri.V[1].Position)
	assert.Equal(t, AABB{Min: math.Vec3Zero, Max: math.NewVec3(1, 1, 0)}, m.Bounds())
	// generated from the counter-clockwise winding
	assert.Equal(t, math.Vec3Front, tri.V[0].Normal)
}

func TestPrimitivesWindOutward(t *testing.T) {
	for _, m := range []*Mesh{CreateQuad(), CreatePlane(2, 2, 3), CreateCube(2), CreateSphere(1, 12, 8)} {
		for i := 0; i < m.TriangleCount(); i++ {
			tri := m.Triangle(i)
			if tri.Degenerate() {
				continue
			}
			n := tri.FaceNormal()
			assert.Positive(t, n.Dot(tri.V[0].Normal), "%s triangle %d winds against its normal", m.Name(), i)
		}
	}
}

func TestSpherePolesHaveNoSlivers(t *testing.T) {
	segments, rings := 12, 8
	m := CreateSphere(1, segments, rings)
	assert.Equal(t, segments*(2*rings-2), m.TriangleCount())
	for i := 0; i < m.TriangleCount(); i++ {
		tri := m.Triangle(i)
		require.False(t, tri.Degenerate(), "triangle %d", i)
		for _, v := range tri.V {
			if v.Normal.Y > 0.999 || v.Normal.Y < -0.999 {
				assert.Zero(t, v.Position.X, "pole vertex off axis in triangle %d", i)
				assert.Zero(t, v.Position.Z, "pole vertex off axis in triangle %d", i)
			}
		}
	}
}

func TestTriangleTransform(t *testing.T) {
	obj := NewObject("quad", CreateQuad(), nil)
	obj.Transform.Position = math.NewVec3(0, 0, -3)
	obj.Transform.Scale = math.NewVec3(4, 1, 1)

	tris := obj.WorldTriangles()
	require.Len(t, tris, 2)
	assert.Equal(t, math.NewVec3(-2, -0.5, -3), tris[0].V[0].Position)
	assert.InDelta(t, 1, tris[0].V[0].Normal.Length(), 1e-5)
	assert.InDelta(t, 1, tris[0].V[0].Normal.Z, 1e-5)

	b := obj.WorldBounds()
	assert.Equal(t, math.NewVec3(-2, -0.5, -3), b.Min)
	assert.Equal(t, math.NewVec3(2, 0.5, -3), b.Max)
}

func TestTextureSampling(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{B: 255, A: 0})
	tex := TextureFromImage(img)

	left := tex.Sample(math.NewVec2(0.25, 0.5))
	assert.InDelta(t, 1, left.R, 1e-6)
	assert.InDelta(t, 1, left.A, 1e-6)

	mid := tex.Sample(math.NewVec2(0.5, 0.5))
	assert.InDelta(t, 0.5, mid.R, 1e-6)
	assert.InDelta(t, 0.5, mid.B, 1e-6)

	// repeat wrapping: u=1.25 lands on the left texel again
	assert.Equal(t, left, tex.Sample(math.NewVec2(1.25, 0.5)))

	var nilTex *Texture
	assert.Equal(t, core.ColorWhite, nilTex.Sample(math.Vec2{}))
}

func TestGrayTextureReplicatesChannel(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: 51})
	c := TextureFromImage(img).Sample(math.NewVec2(0.5, 0.5))
	assert.InDelta(t, 0.2, c.R, 1e-6)
	assert.Equal(t, c.R, c.G)
	assert.Equal(t, c.R, c.B)
	assert.InDelta(t, 1, c.A, 1e-6)
}

func TestMaterialAlphaCutout(t *testing.T) {
	m := NewMaterial("leaf", core.ColorWhite)
	assert.False(t, m.Discard(math.Vec2{}), "untextured materials never cut out")

	m.DiffuseTexture = NewSolidTexture("hole", 255, 255, 255, 100)
	assert.True(t, m.Discard(math.Vec2{}))

	m.DiffuseTexture = NewSolidTexture("solid", 255, 255, 255, 200)
	assert.False(t, m.Discard(math.Vec2{}))

	m.OpacityTexture = NewSolidTexture("mask", 0, 0, 0, 255)
	assert.True(t, m.Discard(math.Vec2{}))
}

func TestSceneVersionAndSort(t *testing.T) {
	s := NewScene()
	v0 := s.Version()

	glass := NewMaterial("glass", core.ColorWhite)
	glass.Opaque = false
	a := NewObject("glass", CreateCube(1), glass)
	b := NewObject("wall", CreatePlane(1, 1, 1), nil)
	c := NewObject("floor", CreatePlane(1, 1, 1), nil)
	s.Add(a, b, c)
	assert.Greater(t, s.Version(), v0)

	s.SortOpaqueFirst()
	objs := s.Objects()
	assert.Equal(t, []string{"wall", "floor", "glass"}, []string{objs[0].Name, objs[1].Name, objs[2].Name})

	v1 := s.Version()
	require.True(t, s.Remove(b.ID))
	assert.False(t, s.Remove(b.ID))
	assert.Greater(t, s.Version(), v1)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 14, s.TriangleCount())
	assert.Same(t, c, s.Find("floor"))

	v2 := s.Version()
	s.MarkChanged()
	assert.Greater(t, s.Version(), v2)
}

func TestCameraOrientation(t *testing.T) {
	cam := NewCamera(math.Radians(45), 16.0/9.0, 0.1, 1000)
	assert.InDelta(t, 0, cam.GetForward().X, 1e-6)
	assert.InDelta(t, -1, cam.GetForward().Z, 1e-6)
	assert.InDelta(t, 1, cam.GetRight().X, 1e-6)

	// a point straight ahead projects to the screen centre
	p := cam.GetViewProjectionMatrix().MulVec3(math.NewVec3(0, 0, -10))
	assert.InDelta(t, 0, p.X, 1e-5)
	assert.InDelta(t, 0, p.Y, 1e-5)
	assert.True(t, p.Z > -1 && p.Z < 1)

	cam.Turn(0, 10)
	assert.LessOrEqual(t, cam.Pitch, float32(maxPitch))

	cam.Position = math.NewVec3(3, 0, 0)
	cam.LookAt(math.Vec3Zero)
	assert.InDelta(t, -1, cam.GetForward().X, 1e-5)

	cam.Move(1, 0, 0)
	assert.InDelta(t, 2, cam.Position.X, 1e-5)
}

func TestDirectionalLightProjection(t *testing.T) {
	l := NewDirectionalLight(math.NewVec3(0, 1, 0))
	vp := l.GetViewProjectionMatrix()

	origin := vp.MulVec3(math.Vec3Zero)
	assert.InDelta(t, 0, origin.X, 1e-5)
	assert.InDelta(t, 0, origin.Y, 1e-5)

	// higher points are closer to the light
	high := vp.MulVec3(math.NewVec3(0, 10, 0))
	assert.Less(t, high.Z, origin.Z)

	l.Intensity = 2
	assert.Equal(t, float32(2), l.Radiance().R)
}

func TestFrustumCulling(t *testing.T) {
	cam := NewCamera(math.Radians(60), 1, 0.1, 100)
	cam.Position = math.Vec3Zero
	f := FrustumFromVP(cam.GetViewProjectionMatrix())

	ahead := AABB{Min: math.NewVec3(-1, -1, -11), Max: math.NewVec3(1, 1, -9)}
	behind := AABB{Min: math.NewVec3(-1, -1, 9), Max: math.NewVec3(1, 1, 11)}
	assert.True(t, ahead.IntersectsFrustum(&f))
	assert.False(t, behind.IntersectsFrustum(&f))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOBJ(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "box.mtl", `
newmtl red
Kd 1 0 0
Ks 0.5 0.5 0.5
Ns 98
d 0.5
`)
	path := writeFile(t, dir, "box.obj", `
mtllib box.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 1
o quad
usemtl red
f 1/1 2/1 3/2 4/2
o tri
f -4 -3 -2
`)

	objs, err := LoadOBJ(path, LoadOptions{Position: math.NewVec3(0, 5, 0), Scale: 2})
	require.NoError(t, err)
	require.Len(t, objs, 2)

	quad := objs[0]
	assert.Equal(t, "quad", quad.Name)
	assert.Equal(t, 2, quad.Mesh.TriangleCount(), "quads fan-triangulate")
	assert.Equal(t, "red", quad.Material.Name)
	assert.Equal(t, core.NewColor(1, 0, 0), quad.Material.Diffuse)
	assert.False(t, quad.Opaque())
	assert.InDelta(t, 0.1414, quad.Material.Roughness, 1e-3)
	assert.Equal(t, math.NewVec3(0, 5, 0), quad.Transform.Position)
	assert.Equal(t, math.Splat3(2), quad.Transform.Scale)
	assert.Equal(t, math.Vec3Front, quad.Mesh.Triangle(0).V[0].Normal)

	tri := objs[1]
	assert.Equal(t, 1, tri.Mesh.TriangleCount())
	assert.Equal(t, math.Vec3Zero, tri.Mesh.Triangle(0).V[0].Position, "negative indices are relative")
	assert.Equal(t, "red", tri.Material.Name, "material carries into the next group")
}

func TestLoadOBJErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadOBJ(filepath.Join(dir, "missing.obj"), LoadOptions{})
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.obj", "v 0 0 0\nf 1 2 3\n")
	_, err = LoadOBJ(bad, LoadOptions{})
	assert.ErrorIs(t, err, ErrInvalidMesh)

	empty := writeFile(t, dir, "empty.obj", "# nothing\n")
	objs, err := LoadOBJ(empty, LoadOptions{})
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestDescriptionBuild(t *testing.T) {
	desc, err := ParseDescription([]byte(`
[[shape]]
name = "ground"
shape = "plane"
size = 10.0
color = [0.5, 0.5, 0.5]

[[shape]]
shape = "sphere"
size = 2.0
position = [0.0, 1.0, 0.0]
roughness = 0.3
`))
	require.NoError(t, err)

	s, err := desc.Build(t.TempDir(), core.NewNopLogger())
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	ground := s.Find("ground")
	require.NotNil(t, ground)
	assert.Equal(t, core.NewColor(0.5, 0.5, 0.5), ground.Material.Diffuse)
	sphere := s.Find("sphere")
	require.NotNil(t, sphere)
	assert.Equal(t, float32(0.3), sphere.Material.Roughness)
	assert.InDelta(t, 2, sphere.WorldBounds().Max.Y, 1e-4)

	_, err = ParseDescription([]byte("[[shape]]\nshape = \"cube\"\ncolour = [1.0, 0.0, 0.0]\n"))
	assert.ErrorIs(t, err, ErrDescription)

	_, err = Description{Shapes: []ShapeDesc{{Shape: "torus"}}}.Build("", nil)
	assert.ErrorIs(t, err, ErrDescription)
}

func TestCornellBoxRoundTrip(t *testing.T) {
	desc := CornellBox(10)
	data, err := desc.Encode()
	require.NoError(t, err)
	parsed, err := ParseDescription(data)
	require.NoError(t, err)
	assert.Equal(t, desc.Shapes, parsed.Shapes)
	assert.Empty(t, parsed.Models)

	s, err := parsed.Build("", core.NewNopLogger())
	require.NoError(t, err)
	b := s.Bounds()
	assert.InDelta(t, -5, b.Min.Y, 1e-4)
	assert.InDelta(t, 5, b.Max.X, 1e-4)
}

func TestDescriptionBuildModelsKeepOrder(t *testing.T) {
	dir := t.TempDir()
	var desc Description
	var want []string
	for i := 0; i < 7; i++ {
		name := fmt.Sprintf("part%d", i)
		writeFile(t, dir, name+".obj", fmt.Sprintf("v 0 0 0\nv 1 0 0\nv 0 1 0\no %s\nf 1 2 3\n", name))
		desc.Models = append(desc.Models, ModelDesc{Path: name + ".obj", Position: [3]float32{float32(i), 0, 0}})
		want = append(want, name)
	}

	s, err := desc.Build(dir, core.NewNopLogger())
	require.NoError(t, err)
	var got []string
	for _, o := range s.Objects() {
		got = append(got, o.Name)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, float32(6), s.Find("part6").Transform.Position.X)

	desc.Models = append(desc.Models, ModelDesc{Path: "scene.fbx"})
	_, err = desc.Build(dir, nil)
	assert.ErrorIs(t, err, ErrDescription)
}
