package scene

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vct-renderer/core"
	"vct-renderer/math"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/errgroup"
)

var ErrDescription = errors.New("invalid scene description")

// ModelDesc places a model file loaded from disk.
type ModelDesc struct {
	Path     string     `toml:"path"`
	Position [3]float32 `toml:"position"`
	Scale    float32    `toml:"scale"`
}

// ShapeDesc places a procedural primitive with its own material.
type ShapeDesc struct {
	Name      string     `toml:"name"`
	Shape     string     `toml:"shape"` // cube, plane, sphere or quad
	Size      float32    `toml:"size"`
	Position  [3]float32 `toml:"position"`
	Rotation  [3]float32 `toml:"rotation"` // euler angles, degrees
	Scale     [3]float32 `toml:"scale"`
	Color     [3]float32 `toml:"color"`
	Specular  [3]float32 `toml:"specular"`
	Roughness float32    `toml:"roughness"`
}

// Description is the on-disk TOML form of a scene.
type Description struct {
	Models []ModelDesc `toml:"model"`
	Shapes []ShapeDesc `toml:"shape"`
}

func LoadDescription(path string) (Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Description{}, fmt.Errorf("read scene %q: %w", path, err)
	}
	return ParseDescription(data)
}

func ParseDescription(data []byte) (Description, error) {
	var d Description
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return Description{}, fmt.Errorf("%w: %v", ErrDescription, err)
	}
	return d, nil
}

func (d Description) Encode() ([]byte, error) {
	return toml.Marshal(d)
}

// maxParallelLoads bounds how many model files are parsed at once.
const maxParallelLoads = 4

// Build loads every model and primitive into a new scene, opaque objects
// first. Models load concurrently but keep their listed order. Relative model
// paths resolve against baseDir.
func (d Description) Build(baseDir string, log core.Logger) (*Scene, error) {
	loaded := make([][]*Object, len(d.Models))
	var g errgroup.Group
	g.SetLimit(maxParallelLoads)
	for i, m := range d.Models {
		g.Go(func() error {
			objs, err := m.load(baseDir, log)
			if err != nil {
				return err
			}
			loaded[i] = objs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := NewScene()
	for _, objs := range loaded {
		s.Add(objs...)
	}
	for i, sh := range d.Shapes {
		obj, err := sh.build()
		if err != nil {
			return nil, fmt.Errorf("shape %d: %w", i, err)
		}
		s.Add(obj)
	}
	s.SortOpaqueFirst()
	return s, nil
}

func (m ModelDesc) load(baseDir string, log core.Logger) ([]*Object, error) {
	path := m.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	opts := LoadOptions{Position: vec3(m.Position), Scale: m.Scale}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return LoadOBJ(path, opts)
	case ".gltf", ".glb":
		return LoadGLTF(path, opts, log)
	}
	return nil, fmt.Errorf("%w: unsupported model format %q", ErrDescription, path)
}

func (sh ShapeDesc) build() (*Object, error) {
	size := sh.Size
	if size == 0 {
		size = 1
	}
	var mesh *Mesh
	switch sh.Shape {
	case "cube":
		mesh = CreateCube(size)
	case "plane":
		mesh = CreatePlane(size, size, 1)
	case "sphere":
		mesh = CreateSphere(size/2, 32, 16)
	case "quad":
		mesh = CreateQuad()
	default:
		return nil, fmt.Errorf("%w: unknown shape %q", ErrDescription, sh.Shape)
	}

	mat := DefaultMaterial()
	if sh.Color != [3]float32{} {
		mat.Diffuse = core.ColorFromVec3(vec3(sh.Color))
	}
	if sh.Specular != [3]float32{} {
		mat.Specular = core.ColorFromVec3(vec3(sh.Specular))
	}
	if sh.Roughness > 0 {
		mat.Roughness = sh.Roughness
	}
	name := sh.Name
	if name == "" {
		name = sh.Shape
	}
	mat.Name = name

	obj := NewObject(name, mesh, mat)
	obj.Transform.Position = vec3(sh.Position)
	if sh.Scale != [3]float32{} {
		obj.Transform.Scale = vec3(sh.Scale)
	}
	if sh.Rotation != [3]float32{} {
		r := sh.Rotation
		q := math.QuaternionFromAxisAngle(math.Vec3Up, math.Radians(r[1])).
			Mul(math.QuaternionFromAxisAngle(math.Vec3Right, math.Radians(r[0]))).
			Mul(math.QuaternionFromAxisAngle(math.Vec3Front, math.Radians(r[2])))
		obj.Transform.Rotation = q.Normalize()
	}
	return obj, nil
}

func vec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// CornellBox returns an open-topped box of the given edge length with a red left
// wall, a green right wall, a white block and a glossy sphere, centred on the origin.
func CornellBox(size float32) Description {
	h := size / 2
	white := [3]float32{0.8, 0.8, 0.8}
	return Description{Shapes: []ShapeDesc{
		{Name: "floor", Shape: "plane", Size: size, Position: [3]float32{0, -h, 0}, Color: white},
		{Name: "back", Shape: "plane", Size: size, Position: [3]float32{0, 0, -h}, Rotation: [3]float32{90, 0, 0}, Color: white},
		{Name: "left", Shape: "plane", Size: size, Position: [3]float32{-h, 0, 0}, Rotation: [3]float32{0, 0, -90}, Color: [3]float32{0.75, 0.1, 0.1}},
		{Name: "right", Shape: "plane", Size: size, Position: [3]float32{h, 0, 0}, Rotation: [3]float32{0, 0, 90}, Color: [3]float32{0.1, 0.75, 0.1}},
		{Name: "tall block", Shape: "cube", Size: size * 0.3, Position: [3]float32{-size * 0.18, -h + size*0.3, -size * 0.15}, Scale: [3]float32{1, 2, 1}, Rotation: [3]float32{0, 17, 0}, Color: white},
		{Name: "sphere", Shape: "sphere", Size: size * 0.3, Position: [3]float32{size * 0.2, -h + size*0.15, size * 0.15}, Color: white, Specular: [3]float32{0.6, 0.6, 0.6}, Roughness: 0.2},
	}}
}
