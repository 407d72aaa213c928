package scene

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vct-renderer/core"
	"vct-renderer/math"

	"github.com/chewxy/math32"
)

// LoadOptions places every object produced by a loader.
type LoadOptions struct {
	Position math.Vec3
	Scale    float32 // uniform; zero means 1
}

func (o LoadOptions) apply(obj *Object) {
	scale := o.Scale
	if scale == 0 {
		scale = 1
	}
	obj.Transform.Position = o.Position
	obj.Transform.Scale = math.Splat3(scale)
}

// objFace is an already-triangulated face (three vertex references).
type objFace struct {
	vIdx, vtIdx, vnIdx [3]int // 0-based position / UV / normal indices (-1 = absent)
}

// LoadOBJ parses a Wavefront .obj file and returns one Object per object/group.
// A companion .mtl file is loaded if referenced via "mtllib".
func LoadOBJ(path string, opts LoadOptions) ([]*Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj %q: %w", path, err)
	}
	defer f.Close()

	dir := filepath.Dir(path)

	var positions []math.Vec3
	var normals []math.Vec3
	var uvs []math.Vec2

	materials := map[string]*Material{}

	type objGroup struct {
		name    string
		matName string
		faces   []objFace
	}

	var groups []objGroup
	cur := &objGroup{name: "default"}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v":
			if v, ok := parseVec3(fields); ok {
				positions = append(positions, v)
			}

		case "vn":
			if v, ok := parseVec3(fields); ok {
				normals = append(normals, v)
			}

		case "vt":
			if len(fields) < 3 {
				continue
			}
			u, _ := strconv.ParseFloat(fields[1], 32)
			v, _ := strconv.ParseFloat(fields[2], 32)
			uvs = append(uvs, math.Vec2{X: float32(u), Y: float32(v)})

		case "o", "g":
			if len(cur.faces) > 0 {
				groups = append(groups, *cur)
			}
			name := "default"
			if len(fields) > 1 {
				name = fields[1]
			}
			cur = &objGroup{name: name, matName: cur.matName}

		case "usemtl":
			if len(fields) > 1 {
				if len(cur.faces) > 0 {
					groups = append(groups, *cur)
					cur = &objGroup{name: cur.name}
				}
				cur.matName = fields[1]
			}

		case "mtllib":
			if len(fields) > 1 {
				loaded, err := loadMTL(filepath.Join(dir, fields[1]), dir)
				if err != nil {
					return nil, err
				}
				for k, v := range loaded {
					materials[k] = v
				}
			}

		case "f":
			if len(fields) < 4 {
				continue
			}
			var fverts []objIndex
			for _, tok := range fields[1:] {
				fverts = append(fverts, parseFaceVertex(tok, len(positions), len(uvs), len(normals)))
			}
			// Fan triangulation: 0-1-2, 0-2-3, 0-3-4, ...
			for i := 1; i+1 < len(fverts); i++ {
				f0, f1, f2 := fverts[0], fverts[i], fverts[i+1]
				cur.faces = append(cur.faces, objFace{
					vIdx:  [3]int{f0.v, f1.v, f2.v},
					vtIdx: [3]int{f0.vt, f1.vt, f2.vt},
					vnIdx: [3]int{f0.vn, f1.vn, f2.vn},
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan obj %q: %w", path, err)
	}

	if len(cur.faces) > 0 {
		groups = append(groups, *cur)
	}

	objects := make([]*Object, 0, len(groups))
	for _, g := range groups {
		mesh, err := buildMeshFromOBJ(g.name, g.faces, positions, normals, uvs)
		if err != nil {
			return nil, fmt.Errorf("load obj %q: %w", path, err)
		}
		mat, ok := materials[g.matName]
		if !ok {
			mat = DefaultMaterial()
		}
		obj := NewObject(g.name, mesh, mat)
		opts.apply(obj)
		objects = append(objects, obj)
	}

	return objects, nil
}

func parseVec3(fields []string) (math.Vec3, bool) {
	if len(fields) < 4 {
		return math.Vec3{}, false
	}
	x, _ := strconv.ParseFloat(fields[1], 32)
	y, _ := strconv.ParseFloat(fields[2], 32)
	z, _ := strconv.ParseFloat(fields[3], 32)
	return math.Vec3{X: float32(x), Y: float32(y), Z: float32(z)}, true
}

type objIndex struct{ v, vt, vn int }

// parseFaceVertex parses one face vertex token: "v", "v/vt", "v//vn", "v/vt/vn".
// OBJ indices are 1-based; negative indices count back from the end.
// Returns 0-based indices, -1 if absent.
func parseFaceVertex(tok string, nv, nvt, nvn int) objIndex {
	parseIdx := func(s string, n int) int {
		if s == "" {
			return -1
		}
		i, err := strconv.Atoi(s)
		switch {
		case err != nil:
			return -1
		case i > 0:
			return i - 1
		case i < 0:
			return n + i
		}
		return -1
	}
	parts := strings.Split(tok, "/")
	res := objIndex{v: -1, vt: -1, vn: -1}
	res.v = parseIdx(parts[0], nv)
	if len(parts) > 1 {
		res.vt = parseIdx(parts[1], nvt)
	}
	if len(parts) > 2 {
		res.vn = parseIdx(parts[2], nvn)
	}
	return res
}

// buildMeshFromOBJ converts parsed face data into a deduplicated Mesh.
func buildMeshFromOBJ(name string, faces []objFace, positions, normals []math.Vec3, uvs []math.Vec2) (*Mesh, error) {
	type key struct{ v, vt, vn int }
	vertMap := map[key]uint32{}
	var vertices []core.Vertex
	var indices []uint32
	missingNormals := false

	for _, face := range faces {
		for c := 0; c < 3; c++ {
			k := key{face.vIdx[c], face.vtIdx[c], face.vnIdx[c]}
			if idx, ok := vertMap[k]; ok {
				indices = append(indices, idx)
				continue
			}
			if k.v < 0 || k.v >= len(positions) {
				return nil, fmt.Errorf("%w %q: face references missing vertex %d", ErrInvalidMesh, name, k.v+1)
			}
			v := core.Vertex{Position: positions[k.v]}
			if k.vn >= 0 && k.vn < len(normals) {
				v.Normal = normals[k.vn]
			} else {
				missingNormals = true
			}
			if k.vt >= 0 && k.vt < len(uvs) {
				v.UV = uvs[k.vt]
			}
			idx := uint32(len(vertices))
			vertices = append(vertices, v)
			vertMap[k] = idx
			indices = append(indices, idx)
		}
	}

	mesh, err := CreateMeshFromData(name, vertices, indices)
	if err != nil {
		return nil, err
	}
	if missingNormals {
		generateNormals(mesh.vertices, mesh.indices)
	}
	return mesh, nil
}

// ── MTL loader ───────────────────────────────────────────────────────────────

func loadMTL(path, dir string) (map[string]*Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mtl %q: %w", path, err)
	}
	defer f.Close()

	mats := map[string]*Material{}
	var cur *Material

	texture := func(fields []string) *Texture {
		if len(fields) < 2 {
			return nil
		}
		// Options such as -bm precede the file name; the name is last.
		tex, err := LoadTexture(filepath.Join(dir, fields[len(fields)-1]))
		if err != nil {
			return nil
		}
		return tex
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] != "newmtl" && cur == nil {
			continue
		}

		switch fields[0] {
		case "newmtl":
			if len(fields) > 1 {
				cur = DefaultMaterial()
				cur.Name = fields[1]
				mats[fields[1]] = cur
			}
		case "Kd":
			if v, ok := parseVec3(fields); ok {
				cur.Diffuse = core.ColorFromVec3(v)
			}
		case "Ks":
			if v, ok := parseVec3(fields); ok {
				cur.Specular = core.ColorFromVec3(v)
			}
		case "Ns":
			if len(fields) >= 2 {
				ns, _ := strconv.ParseFloat(fields[1], 32)
				cur.Roughness = roughnessFromShininess(float32(ns))
			}
		case "d":
			if len(fields) >= 2 {
				d, _ := strconv.ParseFloat(fields[1], 32)
				cur.Opacity = float32(d)
				cur.Opaque = d >= 1
			}
		case "Tr":
			if len(fields) >= 2 {
				tr, _ := strconv.ParseFloat(fields[1], 32)
				cur.Opacity = 1 - float32(tr)
				cur.Opaque = tr <= 0
			}
		case "map_Kd":
			cur.DiffuseTexture = texture(fields)
		case "map_Ks":
			cur.SpecularTexture = texture(fields)
		case "map_d":
			cur.OpacityTexture = texture(fields)
		}
	}

	return mats, scanner.Err()
}

// roughnessFromShininess maps a Phong exponent to a 0..1 roughness.
func roughnessFromShininess(ns float32) float32 {
	return math.Clamp(math32.Sqrt(2/(math32.Max(ns, 0)+2)), 0, 1)
}
