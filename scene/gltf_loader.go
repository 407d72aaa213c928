package scene

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"vct-renderer/core"
	"vct-renderer/math"
)

// LoadGLTF opens a .glb or .gltf file and returns one Object per mesh
// primitive. The node hierarchy is baked into the vertices so every object
// shares the placement given by opts. Broken images and primitives are
// skipped with a warning.
func LoadGLTF(path string, opts LoadOptions, log core.Logger) ([]*Object, error) {
	if log == nil {
		log = core.NewNopLogger()
	}
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	dir := filepath.Dir(path)

	// ── Textures ─────────────────────────────────────────────────────────────
	texCache := make([]*Texture, len(doc.Textures))
	for i, gt := range doc.Textures {
		if gt.Source == nil {
			continue
		}
		img := doc.Images[*gt.Source]

		var tex *Texture
		switch {
		case img.BufferView != nil:
			raw, err := modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
			if err != nil {
				log.Warnf("gltf: image %d bufferview: %v", *gt.Source, err)
				continue
			}
			tex, err = decodeImageBytes(raw)
			if err != nil {
				log.Warnf("gltf: image %d decode: %v", *gt.Source, err)
				continue
			}
		case img.URI != "" && !img.IsEmbeddedResource():
			tex, err = LoadTexture(filepath.Join(dir, img.URI))
			if err != nil {
				log.Warnf("gltf: image %d (%s): %v", *gt.Source, img.URI, err)
				continue
			}
		}
		if tex != nil && tex.Name == "" {
			tex.Name = img.Name
		}
		texCache[i] = tex
	}

	textureAt := func(idx int) *Texture {
		if idx >= 0 && idx < len(texCache) {
			return texCache[idx]
		}
		return nil
	}

	// ── Materials ────────────────────────────────────────────────────────────
	matCache := make([]*Material, len(doc.Materials))
	for i, gm := range doc.Materials {
		mat := DefaultMaterial()
		mat.Name = gm.Name

		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			base := core.Color{R: float32(cf[0]), G: float32(cf[1]), B: float32(cf[2]), A: float32(cf[3])}
			metallic := float32(pbr.MetallicFactorOrDefault())

			mat.Diffuse = base.Scale(1 - metallic)
			mat.Diffuse.A = base.A
			// Dielectrics reflect about 4%; metals tint reflections with the base color.
			mat.Specular = core.NewColor(
				math.Lerp(0.04, base.R, metallic),
				math.Lerp(0.04, base.G, metallic),
				math.Lerp(0.04, base.B, metallic),
			)
			mat.Roughness = float32(pbr.RoughnessFactorOrDefault())
			if pbr.BaseColorTexture != nil {
				mat.DiffuseTexture = textureAt(pbr.BaseColorTexture.Index)
			}
		}

		switch gm.AlphaMode {
		case gltf.AlphaMask:
			mat.Opaque = false
			if mat.DiffuseTexture == nil {
				mat.Opaque = mat.Diffuse.A >= float32(gm.AlphaCutoffOrDefault())
			}
		case gltf.AlphaBlend:
			mat.Opaque = false
			mat.Opacity = mat.Diffuse.A
		}
		matCache[i] = mat
	}

	// ── Mesh primitives ──────────────────────────────────────────────────────
	type primitive struct {
		name     string
		verts    []core.Vertex
		indices  []uint32
		material *Material
	}
	meshPrims := make([][]primitive, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				log.Warnf("gltf: mesh %d prim %d: mode %v is not triangles", mi, pi, prim.Mode)
				continue
			}
			verts, indices, err := readGLTFPrimitive(doc, prim)
			if err != nil {
				log.Warnf("gltf: mesh %d prim %d: %v", mi, pi, err)
				continue
			}
			p := primitive{
				name:     fmt.Sprintf("%s_p%d", gm.Name, pi),
				verts:    verts,
				indices:  indices,
				material: DefaultMaterial(),
			}
			if prim.Material != nil && *prim.Material < len(matCache) {
				p.material = matCache[*prim.Material]
			}
			meshPrims[mi] = append(meshPrims[mi], p)
		}
	}

	// ── Nodes ────────────────────────────────────────────────────────────────
	var objects []*Object
	var visit func(idx int, parent math.Mat4) error
	visit = func(idx int, parent math.Mat4) error {
		if idx < 0 || idx >= len(doc.Nodes) {
			return nil
		}
		gn := doc.Nodes[idx]
		world := nodeMatrix(gn).Mul(parent)

		if gn.Mesh != nil && *gn.Mesh < len(meshPrims) {
			normal := world.NormalMatrix()
			for _, p := range meshPrims[*gn.Mesh] {
				verts := make([]core.Vertex, len(p.verts))
				for i, v := range p.verts {
					v.Position = world.MulPoint(v.Position)
					v.Normal = normal.MulDir(v.Normal).Normalize()
					verts[i] = v
				}
				mesh, err := CreateMeshFromData(p.name, verts, p.indices)
				if err != nil {
					return err
				}
				name := gn.Name
				if name == "" {
					name = p.name
				}
				obj := NewObject(name, mesh, p.material)
				opts.apply(obj)
				objects = append(objects, obj)
			}
		}
		for _, child := range gn.Children {
			if err := visit(child, world); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range rootNodes(doc) {
		if err := visit(root, math.Mat4Identity()); err != nil {
			return nil, fmt.Errorf("gltf %q: %w", path, err)
		}
	}
	return objects, nil
}

// nodeMatrix returns the node's local transform in row-vector form.
func nodeMatrix(gn *gltf.Node) math.Mat4 {
	if m := gn.MatrixOrDefault(); m != gltf.DefaultMatrix {
		// Column-major storage transposes into row-vector form read row by row.
		var out math.Mat4
		for i := 0; i < 16; i++ {
			out[i/4][i%4] = float32(m[i])
		}
		return out
	}
	t := gn.TranslationOrDefault()
	r := gn.RotationOrDefault() // [x, y, z, w]
	s := gn.ScaleOrDefault()
	return math.Mat4TRS(
		math.Vec3{X: float32(t[0]), Y: float32(t[1]), Z: float32(t[2])},
		math.Quaternion{X: float32(r[0]), Y: float32(r[1]), Z: float32(r[2]), W: float32(r[3])},
		math.Vec3{X: float32(s[0]), Y: float32(s[1]), Z: float32(s[2])},
	)
}

// rootNodes returns the default scene's roots, or every parentless node.
func rootNodes(doc *gltf.Document) []int {
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	hasParent := make([]bool, len(doc.Nodes))
	for _, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !hasParent[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// readGLTFPrimitive reads object-space vertices and triangle indices. UVs are
// flipped to a bottom-left origin.
func readGLTFPrimitive(doc *gltf.Document, prim *gltf.Primitive) ([]core.Vertex, []uint32, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, nil, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	var uvs [][2]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, _ = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, _ = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
	}

	verts := make([]core.Vertex, len(positions))
	for i, p := range positions {
		v := core.Vertex{Position: math.Vec3{X: p[0], Y: p[1], Z: p[2]}}
		if i < len(normals) {
			n := normals[i]
			v.Normal = math.Vec3{X: n[0], Y: n[1], Z: n[2]}
		}
		if i < len(uvs) {
			v.UV = math.Vec2{X: uvs[i][0], Y: 1 - uvs[i][1]}
		}
		verts[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(verts))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	if len(normals) < len(verts) {
		generateNormals(verts, indices)
	}
	return verts, indices, nil
}

func decodeImageBytes(data []byte) (*Texture, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return TextureFromImage(img), nil
}
