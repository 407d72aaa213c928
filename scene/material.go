package scene

import (
	"vct-renderer/core"
	"vct-renderer/math"
)

// AlphaCutoff is the texture alpha below which a fragment is discarded.
const AlphaCutoff = 0.5

// Material describes surface appearance for the voxel and cone tracing passes.
// Materials are shared read-only by every object that references them.
type Material struct {
	Name     string
	Opaque   bool
	Opacity  float32
	Diffuse  core.Color // multiplied with DiffuseTexture if set
	Specular core.Color // multiplied with SpecularTexture if set
	// Roughness widens the specular cone: 0 is mirror-like, 1 fully rough.
	Roughness float32

	DiffuseTexture  *Texture
	SpecularTexture *Texture
	OpacityTexture  *Texture
}

// DefaultMaterial returns a plain white matte material.
func DefaultMaterial() *Material {
	return &Material{
		Name:      "Default",
		Opaque:    true,
		Opacity:   1,
		Diffuse:   core.ColorWhite,
		Specular:  core.Color{R: 0.1, G: 0.1, B: 0.1, A: 1},
		Roughness: 0.8,
	}
}

// NewMaterial creates an opaque material with the given diffuse color.
func NewMaterial(name string, diffuse core.Color) *Material {
	m := DefaultMaterial()
	m.Name = name
	m.Diffuse = diffuse
	return m
}

// Albedo returns the diffuse reflectance at uv; alpha carries the cutout mask.
func (m *Material) Albedo(uv math.Vec2) core.Color {
	c := m.Diffuse
	if m.DiffuseTexture != nil {
		c = c.Mul(m.DiffuseTexture.Sample(uv))
	}
	if m.OpacityTexture != nil {
		c.A *= m.OpacityTexture.Sample(uv).R
	}
	return c
}

func (m *Material) SpecularColor(uv math.Vec2) core.Color {
	c := m.Specular
	if m.SpecularTexture != nil {
		c = c.Mul(m.SpecularTexture.Sample(uv))
	}
	return c
}

// Discard reports whether the alpha-tested surface is cut out at uv.
func (m *Material) Discard(uv math.Vec2) bool {
	if m.DiffuseTexture == nil && m.OpacityTexture == nil {
		return false
	}
	return m.Albedo(uv).A < AlphaCutoff
}
