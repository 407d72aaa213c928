// Package conetrace gathers indirect light from the mipmapped voxel volume by
// marching widening cones, and composites it with direct light into the
// final image.
package conetrace

import (
	"github.com/chewxy/math32"

	"vct-renderer/math"
)

// Sampler is a filtered, mipmapped volume lookup; *volume.Texture is one.
type Sampler interface {
	SampleLod(uvw math.Vec3, lod float32) [4]float32
}

// Params are the world mapping and marching constants.
type Params struct {
	WorldSize float32
	VoxelSize float32

	DiffuseAperture  float32 // tan of the diffuse cone half angle
	MaxDistance      float32
	AlphaThreshold   float32
	MaxSteps         int
	OcclusionFalloff float32

	DiffuseScale         float32
	IndirectDiffuseScale float32
	SpecularScale        float32
	DirectBias           float32
}

// DefaultParams returns the stock constants for a grid of the given world
// size and resolution.
func DefaultParams(worldSize float32, dims int) Params {
	return Params{
		WorldSize:            worldSize,
		VoxelSize:            worldSize / float32(dims),
		DiffuseAperture:      0.577,
		MaxDistance:          100,
		AlphaThreshold:       0.95,
		MaxSteps:             256,
		OcclusionFalloff:     0.03,
		DiffuseScale:         2,
		IndirectDiffuseScale: 4,
		SpecularScale:        2,
		DirectBias:           0.0005,
	}
}

// Cone is the result of one march.
type Cone struct {
	Color     math.Vec3
	Alpha     float32
	Occlusion float32
	Distance  float32
	Steps     int
}

// Step is the march state after one sample, reported to observers.
type Step struct {
	Distance float32
	Diameter float32
	Lod      float32
	Alpha    float32
}

// diffuseCones are tangent-space directions: the normal plus five cones at
// 60 degrees from it spaced 72 degrees apart.
var diffuseCones = [6]math.Vec3{
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: 0.5, Z: 0.866025},
	{X: 0.823639, Y: 0.5, Z: 0.267617},
	{X: 0.509037, Y: 0.5, Z: -0.700629},
	{X: -0.509037, Y: 0.5, Z: -0.700629},
	{X: -0.823639, Y: 0.5, Z: 0.267617},
}

var diffuseWeights = [6]float32{0.25, 0.15, 0.15, 0.15, 0.15, 0.15}

const (
	minSpecularAngle = 4  // degrees
	maxSpecularAngle = 30 // degrees
)

// Tracer marches cones through a volume. It only reads the volume and is
// safe for concurrent use.
type Tracer struct {
	vol Sampler
	p   Params
}

func NewTracer(vol Sampler, p Params) *Tracer {
	return &Tracer{vol: vol, p: p}
}

func (t *Tracer) Params() Params { return t.p }

// TraceCone marches from origin along unit dir with the given half-angle
// tangent.
func (t *Tracer) TraceCone(origin, dir math.Vec3, tanHalf float32) Cone {
	return t.March(origin, dir, tanHalf, nil)
}

// March is TraceCone with an optional callback after every sample. The first
// sample is one voxel from origin; each step advances half the current cone
// diameter and samples the mip whose texel matches that diameter. Marching
// stops once alpha reaches AlphaThreshold, MaxDistance is covered, the cone
// has left the volume for good, or MaxSteps samples were taken.
func (t *Tracer) March(origin, dir math.Vec3, tanHalf float32, observe func(Step)) Cone {
	p := t.p
	var c Cone
	dist := p.VoxelSize
	inv := 1 / p.WorldSize
	half := p.WorldSize / 2

	for c.Steps < p.MaxSteps && dist < p.MaxDistance && c.Alpha < p.AlphaThreshold {
		diameter := math32.Max(p.VoxelSize, 2*tanHalf*dist)
		lod := math32.Log2(diameter / p.VoxelSize)
		pos := origin.Add(dir.Mul(dist))
		uvw := pos.Add(math.Splat3(half)).Mul(inv)
		if leaving(uvw, dir, diameter*inv) {
			break
		}

		s := t.vol.SampleLod(uvw, lod)
		a := s[3]
		w := (1 - c.Alpha) * a
		c.Color = c.Color.Add(math.NewVec3(s[0], s[1], s[2]).Mul(w))
		c.Occlusion += w / (1 + p.OcclusionFalloff*diameter)
		c.Alpha += w
		c.Steps++
		if observe != nil {
			observe(Step{Distance: dist, Diameter: diameter, Lod: lod, Alpha: c.Alpha})
		}
		dist += diameter * 0.5
	}
	c.Distance = dist
	return c
}

// leaving reports whether a sample at uvw is outside the unit cube by more
// than its footprint on an axis the cone keeps moving away along.
func leaving(uvw, dir math.Vec3, margin float32) bool {
	out := func(u, d float32) bool {
		return (u < -margin && d <= 0) || (u > 1+margin && d >= 0)
	}
	return out(uvw.X, dir.X) || out(uvw.Y, dir.Y) || out(uvw.Z, dir.Z)
}

// IndirectDiffuse gathers bounce light over the hemisphere around unit n at
// p. It returns the weighted cone radiance and the ambient occlusion factor,
// where 1 means unoccluded.
func (t *Tracer) IndirectDiffuse(p, n math.Vec3) (math.Vec3, float32) {
	tangent, bitangent := math.Orthonormal(n)
	origin := p.Add(n.Mul(t.p.VoxelSize))

	var color math.Vec3
	var occlusion float32
	for i, d := range diffuseCones {
		dir := tangent.Mul(d.X).Add(n.Mul(d.Y)).Add(bitangent.Mul(d.Z)).Normalize()
		c := t.TraceCone(origin, dir, t.p.DiffuseAperture)
		color = color.Add(c.Color.Mul(diffuseWeights[i]))
		occlusion += c.Occlusion * diffuseWeights[i]
	}
	return color, math.Clamp(1-occlusion, 0, 1)
}

// SpecularAperture maps roughness in [0, 1] to the specular cone half-angle
// tangent, from 4 to 30 degrees.
func SpecularAperture(roughness float32) float32 {
	deg := math.Lerp(minSpecularAngle, maxSpecularAngle, math.Clamp(roughness, 0, 1))
	return math32.Tan(math.Radians(deg))
}

// IndirectSpecular traces one cone along the mirror direction of the unit
// view vector v (surface toward eye) about n.
func (t *Tracer) IndirectSpecular(p, n, v math.Vec3, roughness float32) math.Vec3 {
	dir := v.Negate().Reflect(n).Normalize()
	origin := p.Add(n.Mul(t.p.VoxelSize))
	return t.TraceCone(origin, dir, SpecularAperture(roughness)).Color
}
