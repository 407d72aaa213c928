package conetrace

import (
	"github.com/chewxy/math32"

	"vct-renderer/core"
	"vct-renderer/math"
	"vct-renderer/scene"
)

// Channel names one output term that can be switched on and off.
type Channel int

const (
	ChannelDiffuse Channel = iota
	ChannelIndirectDiffuse
	ChannelIndirectSpecular
	ChannelAmbientOcclusion
)

func (c Channel) String() string {
	switch c {
	case ChannelDiffuse:
		return "diffuse"
	case ChannelIndirectDiffuse:
		return "indirect diffuse"
	case ChannelIndirectSpecular:
		return "indirect specular"
	case ChannelAmbientOcclusion:
		return "ambient occlusion"
	}
	return "unknown"
}

// Toggles is an immutable snapshot of which terms the composite includes.
type Toggles struct {
	Diffuse          bool
	IndirectDiffuse  bool
	IndirectSpecular bool
	AmbientOcclusion bool
}

// AllToggles enables every term.
func AllToggles() Toggles {
	return Toggles{true, true, true, true}
}

func (t Toggles) Enabled(c Channel) bool {
	switch c {
	case ChannelDiffuse:
		return t.Diffuse
	case ChannelIndirectDiffuse:
		return t.IndirectDiffuse
	case ChannelIndirectSpecular:
		return t.IndirectSpecular
	case ChannelAmbientOcclusion:
		return t.AmbientOcclusion
	}
	return false
}

// With returns a copy with channel c set to on.
func (t Toggles) With(c Channel, on bool) Toggles {
	switch c {
	case ChannelDiffuse:
		t.Diffuse = on
	case ChannelIndirectDiffuse:
		t.IndirectDiffuse = on
	case ChannelIndirectSpecular:
		t.IndirectSpecular = on
	case ChannelAmbientOcclusion:
		t.AmbientOcclusion = on
	}
	return t
}

// Flip returns a copy with channel c inverted.
func (t Toggles) Flip(c Channel) Toggles {
	return t.With(c, !t.Enabled(c))
}

// Occluder answers filtered light visibility queries; *shadow.Pass is one.
type Occluder interface {
	Visibility(pos math.Vec3, bias float32) float32
}

// Surface is one shaded point.
type Surface struct {
	Position  math.Vec3
	Normal    math.Vec3 // unit
	View      math.Vec3 // unit, surface toward eye
	Albedo    core.Color
	Specular  core.Color
	Roughness float32
}

// Shade composites the enabled terms for one surface point:
//
//	diffuse  = DiffuseScale * ao * (direct + IndirectDiffuseScale * indirect) * albedo
//	specular = SpecularScale * specular * traced
//
// Disabled terms are zero (ao is 1) and their cones are not traced. The
// result is linear and unclamped.
func (t *Tracer) Shade(s Surface, light scene.DirectionalLight, occ Occluder, tg Toggles) core.Color {
	var light3 math.Vec3
	if tg.Diffuse {
		vis := float32(1)
		if occ != nil {
			vis = occ.Visibility(s.Position, t.p.DirectBias)
		}
		lambert := math32.Max(s.Normal.Dot(light.ToLight()), 0)
		light3 = light.Radiance().Vec3().Mul(vis * lambert)
	}

	ao := float32(1)
	if tg.IndirectDiffuse || tg.AmbientOcclusion {
		indirect, traced := t.IndirectDiffuse(s.Position, s.Normal)
		if tg.IndirectDiffuse {
			light3 = light3.Add(indirect.Mul(t.p.IndirectDiffuseScale))
		}
		if tg.AmbientOcclusion {
			ao = traced
		}
	}
	out := light3.MulVec(s.Albedo.Vec3()).Mul(t.p.DiffuseScale * ao)

	if tg.IndirectSpecular {
		spec := t.IndirectSpecular(s.Position, s.Normal, s.View, s.Roughness)
		out = out.Add(spec.MulVec(s.Specular.Vec3()).Mul(t.p.SpecularScale))
	}
	return core.ColorFromVec3(out)
}
