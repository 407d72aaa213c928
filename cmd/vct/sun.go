package main

import (
	"github.com/chewxy/math32"

	"vct-renderer/core"
	"vct-renderer/math"
	"vct-renderer/scene"
)

// sunKey is the light state at one time of day.
type sunKey struct {
	t         float32 // 0..1, 0 = noon
	color     core.Color
	intensity float32
}

// sunKeys are ordered by t and wrap from the last back to noon.
var sunKeys = []sunKey{
	{0.00, core.Color{R: 1.00, G: 0.98, B: 0.92, A: 1}, 1.20}, // noon
	{0.22, core.Color{R: 1.00, G: 0.65, B: 0.25, A: 1}, 0.90}, // golden hour
	{0.30, core.Color{R: 0.70, G: 0.40, B: 0.55, A: 1}, 0.25}, // dusk
	{0.50, core.Color{R: 0.40, G: 0.45, B: 0.65, A: 1}, 0.12}, // moonlight
	{0.70, core.Color{R: 0.75, G: 0.42, B: 0.60, A: 1}, 0.20}, // pre-dawn
	{0.78, core.Color{R: 1.00, G: 0.60, B: 0.28, A: 1}, 0.70}, // sunrise
}

// SunCycle moves the directional light through a day. Each change of light
// makes the volume stale, so the viewer pairs it with on-change voxelization.
type SunCycle struct {
	Time   float32 // 0..1: 0 noon, 0.25 sunset, 0.5 midnight, 0.75 sunrise
	Period float32 // seconds per cycle
	Active bool
}

func NewSunCycle(period float32) *SunCycle {
	return &SunCycle{Period: period, Active: period > 0}
}

// Update advances the clock and reports whether the light moved.
func (sc *SunCycle) Update(dt float32) bool {
	if !sc.Active || dt <= 0 {
		return false
	}
	sc.Time += dt / sc.Period
	sc.Time -= math32.Floor(sc.Time)
	return true
}

// sampleSun interpolates the keys around t.
func sampleSun(t float32) (core.Color, float32) {
	t -= math32.Floor(t)
	n := len(sunKeys)
	for i := 0; i < n; i++ {
		a, b := sunKeys[i], sunKeys[(i+1)%n]
		end := b.t
		if i == n-1 {
			end = 1
		}
		if t >= a.t && t < end {
			f := (t - a.t) / (end - a.t)
			c := a.color.Vec3().Lerp(b.color.Vec3(), f)
			return core.ColorFromVec3(c), math.Lerp(a.intensity, b.intensity, f)
		}
	}
	return sunKeys[0].color, sunKeys[0].intensity
}

// Light returns base with the direction, color and intensity for the current
// time. Below the horizon the moon stands opposite the sun.
func (sc *SunCycle) Light(base scene.DirectionalLight) scene.DirectionalLight {
	s, c := math32.Sincos(sc.Time * 2 * math.Pi)
	dir := math.NewVec3(s, c, 0.35)
	if dir.Y < 0 {
		dir.X, dir.Y = -dir.X, -dir.Y
	}
	base.Direction = dir.Normalize()
	base.Color, base.Intensity = sampleSun(sc.Time)
	return base
}
