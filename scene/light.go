package scene

import (
	"vct-renderer/core"
	"vct-renderer/math"

	"github.com/chewxy/math32"
)

// DefaultLightBounds are the orthographic extents of the light frustum:
// left, right, bottom, top, near, far.
var DefaultLightBounds = [6]float32{-120, 120, -120, 120, -500, 500}

// DirectionalLight is a light at infinity. Direction points from the scene
// toward the light.
type DirectionalLight struct {
	Direction math.Vec3
	Color     core.Color
	Intensity float32
	Bounds    [6]float32
}

func NewDirectionalLight(direction math.Vec3) DirectionalLight {
	return DirectionalLight{
		Direction: direction.Normalize(),
		Color:     core.ColorWhite,
		Intensity: 1,
		Bounds:    DefaultLightBounds,
	}
}

// ToLight returns the unit vector toward the light.
func (l DirectionalLight) ToLight() math.Vec3 {
	return l.Direction.Normalize()
}

// Radiance is the light color scaled by intensity.
func (l DirectionalLight) Radiance() core.Color {
	return l.Color.Scale(l.Intensity)
}

func (l DirectionalLight) GetViewMatrix() math.Mat4 {
	dir := l.ToLight()
	up := math.Vec3Up
	if math32.Abs(dir.Dot(up)) > 0.999 {
		up = math.Vec3Front
	}
	return math.Mat4LookAt(dir, math.Vec3Zero, up)
}

func (l DirectionalLight) GetProjectionMatrix() math.Mat4 {
	b := l.Bounds
	return math.Mat4Orthographic(b[0], b[1], b[2], b[3], b[4], b[5])
}

// GetViewProjectionMatrix is shared by the shadow pass and voxel light injection.
func (l DirectionalLight) GetViewProjectionMatrix() math.Mat4 {
	return l.GetViewMatrix().Mul(l.GetProjectionMatrix())
}
