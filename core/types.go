package core

import (
	"vct-renderer/math"

	"github.com/chewxy/math32"
)

// Color is a linear-space RGBA color. Components are not clamped until they
// are written to an 8-bit target.
type Color struct {
	R, G, B, A float32
}

var (
	ColorWhite = Color{1, 1, 1, 1}
	ColorBlack = Color{0, 0, 0, 1}
	ColorRed   = Color{1, 0, 0, 1}
	ColorGreen = Color{0, 1, 0, 1}
	ColorBlue  = Color{0, 0, 1, 1}
)

func NewColor(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// ColorFromVec3 builds an opaque color from rgb.
func ColorFromVec3(v math.Vec3) Color {
	return Color{R: v.X, G: v.Y, B: v.Z, A: 1}
}

func (c Color) Vec3() math.Vec3 {
	return math.Vec3{X: c.R, Y: c.G, Z: c.B}
}

func (c Color) Add(o Color) Color {
	return Color{c.R + o.R, c.G + o.G, c.B + o.B, c.A}
}

// Mul modulates rgb component-wise; alpha multiplies too.
func (c Color) Mul(o Color) Color {
	return Color{c.R * o.R, c.G * o.G, c.B * o.B, c.A * o.A}
}

// Scale scales rgb and leaves alpha alone.
func (c Color) Scale(s float32) Color {
	return Color{c.R * s, c.G * s, c.B * s, c.A}
}

func (c Color) Clamp() Color {
	return Color{
		math.Clamp(c.R, 0, 1),
		math.Clamp(c.G, 0, 1),
		math.Clamp(c.B, 0, 1),
		math.Clamp(c.A, 0, 1),
	}
}

// RGBA8 quantizes the clamped color with round-to-nearest.
func (c Color) RGBA8() [4]uint8 {
	cl := c.Clamp()
	return [4]uint8{to8(cl.R), to8(cl.G), to8(cl.B), to8(cl.A)}
}

func ColorFromRGBA8(p [4]uint8) Color {
	return Color{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255}
}

func to8(v float32) uint8 {
	return uint8(math32.Round(v * 255))
}

type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	UV       math.Vec2
}

type Transform struct {
	Position math.Vec3
	Rotation math.Quaternion
	Scale    math.Vec3
}

func NewTransform() Transform {
	return Transform{
		Position: math.Vec3Zero,
		Rotation: math.QuaternionIdentity(),
		Scale:    math.Vec3One,
	}
}

func (t Transform) GetMatrix() math.Mat4 {
	return math.Mat4TRS(t.Position, t.Rotation, t.Scale)
}

func (t Transform) GetForward() math.Vec3 {
	return t.Rotation.RotateVector(math.Vec3Front)
}

func (t Transform) GetUp() math.Vec3 {
	return t.Rotation.RotateVector(math.Vec3Up)
}
