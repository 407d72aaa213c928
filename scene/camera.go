package scene

import (
	"vct-renderer/math"

	"github.com/chewxy/math32"
)

const maxPitch = 89 * math.Pi / 180

// Camera is a fly camera described by position, yaw and pitch (radians).
// Yaw -π/2 looks down -Z.
type Camera struct {
	Position    math.Vec3
	Yaw         float32
	Pitch       float32
	FOV         float32
	AspectRatio float32
	NearPlane   float32
	FarPlane    float32
}

func NewCamera(fov, aspectRatio, nearPlane, farPlane float32) *Camera {
	return &Camera{
		Position:    math.NewVec3(0, 0, 5),
		Yaw:         -math.Pi / 2,
		FOV:         fov,
		AspectRatio: aspectRatio,
		NearPlane:   nearPlane,
		FarPlane:    farPlane,
	}
}

func (c *Camera) UpdateAspectRatio(width, height float32) {
	if height > 0 {
		c.AspectRatio = width / height
	}
}

func (c *Camera) GetForward() math.Vec3 {
	sy, cy := math32.Sincos(c.Yaw)
	sp, cp := math32.Sincos(c.Pitch)
	return math.Vec3{X: cy * cp, Y: sp, Z: sy * cp}.Normalize()
}

func (c *Camera) GetRight() math.Vec3 {
	return c.GetForward().Cross(math.Vec3Up).Normalize()
}

func (c *Camera) GetUp() math.Vec3 {
	return c.GetRight().Cross(c.GetForward())
}

// Move translates along the camera's own axes.
func (c *Camera) Move(forward, right, up float32) {
	delta := c.GetForward().Mul(forward).Add(c.GetRight().Mul(right)).Add(math.Vec3Up.Mul(up))
	c.Position = c.Position.Add(delta)
}

// Turn adds yaw and pitch, keeping pitch short of the poles.
func (c *Camera) Turn(deltaYaw, deltaPitch float32) {
	c.Yaw += deltaYaw
	c.Pitch = math.Clamp(c.Pitch+deltaPitch, -maxPitch, maxPitch)
}

// LookAt points the camera at target.
func (c *Camera) LookAt(target math.Vec3) {
	d := target.Sub(c.Position).Normalize()
	if d.LengthSqr() == 0 {
		return
	}
	c.Pitch = math.Clamp(math32.Asin(math.Clamp(d.Y, -1, 1)), -maxPitch, maxPitch)
	c.Yaw = math32.Atan2(d.Z, d.X)
}

func (c *Camera) GetViewMatrix() math.Mat4 {
	return math.Mat4LookAt(c.Position, c.Position.Add(c.GetForward()), math.Vec3Up)
}

func (c *Camera) GetProjectionMatrix() math.Mat4 {
	return math.Mat4Perspective(c.FOV, c.AspectRatio, c.NearPlane, c.FarPlane)
}

func (c *Camera) GetViewProjectionMatrix() math.Mat4 {
	return c.GetViewMatrix().Mul(c.GetProjectionMatrix())
}
