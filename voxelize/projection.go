package voxelize

import (
	"github.com/chewxy/math32"

	"vct-renderer/math"
)

// Axis names one of the three projection directions.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	default:
		return "z"
	}
}

// TriaxialProjection holds three orthographic cameras looking at the origin
// along +X, +Y and +Z. Each one covers exactly the voxel cube.
type TriaxialProjection struct {
	X, Y, Z math.Mat4
}

// NewTriaxialProjection builds the projections for a cube of the given edge
// centred at the origin.
func NewTriaxialProjection(worldSize float32) TriaxialProjection {
	h := worldSize / 2
	proj := math.Mat4Orthographic(-h, h, -h, h, h, worldSize+h)
	view := func(eye, up math.Vec3) math.Mat4 {
		return math.Mat4LookAt(eye, math.Vec3Zero, up).Mul(proj)
	}
	return TriaxialProjection{
		X: view(math.NewVec3(worldSize, 0, 0), math.Vec3Up),
		Y: view(math.NewVec3(0, worldSize, 0), math.Vec3Back),
		Z: view(math.NewVec3(0, 0, worldSize), math.Vec3Up),
	}
}

// For returns the view-projection for an axis.
func (p TriaxialProjection) For(a Axis) math.Mat4 {
	switch a {
	case AxisX:
		return p.X
	case AxisY:
		return p.Y
	default:
		return p.Z
	}
}

// DominantAxis picks the projection that maximizes a triangle's footprint:
// z if |n.z| is strictly largest, otherwise x if |n.x| is strictly largest,
// otherwise y.
func DominantAxis(n math.Vec3) Axis {
	ax, ay, az := math32.Abs(n.X), math32.Abs(n.Y), math32.Abs(n.Z)
	switch {
	case az > ax && az > ay:
		return AxisZ
	case ax > ay && ax > az:
		return AxisX
	default:
		return AxisY
	}
}
