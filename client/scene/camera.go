package scene

import (
	"github.com/fabioarnold/blobbyvolley2/common/math32"
	"github.com/fabioarnold/blobbyvolley2/common/vmath"
	"github.com/go-gl/mathgl/mgl32"
)

// depthZeroToOne remaps OpenGL style clip space depth [-1,1] to the [0,1]
// range WebGPU uses.
var depthZeroToOne = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Camera is a perspective camera looking down its local -Z axis.
type Camera struct {
	// Fov is the vertical field of view in degrees.
	Fov    float32
	Aspect float32
	Near   float32
	Far    float32

	Position vmath.V3
	Rotation vmath.V3
}

func NewPerspectiveCamera(fov, aspect, near, far float32) *Camera {
	return &Camera{Fov: fov, Aspect: aspect, Near: near, Far: far}
}

func (c *Camera) WorldMatrix() mgl32.Mat4 {
	return composeMatrix(c.Position, c.Rotation, vmath.NewV3(1, 1, 1))
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return c.WorldMatrix().Inv()
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return depthZeroToOne.Mul4(mgl32.Perspective(math32.RadiansFromDegrees(c.Fov), c.Aspect, c.Near, c.Far))
}

func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.ProjectionMatrix().Mul4(c.ViewMatrix())
}

// Forward is the world space viewing direction.
func (c *Camera) Forward() vmath.V3 {
	f := rotationMatrix(c.Rotation).Mul4x1(mgl32.Vec4{0, 0, -1, 0})
	return vmath.NewV3(f[0], f[1], f[2])
}
