package scene

import (
	"github.com/fabioarnold/blobbyvolley2/common/vmath"
	"github.com/go-gl/mathgl/mgl32"
)

type AmbientLight struct {
	Color     vmath.V3
	Intensity float32
}

// OrthoFrustum bounds a shadow camera in light view space.
type OrthoFrustum struct {
	Left, Right, Bottom, Top float32
	Near, Far                float32
}

type Shadow struct {
	MapSize int
	// Bias is added to the receiver's depth in shadow map space.
	Bias   float32
	Camera OrthoFrustum
}

// DirectionalLight shines from Position towards Target.
type DirectionalLight struct {
	Color      vmath.V3
	Intensity  float32
	Position   vmath.V3
	Target     vmath.V3
	CastShadow bool
	Shadow     Shadow
}

// Direction is the unit vector from the light towards its target.
func (l *DirectionalLight) Direction() vmath.V3 {
	d, _ := l.Target.Sub(l.Position).Normal()
	return d
}

// ShadowMatrix maps world space into the shadow map's clip space.
func (l *DirectionalLight) ShadowMatrix() mgl32.Mat4 {
	f := l.Shadow.Camera
	proj := depthZeroToOne.Mul4(mgl32.Ortho(f.Left, f.Right, f.Bottom, f.Top, f.Near, f.Far))
	up := mgl32.Vec3{0, 1, 0}
	if d := l.Direction(); d.X == 0 && d.Z == 0 {
		up = mgl32.Vec3{0, 0, 1}
	}
	view := mgl32.LookAtV(toVec3(l.Position), toVec3(l.Target), up)
	return proj.Mul4(view)
}

func toVec3(v vmath.V3) mgl32.Vec3 { return mgl32.Vec3{v.X, v.Y, v.Z} }
