package vmath

import (
	"fmt"

	"github.com/fabioarnold/blobbyvolley2/common/math32"
)

type V3 struct {
	X, Y, Z float32
}

func NewV3(x, y, z float32) V3 { return V3{X: x, Y: y, Z: z} }

func (v V3) String() string {
	return fmt.Sprintf("{%f, %f, %f}", v.X, v.Y, v.Z)
}

func (v V3) Add(w V3) V3             { return V3{X: v.X + w.X, Y: v.Y + w.Y, Z: v.Z + w.Z} }
func (v V3) Sub(w V3) V3             { return V3{X: v.X - w.X, Y: v.Y - w.Y, Z: v.Z - w.Z} }
func (v V3) Negate() V3              { return V3{X: -v.X, Y: -v.Y, Z: -v.Z} }
func (v V3) Scale(s float32) V3      { return V3{X: v.X * s, Y: v.Y * s, Z: v.Z * s} }
func (v V3) Mul(w V3) V3             { return V3{X: v.X * w.X, Y: v.Y * w.Y, Z: v.Z * w.Z} }
func (v V3) Dot(w V3) float32        { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }
func (v V3) LengthSq() float32       { return v.Dot(v) }
func (v V3) Length() float32         { return math32.Sqrt(v.LengthSq()) }
func (v V3) Distance(w V3) float32   { return v.Sub(w).Length() }
func (v V3) Lerp(w V3, f float32) V3 { return v.Scale(1 - f).Add(w.Scale(f)) }

func (v V3) Cross(w V3) V3 {
	return V3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

// Normal returns the unit vector in the direction of v and the length of v.
// The zero vector is returned unchanged.
func (v V3) Normal() (V3, float32) {
	d := v.Length()
	if d == 0 {
		return v, 0
	}
	return v.Scale(1 / d), d
}

// RotateY rotates v about the Y axis by a radians (right handed).
func (v V3) RotateY(a float32) V3 {
	s, c := math32.SinCos(a)
	return V3{X: c*v.X + s*v.Z, Y: v.Y, Z: -s*v.X + c*v.Z}
}

// V4 is mostly used for colors and padded uniform fields.
type V4 struct {
	X, Y, Z, W float32
}

func NewV4(x, y, z, w float32) V4 { return V4{X: x, Y: y, Z: z, W: w} }

// NewV4FromRGB unpacks a 0xRRGGBB color with the given alpha.
func NewV4FromRGB(rgb uint32, alpha float32) V4 {
	return V4{
		X: float32((rgb>>16)&0xff) / 255,
		Y: float32((rgb>>8)&0xff) / 255,
		Z: float32(rgb&0xff) / 255,
		W: alpha,
	}
}

func (v V4) XYZ() V3 { return V3{X: v.X, Y: v.Y, Z: v.Z} }
