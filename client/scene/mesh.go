package scene

import "github.com/fabioarnold/blobbyvolley2/common/vmath"

type Vertex struct {
	Pos    vmath.V3
	Normal vmath.V3
	UV     vmath.V2
}

// Image holds RGBA8 pixels packed little endian into uint32s, so the low
// byte is red. This matches WGSL's unpack4x8unorm.
type Image struct {
	Width, Height int
	Pixels        []uint32
}

// At returns the packed pixel at (x, y).
func (img *Image) At(x, y int) uint32 {
	return img.Pixels[y*img.Width+x]
}

// SolidImage returns a 1x1 image of the given packed color.
func SolidImage(rgba uint32) *Image {
	return &Image{Width: 1, Height: 1, Pixels: []uint32{rgba}}
}

// PackRGBA packs 8 bit channels into the Image pixel format.
func PackRGBA(r, g, b, a uint8) uint32 {
	return uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24
}

type Material struct {
	Color     vmath.V4
	Map       *Image
	Metalness float32
}

// Mesh is a non-indexed triangle list.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Material Material
}

func (m *Mesh) TriangleCount() int { return len(m.Vertices) / 3 }

// CubeTexture faces are ordered +X, -X, +Y, -Y, +Z, -Z. All faces share a size.
type CubeTexture struct {
	Faces [6]*Image
}

// CubeFaceNames are the file names of the faces in CubeTexture order.
var CubeFaceNames = [6]string{"px.png", "nx.png", "py.png", "ny.png", "pz.png", "nz.png"}

// Complete reports whether every face is loaded with a matching size.
func (c *CubeTexture) Complete() bool {
	for _, f := range c.Faces {
		if f == nil || f.Width != c.Faces[0].Width || f.Height != c.Faces[0].Height {
			return false
		}
	}
	return true
}
