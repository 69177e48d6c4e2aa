package engine

import (
	"fmt"

	"github.com/fabioarnold/blobbyvolley2/client/scene"
)

// skyAtlasPixels concatenates the faces of c in cube order and returns the
// face size. Every face must be square, non-empty, fully populated and the
// same size as the first.
func skyAtlasPixels(c *scene.CubeTexture) ([]uint32, int, error) {
	if c == nil {
		return nil, 0, fmt.Errorf("no sky")
	}
	size := 0
	for i, f := range c.Faces {
		if f == nil {
			return nil, 0, fmt.Errorf("sky face %s not loaded", scene.CubeFaceNames[i])
		}
		if i == 0 {
			size = f.Width
		}
		if f.Width != size || f.Height != size || size == 0 {
			return nil, 0, fmt.Errorf("sky face %s is %dx%d, want %dx%d", scene.CubeFaceNames[i], f.Width, f.Height, size, size)
		}
		if len(f.Pixels) != size*size {
			return nil, 0, fmt.Errorf("sky face %s has %d pixels, want %d", scene.CubeFaceNames[i], len(f.Pixels), size*size)
		}
	}
	pixels := make([]uint32, 0, 6*size*size)
	for _, f := range c.Faces {
		pixels = append(pixels, f.Pixels...)
	}
	return pixels, size, nil
}
