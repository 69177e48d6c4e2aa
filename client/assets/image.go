package assets

import (
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/fabioarnold/blobbyvolley2/client/scene"
	"golang.org/x/image/draw"
)

// DefaultMaxTextureSize bounds image edges so that a full skybox fits in the
// storage buffer limits every WebGPU adapter guarantees.
const DefaultMaxTextureSize = 1024

// DecodeImage decodes a PNG or JPEG. Images with an edge longer than maxSize
// are scaled down keeping their aspect ratio. maxSize <= 0 disables scaling.
func DecodeImage(r io.Reader, maxSize int) (*scene.Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %v", err)
	}
	return imageFromGo(src, maxSize), nil
}

func imageFromGo(src image.Image, maxSize int) *scene.Image {
	b := src.Bounds()
	w, h := fitSize(b.Dx(), b.Dy(), maxSize)

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}

	img := &scene.Image{Width: w, Height: h, Pixels: make([]uint32, w*h)}
	for i := range img.Pixels {
		img.Pixels[i] = binary.LittleEndian.Uint32(dst.Pix[i*4:])
	}
	return img
}

// fitSize scales w x h down so neither edge exceeds maxSize.
func fitSize(w, h, maxSize int) (int, int) {
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return w, h
	}
	if w >= h {
		return maxSize, max(1, h*maxSize/w)
	}
	return max(1, w*maxSize/h), maxSize
}
