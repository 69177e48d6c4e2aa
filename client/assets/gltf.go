// Package assets decodes models and textures into scene values and fetches
// them over HTTP.
package assets

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fabioarnold/blobbyvolley2/client/scene"
	"github.com/fabioarnold/blobbyvolley2/common/math32"
	"github.com/fabioarnold/blobbyvolley2/common/vmath"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// DecodeGLB decodes a binary glTF file into a node named name holding the
// default scene's node hierarchy. Only triangle primitives are supported and
// all images must be embedded.
func DecodeGLB(r io.Reader, name string, maxTextureSize int) (*scene.Node, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding glTF: %v", err)
	}
	d := &docDecoder{
		doc:            doc,
		maxTextureSize: maxTextureSize,
		meshes:         make(map[int][]*scene.Mesh),
		images:         make(map[int]*scene.Image),
	}
	return d.decode(name)
}

type docDecoder struct {
	doc            *gltf.Document
	maxTextureSize int

	// Decoded meshes and images by glTF index. Nodes may share them.
	meshes map[int][]*scene.Mesh
	images map[int]*scene.Image
}

func (d *docDecoder) decode(name string) (*scene.Node, error) {
	root := scene.NewNode(name)
	if len(d.doc.Scenes) == 0 {
		return root, nil
	}
	sceneIdx := 0
	if d.doc.Scene != nil {
		sceneIdx = *d.doc.Scene
	}
	if sceneIdx >= len(d.doc.Scenes) {
		return nil, fmt.Errorf("default scene %d out of range", sceneIdx)
	}
	for _, idx := range d.doc.Scenes[sceneIdx].Nodes {
		n, err := d.node(idx, 0)
		if err != nil {
			return nil, err
		}
		root.Add(n)
	}
	return root, nil
}

// maxDepth guards against cyclic node references.
const maxDepth = 64

func (d *docDecoder) node(idx, depth int) (*scene.Node, error) {
	if idx < 0 || idx >= len(d.doc.Nodes) {
		return nil, fmt.Errorf("node %d out of range", idx)
	}
	if depth > maxDepth {
		return nil, fmt.Errorf("node %d: hierarchy deeper than %d", idx, maxDepth)
	}
	src := d.doc.Nodes[idx]
	n := scene.NewNode(src.Name)
	if src.MatrixOrDefault() != gltf.DefaultMatrix {
		n.Position, n.Rotation, n.Scale = decompose(toMat4(src.MatrixOrDefault()))
	} else {
		t, s := src.TranslationOrDefault(), src.ScaleOrDefault()
		n.Position = vmath.NewV3(float32(t[0]), float32(t[1]), float32(t[2]))
		n.Scale = vmath.NewV3(float32(s[0]), float32(s[1]), float32(s[2]))
		q := src.RotationOrDefault()
		rot := mgl32.Quat{W: float32(q[3]), V: mgl32.Vec3{float32(q[0]), float32(q[1]), float32(q[2])}}
		n.Rotation = eulerXYZ(rot.Mat4())
	}

	if src.Mesh != nil {
		meshes, err := d.mesh(*src.Mesh)
		if err != nil {
			return nil, fmt.Errorf("node %q: %v", src.Name, err)
		}
		n.Meshes = meshes
	}
	for _, c := range src.Children {
		child, err := d.node(c, depth+1)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

func (d *docDecoder) mesh(idx int) ([]*scene.Mesh, error) {
	if meshes, ok := d.meshes[idx]; ok {
		return meshes, nil
	}
	if idx < 0 || idx >= len(d.doc.Meshes) {
		return nil, fmt.Errorf("mesh %d out of range", idx)
	}
	src := d.doc.Meshes[idx]
	var meshes []*scene.Mesh
	for i, p := range src.Primitives {
		m, err := d.primitive(p)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %v", src.Name, i, err)
		}
		m.Name = src.Name
		meshes = append(meshes, m)
	}
	d.meshes[idx] = meshes
	return meshes, nil
}

func (d *docDecoder) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(d.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return d.doc.Accessors[idx], nil
}

func (d *docDecoder) primitive(p *gltf.Primitive) (*scene.Mesh, error) {
	if p.Mode != gltf.PrimitiveTriangles {
		return nil, fmt.Errorf("unsupported primitive mode %v", p.Mode)
	}
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("missing %s", gltf.POSITION)
	}
	acr, err := d.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(d.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %v", err)
	}

	var normals [][3]float32
	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		acr, err := d.accessor(idx)
		if err != nil {
			return nil, err
		}
		if normals, err = modeler.ReadNormal(d.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("reading normals: %v", err)
		}
	}
	var uvs [][2]float32
	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		acr, err := d.accessor(idx)
		if err != nil {
			return nil, err
		}
		if uvs, err = modeler.ReadTextureCoord(d.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("reading texture coordinates: %v", err)
		}
	}

	var indices []uint32
	if p.Indices != nil {
		acr, err := d.accessor(*p.Indices)
		if err != nil {
			return nil, err
		}
		if indices, err = modeler.ReadIndices(d.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("reading indices: %v", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%d indices do not form triangles", len(indices))
	}

	m := &scene.Mesh{Vertices: make([]scene.Vertex, len(indices))}
	for i, vi := range indices {
		if int(vi) >= len(positions) {
			return nil, fmt.Errorf("index %d out of range", vi)
		}
		v := scene.Vertex{Pos: v3(positions[vi])}
		if int(vi) < len(normals) {
			v.Normal = v3(normals[vi])
		}
		if int(vi) < len(uvs) {
			v.UV = vmath.NewV2(uvs[vi][0], uvs[vi][1])
		}
		m.Vertices[i] = v
	}
	if len(normals) == 0 {
		flatNormals(m.Vertices)
	}

	if m.Material, err = d.material(p.Material); err != nil {
		return nil, err
	}
	return m, nil
}

// flatNormals sets every vertex normal to its triangle's face normal.
func flatNormals(vs []scene.Vertex) {
	for i := 0; i+2 < len(vs); i += 3 {
		a, b, c := vs[i].Pos, vs[i+1].Pos, vs[i+2].Pos
		n, _ := b.Sub(a).Cross(c.Sub(a)).Normal()
		vs[i].Normal, vs[i+1].Normal, vs[i+2].Normal = n, n, n
	}
}

func (d *docDecoder) material(idx *int) (scene.Material, error) {
	m := scene.Material{Color: vmath.NewV4(1, 1, 1, 1), Metalness: 1}
	if idx == nil {
		return m, nil
	}
	if *idx < 0 || *idx >= len(d.doc.Materials) {
		return m, fmt.Errorf("material %d out of range", *idx)
	}
	pbr := d.doc.Materials[*idx].PBRMetallicRoughness
	if pbr == nil {
		return m, nil
	}
	c := pbr.BaseColorFactorOrDefault()
	m.Color = vmath.NewV4(float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3]))
	m.Metalness = float32(pbr.MetallicFactorOrDefault())
	if pbr.BaseColorTexture != nil {
		img, err := d.texture(pbr.BaseColorTexture.Index)
		if err != nil {
			return m, err
		}
		m.Map = img
	}
	return m, nil
}

func (d *docDecoder) texture(idx int) (*scene.Image, error) {
	if idx < 0 || idx >= len(d.doc.Textures) {
		return nil, fmt.Errorf("texture %d out of range", idx)
	}
	tex := d.doc.Textures[idx]
	if tex.Source == nil {
		return nil, fmt.Errorf("texture %d has no source", idx)
	}
	return d.image(*tex.Source)
}

func (d *docDecoder) image(idx int) (*scene.Image, error) {
	if img, ok := d.images[idx]; ok {
		return img, nil
	}
	if idx < 0 || idx >= len(d.doc.Images) {
		return nil, fmt.Errorf("image %d out of range", idx)
	}
	src := d.doc.Images[idx]
	var data []byte
	switch {
	case src.BufferView != nil:
		var err error
		if data, err = d.bufferView(*src.BufferView); err != nil {
			return nil, fmt.Errorf("image %q: %v", src.Name, err)
		}
	case src.IsEmbeddedResource():
		var err error
		if data, err = src.MarshalData(); err != nil {
			return nil, fmt.Errorf("image %q: %v", src.Name, err)
		}
	default:
		return nil, fmt.Errorf("image %q: external image %q not supported", src.Name, src.URI)
	}
	img, err := DecodeImage(bytes.NewReader(data), d.maxTextureSize)
	if err != nil {
		return nil, fmt.Errorf("image %q: %v", src.Name, err)
	}
	d.images[idx] = img
	return img, nil
}

func (d *docDecoder) bufferView(idx int) ([]byte, error) {
	if idx < 0 || idx >= len(d.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", idx)
	}
	bv := d.doc.BufferViews[idx]
	if bv.Buffer < 0 || bv.Buffer >= len(d.doc.Buffers) {
		return nil, fmt.Errorf("buffer %d out of range", bv.Buffer)
	}
	buf := d.doc.Buffers[bv.Buffer].Data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(buf) {
		return nil, fmt.Errorf("buffer view [%d, %d) outside buffer of %d bytes", bv.ByteOffset, end, len(buf))
	}
	return buf[bv.ByteOffset:end], nil
}

func v3(v [3]float32) vmath.V3 { return vmath.NewV3(v[0], v[1], v[2]) }

func toMat4(m [16]float64) mgl32.Mat4 {
	var out mgl32.Mat4
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

// decompose splits a column major TRS matrix without shear.
func decompose(m mgl32.Mat4) (pos, rot, scale vmath.V3) {
	pos = vmath.NewV3(m[12], m[13], m[14])
	scale = vmath.NewV3(m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len())
	r := m
	for col, s := range []float32{scale.X, scale.Y, scale.Z} {
		if s == 0 {
			continue
		}
		for row := 0; row < 3; row++ {
			r.Set(row, col, r.At(row, col)/s)
		}
	}
	return pos, eulerXYZ(r), scale
}

// eulerXYZ extracts the angles x, y, z with m = Rx * Ry * Rz.
func eulerXYZ(m mgl32.Mat4) vmath.V3 {
	m13 := m.At(0, 2)
	y := math32.Asin(math32.Clamp(m13, -1, 1))
	if math32.Abs(m13) < 0.9999999 {
		return vmath.NewV3(math32.Atan2(-m.At(1, 2), m.At(2, 2)), y, math32.Atan2(-m.At(0, 1), m.At(0, 0)))
	}
	return vmath.NewV3(math32.Atan2(m.At(2, 1), m.At(1, 1)), y, 0)
}
