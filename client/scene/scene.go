package scene

import "github.com/fabioarnold/blobbyvolley2/common/vmath"

// Water is an animated reflective plane. Its transform comes from Node, which
// lies in the XY plane before rotation.
type Water struct {
	Node *Node
	// Size is the edge length of the square plane.
	Size float32

	TextureWidth, TextureHeight int
	// NormalMap tiles across the plane. Until it loads the surface is flat.
	NormalMap       *Image
	SunDirection    vmath.V3
	SunColor        vmath.V3
	WaterColor      vmath.V3
	DistortionScale float32
	Alpha           float32
	// Time drives the normal map scrolling.
	Time float32
}

type Scene struct {
	Root *Node

	ClearColor vmath.V4
	// Background may be nil or partially loaded; see CubeTexture.Complete.
	Background *CubeTexture

	Ambient AmbientLight
	Sun     DirectionalLight
	Water   *Water
}

func New() *Scene {
	return &Scene{
		Root:       NewNode("scene"),
		ClearColor: vmath.NewV4(1, 1, 1, 1),
	}
}

func (s *Scene) Add(n *Node) { s.Root.Add(n) }

// MeshNodes returns every node in the graph that has meshes, in traversal order.
func (s *Scene) MeshNodes() []*Node {
	var nodes []*Node
	s.Root.Traverse(func(n *Node) {
		if len(n.Meshes) > 0 {
			nodes = append(nodes, n)
		}
	})
	return nodes
}
