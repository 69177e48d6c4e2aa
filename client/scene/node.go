// Package scene is a small retained scene graph: transformable nodes with
// meshes, a perspective camera, lights, a water surface and a sky box.
// It has no GPU dependencies; client/engine renders it.
package scene

import (
	"github.com/fabioarnold/blobbyvolley2/common/vmath"
	"github.com/go-gl/mathgl/mgl32"
)

// Node is a transform in the graph. Rotation holds Euler angles in radians
// applied in X, Y, Z order.
type Node struct {
	Name     string
	Position vmath.V3
	Rotation vmath.V3
	Scale    vmath.V3

	Meshes        []*Mesh
	CastShadow    bool
	ReceiveShadow bool

	Children []*Node
	parent   *Node
}

func NewNode(name string) *Node {
	return &Node{
		Name:  name,
		Scale: vmath.NewV3(1, 1, 1),
	}
}

func (n *Node) Parent() *Node { return n.parent }

// Add attaches child to n, detaching it from its previous parent first.
func (n *Node) Add(child *Node) {
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.Children = append(n.Children, child)
}

func (n *Node) Remove(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// Traverse calls fn for n and all of its descendants, depth first.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Traverse(fn)
	}
}

// Find returns the first node named name in n's subtree.
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

func (n *Node) SetScalar(s float32) {
	n.Scale = vmath.NewV3(s, s, s)
}

func (n *Node) LocalMatrix() mgl32.Mat4 {
	return composeMatrix(n.Position, n.Rotation, n.Scale)
}

// WorldMatrix combines the local matrices from the root down to n.
func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

func composeMatrix(pos, rot, scale vmath.V3) mgl32.Mat4 {
	return mgl32.Translate3D(pos.X, pos.Y, pos.Z).
		Mul4(rotationMatrix(rot)).
		Mul4(mgl32.Scale3D(scale.X, scale.Y, scale.Z))
}

func rotationMatrix(rot vmath.V3) mgl32.Mat4 {
	return mgl32.HomogRotate3DX(rot.X).
		Mul4(mgl32.HomogRotate3DY(rot.Y)).
		Mul4(mgl32.HomogRotate3DZ(rot.Z))
}

// TransformPoint applies m to p.
func TransformPoint(m mgl32.Mat4, p vmath.V3) vmath.V3 {
	v := m.Mul4x1(mgl32.Vec4{p.X, p.Y, p.Z, 1})
	return vmath.NewV3(v[0], v[1], v[2])
}
