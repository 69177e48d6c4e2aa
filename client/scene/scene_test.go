package scene

import (
	"sync"
	"testing"

	"github.com/fabioarnold/blobbyvolley2/common/math32"
	"github.com/fabioarnold/blobbyvolley2/common/vmath"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var approx = cmpopts.EquateApprox(0, 1e-4)

func TestWorldMatrix(t *testing.T) {
	playfield := NewNode("playfield")
	playfield.Position = vmath.NewV3(8, 0.375, 2)
	playfield.Rotation.Y = -math32.Pi / 4

	ball := NewNode("ball")
	ball.Position = vmath.NewV3(1, 0, 0)
	playfield.Add(ball)

	root := NewNode("root")
	root.Add(playfield)

	got := TransformPoint(ball.WorldMatrix(), vmath.V3{})
	// +X rotated by -45 degrees about Y points to (+x, 0, +z).
	s := math32.Sqrt(0.5)
	want := vmath.NewV3(8+s, 0.375, 2+s)
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("ball world position mismatch (-want +got):\n%s", diff)
	}
}

func TestLocalMatrixScale(t *testing.T) {
	n := NewNode("ball")
	n.SetScalar(0.31)
	got := TransformPoint(n.LocalMatrix(), vmath.NewV3(1, 2, 3))
	want := vmath.NewV3(0.31, 0.62, 0.93)
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("scaled point mismatch (-want +got):\n%s", diff)
	}
}

func TestAddReparents(t *testing.T) {
	a, b, c := NewNode("a"), NewNode("b"), NewNode("c")
	a.Add(c)
	b.Add(c)
	if len(a.Children) != 0 {
		t.Errorf("a still has %d children", len(a.Children))
	}
	if c.Parent() != b {
		t.Errorf("c.Parent() = %v, want b", c.Parent())
	}
	if got := b.Find("c"); got != c {
		t.Errorf("b.Find(c) = %v, want c", got)
	}
	if got := a.Find("c"); got != nil {
		t.Errorf("a.Find(c) = %v, want nil", got)
	}
}

func TestTraverseOrder(t *testing.T) {
	root := NewNode("root")
	a, b, a1 := NewNode("a"), NewNode("b"), NewNode("a1")
	root.Add(a)
	root.Add(b)
	a.Add(a1)

	var got []string
	root.Traverse(func(n *Node) { got = append(got, n.Name) })
	if diff := cmp.Diff([]string{"root", "a", "a1", "b"}, got); diff != "" {
		t.Errorf("Traverse order mismatch (-want +got):\n%s", diff)
	}
}

func TestMeshNodes(t *testing.T) {
	s := New()
	withMesh := NewNode("net")
	withMesh.Meshes = []*Mesh{{Name: "net"}}
	s.Add(NewNode("empty"))
	s.Add(withMesh)
	got := s.MeshNodes()
	if len(got) != 1 || got[0] != withMesh {
		t.Errorf("MeshNodes() = %v, want [net]", got)
	}
}

func ndc(m mgl32.Mat4, p vmath.V3) vmath.V3 {
	v := m.Mul4x1(mgl32.Vec4{p.X, p.Y, p.Z, 1})
	return vmath.NewV3(v[0]/v[3], v[1]/v[3], v[2]/v[3])
}

func TestCameraProjectionDepthRange(t *testing.T) {
	cam := NewPerspectiveCamera(60, 4.0/3, 0.1, 1000)
	vp := cam.ViewProjection()

	if got := ndc(vp, vmath.NewV3(0, 0, -0.1)); !approxEq(got.Z, 0) {
		t.Errorf("near plane depth = %v, want 0", got.Z)
	}
	if got := ndc(vp, vmath.NewV3(0, 0, -1000)); !approxEq(got.Z, 1) {
		t.Errorf("far plane depth = %v, want 1", got.Z)
	}
	if got := ndc(vp, vmath.NewV3(0, 0, -10)); !approxEq(got.X, 0) || !approxEq(got.Y, 0) {
		t.Errorf("point on axis projected to %v, want center", got)
	}
}

func TestCameraForward(t *testing.T) {
	cam := NewPerspectiveCamera(60, 4.0/3, 0.1, 1000)
	cam.Position = vmath.NewV3(0, 3, 16)
	if diff := cmp.Diff(vmath.NewV3(0, 0, -1), cam.Forward(), approx); diff != "" {
		t.Errorf("Forward() mismatch (-want +got):\n%s", diff)
	}

	// Orbit position with matching yaw looks at the Y axis.
	a := float32(0.7)
	cam.Rotation.Y = a
	cam.Position = vmath.NewV3(math32.Sin(a)*16, 3, math32.Cos(a)*16)
	toAxis, _ := vmath.NewV3(0, 3, 0).Sub(cam.Position).Normal()
	if diff := cmp.Diff(toAxis, cam.Forward(), approx); diff != "" {
		t.Errorf("orbit Forward() mismatch (-want +got):\n%s", diff)
	}

	// The view matrix moves the camera to the origin.
	if diff := cmp.Diff(vmath.V3{}, TransformPoint(cam.ViewMatrix(), cam.Position), approx); diff != "" {
		t.Errorf("view(camera position) mismatch (-want +got):\n%s", diff)
	}
}

func TestShadowMatrix(t *testing.T) {
	l := DirectionalLight{
		Position:   vmath.NewV3(0.70707*10, 0.70707*20, 0),
		CastShadow: true,
		Shadow: Shadow{
			MapSize: 4096,
			Camera:  OrthoFrustum{Left: -10, Right: 10, Bottom: -10, Top: 10, Near: 0.5, Far: 500},
		},
	}
	got := ndc(l.ShadowMatrix(), vmath.V3{})
	if !approxEq(got.X, 0) || !approxEq(got.Y, 0) {
		t.Errorf("target projected to %v, want center", got)
	}
	if got.Z <= 0 || got.Z >= 1 {
		t.Errorf("target depth = %v, want inside (0, 1)", got.Z)
	}

	// A point further along the light direction is deeper.
	far := ndc(l.ShadowMatrix(), l.Direction().Scale(2))
	if far.Z <= got.Z {
		t.Errorf("depth along light direction = %v, want > %v", far.Z, got.Z)
	}
}

func TestShadowMatrixStraightDown(t *testing.T) {
	l := DirectionalLight{
		Position: vmath.NewV3(0, 10, 0),
		Shadow:   Shadow{Camera: OrthoFrustum{Left: -1, Right: 1, Bottom: -1, Top: 1, Near: 0.5, Far: 50}},
	}
	m := l.ShadowMatrix()
	for _, v := range m {
		if math32.IsNaN(v) {
			t.Fatalf("ShadowMatrix() = %v, contains NaN", m)
		}
	}
}

func approxEq(a, b float32) bool { return math32.Abs(a-b) < 1e-4 }

func TestHandleApplyRunsQueuedMutationsInOrder(t *testing.T) {
	h := NewHandle(New())
	var got []string
	h.Enqueue(func(*Scene) { got = append(got, "first") })
	h.Enqueue(func(*Scene) { got = append(got, "second") })

	if n := h.Apply(); n != 2 {
		t.Errorf("Apply() = %d, want 2", n)
	}
	if n := h.Apply(); n != 0 {
		t.Errorf("second Apply() = %d, want 0", n)
	}
	if diff := cmp.Diff([]string{"first", "second"}, got); diff != "" {
		t.Errorf("mutation order mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleConcurrentEnqueue(t *testing.T) {
	h := NewHandle(New())
	const loaders = 8
	var wg sync.WaitGroup
	for i := 0; i < loaders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Enqueue(func(s *Scene) { s.Add(NewNode("model")) })
		}()
	}
	wg.Wait()
	h.Apply()
	if got := len(h.Scene().Root.Children); got != loaders {
		t.Errorf("root has %d children, want %d", got, loaders)
	}
}

func TestAttachOnce(t *testing.T) {
	h := NewHandle(New())
	root := h.Scene().Root
	first, second := NewNode("island"), NewNode("island")

	if !h.AttachOnce("island", root, first) {
		t.Errorf("first AttachOnce() = false, want true")
	}
	if h.AttachOnce("island", root, second) {
		t.Errorf("second AttachOnce() = true, want false")
	}
	if got := len(root.Children); got != 1 {
		t.Errorf("root has %d children, want 1", got)
	}
	if got := h.Attached("island"); got != first {
		t.Errorf("Attached() = %p, want first node %p", got, first)
	}
}

func TestCubeTextureComplete(t *testing.T) {
	var c CubeTexture
	if c.Complete() {
		t.Errorf("empty cube Complete() = true")
	}
	for i := range c.Faces {
		c.Faces[i] = &Image{Width: 2, Height: 2, Pixels: make([]uint32, 4)}
	}
	if !c.Complete() {
		t.Errorf("full cube Complete() = false")
	}
	c.Faces[3] = SolidImage(PackRGBA(1, 2, 3, 4))
	if c.Complete() {
		t.Errorf("mismatched cube Complete() = true")
	}
}

func TestPackRGBA(t *testing.T) {
	img := SolidImage(PackRGBA(0x11, 0x22, 0x33, 0x44))
	if got := img.At(0, 0); got != 0x44332211 {
		t.Errorf("At(0, 0) = %#x, want 0x44332211", got)
	}
}
