// Package presenter owns the 3D scene and turns one Snapshot per frame into
// object transforms and a rendered frame.
package presenter

import (
	"context"
	"log"
	"path"
	"sync"
	"time"

	"github.com/fabioarnold/blobbyvolley2/client/scene"
	"github.com/fabioarnold/blobbyvolley2/common/math32"
	"github.com/fabioarnold/blobbyvolley2/common/vmath"
)

// Renderer draws a scene. Render and ResetState are only called from the
// render goroutine.
type Renderer interface {
	SetSize(width, height int)
	SetPixelRatio(ratio float32)
	Render(s *scene.Scene, cam *scene.Camera) error
	// ResetState restores any context state Render changes.
	ResetState()
}

// Loader fetches assets by relative path. Calls happen on loader goroutines.
type Loader interface {
	LoadModel(ctx context.Context, path string) (*scene.Node, error)
	LoadImage(ctx context.Context, path string) (*scene.Image, error)
}

const (
	WaterNormalsPath = "textures/waternormals.jpg"
	SkyboxDir        = "textures/skybox"

	// waterTimeScale converts clock milliseconds to water shader time.
	waterTimeScale = 0.001 * 0.1
)

type model struct {
	path   string
	parent func(p *Presenter) *scene.Node
	place  func(n *scene.Node)
}

var models = []model{
	{
		path:   "models/island.glb",
		parent: func(p *Presenter) *scene.Node { return p.handle.Scene().Root },
		place:  func(n *scene.Node) { n.Rotation.Y = math32.Pi },
	},
	{
		path:   "models/ball.glb",
		parent: func(p *Presenter) *scene.Node { return p.ball },
		place:  func(n *scene.Node) { n.SetScalar(0.31) },
	},
	{
		path:   "models/net.glb",
		parent: func(p *Presenter) *scene.Node { return p.playfield },
		place: func(n *scene.Node) {
			n.Rotation.Y = math32.Pi / 2
			n.SetScalar(1.02)
		},
	},
}

// ModelPaths lists the models Initialize loads.
func ModelPaths() []string {
	var paths []string
	for _, m := range models {
		paths = append(paths, m.path)
	}
	return paths
}

type Option func(p *Presenter)

func WithLogger(l *log.Logger) Option {
	return func(p *Presenter) {
		p.logger = l
	}
}

// WithClock sets the millisecond clock that animates the water.
func WithClock(now func() float64) Option {
	return func(p *Presenter) {
		p.now = now
	}
}

type Presenter struct {
	renderer Renderer
	loader   Loader
	logger   *log.Logger
	now      func() float64

	handle    *scene.Handle
	camera    *scene.Camera
	rig       CameraRig
	playfield *scene.Node
	ball      *scene.Node
	water     *scene.Water

	loads sync.WaitGroup
}

func New(r Renderer, l Loader, opts ...Option) *Presenter {
	start := time.Now()
	p := &Presenter{
		renderer: r,
		loader:   l,
		logger:   log.Default(),
		now: func() float64 {
			return float64(time.Since(start).Microseconds()) / 1000
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize builds the scene and starts loading its models and textures in
// the background. The scene renders before any load completes; each
// completion attaches itself at the start of a later RenderFrame.
func (p *Presenter) Initialize(ctx context.Context) {
	s := scene.New()
	s.ClearColor = vmath.NewV4FromRGB(0xffffff, 1)
	s.Ambient = scene.AmbientLight{Color: vmath.NewV3(1, 1, 1), Intensity: 0.8}
	s.Sun = scene.DirectionalLight{
		Color:      vmath.NewV3(1, 1, 1),
		Intensity:  1,
		Position:   vmath.NewV3(0.70707*10, 0.70707*20, 0),
		CastShadow: true,
		Shadow: scene.Shadow{
			MapSize: 4096,
			Bias:    -0.00008,
			Camera:  scene.OrthoFrustum{Left: -10, Right: 10, Bottom: -10, Top: 10, Near: 0.5, Far: 500},
		},
	}

	p.playfield = scene.NewNode("playfield")
	p.playfield.Position = vmath.NewV3(8, 0.375, 2)
	p.playfield.Rotation.Y = -math32.Pi / 4
	s.Add(p.playfield)
	p.ball = scene.NewNode("ball")
	p.playfield.Add(p.ball)

	waterNode := scene.NewNode("water")
	waterNode.Rotation.X = -math32.Pi / 2
	s.Add(waterNode)
	p.water = &scene.Water{
		Node:            waterNode,
		Size:            10000,
		TextureWidth:    512,
		TextureHeight:   512,
		SunDirection:    vmath.NewV3(0.70707, 0.70707, 0),
		SunColor:        vmath.NewV3(1, 1, 1),
		WaterColor:      vmath.NewV4FromRGB(0x001e0f, 1).XYZ(),
		DistortionScale: 2,
		Alpha:           1,
	}
	s.Water = p.water
	s.Background = &scene.CubeTexture{}

	p.camera = scene.NewPerspectiveCamera(60, 4.0/3, 0.1, 1000)
	p.camera.Position = PlayfieldWaypoint
	p.camera.Rotation.Y = playfieldYaw
	p.rig = CameraRig{}

	p.handle = scene.NewHandle(s)

	for _, m := range models {
		p.loadModel(ctx, m)
	}
	p.loadImage(ctx, WaterNormalsPath, func(s *scene.Scene, img *scene.Image) {
		s.Water.NormalMap = img
	})
	for i, name := range scene.CubeFaceNames {
		p.loadImage(ctx, path.Join(SkyboxDir, name), func(s *scene.Scene, img *scene.Image) {
			s.Background.Faces[i] = img
		})
	}
}

func (p *Presenter) loadModel(ctx context.Context, m model) {
	p.loads.Add(1)
	go func() {
		defer p.loads.Done()
		n, err := p.loader.LoadModel(ctx, m.path)
		if err != nil {
			p.logger.Printf("loading %s: %v", m.path, err)
			return
		}
		p.handle.Enqueue(func(*scene.Scene) {
			p.attachModel(m, n)
		})
	}()
}

// attachModel places a loaded model under its parent. A second completion for
// the same model is ignored.
func (p *Presenter) attachModel(m model, n *scene.Node) {
	m.place(n)
	enableShadows(n)
	if !p.handle.AttachOnce(m.path, m.parent(p), n) {
		p.logger.Printf("%s already attached, ignoring", m.path)
	}
}

func (p *Presenter) loadImage(ctx context.Context, name string, set func(*scene.Scene, *scene.Image)) {
	p.loads.Add(1)
	go func() {
		defer p.loads.Done()
		img, err := p.loader.LoadImage(ctx, name)
		if err != nil {
			p.logger.Printf("loading %s: %v", name, err)
			return
		}
		p.handle.Enqueue(func(s *scene.Scene) { set(s, img) })
	}()
}

func enableShadows(root *scene.Node) {
	root.Traverse(func(n *scene.Node) {
		if len(n.Meshes) == 0 {
			return
		}
		for _, m := range n.Meshes {
			m.Material.Metalness = 0
		}
		n.CastShadow = true
		n.ReceiveShadow = true
	})
}

// WaitForLoads blocks until every load started by Initialize has finished.
// Completed loads still need a RenderFrame to attach.
func (p *Presenter) WaitForLoads() {
	p.loads.Wait()
}

// Resize sets the output size in CSS pixels and the device pixel ratio.
func (p *Presenter) Resize(width, height int, pixelRatio float32) {
	p.renderer.SetSize(width, height)
	p.renderer.SetPixelRatio(pixelRatio)
}

// RenderFrame applies pending loads, moves the camera, ball and water for s
// and renders one frame. Values in s are not validated; NaNs propagate into
// the transforms.
func (p *Presenter) RenderFrame(s Snapshot) error {
	p.handle.Apply()

	pose := p.rig.Update(s.Menu.Alpha)
	p.camera.Position = pose.Position
	p.camera.Rotation.Y = pose.Yaw

	p.ball.Position = BallPosition(s.Ball)
	p.ball.Rotation.Z = -s.Ball.Rotation

	p.water.Time = float32(p.now() * waterTimeScale)

	p.renderer.ResetState()
	defer p.renderer.ResetState()
	return p.renderer.Render(p.handle.Scene(), p.camera)
}

// Scene returns the scene. Render goroutine only.
func (p *Presenter) Scene() *scene.Scene { return p.handle.Scene() }

func (p *Presenter) Camera() *scene.Camera { return p.camera }

// Ball returns the ball proxy node the ball model attaches to.
func (p *Presenter) Ball() *scene.Node { return p.ball }

func (p *Presenter) Playfield() *scene.Node { return p.playfield }

// Rig exposes the camera rig state.
func (p *Presenter) Rig() CameraRig { return p.rig }
