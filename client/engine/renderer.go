//go:build js && wasm

package engine

import (
	_ "embed"
	"fmt"
	"log"
	"syscall/js"

	"github.com/fabioarnold/blobbyvolley2/client/browser"
	"github.com/fabioarnold/blobbyvolley2/client/scene"
	"github.com/fabioarnold/blobbyvolley2/common/vmath"
	"github.com/fabioarnold/blobbyvolley2/common/wgsltypes"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mokiat/gog/opt"
	"github.com/mokiat/wasmgpu"
)

var (
	//go:embed shaders/shadow.wgsl
	shadowShaderCode string
	//go:embed shaders/mesh.wgsl
	meshShaderCode string
	//go:embed shaders/water.wgsl
	waterShaderCode string
	//go:embed shaders/sky.wgsl
	skyShaderCode string
	//go:embed shaders/cube.wgsl
	cubeShaderSnippet string
)

const depthFormat = wasmgpu.GPUTextureFormatDepth32Float

var (
	whitePixel  = scene.PackRGBA(255, 255, 255, 255)
	flatNormal  = scene.PackRGBA(128, 128, 255, 255)
	unspecified = opt.Unspecified[wasmgpu.GPUSize32]()
)

type depthTarget struct {
	texture       wasmgpu.GPUTexture
	view          wasmgpu.GPUTextureView
	width, height int
}

func newDepthTarget(device wasmgpu.GPUDevice, width, height int, usage wasmgpu.GPUTextureUsageFlags) depthTarget {
	texture := device.CreateTexture(wasmgpu.GPUTextureDescriptor{
		Size: wasmgpu.GPUExtent3D{
			Width:  wasmgpu.GPUIntegerCoordinate(width),
			Height: opt.V(wasmgpu.GPUIntegerCoordinate(height)),
		},
		Format: depthFormat,
		Usage:  usage,
	})
	return depthTarget{
		texture: texture,
		view:    texture.CreateView(),
		width:   width,
		height:  height,
	}
}

func (d depthTarget) matches(width, height int) bool {
	return d.width == width && d.height == height
}

func (d depthTarget) destroy() {
	if d.width > 0 {
		d.texture.Destroy()
	}
}

type objectKey struct {
	node *scene.Node
	mesh *scene.Mesh
}

type object struct {
	uniforms    GPUBuffer[ObjectUniforms]
	litGroup    wasmgpu.GPUBindGroup
	shadowGroup wasmgpu.GPUBindGroup
	image       *scene.Image
	seen        bool
}

type skyAtlas struct {
	faces    [6]*scene.Image
	pixels   GPUBuffer[uint32]
	faceSize int
	owned    bool
}

// Renderer draws a scene.Scene into a canvas. It caches GPU resources per
// mesh, image and node so a static scene uploads nothing but uniforms.
type Renderer struct {
	device  wasmgpu.GPUDevice
	context wasmgpu.GPUCanvasContext
	canvas  browser.Canvas
	logger  *log.Logger

	width, height int
	pixelRatio    float32

	colorView    wasmgpu.GPUTextureView
	hasColorView bool
	depth        depthTarget
	shadowMap    depthTarget

	shadowPipeline wasmgpu.GPURenderPipeline
	meshPipeline   wasmgpu.GPURenderPipeline
	waterPipeline  wasmgpu.GPURenderPipeline
	skyPipeline    wasmgpu.GPURenderPipeline

	frame     GPUBuffer[FrameUniforms]
	water     GPUBuffer[WaterUniforms]
	skyParams GPUBuffer[SkyUniforms]
	waterQuad GPUBuffer[scene.Vertex]

	// Group 0 of each pipeline. Rebuilt with the shadow map.
	shadowFrameGroup wasmgpu.GPUBindGroup
	meshFrameGroup   wasmgpu.GPUBindGroup
	waterFrameGroup  wasmgpu.GPUBindGroup

	objects map[objectKey]*object
	meshes  map[*scene.Mesh]GPUBuffer[scene.Vertex]
	images  map[*scene.Image]GPUBuffer[uint32]
	white   *scene.Image
	flat    *scene.Image

	sky           skyAtlas
	skyGroup      wasmgpu.GPUBindGroup
	hasSkyGroup   bool
	waterGroup    wasmgpu.GPUBindGroup
	waterGroupFor waterResources
}

// waterResources identifies the storage buffers bound to the water group.
type waterResources struct {
	normals *scene.Image
	sky     [6]*scene.Image
}

// NewRenderer creates the pipelines for drawing into context, whose canvas is
// configured with format.
func NewRenderer(device wasmgpu.GPUDevice, context wasmgpu.GPUCanvasContext, jsContext js.Value, format wasmgpu.GPUTextureFormat, logger *log.Logger) *Renderer {
	r := &Renderer{
		device:     device,
		context:    context,
		canvas:     browser.CanvasOf(jsContext),
		logger:     logger,
		pixelRatio: 1,
		objects:    make(map[objectKey]*object),
		meshes:     make(map[*scene.Mesh]GPUBuffer[scene.Vertex]),
		images:     make(map[*scene.Image]GPUBuffer[uint32]),
		white:      scene.SolidImage(whitePixel),
		flat:       scene.SolidImage(flatNormal),
	}

	positions := NewVertexLayout(vertexStruct, "Pos")
	lit := NewVertexLayout(vertexStruct, "Pos", "Normal", "UV")
	structs := []wgsltypes.Struct{frameStruct, objectStruct, waterStruct, skyStruct}

	shadowModule := InitShaderModule(device, shadowShaderCode, structs)
	r.shadowPipeline = device.CreateRenderPipeline(wasmgpu.GPURenderPipelineDescriptor{
		Vertex: wasmgpu.GPUVertexState{
			Module:     shadowModule,
			EntryPoint: "vertex_main",
			Buffers:    positions.Layout,
		},
		Primitive:    opt.V(triangleList()),
		DepthStencil: opt.V(depthState(true, wasmgpu.GPUCompareFunctionLess)),
	})

	meshModule := InitShaderModule(device, meshShaderCode, structs)
	r.meshPipeline = device.CreateRenderPipeline(wasmgpu.GPURenderPipelineDescriptor{
		Vertex: wasmgpu.GPUVertexState{
			Module:     meshModule,
			EntryPoint: "vertex_main",
			Buffers:    lit.Layout,
		},
		Fragment:     opt.V(fragmentState(meshModule, format)),
		Primitive:    opt.V(triangleList()),
		DepthStencil: opt.V(depthState(true, wasmgpu.GPUCompareFunctionLess)),
	})

	waterModule := InitShaderModule(device, waterShaderCode, structs, cubeShaderSnippet)
	r.waterPipeline = device.CreateRenderPipeline(wasmgpu.GPURenderPipelineDescriptor{
		Vertex: wasmgpu.GPUVertexState{
			Module:     waterModule,
			EntryPoint: "vertex_main",
			Buffers:    positions.Layout,
		},
		Fragment:     opt.V(fragmentState(waterModule, format)),
		Primitive:    opt.V(triangleList()),
		DepthStencil: opt.V(depthState(true, wasmgpu.GPUCompareFunctionLess)),
	})

	skyModule := InitShaderModule(device, skyShaderCode, structs, cubeShaderSnippet)
	r.skyPipeline = device.CreateRenderPipeline(wasmgpu.GPURenderPipelineDescriptor{
		Vertex: wasmgpu.GPUVertexState{
			Module:     skyModule,
			EntryPoint: "vertex_main",
		},
		Fragment:     opt.V(fragmentState(skyModule, format)),
		Primitive:    opt.V(triangleList()),
		DepthStencil: opt.V(depthState(false, wasmgpu.GPUCompareFunctionLessEqual)),
	})

	r.frame = InitUniformBuffer(device, FrameUniforms{}, WithCopyDstUsage())
	r.water = InitUniformBuffer(device, WaterUniforms{}, WithCopyDstUsage())
	r.skyParams = InitUniformBuffer(device, SkyUniforms{}, WithCopyDstUsage())

	r.waterQuad = InitVertexBufferSlice(device, waterQuadVertices())

	r.sky = skyAtlas{pixels: r.imageBuffer(r.white), faceSize: 1}
	return r
}

func triangleList() wasmgpu.GPUPrimitiveState {
	return wasmgpu.GPUPrimitiveState{
		Topology: opt.V(wasmgpu.GPUPrimitiveTopologyTriangleList),
	}
}

func fragmentState(module wasmgpu.GPUShaderModule, format wasmgpu.GPUTextureFormat) wasmgpu.GPUFragmentState {
	return wasmgpu.GPUFragmentState{
		Module:     module,
		EntryPoint: "fragment_main",
		Targets:    []wasmgpu.GPUColorTargetState{{Format: format}},
	}
}

func depthState(write bool, compare wasmgpu.GPUCompareFunction) wasmgpu.GPUDepthStencilState {
	return wasmgpu.GPUDepthStencilState{
		Format:            depthFormat,
		DepthWriteEnabled: write,
		DepthCompare:      compare,
	}
}

// waterQuadVertices spans [-1,1] in the XY plane.
func waterQuadVertices() []scene.Vertex {
	corner := func(x, y float32) scene.Vertex {
		return scene.Vertex{
			Pos:    vmath.NewV3(x, y, 0),
			Normal: vmath.NewV3(0, 0, 1),
			UV:     vmath.NewV2((x+1)/2, (1-y)/2),
		}
	}
	a, b, c, d := corner(-1, -1), corner(1, -1), corner(1, 1), corner(-1, 1)
	return []scene.Vertex{a, b, c, a, c, d}
}

// SetSize sets the canvas size in CSS pixels.
func (r *Renderer) SetSize(width, height int) {
	r.width, r.height = width, height
	r.canvas.SetSize(width, height, r.pixelRatio)
	r.hasColorView = false
}

func (r *Renderer) SetPixelRatio(ratio float32) {
	if ratio <= 0 {
		ratio = 1
	}
	r.pixelRatio = ratio
	if r.width > 0 && r.height > 0 {
		r.canvas.SetSize(r.width, r.height, ratio)
	}
	r.hasColorView = false
}

// ResetState forgets the canvas texture acquired for the last frame.
func (r *Renderer) ResetState() {
	r.hasColorView = false
}

func (r *Renderer) Render(s *scene.Scene, cam *scene.Camera) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			jsErr, ok := rec.(js.Error)
			if !ok {
				panic(rec)
			}
			err = fmt.Errorf("rendering frame: %v", jsErr)
		}
	}()

	width, height := r.canvas.PixelSize()
	if width <= 0 || height <= 0 {
		return nil
	}
	if !r.depth.matches(width, height) {
		r.depth.destroy()
		r.depth = newDepthTarget(r.device, width, height, wasmgpu.GPUTextureUsageFlagsRenderAttachment)
	}
	r.ensureShadowMap(s.Sun.Shadow.MapSize)
	if !r.hasColorView {
		r.colorView = r.context.GetCurrentTexture().CreateView()
		r.hasColorView = true
	}

	r.frame.UpdateBufferStruct(r.frameUniforms(s, cam))
	r.updateSky(s.Background)
	objects := r.prepareObjects(s)

	encoder := r.device.CreateCommandEncoder()
	r.encodeShadowPass(encoder, s, objects)
	r.encodeMainPass(encoder, s, cam, objects)
	r.device.Queue().Submit([]wasmgpu.GPUCommandBuffer{encoder.Finish()})
	return nil
}

func (r *Renderer) ensureShadowMap(size int) {
	if size <= 0 {
		size = 1
	}
	if r.shadowMap.matches(size, size) {
		return
	}
	r.shadowMap.destroy()
	r.shadowMap = newDepthTarget(r.device, size, size,
		wasmgpu.GPUTextureUsageFlagsRenderAttachment|wasmgpu.GPUTextureUsageFlagsTextureBinding)

	frame := wasmgpu.GPUBufferBinding{Buffer: r.frame.Buffer()}
	r.shadowFrameGroup = r.device.CreateBindGroup(wasmgpu.GPUBindGroupDescriptor{
		Layout:  r.shadowPipeline.GetBindGroupLayout(0),
		Entries: MakeGPUBindingGroupEntries(frame),
	})
	r.meshFrameGroup = r.device.CreateBindGroup(wasmgpu.GPUBindGroupDescriptor{
		Layout:  r.meshPipeline.GetBindGroupLayout(0),
		Entries: MakeGPUBindingGroupEntries(frame, r.shadowMap.view),
	})
	r.waterFrameGroup = r.device.CreateBindGroup(wasmgpu.GPUBindGroupDescriptor{
		Layout:  r.waterPipeline.GetBindGroupLayout(0),
		Entries: MakeGPUBindingGroupEntries(frame),
	})
}

func (r *Renderer) frameUniforms(s *scene.Scene, cam *scene.Camera) FrameUniforms {
	return FrameUniforms{
		ViewProj:         cam.ViewProjection(),
		ShadowMatrix:     s.Sun.ShadowMatrix(),
		CameraPos:        cam.Position,
		ShadowBias:       s.Sun.Shadow.Bias,
		LightDir:         s.Sun.Direction().Negate(),
		LightIntensity:   s.Sun.Intensity,
		LightColor:       s.Sun.Color,
		AmbientIntensity: s.Ambient.Intensity,
		AmbientColor:     s.Ambient.Color,
		ShadowMapSize:    uint32(r.shadowMap.width),
	}
}

func (r *Renderer) imageBuffer(img *scene.Image) GPUBuffer[uint32] {
	if buf, ok := r.images[img]; ok {
		return buf
	}
	buf := InitStorageBufferSlice(r.device, img.Pixels)
	r.images[img] = buf
	return buf
}

func (r *Renderer) meshBuffer(m *scene.Mesh) GPUBuffer[scene.Vertex] {
	if buf, ok := r.meshes[m]; ok {
		return buf
	}
	buf := InitVertexBufferSlice(r.device, m.Vertices)
	r.meshes[m] = buf
	return buf
}

// updateSky rebuilds the sky atlas once every face of bg has loaded.
func (r *Renderer) updateSky(bg *scene.CubeTexture) {
	if bg == nil || !bg.Complete() || bg.Faces == r.sky.faces {
		return
	}
	pixels, size, err := skyAtlasPixels(bg)
	if err != nil {
		r.logger.Printf("ignoring sky: %v", err)
		r.sky.faces = bg.Faces
		return
	}
	if r.sky.owned {
		r.sky.pixels.Destroy()
	}
	r.sky = skyAtlas{
		faces:    bg.Faces,
		pixels:   InitStorageBufferSlice(r.device, pixels),
		faceSize: size,
		owned:    true,
	}
	r.hasSkyGroup = false
}

func (r *Renderer) prepareObjects(s *scene.Scene) []objectKey {
	var keys []objectKey
	for _, o := range r.objects {
		o.seen = false
	}
	for _, n := range s.MeshNodes() {
		model := n.WorldMatrix()
		normal := model.Inv().Transpose()
		for _, m := range n.Meshes {
			if len(m.Vertices) == 0 {
				continue
			}
			key := objectKey{node: n, mesh: m}
			o := r.object(key)
			o.seen = true

			img := o.image
			var flags uint32
			if n.ReceiveShadow && s.Sun.CastShadow {
				flags |= flagReceiveShadow
			}
			o.uniforms.UpdateBufferStruct(ObjectUniforms{
				Model:        model,
				NormalMatrix: normal,
				Color:        m.Material.Color,
				MapWidth:     uint32(img.Width),
				MapHeight:    uint32(img.Height),
				Flags:        flags,
				Metalness:    m.Material.Metalness,
			})
			keys = append(keys, key)
		}
	}
	for key, o := range r.objects {
		if !o.seen {
			o.uniforms.Destroy()
			delete(r.objects, key)
		}
	}
	return keys
}

func (r *Renderer) object(key objectKey) *object {
	if o, ok := r.objects[key]; ok {
		return o
	}
	img := key.mesh.Material.Map
	if img == nil || len(img.Pixels) != img.Width*img.Height || img.Width == 0 {
		img = r.white
	}
	o := &object{
		uniforms: InitUniformBuffer(r.device, ObjectUniforms{}, WithCopyDstUsage()),
		image:    img,
	}
	uniforms := wasmgpu.GPUBufferBinding{Buffer: o.uniforms.Buffer()}
	o.litGroup = r.device.CreateBindGroup(wasmgpu.GPUBindGroupDescriptor{
		Layout:  r.meshPipeline.GetBindGroupLayout(1),
		Entries: MakeGPUBindingGroupEntries(uniforms, wasmgpu.GPUBufferBinding{Buffer: r.imageBuffer(img).Buffer()}),
	})
	o.shadowGroup = r.device.CreateBindGroup(wasmgpu.GPUBindGroupDescriptor{
		Layout:  r.shadowPipeline.GetBindGroupLayout(1),
		Entries: MakeGPUBindingGroupEntries(uniforms),
	})
	r.objects[key] = o
	return o
}

func (r *Renderer) drawObject(pass wasmgpu.GPURenderPassEncoder, key objectKey, group wasmgpu.GPUBindGroup) {
	pass.SetBindGroup(1, group, nil)
	BindVertexBuffer(pass, r.meshBuffer(key.mesh).Buffer())
	pass.Draw(wasmgpu.GPUSize32(len(key.mesh.Vertices)), opt.V(wasmgpu.GPUSize32(1)), unspecified, unspecified)
}

func (r *Renderer) encodeShadowPass(encoder wasmgpu.GPUCommandEncoder, s *scene.Scene, objects []objectKey) {
	pass := encoder.BeginRenderPass(wasmgpu.GPURenderPassDescriptor{
		DepthStencilAttachment: opt.V(depthAttachment(r.shadowMap.view)),
	})
	if s.Sun.CastShadow {
		pass.SetPipeline(r.shadowPipeline)
		pass.SetBindGroup(0, r.shadowFrameGroup, nil)
		for _, key := range objects {
			if key.node.CastShadow {
				r.drawObject(pass, key, r.objects[key].shadowGroup)
			}
		}
	}
	pass.End()
}

func (r *Renderer) encodeMainPass(encoder wasmgpu.GPUCommandEncoder, s *scene.Scene, cam *scene.Camera, objects []objectKey) {
	c := s.ClearColor
	pass := encoder.BeginRenderPass(wasmgpu.GPURenderPassDescriptor{
		ColorAttachments: []wasmgpu.GPURenderPassColorAttachment{
			{
				View: r.colorView,
				ClearValue: opt.V(wasmgpu.GPUColor{
					R: float64(c.X),
					G: float64(c.Y),
					B: float64(c.Z),
					A: float64(c.W),
				}),
				LoadOp:  wasmgpu.GPULoadOpClear,
				StoreOp: wasmgpu.GPUStoreOPStore,
			},
		},
		DepthStencilAttachment: opt.V(depthAttachment(r.depth.view)),
	})

	if r.sky.owned {
		r.drawSky(pass, cam)
	}

	pass.SetPipeline(r.meshPipeline)
	pass.SetBindGroup(0, r.meshFrameGroup, nil)
	for _, key := range objects {
		r.drawObject(pass, key, r.objects[key].litGroup)
	}

	if s.Water != nil && s.Water.Node != nil {
		r.drawWater(pass, s.Water)
	}
	pass.End()
}

func depthAttachment(view wasmgpu.GPUTextureView) wasmgpu.GPURenderPassDepthStencilAttachment {
	return wasmgpu.GPURenderPassDepthStencilAttachment{
		View:            view,
		DepthClearValue: opt.V(float32(1)),
		DepthLoadOp:     opt.V(wasmgpu.GPULoadOpClear),
		DepthStoreOp:    opt.V(wasmgpu.GPUStoreOPStore),
	}
}

func (r *Renderer) drawSky(pass wasmgpu.GPURenderPassEncoder, cam *scene.Camera) {
	// Rotation only, so the sky stays at infinity.
	view := cam.ViewMatrix()
	view.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
	r.skyParams.UpdateBufferStruct(SkyUniforms{
		InvViewProj: cam.ProjectionMatrix().Mul4(view).Inv(),
		FaceSize:    uint32(r.sky.faceSize),
	})
	if !r.hasSkyGroup {
		r.skyGroup = r.device.CreateBindGroup(wasmgpu.GPUBindGroupDescriptor{
			Layout: r.skyPipeline.GetBindGroupLayout(0),
			Entries: MakeGPUBindingGroupEntries(
				wasmgpu.GPUBufferBinding{Buffer: r.skyParams.Buffer()},
				wasmgpu.GPUBufferBinding{Buffer: r.sky.pixels.Buffer()},
			),
		})
		r.hasSkyGroup = true
	}
	pass.SetPipeline(r.skyPipeline)
	pass.SetBindGroup(0, r.skyGroup, nil)
	pass.Draw(3, opt.V(wasmgpu.GPUSize32(1)), unspecified, unspecified)
}

func (r *Renderer) drawWater(pass wasmgpu.GPURenderPassEncoder, w *scene.Water) {
	normals := w.NormalMap
	if normals == nil || normals.Width == 0 || len(normals.Pixels) != normals.Width*normals.Height {
		normals = r.flat
	}
	half := w.Size / 2
	var hasSky uint32
	if r.sky.owned {
		hasSky = 1
	}
	r.water.UpdateBufferStruct(WaterUniforms{
		Model:        w.Node.WorldMatrix().Mul4(mgl32.Scale3D(half, half, 1)),
		WaterColor:   w.WaterColor,
		Distortion:   w.DistortionScale,
		SunDir:       w.SunDirection,
		Time:         w.Time,
		SunColor:     w.SunColor,
		Alpha:        w.Alpha,
		NormalWidth:  uint32(normals.Width),
		NormalHeight: uint32(normals.Height),
		SkyFaceSize:  uint32(r.sky.faceSize),
		HasSky:       hasSky,
	})

	key := waterResources{normals: normals, sky: r.sky.faces}
	if r.waterGroupFor.normals == nil || key != r.waterGroupFor {
		r.waterGroup = r.device.CreateBindGroup(wasmgpu.GPUBindGroupDescriptor{
			Layout: r.waterPipeline.GetBindGroupLayout(1),
			Entries: MakeGPUBindingGroupEntries(
				wasmgpu.GPUBufferBinding{Buffer: r.water.Buffer()},
				wasmgpu.GPUBufferBinding{Buffer: r.imageBuffer(normals).Buffer()},
				wasmgpu.GPUBufferBinding{Buffer: r.sky.pixels.Buffer()},
			),
		})
		r.waterGroupFor = key
	}

	pass.SetPipeline(r.waterPipeline)
	pass.SetBindGroup(0, r.waterFrameGroup, nil)
	pass.SetBindGroup(1, r.waterGroup, nil)
	BindVertexBuffer(pass, r.waterQuad.Buffer())
	pass.Draw(6, opt.V(wasmgpu.GPUSize32(1)), unspecified, unspecified)
}
