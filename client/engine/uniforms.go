package engine

import (
	"fmt"

	"github.com/fabioarnold/blobbyvolley2/client/scene"
	"github.com/fabioarnold/blobbyvolley2/common/vmath"
	"github.com/fabioarnold/blobbyvolley2/common/wgsltypes"
	"github.com/go-gl/mathgl/mgl32"
)

// FrameUniforms are shared by every pass of a frame.
type FrameUniforms struct {
	ViewProj         mgl32.Mat4
	ShadowMatrix     mgl32.Mat4
	CameraPos        vmath.V3
	ShadowBias       float32
	LightDir         vmath.V3
	LightIntensity   float32
	LightColor       vmath.V3
	AmbientIntensity float32
	AmbientColor     vmath.V3
	ShadowMapSize    uint32
}

// ObjectUniforms describe one mesh instance.
type ObjectUniforms struct {
	Model        mgl32.Mat4
	NormalMatrix mgl32.Mat4
	Color        vmath.V4
	MapWidth     uint32
	MapHeight    uint32
	Flags        uint32
	Metalness    float32
}

// ObjectUniforms.Flags bits.
const (
	flagReceiveShadow = 1 << iota
)

type WaterUniforms struct {
	Model        mgl32.Mat4
	WaterColor   vmath.V3
	Distortion   float32
	SunDir       vmath.V3
	Time         float32
	SunColor     vmath.V3
	Alpha        float32
	NormalWidth  uint32
	NormalHeight uint32
	SkyFaceSize  uint32
	HasSky       uint32
}

type SkyUniforms struct {
	InvViewProj mgl32.Mat4
	FaceSize    uint32
	Pad0        uint32
	Pad1        uint32
	Pad2        uint32
}

var (
	frameStruct  = mustHostShareable(wgsltypes.MustRegisterStruct[FrameUniforms]())
	objectStruct = mustHostShareable(wgsltypes.MustRegisterStruct[ObjectUniforms]())
	waterStruct  = mustHostShareable(wgsltypes.MustRegisterStruct[WaterUniforms]())
	skyStruct    = mustHostShareable(wgsltypes.MustRegisterStruct[SkyUniforms]())
	vertexStruct = wgsltypes.MustRegisterStruct[scene.Vertex]()
)

func mustHostShareable(s wgsltypes.Struct) wgsltypes.Struct {
	if err := s.CheckHostShareable(); err != nil {
		panic(fmt.Sprintf("uniform layout: %v", err))
	}
	return s
}
