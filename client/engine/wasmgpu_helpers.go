//go:build js && wasm

package engine

import (
	"fmt"

	"github.com/fabioarnold/blobbyvolley2/common/wgsltypes"
	"github.com/mokiat/gog/opt"
	"github.com/mokiat/wasmgpu"
)

var vertexFormatTypeMap = map[wgsltypes.TypeName]wasmgpu.GPUVertexFormat{
	"f32":       wasmgpu.GPUVertexFormatFloat32,
	"vec2<f32>": wasmgpu.GPUVertexFormatFloat32x2,
	"vec3<f32>": wasmgpu.GPUVertexFormatFloat32x3,
	"vec4<f32>": wasmgpu.GPUVertexFormatFloat32x4,
}

func makeGPUVertexAttribute(shaderLocation int, s wgsltypes.Struct, fieldName string) wasmgpu.GPUVertexAttribute {
	field, ok := s.FieldMap[fieldName]
	if !ok {
		panic(fmt.Sprintf("field %s.%s does not exist", s.Name, fieldName))
	}
	return wasmgpu.GPUVertexAttribute{
		ShaderLocation: wasmgpu.GPUIndex32(shaderLocation),
		Format:         mustFormatFromFieldType(field.WGSLType.Name),
		Offset:         wasmgpu.GPUSize64(s.MustOffsetOf(fieldName)),
	}
}

func mustFormatFromFieldType(fieldType wgsltypes.TypeName) wasmgpu.GPUVertexFormat {
	format, ok := vertexFormatTypeMap[fieldType]
	if !ok {
		panic("unhandled wgsltype: " + fieldType)
	}
	return format
}

// VertexLayout reads the named fields of one interleaved vertex buffer of s,
// at shader locations 0, 1, ... in the order given.
type VertexLayout struct {
	Layout []wasmgpu.GPUVertexBufferLayout
}

func NewVertexLayout(s wgsltypes.Struct, fieldNames ...string) VertexLayout {
	layout := wasmgpu.GPUVertexBufferLayout{
		ArrayStride: wasmgpu.GPUSize64(s.Size),
		StepMode:    opt.V(wasmgpu.GPUVertexStepModeVertex),
	}
	for idx, name := range fieldNames {
		layout.Attributes = append(layout.Attributes, makeGPUVertexAttribute(idx, s, name))
	}
	return VertexLayout{Layout: []wasmgpu.GPUVertexBufferLayout{layout}}
}

// BindVertexBuffer binds buffer to slot 0 of the pass.
func BindVertexBuffer(passEncoder wasmgpu.GPURenderPassEncoder, buffer wasmgpu.GPUBuffer) {
	unspecified := opt.Unspecified[wasmgpu.GPUSize64]()
	passEncoder.SetVertexBuffer(0, buffer, unspecified, unspecified)
}

// MakeGPUBindingGroupEntries binds resources to consecutive binding indices
// starting at 0.
func MakeGPUBindingGroupEntries(resources ...wasmgpu.GPUBindingResource) []wasmgpu.GPUBindGroupEntry {
	entries := make([]wasmgpu.GPUBindGroupEntry, len(resources))
	for idx, resource := range resources {
		entries[idx] = wasmgpu.GPUBindGroupEntry{
			Binding:  wasmgpu.GPUIndex32(idx),
			Resource: resource,
		}
	}
	return entries
}
