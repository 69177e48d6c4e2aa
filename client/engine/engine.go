//go:build js && wasm

// Package engine renders a scene.Scene with WebGPU.
package engine

import (
	"strings"
	"syscall/js"

	"github.com/fabioarnold/blobbyvolley2/client/browser"
	"github.com/fabioarnold/blobbyvolley2/common/wgsltypes"
	"github.com/mokiat/wasmgpu"
)

// InitRenderCallback calls update on every animation frame with the frame's
// timestamp in milliseconds.
func InitRenderCallback(update func(nowMs float64)) {
	var frame js.Func
	frame = js.FuncOf(func(this js.Value, args []js.Value) any {
		now := browser.PerformanceNow()
		if len(args) > 0 {
			now = args[0].Float()
		}
		update(now)
		browser.Window().RequestAnimationFrame(frame)
		return nil
	})
	browser.Window().RequestAnimationFrame(frame)
}

// InitShaderModule compiles code with the WGSL definitions of structs and
// any shared snippets prepended.
func InitShaderModule(device wasmgpu.GPUDevice, code string, structs []wgsltypes.Struct, snippets ...string) wasmgpu.GPUShaderModule {
	defs := make([]string, 0, len(structs)+len(snippets))
	for _, s := range structs {
		defs = append(defs, s.ToWGSL())
	}
	defs = append(defs, snippets...)
	prologue := strings.Join(defs, "\n")

	return device.CreateShaderModule(wasmgpu.GPUShaderModuleDescriptor{
		Code: prologue + "\n" + code,
	})
}
