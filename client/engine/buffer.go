//go:build js && wasm

package engine

import (
	"syscall/js"

	"github.com/mokiat/gog/opt"
	"github.com/mokiat/wasmgpu"
)

// GPUBuffer is a GPU buffer holding one T or a slice of them.
type GPUBuffer[T any] struct {
	device wasmgpu.GPUDevice
	buffer wasmgpu.GPUBuffer
	size   int
}

func (b GPUBuffer[T]) Buffer() wasmgpu.GPUBuffer {
	return b.buffer
}

func (b GPUBuffer[T]) BufferSize() wasmgpu.GPUSize64 {
	return wasmgpu.GPUSize64(b.size)
}

// Len returns how many Ts fit in the buffer.
func (b GPUBuffer[T]) Len() int {
	var zero T
	return b.size / len(structAsByteSlice(zero))
}

// UpdateBufferStruct overwrites the buffer with value. The buffer needs
// WithCopyDstUsage.
func (b GPUBuffer[T]) UpdateBufferStruct(value T) {
	b.device.Queue().WriteBuffer(b.buffer, 0, structAsByteSlice(value))
}

func (b GPUBuffer[T]) Destroy() {
	b.buffer.Destroy()
}

func initBuffer(device wasmgpu.GPUDevice, usage wasmgpu.GPUBufferUsageFlags, data []byte, opts ...BufferOption) wasmgpu.GPUBuffer {
	desc := wasmgpu.GPUBufferDescriptor{
		Size:             wasmgpu.GPUSize64(alignTo4(len(data))),
		Usage:            usage,
		MappedAtCreation: opt.V(true),
	}
	for _, opt := range opts {
		opt(&desc)
	}
	buffer := device.CreateBuffer(desc)
	js.CopyBytesToJS(uint8ArrayCtor.New(buffer.GetMappedRange(0, 0)), data)
	buffer.Unmap()
	return buffer
}

// alignTo4 rounds n up to the 4 byte multiple mapped buffers require.
func alignTo4(n int) int {
	return (n + 3) &^ 3
}

func InitStorageBufferSlice[T any](device wasmgpu.GPUDevice, values []T, opts ...BufferOption) GPUBuffer[T] {
	data := sliceAsBytesSlice(values)
	buffer := initBuffer(device, wasmgpu.GPUBufferUsageFlagsStorage, data, opts...)
	return GPUBuffer[T]{
		device: device,
		buffer: buffer,
		size:   len(data),
	}
}

func InitVertexBufferSlice[T any](device wasmgpu.GPUDevice, values []T, opts ...BufferOption) GPUBuffer[T] {
	data := sliceAsBytesSlice(values)
	buffer := initBuffer(device, wasmgpu.GPUBufferUsageFlagsVertex, data, opts...)
	return GPUBuffer[T]{
		device: device,
		buffer: buffer,
		size:   len(data),
	}
}

func InitUniformBuffer[T any](device wasmgpu.GPUDevice, value T, opts ...BufferOption) GPUBuffer[T] {
	data := structAsByteSlice(value)
	buffer := initBuffer(device, wasmgpu.GPUBufferUsageFlagsUniform, data, opts...)
	return GPUBuffer[T]{
		device: device,
		buffer: buffer,
		size:   len(data),
	}
}
