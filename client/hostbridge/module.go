package hostbridge

import (
	"context"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// ModuleName is the import module name the guest uses for all host functions.
const ModuleName = "env"

const (
	FuncConsoleLog     = "consoleLog"
	FuncLogWrite       = "wasm_log_write"
	FuncLogFlush       = "wasm_log_flush"
	FuncPerformanceNow = "performanceNow"
	FuncDateNow        = "dateNow"
	FuncDownload       = "download"
)

// Instantiate registers the bridge as the "env" module of r.
func (b *Bridge) Instantiate(ctx context.Context, r wazero.Runtime) (api.Closer, error) {
	builder := r.NewHostModuleBuilder(ModuleName)
	b.ExportFunctions(builder)
	return builder.Instantiate(ctx)
}

// ExportFunctions adds the bridge's functions to builder, for hosts that
// need to add more "env" functions of their own.
func (b *Bridge) ExportFunctions(builder wazero.HostModuleBuilder) {
	builder.NewFunctionBuilder().
		WithFunc(func(_ context.Context, m api.Module, ptr, length uint32) {
			b.ConsoleLog(m.Memory(), ptr, length)
		}).
		WithParameterNames("ptr", "len").
		Export(FuncConsoleLog)

	builder.NewFunctionBuilder().
		WithFunc(func(_ context.Context, m api.Module, ptr, length uint32) {
			b.LogWrite(m.Memory(), ptr, length)
		}).
		WithParameterNames("ptr", "len").
		Export(FuncLogWrite)

	builder.NewFunctionBuilder().
		WithFunc(func(context.Context) {
			b.LogFlush()
		}).
		Export(FuncLogFlush)

	builder.NewFunctionBuilder().
		WithFunc(func(context.Context) float64 {
			return b.NowMonotonic()
		}).
		Export(FuncPerformanceNow)

	builder.NewFunctionBuilder().
		WithFunc(func(context.Context) float64 {
			return b.NowWall()
		}).
		Export(FuncDateNow)

	builder.NewFunctionBuilder().
		WithFunc(func(_ context.Context, m api.Module, namePtr, nameLen, mimePtr, mimeLen, dataPtr, dataLen uint32) {
			b.Download(m.Memory(), namePtr, nameLen, mimePtr, mimeLen, dataPtr, dataLen)
		}).
		WithParameterNames("filename_ptr", "filename_len", "mimetype_ptr", "mimetype_len", "data_ptr", "data_len").
		Export(FuncDownload)

	for _, name := range MathFuncNames() {
		builder.NewFunctionBuilder().
			WithFunc(mathFuncs[name]).
			Export(name)
	}
}

// MathFuncNames lists the exported math intrinsics in sorted order.
func MathFuncNames() []string {
	names := make([]string, 0, len(mathFuncs))
	for name := range mathFuncs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
