package hostbridge

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fabioarnold/blobbyvolley2/internal/wasmtest"
	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

func newRuntimeWithBridge(t *testing.T, b *Bridge) (context.Context, wazero.Runtime) {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { r.Close(ctx) })
	if _, err := b.Instantiate(ctx, r); err != nil {
		t.Fatalf("Instantiate() failed: %v", err)
	}
	return ctx, r
}

// loggingGuest imports the buffered log functions and exports "run", which
// writes "hi" from its data segment and flushes.
var loggingGuest = wasmtest.Module(
	wasmtest.TypeSection(
		wasmtest.FuncType{Params: []byte{wasmtest.I32, wasmtest.I32}},
		wasmtest.FuncType{},
	),
	wasmtest.ImportSection(
		wasmtest.Import{Module: ModuleName, Name: FuncLogWrite, TypeIndex: 0},
		wasmtest.Import{Module: ModuleName, Name: FuncLogFlush, TypeIndex: 1},
	),
	wasmtest.FunctionSection(1),
	wasmtest.MemorySection(1),
	wasmtest.ExportSection(
		wasmtest.Export{Name: "run", Kind: wasmtest.ExportFunc, Index: 2},
		wasmtest.Export{Name: "memory", Kind: wasmtest.ExportMemory, Index: 0},
	),
	wasmtest.CodeSection(wasmtest.Seq(
		wasmtest.I32Const(0), wasmtest.I32Const(2), wasmtest.Call(0),
		wasmtest.I32Const(0), wasmtest.I32Const(2), wasmtest.Call(0),
		wasmtest.Call(1),
	)),
	wasmtest.DataSection(wasmtest.Data{Offset: 0, Bytes: []byte("hi")}),
)

// badPointerGuest calls consoleLog with a range outside its memory.
var badPointerGuest = wasmtest.Module(
	wasmtest.TypeSection(
		wasmtest.FuncType{Params: []byte{wasmtest.I32, wasmtest.I32}},
		wasmtest.FuncType{},
	),
	wasmtest.ImportSection(
		wasmtest.Import{Module: ModuleName, Name: FuncConsoleLog, TypeIndex: 0},
	),
	wasmtest.FunctionSection(1),
	wasmtest.MemorySection(1),
	wasmtest.ExportSection(
		wasmtest.Export{Name: "run", Kind: wasmtest.ExportFunc, Index: 1},
	),
	wasmtest.CodeSection(wasmtest.Seq(
		wasmtest.I32Const(0x10000), wasmtest.I32Const(16), wasmtest.Call(0),
	)),
)

func TestGuestBufferedLogging(t *testing.T) {
	b, out := newTestBridge()
	ctx, r := newRuntimeWithBridge(t, b)

	mod, err := r.Instantiate(ctx, loggingGuest)
	if err != nil {
		t.Fatalf("Instantiate(guest) failed: %v", err)
	}
	if _, err := mod.ExportedFunction("run").Call(ctx); err != nil {
		t.Fatalf("run() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"hihi"}, lines(out)); diff != "" {
		t.Errorf("guest log output mismatch (-want +got):\n%s", diff)
	}
}

func TestGuestBadPointerTraps(t *testing.T) {
	b, out := newTestBridge()
	ctx, r := newRuntimeWithBridge(t, b)

	mod, err := r.Instantiate(ctx, badPointerGuest)
	if err != nil {
		t.Fatalf("Instantiate(guest) failed: %v", err)
	}
	if _, err := mod.ExportedFunction("run").Call(ctx); err == nil {
		t.Errorf("run() = nil error, want a trap")
	}
	if got := out.String(); got != "" {
		t.Errorf("output = %q, want none", got)
	}
}

// mathSignatures lists each intrinsic with its C signature as a wasm type.
var mathSignatures = []struct {
	name string
	typ  wasmtest.FuncType
}{
	{"fmodf", wasmtest.FuncType{Params: []byte{wasmtest.F32, wasmtest.F32}, Results: []byte{wasmtest.F32}}},
	{"sinf", wasmtest.FuncType{Params: []byte{wasmtest.F32}, Results: []byte{wasmtest.F32}}},
	{"cosf", wasmtest.FuncType{Params: []byte{wasmtest.F32}, Results: []byte{wasmtest.F32}}},
	{"roundf", wasmtest.FuncType{Params: []byte{wasmtest.F32}, Results: []byte{wasmtest.F32}}},
	{"expf", wasmtest.FuncType{Params: []byte{wasmtest.F32}, Results: []byte{wasmtest.F32}}},
	{"fabs", wasmtest.FuncType{Params: []byte{wasmtest.F64}, Results: []byte{wasmtest.F64}}},
	{"abs", wasmtest.FuncType{Params: []byte{wasmtest.I32}, Results: []byte{wasmtest.I32}}},
	{"sqrt", wasmtest.FuncType{Params: []byte{wasmtest.F64}, Results: []byte{wasmtest.F64}}},
	{"pow", wasmtest.FuncType{Params: []byte{wasmtest.F64, wasmtest.F64}, Results: []byte{wasmtest.F64}}},
	{"ceil", wasmtest.FuncType{Params: []byte{wasmtest.F64}, Results: []byte{wasmtest.F64}}},
	{"ldexp", wasmtest.FuncType{Params: []byte{wasmtest.F64, wasmtest.I32}, Results: []byte{wasmtest.F64}}},
}

// mathGuest imports every intrinsic from "env" and exports a wrapper for
// each under the same name that forwards its parameters.
func mathGuest() []byte {
	n := uint32(len(mathSignatures))
	var (
		types   []wasmtest.FuncType
		imports []wasmtest.Import
		funcs   []uint32
		exports []wasmtest.Export
		bodies  [][]byte
	)
	for i, sig := range mathSignatures {
		idx := uint32(i)
		types = append(types, sig.typ)
		imports = append(imports, wasmtest.Import{Module: ModuleName, Name: sig.name, TypeIndex: idx})
		funcs = append(funcs, idx)
		exports = append(exports, wasmtest.Export{Name: sig.name, Kind: wasmtest.ExportFunc, Index: n + idx})
		var body []byte
		for p := range sig.typ.Params {
			body = append(body, wasmtest.LocalGet(uint32(p))...)
		}
		bodies = append(bodies, wasmtest.Seq(body, wasmtest.Call(idx)))
	}
	return wasmtest.Module(
		wasmtest.TypeSection(types...),
		wasmtest.ImportSection(imports...),
		wasmtest.FunctionSection(funcs...),
		wasmtest.ExportSection(exports...),
		wasmtest.CodeSection(bodies...),
	)
}

func TestMathFuncs(t *testing.T) {
	b, _ := newTestBridge()
	ctx, r := newRuntimeWithBridge(t, b)
	guest, err := r.Instantiate(ctx, mathGuest())
	if err != nil {
		t.Fatalf("Instantiate(guest) failed: %v", err)
	}

	call := func(name string, params ...uint64) uint64 {
		t.Helper()
		fn := guest.ExportedFunction(name)
		if fn == nil {
			t.Fatalf("%s not exported", name)
		}
		res, err := fn.Call(ctx, params...)
		if err != nil {
			t.Fatalf("%s failed: %v", name, err)
		}
		return res[0]
	}
	f32 := api.EncodeF32
	f64 := api.EncodeF64
	i32 := func(v int32) uint64 { return api.EncodeI32(v) }

	tests := []struct {
		name string
		got  any
		want any
	}{
		{name: "fmodf", got: api.DecodeF32(call("fmodf", f32(-7.5), f32(2))), want: float32(-1.5)},
		{name: "sinf", got: api.DecodeF32(call("sinf", f32(1))), want: float32(math.Sin(1))},
		{name: "cosf", got: api.DecodeF32(call("cosf", f32(1))), want: float32(math.Cos(1))},
		{name: "roundf half away from zero", got: api.DecodeF32(call("roundf", f32(-2.5))), want: float32(-3)},
		{name: "expf", got: api.DecodeF32(call("expf", f32(1))), want: float32(math.E)},
		{name: "fabs", got: api.DecodeF64(call("fabs", f64(-0.25))), want: 0.25},
		{name: "abs", got: int32(call("abs", i32(-42))), want: int32(42)},
		{name: "sqrt", got: api.DecodeF64(call("sqrt", f64(2))), want: math.Sqrt2},
		{name: "pow", got: api.DecodeF64(call("pow", f64(2), f64(10))), want: 1024.0},
		{name: "ceil", got: api.DecodeF64(call("ceil", f64(-1.5))), want: -1.0},
		{name: "ldexp", got: api.DecodeF64(call("ldexp", f64(0.75), i32(4))), want: 12.0},
		{name: "ldexp negative exponent", got: api.DecodeF64(call("ldexp", f64(1), i32(-1074))), want: math.SmallestNonzeroFloat64},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, tc.got); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", tc.name, diff)
			}
		})
	}

	want := []string{"abs", "ceil", "cosf", "expf", "fabs", "fmodf", "ldexp", "pow", "roundf", "sinf", "sqrt"}
	if diff := cmp.Diff(want, MathFuncNames()); diff != "" {
		t.Errorf("MathFuncNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestDirDownloader(t *testing.T) {
	dir := t.TempDir()
	d := DirDownloader{Dir: filepath.Join(dir, "downloads")}

	if err := d.Download("../../escape.txt", "text/plain", []byte("data")); err != nil {
		t.Fatalf("Download() failed: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "downloads", "escape.txt"))
	if err != nil {
		t.Fatalf("reading download: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("download content = %q, want %q", got, "data")
	}

	if err := d.Download("", "text/plain", nil); err == nil {
		t.Errorf("Download(\"\") = nil error, want error")
	}
}
