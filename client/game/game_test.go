package game

import (
	"bytes"
	"context"
	"encoding/binary"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/fabioarnold/blobbyvolley2/client/hostbridge"
	"github.com/fabioarnold/blobbyvolley2/client/presenter"
	"github.com/fabioarnold/blobbyvolley2/internal/wasmtest"
	"github.com/google/go-cmp/cmp"
)

const (
	stateOffset  = 16
	resizeOffset = 32
	frameOffset  = 40
)

func float32s(vs ...float32) []byte {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// gameGuest logs "ready" from init, reports a fixed render state and records
// the arguments of on_resize and on_animation_frame in its memory.
var gameGuest = wasmtest.Module(
	wasmtest.TypeSection(
		wasmtest.FuncType{Params: []byte{wasmtest.I32, wasmtest.I32}},
		wasmtest.FuncType{},
		wasmtest.FuncType{Results: []byte{wasmtest.I32}},
		wasmtest.FuncType{Params: []byte{wasmtest.F64}},
	),
	wasmtest.ImportSection(
		wasmtest.Import{Module: hostbridge.ModuleName, Name: hostbridge.FuncLogWrite, TypeIndex: 0},
		wasmtest.Import{Module: hostbridge.ModuleName, Name: hostbridge.FuncLogFlush, TypeIndex: 1},
	),
	wasmtest.FunctionSection(1, 2, 3, 0),
	wasmtest.MemorySection(1),
	wasmtest.ExportSection(
		wasmtest.Export{Name: "memory", Kind: wasmtest.ExportMemory, Index: 0},
		wasmtest.Export{Name: ExportInit, Kind: wasmtest.ExportFunc, Index: 2},
		wasmtest.Export{Name: ExportRenderState, Kind: wasmtest.ExportFunc, Index: 3},
		wasmtest.Export{Name: ExportFrame, Kind: wasmtest.ExportFunc, Index: 4},
		wasmtest.Export{Name: ExportResize, Kind: wasmtest.ExportFunc, Index: 5},
	),
	wasmtest.CodeSection(
		wasmtest.Seq(wasmtest.I32Const(0), wasmtest.I32Const(5), wasmtest.Call(0), wasmtest.Call(1)),
		wasmtest.I32Const(stateOffset),
		wasmtest.Seq(wasmtest.I32Const(frameOffset), wasmtest.LocalGet(0), wasmtest.F64Store(0)),
		wasmtest.Seq(
			wasmtest.I32Const(resizeOffset), wasmtest.LocalGet(0), wasmtest.I32Store(0),
			wasmtest.I32Const(resizeOffset), wasmtest.LocalGet(1), wasmtest.I32Store(4),
		),
	),
	wasmtest.DataSection(
		wasmtest.Data{Offset: 0, Bytes: []byte("ready")},
		wasmtest.Data{Offset: stateOffset, Bytes: float32s(400, 300, 0.5, 1)},
	),
)

// emptyGuest exports nothing.
var emptyGuest = wasmtest.Module()

// badStateGuest's render_state points past the end of its memory.
var badStateGuest = wasmtest.Module(
	wasmtest.TypeSection(wasmtest.FuncType{Results: []byte{wasmtest.I32}}),
	wasmtest.FunctionSection(0),
	wasmtest.MemorySection(1),
	wasmtest.ExportSection(wasmtest.Export{Name: ExportRenderState, Kind: wasmtest.ExportFunc, Index: 0}),
	wasmtest.CodeSection(wasmtest.I32Const(0x10000-8)),
)

// wrongSignatureGuest exports on_resize without parameters.
var wrongSignatureGuest = wasmtest.Module(
	wasmtest.TypeSection(wasmtest.FuncType{}),
	wasmtest.FunctionSection(0),
	wasmtest.ExportSection(wasmtest.Export{Name: ExportResize, Kind: wasmtest.ExportFunc, Index: 0}),
	wasmtest.CodeSection(nil),
)

func load(t *testing.T, wasm []byte) (*Module, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	b := hostbridge.New(hostbridge.WithLogger(log.New(&logs, "", 0)))
	ctx := context.Background()
	m, err := Load(ctx, b, wasm, Config{Name: "game"})
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	t.Cleanup(func() { m.Close(ctx) })
	return m, &logs
}

func TestLoadCallsInit(t *testing.T) {
	_, logs := load(t, gameGuest)
	if diff := cmp.Diff("ready\n", logs.String()); diff != "" {
		t.Errorf("log output mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshot(t *testing.T) {
	m, _ := load(t, gameGuest)
	got, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() = %v", err)
	}
	want := presenter.Snapshot{
		Ball: presenter.Ball{X: 400, Y: 300, Rotation: 0.5},
		Menu: presenter.Menu{Alpha: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameAndResize(t *testing.T) {
	m, _ := load(t, gameGuest)
	ctx := context.Background()
	if err := m.Resize(ctx, 1280, 720); err != nil {
		t.Fatalf("Resize() = %v", err)
	}
	if err := m.Frame(ctx, 16.5); err != nil {
		t.Fatalf("Frame() = %v", err)
	}

	mem := m.Memory()
	w, _ := mem.ReadUint32Le(resizeOffset)
	h, _ := mem.ReadUint32Le(resizeOffset + 4)
	if w != 1280 || h != 720 {
		t.Errorf("guest saw size %dx%d, want 1280x720", w, h)
	}
	now, _ := mem.ReadFloat64Le(frameOffset)
	if now != 16.5 {
		t.Errorf("guest saw time %v, want 16.5", now)
	}
}

func TestMissingExports(t *testing.T) {
	m, logs := load(t, emptyGuest)
	ctx := context.Background()
	if err := m.Frame(ctx, 1); err != nil {
		t.Errorf("Frame() = %v", err)
	}
	if err := m.Resize(ctx, 1, 1); err != nil {
		t.Errorf("Resize() = %v", err)
	}
	got, err := m.Snapshot(ctx)
	if err != nil {
		t.Errorf("Snapshot() = %v", err)
	}
	if diff := cmp.Diff(presenter.Snapshot{}, got); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
	if logs.Len() != 0 {
		t.Errorf("unexpected log output %q", logs.String())
	}
}

func TestSnapshotOutOfRange(t *testing.T) {
	m, _ := load(t, badStateGuest)
	if _, err := m.Snapshot(context.Background()); err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Errorf("Snapshot() = %v, want out of range error", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		wasm []byte
		want string
	}{
		{name: "garbage", wasm: []byte("not wasm"), want: "compiling"},
		{name: "wrong signature", wasm: wrongSignatureGuest, want: "on_resize"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(context.Background(), hostbridge.New(), tc.wasm, Config{Interpreter: true})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Load() = %v, want error containing %q", err, tc.want)
			}
		})
	}
}

func TestLoadWithWASI(t *testing.T) {
	ctx := context.Background()
	m, err := Load(ctx, hostbridge.New(), gameGuest, Config{WASI: true, Interpreter: true})
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	defer m.Close(ctx)
	if _, err := m.Snapshot(ctx); err != nil {
		t.Errorf("Snapshot() = %v", err)
	}
}
