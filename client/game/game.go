// Package game hosts the compiled game module: it instantiates the module
// against the host bridge and calls its exports once per frame.
package game

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/fabioarnold/blobbyvolley2/client/hostbridge"
	"github.com/fabioarnold/blobbyvolley2/client/presenter"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Exports the host calls. All of them are optional.
const (
	ExportInit        = "init"
	ExportFrame       = "on_animation_frame"
	ExportResize      = "on_resize"
	ExportRenderState = "render_state"
)

// snapshotSize is the size of the render state render_state points to: four
// little endian float32s.
const snapshotSize = 16

var exportSignatures = map[string]struct{ params, results []api.ValueType }{
	ExportInit:        {},
	ExportFrame:       {params: []api.ValueType{api.ValueTypeF64}},
	ExportResize:      {params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}},
	ExportRenderState: {results: []api.ValueType{api.ValueTypeI32}},
}

type Config struct {
	// Name is the module name the guest is instantiated under.
	Name string
	// WASI instantiates wasi_snapshot_preview1 for modules built against it.
	WASI bool
	// Interpreter forces wazero's interpreter even where its compiler works.
	Interpreter bool
	// Stdout and Stderr receive WASI output. Nil discards it.
	Stdout, Stderr io.Writer
}

// Module is an instantiated game module. Its methods must not be called
// concurrently.
type Module struct {
	runtime wazero.Runtime
	guest   api.Module

	init        api.Function
	frame       api.Function
	resize      api.Function
	renderState api.Function
}

// Load compiles and instantiates wasm with bridge as its "env" imports, then
// calls its init export if there is one.
func Load(ctx context.Context, bridge *hostbridge.Bridge, wasm []byte, cfg Config) (*Module, error) {
	rcfg := wazero.NewRuntimeConfig()
	if cfg.Interpreter {
		rcfg = wazero.NewRuntimeConfigInterpreter()
	}
	r := wazero.NewRuntimeWithConfig(ctx, rcfg)

	m, err := instantiate(ctx, r, bridge, wasm, cfg)
	if err != nil {
		r.Close(ctx)
		return nil, err
	}
	if m.init != nil {
		if _, err := m.init.Call(ctx); err != nil {
			r.Close(ctx)
			return nil, fmt.Errorf("calling %s: %v", ExportInit, err)
		}
	}
	return m, nil
}

func instantiate(ctx context.Context, r wazero.Runtime, bridge *hostbridge.Bridge, wasm []byte, cfg Config) (*Module, error) {
	if cfg.WASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
			return nil, fmt.Errorf("instantiating WASI: %v", err)
		}
	}
	if _, err := bridge.Instantiate(ctx, r); err != nil {
		return nil, fmt.Errorf("instantiating host bridge: %v", err)
	}

	compiled, err := r.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("compiling game module: %v", err)
	}
	mcfg := wazero.NewModuleConfig().
		WithName(cfg.Name).
		WithStartFunctions("_initialize")
	if cfg.WASI {
		mcfg = mcfg.WithSysWalltime().WithSysNanotime()
		if cfg.Stdout != nil {
			mcfg = mcfg.WithStdout(cfg.Stdout)
		}
		if cfg.Stderr != nil {
			mcfg = mcfg.WithStderr(cfg.Stderr)
		}
	}
	guest, err := r.InstantiateModule(ctx, compiled, mcfg)
	if err != nil {
		return nil, fmt.Errorf("instantiating game module: %v", err)
	}

	m := &Module{runtime: r, guest: guest}
	for name, fn := range map[string]*api.Function{
		ExportInit:        &m.init,
		ExportFrame:       &m.frame,
		ExportResize:      &m.resize,
		ExportRenderState: &m.renderState,
	} {
		if *fn, err = export(guest, name); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// export returns the named function or nil if the guest doesn't export it.
func export(guest api.Module, name string) (api.Function, error) {
	fn := guest.ExportedFunction(name)
	if fn == nil {
		return nil, nil
	}
	want := exportSignatures[name]
	def := fn.Definition()
	if !slices.Equal(def.ParamTypes(), want.params) || !slices.Equal(def.ResultTypes(), want.results) {
		return nil, fmt.Errorf("export %s has signature %v -> %v, want %v -> %v",
			name, def.ParamTypes(), def.ResultTypes(), want.params, want.results)
	}
	return fn, nil
}

// Frame advances the game to nowMs, a monotonic millisecond timestamp.
func (m *Module) Frame(ctx context.Context, nowMs float64) error {
	if m.frame == nil {
		return nil
	}
	if _, err := m.frame.Call(ctx, api.EncodeF64(nowMs)); err != nil {
		return fmt.Errorf("calling %s: %v", ExportFrame, err)
	}
	return nil
}

// Resize tells the game the canvas size in CSS pixels, before the device
// pixel ratio is applied. The browser client passes window.innerWidth and
// innerHeight.
func (m *Module) Resize(ctx context.Context, width, height int) error {
	if m.resize == nil {
		return nil
	}
	if _, err := m.resize.Call(ctx, api.EncodeI32(int32(width)), api.EncodeI32(int32(height))); err != nil {
		return fmt.Errorf("calling %s: %v", ExportResize, err)
	}
	return nil
}

// Snapshot reads the game's current render state. A module without a
// render_state export always yields the zero Snapshot.
func (m *Module) Snapshot(ctx context.Context) (presenter.Snapshot, error) {
	if m.renderState == nil {
		return presenter.Snapshot{}, nil
	}
	res, err := m.renderState.Call(ctx)
	if err != nil {
		return presenter.Snapshot{}, fmt.Errorf("calling %s: %v", ExportRenderState, err)
	}
	ptr := api.DecodeU32(res[0])
	mem := m.guest.Memory()
	if mem == nil {
		return presenter.Snapshot{}, fmt.Errorf("%s: module has no memory", ExportRenderState)
	}
	buf, ok := mem.Read(ptr, snapshotSize)
	if !ok {
		return presenter.Snapshot{}, fmt.Errorf("%s: pointer %#x out of range", ExportRenderState, ptr)
	}
	return decodeSnapshot(buf), nil
}

func decodeSnapshot(b []byte) presenter.Snapshot {
	f := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return presenter.Snapshot{
		Ball: presenter.Ball{X: f(0), Y: f(1), Rotation: f(2)},
		Menu: presenter.Menu{Alpha: f(3)},
	}
}

// Memory exposes the guest's linear memory, or nil if it has none.
func (m *Module) Memory() api.Memory { return m.guest.Memory() }

// Close releases the runtime and everything instantiated in it.
func (m *Module) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}
