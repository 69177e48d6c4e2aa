// Package wasmtest assembles tiny WebAssembly binaries for tests, so host
// functions can be exercised by real guest code without a toolchain.
package wasmtest

// Value types.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
	F32 byte = 0x7d
	F64 byte = 0x7c
)

// Export kinds.
const (
	ExportFunc   byte = 0x00
	ExportMemory byte = 0x02
)

const (
	opEnd      = 0x0b
	opCall     = 0x10
	opDrop     = 0x1a
	opLocalGet = 0x20
	opI32Const = 0x41
	opI32Store = 0x36
	opF32Store = 0x38
	opF64Store = 0x39

	opF32DemoteF64 = 0xb6
)

type FuncType struct {
	Params  []byte
	Results []byte
}

type Import struct {
	Module    string
	Name      string
	TypeIndex uint32
}

type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

type Data struct {
	Offset int32
	Bytes  []byte
}

// Module concatenates the header and the given sections. Sections must be
// passed in the order the binary format requires.
func Module(sections ...[]byte) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func TypeSection(types ...FuncType) []byte {
	content := uleb(uint32(len(types)))
	for _, t := range types {
		content = append(content, 0x60)
		content = append(content, vec(t.Params)...)
		content = append(content, vec(t.Results)...)
	}
	return section(1, content)
}

func ImportSection(imports ...Import) []byte {
	content := uleb(uint32(len(imports)))
	for _, imp := range imports {
		content = append(content, name(imp.Module)...)
		content = append(content, name(imp.Name)...)
		content = append(content, 0x00)
		content = append(content, uleb(imp.TypeIndex)...)
	}
	return section(2, content)
}

func FunctionSection(typeIndices ...uint32) []byte {
	content := uleb(uint32(len(typeIndices)))
	for _, idx := range typeIndices {
		content = append(content, uleb(idx)...)
	}
	return section(3, content)
}

func MemorySection(minPages uint32) []byte {
	content := []byte{0x01, 0x00}
	content = append(content, uleb(minPages)...)
	return section(5, content)
}

func ExportSection(exports ...Export) []byte {
	content := uleb(uint32(len(exports)))
	for _, e := range exports {
		content = append(content, name(e.Name)...)
		content = append(content, e.Kind)
		content = append(content, uleb(e.Index)...)
	}
	return section(7, content)
}

// CodeSection takes one instruction sequence per function, without the
// trailing end opcode and without locals.
func CodeSection(bodies ...[]byte) []byte {
	content := uleb(uint32(len(bodies)))
	for _, b := range bodies {
		body := append([]byte{0x00}, b...)
		body = append(body, opEnd)
		content = append(content, uleb(uint32(len(body)))...)
		content = append(content, body...)
	}
	return section(10, content)
}

func DataSection(segments ...Data) []byte {
	content := uleb(uint32(len(segments)))
	for _, d := range segments {
		content = append(content, 0x00)
		content = append(content, I32Const(d.Offset)...)
		content = append(content, opEnd)
		content = append(content, uleb(uint32(len(d.Bytes)))...)
		content = append(content, d.Bytes...)
	}
	return section(11, content)
}

func I32Const(v int32) []byte      { return append([]byte{opI32Const}, sleb(v)...) }
func Call(funcIndex uint32) []byte { return append([]byte{opCall}, uleb(funcIndex)...) }
func LocalGet(idx uint32) []byte   { return append([]byte{opLocalGet}, uleb(idx)...) }
func Drop() []byte                 { return []byte{opDrop} }

// I32Store pops a value and an address and stores the value at address+offset.
func I32Store(offset uint32) []byte {
	return append([]byte{opI32Store, 0x02}, uleb(offset)...)
}

// F32Store is I32Store for an f32 value.
func F32Store(offset uint32) []byte {
	return append([]byte{opF32Store, 0x02}, uleb(offset)...)
}

// F32DemoteF64 converts the f64 on the stack to f32.
func F32DemoteF64() []byte { return []byte{opF32DemoteF64} }

// F64Store is I32Store for an f64 value.
func F64Store(offset uint32) []byte {
	return append([]byte{opF64Store, 0x03}, uleb(offset)...)
}

// Seq joins instruction sequences.
func Seq(instrs ...[]byte) []byte {
	var out []byte
	for _, i := range instrs {
		out = append(out, i...)
	}
	return out
}

func section(id byte, content []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint32(len(content)))...)
	return append(out, content...)
}

func vec(b []byte) []byte {
	return append(uleb(uint32(len(b))), b...)
}

func name(s string) []byte {
	return vec([]byte(s))
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
