package output

import (
	"bytes"
	"fmt"

	"github.com/wippyai/wasm-typegen/wasm"
)

// FootprintSection names the custom section holding per-function
// footprints. WebAssembly validation derives stack depth itself, so the
// reported footprint is kept alongside the code for inspection.
const FootprintSection = "typegen.footprint"

// Footprint is the recorded footprint of one function.
type Footprint struct {
	FuncIdx   uint32
	MaxStack  uint32
	MaxLocals uint32
}

// EncodeFootprints encodes fps as a vector of (funcidx, max_stack,
// max_locals) triples.
func EncodeFootprints(fps []Footprint) []byte {
	var buf bytes.Buffer
	wasm.WriteLEB128u(&buf, uint32(len(fps)))
	for _, fp := range fps {
		wasm.WriteLEB128u(&buf, fp.FuncIdx)
		wasm.WriteLEB128u(&buf, fp.MaxStack)
		wasm.WriteLEB128u(&buf, fp.MaxLocals)
	}
	return buf.Bytes()
}

// DecodeFootprints decodes a footprint section payload.
func DecodeFootprints(data []byte) ([]Footprint, error) {
	r := bytes.NewReader(data)
	n, err := wasm.ReadLEB128u(r)
	if err != nil {
		return nil, fmt.Errorf("footprint count: %w", err)
	}
	if int(n) > r.Len() {
		return nil, fmt.Errorf("footprint count %d exceeds section size", n)
	}
	fps := make([]Footprint, n)
	for i := range fps {
		var vals [3]uint32
		for j := range vals {
			if vals[j], err = wasm.ReadLEB128u(r); err != nil {
				return nil, fmt.Errorf("footprint %d: %w", i, err)
			}
		}
		fps[i] = Footprint{FuncIdx: vals[0], MaxStack: vals[1], MaxLocals: vals[2]}
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes in footprint section", r.Len())
	}
	return fps, nil
}

// ReadFootprints returns the footprints recorded in m, or nil when m has
// no footprint section.
func ReadFootprints(m *wasm.Module) ([]Footprint, error) {
	cs, ok := m.CustomSection(FootprintSection)
	if !ok {
		return nil, nil
	}
	return DecodeFootprints(cs.Data)
}

// Lookup returns the footprint recorded for funcIdx.
func Lookup(fps []Footprint, funcIdx uint32) (Footprint, bool) {
	for _, fp := range fps {
		if fp.FuncIdx == funcIdx {
			return fp, true
		}
	}
	return Footprint{}, false
}
