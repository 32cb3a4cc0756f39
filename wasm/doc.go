// Package wasm provides the WebAssembly binary model, encoder and decoder
// used as the output format of generated types.
//
// Only the parts of the format a generated type needs are modeled:
// function types, function and global imports, functions, globals,
// exports, a start function, code bodies and custom sections.
//
// # Encoding
//
//	m := &wasm.Module{}
//	typeIdx := m.AddType(wasm.FuncType{})
//	m.Funcs = append(m.Funcs, typeIdx)
//	m.Code = append(m.Code, wasm.FuncBody{Code: []byte{wasm.OpEnd}})
//	data := m.Encode()
//
// # Parsing
//
//	m, err := wasm.ParseModuleValidate(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Instructions
//
// DecodeInstructions and EncodeInstructions cover control flow,
// constants, local and global access, calls and integer arithmetic:
//
//	instrs, err := wasm.DecodeInstructions(m.Code[0].Code)
//	for _, in := range instrs {
//	    fmt.Println(in)
//	}
package wasm
