// Package typegen generates WebAssembly modules from type descriptions
// whose start function runs a composed type initializer.
//
// Independent contributors each add a code block to a type's initializer.
// The blocks run in registration order, followed by the type's own
// initializer body when it has one. The generated function's stack and
// local footprint is the maximum over its parts.
//
// # Architecture Overview
//
//	typegen/
//	├── wasm/          Core module model, binary codec and validation
//	├── codegen/       Instruction emitter
//	├── description/   Types, fields and methods of a generated type
//	├── bytecode/      Code blocks, compounds and footprints
//	├── output/        Module writer, limits and footprint section
//	├── pool/          Method records: with body, without body, not implemented
//	├── typeinit/      Initializer state and the drain into the writer
//	├── runtime/       wazero instantiation with recorded host calls
//	├── pipeline/      Type builder and concurrent compiler
//	├── config/        TOML manifests
//	├── errors/        Structured error types
//	└── cmd/typegen/   build, run, inspect and explore commands
//
// # Quick Start
//
// Compose an initializer and write the module:
//
//	b := pipeline.NewBuilder("counter").
//	    DefineField(&description.Field{Name: "count", Type: wasm.ValI32, Mutable: true, Exported: true})
//
//	b.Contribute("defaults", &bytecode.FieldAssignment{Field: "count", Value: bytecode.I32(7)})
//
//	art, err := b.Make(pipeline.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Run it and read the field back:
//
//	rt := runtime.New(ctx)
//	defer rt.Close(ctx)
//
//	inst, err := rt.Instantiate(ctx, art.Name, art.Binary)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	g, _ := inst.Global("count")
//	fmt.Println(g) // count: i32 = 7
//
// # Thread Safety
//
// Runtime is safe for concurrent use. Builder and Initializer values are
// not; Compiler builds each type on its own goroutine.
package typegen
