// Package runtime executes generated modules with wazero.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt := runtime.New(ctx)
//	defer rt.Close(ctx)
//
//	inst, err := rt.Instantiate(ctx, "counter", wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	for _, g := range inst.Globals() {
//	    fmt.Println(g)
//	}
//
// Instantiation runs the module's start function, which is where a type
// initializer lives. Every function the module imports is bound
// automatically: handlers registered with RegisterFunc are called, any other
// import returns zeros. Either way the call is recorded and available from
// Instance.Calls, in the order the guest made them.
//
// Each instance gets its own wazero runtime so that host modules of
// different instances never collide; compiled code is shared through a
// compilation cache owned by the Runtime.
package runtime
