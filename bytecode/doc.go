// Package bytecode defines code blocks: reusable units that emit
// instructions into a method body and report the footprint they need.
//
// Blocks compose with Compound, which applies its parts in order and reports
// the coordinate-wise maximum of their footprints:
//
//	block := bytecode.NewCompound(
//		bytecode.FieldAssignment{Field: "count", Value: bytecode.I32(1)},
//		bytecode.StaticCall{Method: "log", Args: []bytecode.Operand{bytecode.FieldRead{Field: "count"}}},
//	)
//	size, err := block.Apply(emitter, ctx, method)
//
// Names are resolved through the Context, which the output writer backs once
// the type's declarations are fixed.
package bytecode
