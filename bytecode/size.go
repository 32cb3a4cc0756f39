package bytecode

// Size is the footprint a code block needs from its method: the deepest
// operand stack it builds and the number of local slots it touches,
// parameters included.
type Size struct {
	MaxStack  int
	MaxLocals int
}

// Zero is the footprint of a block that emits nothing.
var Zero Size

// Merge returns the coordinate-wise maximum of s and o. Sequential blocks
// never hold stack or locals at the same time, so footprints do not add.
func (s Size) Merge(o Size) Size {
	return Size{
		MaxStack:  max(s.MaxStack, o.MaxStack),
		MaxLocals: max(s.MaxLocals, o.MaxLocals),
	}
}

// Covers reports whether s is at least o in both coordinates.
func (s Size) Covers(o Size) bool {
	return s.MaxStack >= o.MaxStack && s.MaxLocals >= o.MaxLocals
}

// StackSize tracks a straight-line instruction sequence: its net effect on
// the operand stack and the peak depth reached relative to the start.
type StackSize struct {
	Impact int
	Peak   int
}

// Stack effects of single instructions.
var (
	PushOne = StackSize{Impact: 1, Peak: 1}
	PopOne  = StackSize{Impact: -1}
)

// Aggregate returns the effect of running s followed by o.
func (s StackSize) Aggregate(o StackSize) StackSize {
	return StackSize{
		Impact: s.Impact + o.Impact,
		Peak:   max(s.Peak, s.Impact+o.Peak),
	}
}
