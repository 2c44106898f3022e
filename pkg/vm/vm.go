package vm

import (
	"fmt"

	"github.com/nandforge/n2t/pkg/utils"
)

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the VM intermediate language.
//
// We declare a shared 'Operation' interface for every macro operation available for the
// language and we define some other useful top-level struct such as Program and Module.
// Is important to note that a VM program can be composed of multiple translation units
// that can be also referenced as file or modules or also classes.

// A VM Program is a set of multiple modules/files keyed by module name, in the VM spec
// each Jack class is translated to its own .vm file (just like Java's .class file) that
// can be handled as its own translation unit during lowering. It's an OrderedMap (not a
// plain map) so that translating the same input twice always walks modules, and the
// static variables inside them, in the same order.
type Program = utils.OrderedMap[string, Module]

// NewProgram returns an empty, ready-to-use Program.
func NewProgram() Program { return utils.NewOrderedMap[string, Module]() }

// A VM Module is just a linear list of VM operations/instructions
type Module []Operation

// Used to put together all operation in the VM language (Memory, Arithmetic, ... ops).
type Operation interface{}

// ----------------------------------------------------------------------------
// Memory Op

// In memory representation of a Memory operation for the VM language.
//
// In the VM intermediate language there are only two possible memory operation on the stack.
// We could either push a new value taken from the specified segment location on the stack's
// top or take the stack's top and saves its value at the specified segment location.
type MemoryOp struct {
	Operation OperationType // The type of operation, either 'push' or 'pop'
	Segment   SegmentType   // The named memory segment to use (this, that, temp, ...)
	Offset    uint16        // The specific location/offset inside of the memory segment
}

type OperationType string // Enum to manage the operation allowed for a MemoryOp

const (
	Push OperationType = "push"
	Pop  OperationType = "pop"
)

type SegmentType string // Enum to manage the segment accessible for a MemoryOp

const (
	Temp     SegmentType = "temp"     // Real segment used to store intermediate computations
	Constant SegmentType = "constant" // Virtual segment used to access numeric constant

	Local    SegmentType = "local"    // Real segment used to store local function variables
	Static   SegmentType = "static"   // Real segment used to store shared/static variables
	Argument SegmentType = "argument" // Real segment used to store function's argument

	This    SegmentType = "this"    // Virtual segment used to point to a specific memory location
	That    SegmentType = "that"    // Virtual segment used to point to a specific memory location
	Pointer SegmentType = "pointer" // Real segment w/ 2 location used to set the 'this' and 'that' pointers
)

// ----------------------------------------------------------------------------
// Arithmetic Op

// In memory representation of a Arithmetic operation for the VM language.
//
// In the VM intermediate language there are just a handful of operation available.
// In particular each operation acts directly on the top of the stack, of course we have both unary
// and binary operation, the specific management of each op will be handled in the codegen phase.
type ArithmeticOp struct{ Operation ArithOpType }

type ArithOpType string // Enum to manage the operation allowed for an ArithmeticOp

const (
	Eq ArithOpType = "eq" // Comparison operations
	Gt ArithOpType = "gt"
	Lt ArithOpType = "lt"

	Add ArithOpType = "add" // Arithmetic operations
	Sub ArithOpType = "sub"
	Neg ArithOpType = "neg"

	Not ArithOpType = "not" // Bitwise operations
	And ArithOpType = "and"
	Or  ArithOpType = "or"
)

// ----------------------------------------------------------------------------
// Control flow & subroutine Op(s)

// LabelDecl marks a jump target inside the current function, compliant with "label Name".
type LabelDecl struct{ Name string }

// GotoOp jumps to a previously (or later) declared label, either unconditionally or only
// if the value popped off the stack's top is non zero (the "if-goto" form).
type GotoOp struct {
	Jump  JumpType
	Label string
}

type JumpType string // Enum for the two jump flavours the VM language supports

const (
	Unconditional JumpType = "goto"
	Conditional   JumpType = "if-goto"
)

// FuncDecl opens a function body, compliant with "function Name nLocal"; nLocal locals
// are zero-initialized on entry per the calling convention.
type FuncDecl struct {
	Name   string
	NLocal uint8
}

// FuncCallOp invokes a previously declared function, compliant with "call Name nArgs".
type FuncCallOp struct {
	Name  string
	NArgs uint8
}

// ReturnOp unwinds the current function's frame and resumes the caller.
type ReturnOp struct{}

// Format renders a single Operation back to its canonical VM text form. Used by the
// VM translator to generate the decorative comment that precedes each command's
// lowered assembly, and by tests that want a human-readable operation label.
func Format(op Operation) string {
	switch o := op.(type) {
	case MemoryOp:
		return fmt.Sprintf("%s %s %d", o.Operation, o.Segment, o.Offset)
	case ArithmeticOp:
		return string(o.Operation)
	case LabelDecl:
		return fmt.Sprintf("label %s", o.Name)
	case GotoOp:
		return fmt.Sprintf("%s %s", o.Jump, o.Label)
	case FuncDecl:
		return fmt.Sprintf("function %s %d", o.Name, o.NLocal)
	case FuncCallOp:
		return fmt.Sprintf("call %s %d", o.Name, o.NArgs)
	case ReturnOp:
		return "return"
	default:
		return fmt.Sprintf("%v", op)
	}
}
