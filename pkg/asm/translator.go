package asm

import (
	"fmt"

	"github.com/nandforge/n2t/pkg/vm"
)

// ----------------------------------------------------------------------------
// Chunk

// Chunk groups the Statements lowered from a single VM command together with a
// decorative Comment describing that command, so the CodeGenerator can render the
// "// push constant 7" style header the VM translator's output format calls for.
type Chunk struct {
	Comment      string
	Instructions []Statement
}

// ----------------------------------------------------------------------------
// Translator

// Translator is the stateful AsmEmitter: unlike the Jack side's stateless vm.Writer,
// lowering VM commands to assembly needs memory across commands (the enclosing
// function for label scoping, the file for static-segment mangling, and two
// monotonic counters for minting unique labels).
type Translator struct {
	currentFile     string
	currentFunction string

	boolLabelCounter int
	returnCounter    map[string]int
}

// NewTranslator returns a ready-to-use Translator with its counters zeroed.
func NewTranslator() *Translator {
	return &Translator{returnCounter: map[string]int{}}
}

// SetFile records the base name (no extension) of the .vm translation unit about to
// be translated, used to mangle 'static' segment references into '<file>.<N>'.
func (tr *Translator) SetFile(name string) { tr.currentFile = name }

// TranslateProgram lowers every module in program, in order, into one flat slice of
// Chunks. Function names are already fully qualified (Class.method) so nothing
// resets currentFunction/counters between files — only SetFile changes per module.
func (tr *Translator) TranslateProgram(program vm.Program) ([]Chunk, error) {
	var chunks []Chunk
	for _, entry := range program.Entries() {
		tr.SetFile(entry.Key)
		moduleChunks, err := tr.Translate(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("asm: translating module %q: %w", entry.Key, err)
		}
		chunks = append(chunks, moduleChunks...)
	}
	return chunks, nil
}

// Translate lowers a single module's commands into Chunks.
func (tr *Translator) Translate(module vm.Module) ([]Chunk, error) {
	chunks := make([]Chunk, 0, len(module))

	for _, op := range module {
		var instructions []Statement
		var err error

		switch o := op.(type) {
		case vm.MemoryOp:
			instructions, err = tr.translateMemoryOp(o)
		case vm.ArithmeticOp:
			instructions, err = tr.translateArithmeticOp(o)
		case vm.LabelDecl:
			instructions, err = tr.translateLabelDecl(o)
		case vm.GotoOp:
			instructions, err = tr.translateGotoOp(o)
		case vm.FuncDecl:
			instructions, err = tr.translateFuncDecl(o)
		case vm.FuncCallOp:
			instructions, err = tr.translateFuncCallOp(o)
		case vm.ReturnOp:
			instructions, err = tr.translateReturnOp()
		default:
			err = fmt.Errorf("asm: unrecognized VM operation %T", op)
		}

		if err != nil {
			return nil, err
		}
		chunks = append(chunks, Chunk{Comment: vm.Format(op), Instructions: instructions})
	}

	return chunks, nil
}

// Bootstrap produces the sequence prepended to the output whenever a 'Sys.vm' file
// is present in the input set: set SP to 256, then call Sys.init with 0 arguments.
func (tr *Translator) Bootstrap() ([]Chunk, error) {
	init := []Statement{
		AInstruction{Location: "256"},
		CInstruction{Dest: "D", Comp: "A"},
		AInstruction{Location: "SP"},
		CInstruction{Dest: "M", Comp: "D"},
	}

	tr.currentFunction = "Bootstrap"
	call, err := tr.translateFuncCallOp(vm.FuncCallOp{Name: "Sys.init", NArgs: 0})
	if err != nil {
		return nil, err
	}

	return []Chunk{
		{Comment: "bootstrap", Instructions: init},
		{Comment: "call Sys.init 0", Instructions: call},
	}, nil
}

// ----------------------------------------------------------------------------
// Segment addressing (§4.5 "Segment addressing")

func segmentBase(segment vm.SegmentType) (string, bool) {
	switch segment {
	case vm.Local:
		return "LCL", true
	case vm.Argument:
		return "ARG", true
	case vm.This:
		return "THIS", true
	case vm.That:
		return "THAT", true
	default:
		return "", false
	}
}

// directAddress returns the single A-instruction that addresses a fixed-location
// segment (pointer/temp/static) directly — no pointer dereference needed.
func (tr *Translator) directAddress(segment vm.SegmentType, offset uint16) (Statement, error) {
	switch segment {
	case vm.Pointer:
		return AInstruction{Location: fmt.Sprintf("R%d", 3+offset)}, nil
	case vm.Temp:
		return AInstruction{Location: fmt.Sprintf("R%d", 5+offset)}, nil
	case vm.Static:
		return AInstruction{Location: fmt.Sprintf("%s.%d", tr.currentFile, offset)}, nil
	default:
		return nil, fmt.Errorf("asm: %q is not a direct-addressed segment", segment)
	}
}

// indirectAddress computes the effective address of an indirect segment (local,
// argument, this, that) into either A (dest="A") or D (dest="D"), depending on
// whether the caller needs it for an immediate load (push) or to stash away first
// (pop, which needs D free to later read the popped stack value).
func indirectAddress(segment vm.SegmentType, offset uint16, dest string) ([]Statement, error) {
	base, ok := segmentBase(segment)
	if !ok {
		return nil, fmt.Errorf("asm: %q is not an indirect-addressed segment", segment)
	}
	return []Statement{
		AInstruction{Location: base},
		CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: fmt.Sprint(offset)},
		CInstruction{Dest: dest, Comp: "D+A"},
	}, nil
}

var pushDSequence = []Statement{
	AInstruction{Location: "SP"},
	CInstruction{Dest: "AM", Comp: "M+1"},
	CInstruction{Dest: "A", Comp: "A-1"},
	CInstruction{Dest: "M", Comp: "D"},
}

// ----------------------------------------------------------------------------
// Push / Pop (§4.5 "Push / Pop")

func (tr *Translator) translateMemoryOp(op vm.MemoryOp) ([]Statement, error) {
	if op.Operation == vm.Push {
		return tr.translatePush(op.Segment, op.Offset)
	}
	return tr.translatePop(op.Segment, op.Offset)
}

func (tr *Translator) translatePush(segment vm.SegmentType, offset uint16) ([]Statement, error) {
	if segment == vm.Constant {
		instructions := []Statement{
			AInstruction{Location: fmt.Sprint(offset)},
			CInstruction{Dest: "D", Comp: "A"},
		}
		return append(instructions, pushDSequence...), nil
	}

	if _, ok := segmentBase(segment); ok {
		address, err := indirectAddress(segment, offset, "A")
		if err != nil {
			return nil, err
		}
		instructions := append(address, CInstruction{Dest: "D", Comp: "M"})
		return append(instructions, pushDSequence...), nil
	}

	address, err := tr.directAddress(segment, offset)
	if err != nil {
		return nil, err
	}
	instructions := []Statement{address, CInstruction{Dest: "D", Comp: "M"}}
	return append(instructions, pushDSequence...), nil
}

func (tr *Translator) translatePop(segment vm.SegmentType, offset uint16) ([]Statement, error) {
	if segment == vm.Constant {
		return nil, fmt.Errorf("asm: cannot pop into 'constant' segment")
	}

	if _, ok := segmentBase(segment); ok {
		addressToD, err := indirectAddress(segment, offset, "D")
		if err != nil {
			return nil, err
		}
		instructions := append(addressToD, AInstruction{Location: "R15"}, CInstruction{Dest: "M", Comp: "D"})
		instructions = append(instructions,
			AInstruction{Location: "SP"}, CInstruction{Dest: "AM", Comp: "M-1"}, CInstruction{Dest: "D", Comp: "M"},
		)
		return append(instructions, AInstruction{Location: "R15"}, CInstruction{Dest: "A", Comp: "M"}, CInstruction{Dest: "M", Comp: "D"}), nil
	}

	address, err := tr.directAddress(segment, offset)
	if err != nil {
		return nil, err
	}
	return []Statement{
		AInstruction{Location: "SP"}, CInstruction{Dest: "AM", Comp: "M-1"}, CInstruction{Dest: "D", Comp: "M"},
		address, CInstruction{Dest: "M", Comp: "D"},
	}, nil
}

// ----------------------------------------------------------------------------
// Arithmetic (§4.5 "Arithmetic")

var binaryComp = map[vm.ArithOpType]string{
	vm.Add: "M+D", vm.Sub: "M-D", vm.And: "M&D", vm.Or: "M|D",
}

var relationalJump = map[vm.ArithOpType]string{
	vm.Eq: "JEQ", vm.Lt: "JLT", vm.Gt: "JGT",
}

func popInto(reg string) []Statement {
	return []Statement{
		AInstruction{Location: "SP"}, CInstruction{Dest: "AM", Comp: "M-1"}, CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: reg}, CInstruction{Dest: "M", Comp: "D"},
	}
}

func pushFrom(reg string) []Statement {
	return append([]Statement{AInstruction{Location: reg}, CInstruction{Dest: "D", Comp: "M"}}, pushDSequence...)
}

func (tr *Translator) translateArithmeticOp(op vm.ArithmeticOp) ([]Statement, error) {
	switch op.Operation {
	case vm.Neg, vm.Not:
		comp := "-M"
		if op.Operation == vm.Not {
			comp = "!M"
		}
		instructions := popInto("R14")
		instructions = append(instructions, AInstruction{Location: "R14"}, CInstruction{Dest: "M", Comp: comp})
		return append(instructions, pushFrom("R14")...), nil

	case vm.Eq, vm.Lt, vm.Gt:
		n := tr.boolLabelCounter
		tr.boolLabelCounter++
		trueLabel := fmt.Sprintf("bool_label%d_is_true", n)
		doneLabel := fmt.Sprintf("bool_label%d_all_done", n)

		instructions := append(popInto("R13"), popInto("R14")...)
		instructions = append(instructions,
			AInstruction{Location: "R13"}, CInstruction{Dest: "D", Comp: "M"},
			AInstruction{Location: "R14"}, CInstruction{Dest: "D", Comp: "M-D"},
			AInstruction{Location: trueLabel}, CInstruction{Comp: "D", Jump: relationalJump[op.Operation]},
			AInstruction{Location: "R14"}, CInstruction{Dest: "M", Comp: "0"},
			AInstruction{Location: doneLabel}, CInstruction{Comp: "0", Jump: "JMP"},
			LabelDecl{Name: trueLabel},
			AInstruction{Location: "R14"}, CInstruction{Dest: "M", Comp: "-1"},
			LabelDecl{Name: doneLabel},
		)
		return append(instructions, pushFrom("R14")...), nil

	default: // add, sub, and, or
		comp, ok := binaryComp[op.Operation]
		if !ok {
			return nil, fmt.Errorf("asm: unrecognized arithmetic operation %q", op.Operation)
		}
		instructions := append(popInto("R13"), popInto("R14")...)
		instructions = append(instructions,
			AInstruction{Location: "R13"}, CInstruction{Dest: "D", Comp: "M"},
			AInstruction{Location: "R14"}, CInstruction{Dest: "M", Comp: comp},
		)
		return append(instructions, pushFrom("R14")...), nil
	}
}

// ----------------------------------------------------------------------------
// Labels and control flow (§4.5 "Labels and control flow")

func (tr *Translator) scopedLabel(name string) string {
	if tr.currentFunction == "" {
		return name
	}
	return fmt.Sprintf("%s$%s", tr.currentFunction, name)
}

func (tr *Translator) translateLabelDecl(op vm.LabelDecl) ([]Statement, error) {
	return []Statement{LabelDecl{Name: tr.scopedLabel(op.Name)}}, nil
}

func (tr *Translator) translateGotoOp(op vm.GotoOp) ([]Statement, error) {
	label := tr.scopedLabel(op.Label)
	if op.Jump == vm.Unconditional {
		return []Statement{AInstruction{Location: label}, CInstruction{Comp: "0", Jump: "JMP"}}, nil
	}
	// if-goto: pop into D, jump if D != 0
	return []Statement{
		AInstruction{Location: "SP"}, CInstruction{Dest: "AM", Comp: "M-1"}, CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: label}, CInstruction{Comp: "D", Jump: "JNE"},
	}, nil
}

// ----------------------------------------------------------------------------
// Function / Call / Return (§4.5 "Function" / "Call" / "Return")

func (tr *Translator) translateFuncDecl(op vm.FuncDecl) ([]Statement, error) {
	tr.currentFunction = op.Name
	tr.returnCounter[op.Name] = 0

	instructions := []Statement{LabelDecl{Name: op.Name}}
	zero, err := tr.translatePush(vm.Constant, 0)
	if err != nil {
		return nil, err
	}
	for i := uint8(0); i < op.NLocal; i++ {
		instructions = append(instructions, zero...)
	}
	return instructions, nil
}

func (tr *Translator) translateFuncCallOp(op vm.FuncCallOp) ([]Statement, error) {
	r := tr.returnCounter[tr.currentFunction]
	tr.returnCounter[tr.currentFunction]++
	returnLabel := fmt.Sprintf("%s$return_%d", tr.currentFunction, r)

	instructions := []Statement{AInstruction{Location: returnLabel}, CInstruction{Dest: "D", Comp: "A"}}
	instructions = append(instructions, pushDSequence...)

	for _, reg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		instructions = append(instructions, AInstruction{Location: reg}, CInstruction{Dest: "D", Comp: "M"})
		instructions = append(instructions, pushDSequence...)
	}

	instructions = append(instructions,
		AInstruction{Location: "SP"}, CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: fmt.Sprint(int(op.NArgs) + 5)}, CInstruction{Dest: "D", Comp: "D-A"},
		AInstruction{Location: "ARG"}, CInstruction{Dest: "M", Comp: "D"},
		AInstruction{Location: "SP"}, CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: "LCL"}, CInstruction{Dest: "M", Comp: "D"},
		AInstruction{Location: op.Name}, CInstruction{Comp: "0", Jump: "JMP"},
		LabelDecl{Name: returnLabel},
	)
	return instructions, nil
}

func (tr *Translator) translateReturnOp() ([]Statement, error) {
	return []Statement{
		// R13 = frame = LCL
		AInstruction{Location: "LCL"}, CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: "R13"}, CInstruction{Dest: "M", Comp: "D"},
		// R14 = *(frame - 5), the return address
		AInstruction{Location: "5"}, CInstruction{Dest: "A", Comp: "D-A"}, CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: "R14"}, CInstruction{Dest: "M", Comp: "D"},
		// *ARG = pop()
		AInstruction{Location: "SP"}, CInstruction{Dest: "AM", Comp: "M-1"}, CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: "ARG"}, CInstruction{Dest: "A", Comp: "M"}, CInstruction{Dest: "M", Comp: "D"},
		// SP = ARG + 1
		AInstruction{Location: "ARG"}, CInstruction{Dest: "D", Comp: "M+1"},
		AInstruction{Location: "SP"}, CInstruction{Dest: "M", Comp: "D"},
		// restore THAT, THIS, ARG, LCL walking R13 downward
		AInstruction{Location: "R13"}, CInstruction{Dest: "AM", Comp: "M-1"}, CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: "THAT"}, CInstruction{Dest: "M", Comp: "D"},
		AInstruction{Location: "R13"}, CInstruction{Dest: "AM", Comp: "M-1"}, CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: "THIS"}, CInstruction{Dest: "M", Comp: "D"},
		AInstruction{Location: "R13"}, CInstruction{Dest: "AM", Comp: "M-1"}, CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: "ARG"}, CInstruction{Dest: "M", Comp: "D"},
		AInstruction{Location: "R13"}, CInstruction{Dest: "AM", Comp: "M-1"}, CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: "LCL"}, CInstruction{Dest: "M", Comp: "D"},
		// goto *R14
		AInstruction{Location: "R14"}, CInstruction{Dest: "A", Comp: "M"}, CInstruction{Comp: "0", Jump: "JMP"},
	}, nil
}
