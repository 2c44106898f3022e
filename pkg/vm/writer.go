package vm

import (
	"bufio"
	"fmt"
	"io"
)

// ----------------------------------------------------------------------------
// Vm Writer

// Writer emits VM command text directly to an io.Writer as the Jack compiler parses
// its input, one command at a time, with no intermediate Operation/Module value ever
// built up in memory. This mirrors how the Jack compiler itself works: recursive
// descent parsing interleaved with code generation, never materializing an AST.
type Writer struct {
	out *bufio.Writer
	err error // first write error encountered, sticky so callers can check it once at the end
}

// NewWriter wraps w so commands can be written to it one at a time.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: bufio.NewWriter(w)}
}

// Flush pushes any buffered output to the underlying writer and returns the first
// error encountered by any Write* call (or by the flush itself).
func (w *Writer) Flush() error {
	if ferr := w.out.Flush(); ferr != nil && w.err == nil {
		w.err = ferr
	}
	return w.err
}

func (w *Writer) line(format string, args ...interface{}) {
	if w.err != nil {
		return
	}
	if _, err := fmt.Fprintf(w.out, format+"\n", args...); err != nil {
		w.err = err
	}
}

// WritePush emits "push segment offset", validating the bounds of segments that have one.
func (w *Writer) WritePush(segment SegmentType, offset uint16) error {
	if err := validateOffset(segment, offset); err != nil {
		return err
	}
	w.line("push %s %d", segment, offset)
	return nil
}

// WritePop emits "pop segment offset", validating the bounds of segments that have one.
// Popping into the 'constant' segment makes no sense (it isn't addressable) and is rejected.
func (w *Writer) WritePop(segment SegmentType, offset uint16) error {
	if segment == Constant {
		return fmt.Errorf("vm: cannot pop into 'constant' segment")
	}
	if err := validateOffset(segment, offset); err != nil {
		return err
	}
	w.line("pop %s %d", segment, offset)
	return nil
}

func validateOffset(segment SegmentType, offset uint16) error {
	if segment == Pointer && offset > 1 {
		return fmt.Errorf("vm: invalid 'pointer' offset, got %d", offset)
	}
	if segment == Temp && offset > 7 {
		return fmt.Errorf("vm: invalid 'temp' offset, got %d", offset)
	}
	return nil
}

// WriteArithmetic emits a unary or binary arithmetic/logical/comparison command (add,
// sub, neg, eq, gt, lt, and, or, not).
func (w *Writer) WriteArithmetic(op ArithOpType) { w.line("%s", op) }

// WriteLabel emits "label Name".
func (w *Writer) WriteLabel(name string) { w.line("label %s", name) }

// WriteGoto emits "goto Name".
func (w *Writer) WriteGoto(name string) { w.line("goto %s", name) }

// WriteIf emits "if-goto Name".
func (w *Writer) WriteIf(name string) { w.line("if-goto %s", name) }

// WriteCall emits "call name nArgs".
func (w *Writer) WriteCall(name string, nArgs uint8) { w.line("call %s %d", name, nArgs) }

// WriteFunction emits "function name nLocal".
func (w *Writer) WriteFunction(name string, nLocal uint8) { w.line("function %s %d", name, nLocal) }

// WriteReturn emits "return".
func (w *Writer) WriteReturn() { w.line("return") }

// WriteStringConstant emits the push sequence that builds a Jack string literal at
// runtime: allocate a String of the right length via the OS library, then append each
// character one at a time. String.appendChar returns the same 'this' reference it was
// called on, so each call leaves exactly one string value on the stack for the next
// append (or for the caller, after the last character).
func (w *Writer) WriteStringConstant(s string) {
	w.WritePush(Constant, uint16(len(s)))
	w.WriteCall("String.new", 1)
	for _, r := range s {
		w.WritePush(Constant, uint16(r))
		w.WriteCall("String.appendChar", 2)
	}
}
