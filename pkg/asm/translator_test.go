package asm_test

import (
	"strings"
	"testing"

	"github.com/nandforge/n2t/pkg/asm"
	"github.com/nandforge/n2t/pkg/vm"
)

func render(t *testing.T, tr *asm.Translator, module vm.Module) string {
	t.Helper()
	chunks, err := tr.Translate(module)
	if err != nil {
		t.Fatalf("translate error: %s", err)
	}
	lines, err := asm.RenderChunks(chunks)
	if err != nil {
		t.Fatalf("render error: %s", err)
	}
	return strings.Join(lines, "\n")
}

func assertContainsInOrder(t *testing.T, output string, lines ...string) {
	t.Helper()
	rest := output
	for _, line := range lines {
		idx := strings.Index(rest, line)
		if idx < 0 {
			t.Fatalf("expected to find %q (in order) in:\n%s", line, output)
		}
		rest = rest[idx+len(line):]
	}
}

func TestTranslatePushConstantAndLocal(t *testing.T) {
	tr := asm.NewTranslator()
	tr.SetFile("Main")

	module := vm.Module{
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 7},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Local, Offset: 2},
	}
	got := render(t, tr, module)

	assertContainsInOrder(t, got,
		"// push constant 7",
		"@7", "D=A", "@SP", "AM=M+1", "A=A-1", "M=D",
		"// pop local 2",
		"@LCL", "D=M", "@2", "D=D+A", "@R15", "M=D",
		"@SP", "AM=M-1", "D=M",
		"@R15", "A=M", "M=D",
	)
}

func TestTranslateEqComparison(t *testing.T) {
	tr := asm.NewTranslator()
	tr.SetFile("Main")

	module := vm.Module{vm.ArithmeticOp{Operation: vm.Eq}}
	got := render(t, tr, module)

	assertContainsInOrder(t, got,
		"// eq",
		"@R13", "M=D",
		"@R14", "M=D",
		"@R13", "D=M",
		"@R14", "D=M-D",
		"@bool_label0_is_true", "D;JEQ",
		"@R14", "M=0",
		"@bool_label0_all_done", "0;JMP",
		"(bool_label0_is_true)",
		"@R14", "M=-1",
		"(bool_label0_all_done)",
	)
}

func TestTranslateFunctionCallAndReturn(t *testing.T) {
	tr := asm.NewTranslator()
	tr.SetFile("Main")

	module := vm.Module{
		vm.FuncDecl{Name: "Main.run", NLocal: 2},
		vm.FuncCallOp{Name: "Main.helper", NArgs: 1},
		vm.ReturnOp{},
	}
	got := render(t, tr, module)

	assertContainsInOrder(t, got,
		"(Main.run)",
		"// call Main.helper 1",
		"@Main.run$return_0", "D=A",
		"@LCL", "D=M",
		"@ARG", "D=M",
		"@THIS", "D=M",
		"@THAT", "D=M",
		"@6", "D=D-A",
		"@ARG", "M=D",
		"@SP", "D=M",
		"@LCL", "M=D",
		"@Main.helper", "0;JMP",
		"(Main.run$return_0)",
		"// return",
		"@LCL", "D=M",
		"@R13", "M=D",
		"@5", "A=D-A", "D=M",
		"@R14", "M=D",
		"@ARG", "A=M", "M=D",
		"@ARG", "D=M+1",
		"@SP", "M=D",
		"@R14", "A=M", "0;JMP",
	)
}

func TestTranslateLabelAndGotoAreFunctionScoped(t *testing.T) {
	tr := asm.NewTranslator()
	tr.SetFile("Main")

	module := vm.Module{
		vm.FuncDecl{Name: "Main.loop", NLocal: 0},
		vm.LabelDecl{Name: "WHILE_EXP0"},
		vm.GotoOp{Jump: vm.Unconditional, Label: "WHILE_EXP0"},
		vm.GotoOp{Jump: vm.Conditional, Label: "WHILE_EXP0"},
	}
	got := render(t, tr, module)

	assertContainsInOrder(t, got,
		"(Main.loop)",
		"(Main.loop$WHILE_EXP0)",
		"@Main.loop$WHILE_EXP0", "0;JMP",
		"@SP", "AM=M-1", "D=M",
		"@Main.loop$WHILE_EXP0", "D;JNE",
	)
}

func TestBootstrapSetsStackPointerAndCallsSysInit(t *testing.T) {
	tr := asm.NewTranslator()
	chunks, err := tr.Bootstrap()
	if err != nil {
		t.Fatalf("bootstrap error: %s", err)
	}
	lines, err := asm.RenderChunks(chunks)
	if err != nil {
		t.Fatalf("render error: %s", err)
	}
	got := strings.Join(lines, "\n")

	assertContainsInOrder(t, got,
		"@256", "D=A", "@SP", "M=D",
		"@Bootstrap$return_0", "D=A",
		"@Sys.init", "0;JMP",
		"(Bootstrap$return_0)",
	)
}

func TestPopIntoConstantIsRejected(t *testing.T) {
	tr := asm.NewTranslator()
	tr.SetFile("Main")
	if _, err := tr.Translate(vm.Module{vm.MemoryOp{Operation: vm.Pop, Segment: vm.Constant, Offset: 0}}); err == nil {
		t.Fatalf("expected an error popping into the constant segment")
	}
}
