package vm_test

import (
	"strings"
	"testing"

	"github.com/nandforge/n2t/pkg/vm"
)

func TestParserParse(t *testing.T) {
	source := `
// begin
push constant 7
pop local 0
label LOOP_START
if-goto LOOP_START
goto LOOP_END
function Main.main 2
call Math.multiply 2
return
add
`
	parser := vm.NewParser(strings.NewReader(source))
	module, err := parser.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	expected := vm.Module{
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 7},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Local, Offset: 0},
		vm.LabelDecl{Name: "LOOP_START"},
		vm.GotoOp{Jump: vm.Conditional, Label: "LOOP_START"},
		vm.GotoOp{Jump: vm.Unconditional, Label: "LOOP_END"},
		vm.FuncDecl{Name: "Main.main", NLocal: 2},
		vm.FuncCallOp{Name: "Math.multiply", NArgs: 2},
		vm.ReturnOp{},
		vm.ArithmeticOp{Operation: vm.Add},
	}

	if len(module) != len(expected) {
		t.Fatalf("expected %d operations, got %d", len(expected), len(module))
	}
	for i := range expected {
		if module[i] != expected[i] {
			t.Fatalf("operation %d: expected %#v, got %#v", i, expected[i], module[i])
		}
	}
}
