package vm

import (
	"fmt"
	"io"
	"os"
	"strconv"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Parser Combinator(s)

// This section defines the Parser Combinator for every token & instruction of the Vm language.
//
// Each parser combinator either manages an operation (MemoryOp, ArithmeticOp, ...) or some pieces
// of it: namely tokens and identifiers. Also we manage comments inside the codebase that can
// either present themselves at the beginning of the line or in the middle.

// Top level object, will generate the traversable AST based on the input plus the PCs below.
var ast = pc.NewAST("virtual_machine", 0)

var (
	// Parser combinator for a VM module/class, in the nand2tetris VM there's a Java like
	// behavior where a program is composed of multiple '.vm' file ('.class' in Java) where
	// each contains the bytecode for the specific module/class (a separate translation unit).
	pModule = ast.ManyUntil("module", nil, ast.OrdChoice("node", nil, pComment, pOperation), pc.End())

	// Parser combinator for comments in a VM program
	pComment = ast.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))
	// Parser combinator for a generic VM operation (MemoryOp, ArithmeticOp, ...)
	pOperation = ast.OrdChoice("operation", nil,
		// Stack operation + label and jump operations
		pMemoryOp, pArithmeticOp, pLabelDecl, pGotoOp,
		// Function related operations and statements
		pFuncDecl, pFuncCallOp, pReturnOp,
	)

	// Memory operation, compliant with the following syntax: "{push|pop} {segment} {index}"
	pMemoryOp = ast.And("memory_op", nil, pMemOpType, pSegment, pc.Int())
	// Arithmetic operation, could either be binary or unary (modifies only the Stack Pointer)
	pArithmeticOp = ast.And("arithmetic_op", nil, pArithOpType)

	// Label declaration, compliant with the following syntax: "label {symbol}"
	pLabelDecl = ast.And("label_decl", nil, pc.Atom("label", "LABEL"), pIdent)
	// Jump operation, compliant with the following syntax: "{if-goto|goto} {symbol}"
	pGotoOp = ast.And("goto_op", nil, pJumpType, pIdent)

	// Function declaration, compliant with the following syntax: "function {name} {n_locals}"
	pFuncDecl = ast.And("func_decl", nil, pc.Atom("function", "FUNC"), pIdent, pc.Int())
	// Function call operation, compliant with the following syntax: "call {name} {n_args}"
	pFuncCallOp = ast.And("func_call", nil, pc.Atom("call", "CALL"), pIdent, pc.Int())
	// Return operation, compliant with the following syntax: "return"
	pReturnOp = ast.And("return_op", nil, pc.Atom("return", "RETURN"))
)

var (
	// Generic Identifier parser (for label and function declaration)
	// NOTE: An ident can be any sequence of letters, digits, and symbols (_, ., $, :).
	// NOTE: An ident cannot begin with a leading digit (a symbol is indeed allowed).
	pIdent = pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "IDENT")

	// Available memory operation type (only push and pop since it's stack based)
	pMemOpType = ast.OrdChoice("mem_op_type", nil, pc.Atom("push", "PUSH"), pc.Atom("pop", "POP"))
	// Available heap segments (they act as registers and are used alongside the stack)
	pSegment = ast.OrdChoice("mem_segment", nil,
		pc.Atom("argument", "ARGUMENT"), pc.Atom("local", "LOCAL"),
		pc.Atom("static", "STATIC"), pc.Atom("constant", "CONSTANT"),
		pc.Atom("this", "THIS"), pc.Atom("that", "THAT"),
		pc.Atom("temp", "TEMP"), pc.Atom("pointer", "POINTER"),
	)

	// Available arithmetic operation types
	pArithOpType = ast.OrdChoice("operations", nil,
		// Comparison operations available on the VM bytecode
		pc.Atom("eq", "EQ"), pc.Atom("gt", "GT"), pc.Atom("lt", "LT"),
		// Arithmetic operations available on the VM bytecode
		pc.Atom("add", "ADD"), pc.Atom("sub", "SUB"), pc.Atom("neg", "NEG"),
		// Bit-a-bit operations available on the VM bytecode
		pc.Atom("not", "NOT"), pc.Atom("and", "AND"), pc.Atom("or", "OR"),
	)

	// Jump types can either be conditional (if-goto) or unconditional (goto).
	pJumpType = ast.OrdChoice("jump_type", nil, pc.Atom("goto", "GOTO"), pc.Atom("if-goto", "IF-GOTO"))
)

// ----------------------------------------------------------------------------
// Vm Parser

// This section defines the Parser for the nand2tetris Vm language.
//
// It uses parser combinators to obtain the AST from the source code (the latter can be provided)
// in multiple ways using a generic io.Reader, the library reads up the feature flags (as env vars):
// - PARSEC_DEBUG: Verbose logging to inspect which of the PCs gets triggered and match
// - EXPORT_AST:   Exports in the DEBUG_FOLDER a Graphviz representation of the AST
// - PRINT_AST:    Print on the stdout a textual representation of the AST
type Parser struct{ reader io.Reader }

// NewParser initializes and returns to the caller a brand new 'Parser' struct.
// Requires the argument io.Reader 'r' to be valid and usable.
func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

// Parse divides the 2 phases of the parsing pipeline:
// Text --> AST: This step is done using PCs and returns a generic traversable AST
// AST --> IR: This step is done by traversing the AST and extracting the 'vm.Module'
func (p *Parser) Parse() (Module, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, fmt.Errorf("vm: cannot read input: %w", err)
	}

	root, success := p.FromSource(content)
	if !success {
		return nil, fmt.Errorf("vm: failed to parse AST from input content")
	}

	return p.FromAST(root)
}

// FromSource scans the textual input stream and returns a traversable AST (Abstract
// Syntax Tree) that can be eventually visited to extract/transform the info available.
func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {
	// Feature flag: Enable 'goparsec' library's debug logs
	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	// We generate the traversable Abstract Syntax Tree from the source content
	root, _ := ast.Parsewith(pModule, pc.NewScanner(source))

	// Feature flag: Enables export of the AST as Dot file (debug.ast.dot)
	if os.Getenv("EXPORT_AST") != "" {
		if file, err := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER"))); err == nil {
			defer file.Close()
			file.Write([]byte(ast.Dotstring("\"VM AST\"")))
		}
	}

	// Feature flag: Enables pretty printing of the AST on the console
	if os.Getenv("PRINT_AST") != "" {
		ast.Prettyprint()
	}

	return root, root != nil
}

// FromAST takes the root node of the raw parsed AST and does a DFS on it parsing
// one by one each subtree and returning a 'vm.Module' that can be used as in-memory and
// type-safe IR not dependent on the parsing library used.
func (p *Parser) FromAST(root pc.Queryable) (Module, error) {
	module := Module{}

	if root.GetName() != "module" {
		return nil, fmt.Errorf("vm: expected node 'module', found %s", root.GetName())
	}

	for _, child := range root.GetChildren() {
		switch child.GetName() {
		case "memory_op":
			op, err := p.HandleMemoryOp(child)
			if err != nil {
				return nil, err
			}
			module = append(module, op)

		case "arithmetic_op":
			op, err := p.HandleArithmeticOp(child)
			if err != nil {
				return nil, err
			}
			module = append(module, op)

		case "label_decl":
			op, err := p.HandleLabelDecl(child)
			if err != nil {
				return nil, err
			}
			module = append(module, op)

		case "goto_op":
			op, err := p.HandleGotoOp(child)
			if err != nil {
				return nil, err
			}
			module = append(module, op)

		case "func_decl":
			op, err := p.HandleFuncDecl(child)
			if err != nil {
				return nil, err
			}
			module = append(module, op)

		case "return_op":
			module = append(module, ReturnOp{})

		case "func_call":
			op, err := p.HandleFuncCall(child)
			if err != nil {
				return nil, err
			}
			module = append(module, op)

		case "comment": // Comment nodes in the AST are just skipped
			continue

		default:
			return nil, fmt.Errorf("vm: unrecognized node '%s'", child.GetName())
		}
	}

	return module, nil
}

// HandleMemoryOp converts a "memory_op" node to a 'vm.MemoryOp'.
func (Parser) HandleMemoryOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "memory_op" {
		return nil, fmt.Errorf("vm: expected node 'memory_op', got %s", node.GetName())
	}
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, fmt.Errorf("vm: expected node 'memory_op' with 3 leaf, got %d", len(children))
	}

	operation := OperationType(children[0].GetValue())
	segment := SegmentType(children[1].GetValue())
	offset, err := strconv.ParseUint(children[2].GetValue(), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("vm: failed to parse offset in memory_op, got '%s'", children[2].GetValue())
	}

	return MemoryOp{Operation: operation, Segment: segment, Offset: uint16(offset)}, nil
}

// HandleArithmeticOp converts an "arithmetic_op" node to a 'vm.ArithmeticOp'.
func (Parser) HandleArithmeticOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "arithmetic_op" {
		return nil, fmt.Errorf("vm: expected node 'arithmetic_op', got %s", node.GetName())
	}
	children := node.GetChildren()
	if len(children) != 1 {
		return nil, fmt.Errorf("vm: expected node 'arithmetic_op' with 1 leaf, got %d", len(children))
	}

	return ArithmeticOp{Operation: ArithOpType(children[0].GetValue())}, nil
}

// HandleLabelDecl converts a "label_decl" node to a 'vm.LabelDecl'.
func (Parser) HandleLabelDecl(node pc.Queryable) (Operation, error) {
	if node.GetName() != "label_decl" {
		return nil, fmt.Errorf("vm: expected node 'label_decl', got %s", node.GetName())
	}
	children := node.GetChildren()
	if len(children) != 2 {
		return nil, fmt.Errorf("vm: expected node 'label_decl' with 2 leaf, got %d", len(children))
	}

	return LabelDecl{Name: children[1].GetValue()}, nil
}

// HandleGotoOp converts a "goto_op" node to a 'vm.GotoOp'.
func (Parser) HandleGotoOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "goto_op" {
		return nil, fmt.Errorf("vm: expected node 'goto_op', got %s", node.GetName())
	}
	children := node.GetChildren()
	if len(children) != 2 {
		return nil, fmt.Errorf("vm: expected node 'goto_op' with 2 leaf, got %d", len(children))
	}

	return GotoOp{Jump: JumpType(children[0].GetValue()), Label: children[1].GetValue()}, nil
}

// HandleFuncDecl converts a "func_decl" node to a 'vm.FuncDecl'.
func (Parser) HandleFuncDecl(node pc.Queryable) (Operation, error) {
	if node.GetName() != "func_decl" {
		return nil, fmt.Errorf("vm: expected node 'func_decl', got %s", node.GetName())
	}
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, fmt.Errorf("vm: expected node 'func_decl' with 3 leaf, got %d", len(children))
	}

	nLocal, err := strconv.ParseUint(children[2].GetValue(), 10, 8)
	if err != nil {
		return nil, fmt.Errorf("vm: failed to parse nLocal in func_decl, got '%s'", children[2].GetValue())
	}

	return FuncDecl{Name: children[1].GetValue(), NLocal: uint8(nLocal)}, nil
}

// HandleFuncCall converts a "func_call" node to a 'vm.FuncCallOp'.
func (Parser) HandleFuncCall(node pc.Queryable) (Operation, error) {
	if node.GetName() != "func_call" {
		return nil, fmt.Errorf("vm: expected node 'func_call', got %s", node.GetName())
	}
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, fmt.Errorf("vm: expected node 'func_call' with 3 leaf, got %d", len(children))
	}

	nArgs, err := strconv.ParseUint(children[2].GetValue(), 10, 8)
	if err != nil {
		return nil, fmt.Errorf("vm: failed to parse nArgs in func_call, got '%s'", children[2].GetValue())
	}

	return FuncCallOp{Name: children[1].GetValue(), NArgs: uint8(nArgs)}, nil
}
