package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nandforge/n2t/pkg/jack"
	"github.com/nandforge/n2t/pkg/vm"
	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The Jack Compiler compiles programs (composed of multiple classes/files) written in
the Jack language into VM modules that can be further elaborated. The Jack language
is a higher-level OOP language tailored for use with the Hack computer architecture.
`, "\n", " ")

var JackCompiler = cli.New(Description).
	WithArg(cli.NewArg("input", "A single .jack file or a directory containing .jack files")).
	WithAction(Handler)

// discoverUnits walks input (a file or a directory) and returns every ".jack" file
// found, in a deterministic (lexicographic) order.
func discoverUnits(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("unable to stat input: %w", err)
	}

	if !info.IsDir() {
		return []string{input}, nil
	}

	var units []string
	err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".jack" {
			units = append(units, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to walk input directory: %w", err)
	}
	return units, nil
}

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	units, err := discoverUnits(args[0])
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}
	if len(units) == 0 {
		fmt.Printf("ERROR: No .jack files found in '%s'\n", args[0])
		return -1
	}

	// Each translation unit is tokenized, compiled and buffered independently before
	// any output is written, so a failure on one class leaves no partial .vm files behind.
	type compiled struct {
		outputPath string
		content    string
	}
	outputs := make([]compiled, 0, len(units))

	for _, unit := range units {
		source, err := os.ReadFile(unit)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		tokens, err := jack.NewTokenizer(source).Tokenize()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'tokenizing' pass on '%s': %s\n", unit, err)
			return -1
		}

		var buf bytes.Buffer
		writer := vm.NewWriter(&buf)
		compiler := jack.NewCompiler(tokens, writer)
		if err := compiler.CompileClass(); err != nil {
			fmt.Printf("ERROR: Unable to complete 'compiling' pass on '%s': %s\n", unit, err)
			return -1
		}
		if err := writer.Flush(); err != nil {
			fmt.Printf("ERROR: Unable to complete 'codegen' pass on '%s': %s\n", unit, err)
			return -1
		}

		ext := filepath.Ext(unit)
		outputs = append(outputs, compiled{
			outputPath: strings.TrimSuffix(unit, ext) + ".vm",
			content:    buf.String(),
		})
	}

	for _, out := range outputs {
		if err := os.WriteFile(out.outputPath, []byte(out.content), 0644); err != nil {
			fmt.Printf("ERROR: Unable to write output file '%s': %s\n", out.outputPath, err)
			return -1
		}
	}

	return 0
}

func main() { os.Exit(JackCompiler.Run(os.Args, os.Stdout)) }
