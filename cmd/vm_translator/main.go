package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nandforge/n2t/pkg/asm"
	"github.com/nandforge/n2t/pkg/vm"
	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	WithArg(cli.NewArg("input", "A single .vm file or a directory containing .vm files")).
	WithAction(Handler)

// discoverUnits walks input (a file or a directory) and returns every ".vm" file found,
// in a deterministic (lexicographic) order.
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
		if !d.IsDir() && filepath.Ext(path) == ".vm" {
			units = append(units, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to walk input directory: %w", err)
	}
	return units, nil
}

func outputPath(input string, units []string) string {
	info, err := os.Stat(input)
	if err == nil && info.IsDir() {
		dirname := filepath.Base(filepath.Clean(input))
		return filepath.Join(input, dirname+".asm")
	}
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".asm"
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
		fmt.Printf("ERROR: No .vm files found in '%s'\n", args[0])
		return -1
	}

	program := vm.NewProgram()
	hasSysVM := false

	for _, unit := range units {
		content, err := os.ReadFile(unit)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		moduleName := strings.TrimSuffix(filepath.Base(unit), filepath.Ext(unit))
		if filepath.Base(unit) == "Sys.vm" {
			hasSysVM = true
		}

		parser := vm.NewParser(bytes.NewReader(content))
		module, err := parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass on '%s': %s\n", unit, err)
			return -1
		}
		program.Set(moduleName, module)
	}

	translator := asm.NewTranslator()
	var chunks []asm.Chunk

	if hasSysVM {
		bootstrap, err := translator.Bootstrap()
		if err != nil {
			fmt.Printf("ERROR: Unable to emit bootstrap code: %s\n", err)
			return -1
		}
		chunks = append(chunks, bootstrap...)
	}

	translated, err := translator.TranslateProgram(program)
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'translation' pass: %s\n", err)
		return -1
	}
	chunks = append(chunks, translated...)

	lines, err := asm.RenderChunks(chunks)
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteString("\n")
	}

	if err := os.WriteFile(outputPath(args[0], units), buf.Bytes(), 0644); err != nil {
		fmt.Printf("ERROR: Unable to write output file: %s\n", err)
		return -1
	}

	return 0
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
