package jack_test

import (
	"testing"

	"github.com/nandforge/n2t/pkg/jack"
)

func TestTokenizeValid(t *testing.T) {
	test := func(name, source string, expected []jack.Token) {
		t.Run(name, func(t *testing.T) {
			tokens, err := jack.NewTokenizer([]byte(source)).Tokenize()
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if len(tokens) != len(expected) {
				t.Fatalf("expected %d tokens, got %d: %+v", len(expected), len(tokens), tokens)
			}
			for i := range expected {
				if tokens[i] != expected[i] {
					t.Errorf("token %d: expected %+v, got %+v", i, expected[i], tokens[i])
				}
			}
		})
	}

	test("keywords and symbols", "class Foo { }", []jack.Token{
		{Kind: jack.Keyword, Value: "class"},
		{Kind: jack.Identifier, Value: "Foo"},
		{Kind: jack.Symbol, Value: "{"},
		{Kind: jack.Symbol, Value: "}"},
	})

	test("integer constant", "let x = 42;", []jack.Token{
		{Kind: jack.Keyword, Value: "let"},
		{Kind: jack.Identifier, Value: "x"},
		{Kind: jack.Symbol, Value: "="},
		{Kind: jack.IntConst, Value: "42"},
		{Kind: jack.Symbol, Value: ";"},
	})

	test("string constant", `"hello world"`, []jack.Token{
		{Kind: jack.StringConst, Value: "hello world"},
	})

	test("line comment skipped", "x // trailing comment\ny", []jack.Token{
		{Kind: jack.Identifier, Value: "x"},
		{Kind: jack.Identifier, Value: "y"},
	})

	test("block comment skipped", "x /* skip\nme */ y", []jack.Token{
		{Kind: jack.Identifier, Value: "x"},
		{Kind: jack.Identifier, Value: "y"},
	})

	test("division is not a comment", "x / y", []jack.Token{
		{Kind: jack.Identifier, Value: "x"},
		{Kind: jack.Symbol, Value: "/"},
		{Kind: jack.Identifier, Value: "y"},
	})
}

func TestTokenizeErrors(t *testing.T) {
	test := func(name, source string) {
		t.Run(name, func(t *testing.T) {
			if _, err := jack.NewTokenizer([]byte(source)).Tokenize(); err == nil {
				t.Fatalf("expected an error, got none")
			}
		})
	}

	test("integer overflow", "32768")
	test("unterminated string", "\"no closing quote")
	test("newline inside string", "\"broken\nstring\"")
	test("unterminated block comment", "/* never closes")
	test("invalid identifier leading digit", "1abc")
}
