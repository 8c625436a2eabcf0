package lisper

import (
	"errors"
	"reflect"
	"testing"
)

func TestRun(t *testing.T) {
	out := Run("(def w 2)\n(+ 2 w)", DefaultEnv())
	if out != "4" {
		t.Fatalf("expected \"4\", got %q", out)
	}
}

func TestRunEmpty(t *testing.T) {
	if out := Run("", DefaultEnv()); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}

func TestRunErrorIsOutput(t *testing.T) {
	out := Run("(+ 1 1)\n(nope 1)", DefaultEnv())
	if out != "unknown function: nope" {
		t.Fatalf("expected error text as output, got %q", out)
	}
}

func TestRunContinuesAfterError(t *testing.T) {
	env := DefaultEnv()
	out := Run("(def a nope)\n(def a 5)\n(* a 2)", env)
	if out != "10" {
		t.Fatalf("expected \"10\", got %q", out)
	}
}

func TestRunLines(t *testing.T) {
	results := RunLines("(def x 3)\r\n\n(+ x x)\n", DefaultEnv())
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	outputs := make([]string, len(results))
	for i, r := range results {
		outputs[i] = r.Output
	}
	if !reflect.DeepEqual(outputs, []string{"3", "parse: no tokens", "6"}) {
		t.Fatalf("unexpected outputs: %q", outputs)
	}
	if results[0].Input != "(def x 3)" {
		t.Fatalf("expected trailing \\r trimmed, got %q", results[0].Input)
	}
	if !errors.Is(results[1].Err, ErrEmptyInput) {
		t.Fatalf("expected empty input error for blank line, got %v", results[1].Err)
	}
	if results[2].Err != nil {
		t.Fatalf("unexpected error: %v", results[2].Err)
	}
}

func TestEvalLine(t *testing.T) {
	env := DefaultEnv()
	for _, tc := range []struct {
		input string
		want  string
	}{
		{"(/ 10 4)", "2.5"},
		{"(< 1 2)", "true"},
		{"(fn sq x (* x x))", "true"},
		{"(sq 3)", "9"},
		{"(+ 1) (* 2 2)", "1"},
	} {
		got, err := EvalLine(tc.input, env)
		if err != nil {
			t.Fatalf("eval %q: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("eval %q: expected %q, got %q", tc.input, tc.want, got)
		}
	}
}

func TestEvalLineParseError(t *testing.T) {
	_, err := EvalLine("(+ 1", DefaultEnv())
	if !errors.Is(err, ErrUnterminatedList) {
		t.Fatalf("expected unterminated list, got %v", err)
	}
}
