package lisper

import (
	"errors"
	"math"
	"testing"
)

func testEval(t *testing.T, input string, expected Expr) {
	t.Helper()
	val, err := EvalString(input, DefaultEnv())
	if err != nil {
		t.Fatalf("eval %q: %v", input, err)
	}
	if !Equal(val, expected) {
		t.Fatalf("eval %q: expected %s, got %s", input, expected, val)
	}
}

func testEvalError(t *testing.T, env *Env, input string, kind error) {
	t.Helper()
	if env == nil {
		env = DefaultEnv()
	}
	_, err := EvalString(input, env)
	if err == nil {
		t.Fatalf("expected error for %q", input)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("eval %q: expected %v, got %v", input, kind, err)
	}
}

// --- Literals and symbols ---

func TestEvalLiterals(t *testing.T) {
	testEval(t, "42", Number(42))
	testEval(t, "3.5", Number(3.5))
	testEval(t, "true", Bool(true))
	testEval(t, "false", Bool(false))
	testEval(t, "pi", Number(math.Pi))
	testEval(t, "two_pi", Number(2*math.Pi))
	testEval(t, "e", Number(math.E))
}

func TestEvalUnboundSymbol(t *testing.T) {
	testEvalError(t, nil, "nope", ErrUnboundSymbol)
}

func TestEvalCallableSymbol(t *testing.T) {
	// A bare symbol bound to a function evaluates to the function itself.
	env := DefaultEnv()
	if _, err := EvalString("(fn inc a (+ a 1))", env); err != nil {
		t.Fatal(err)
	}
	for input, want := range map[string]string{
		"+":   "Function",
		"inc": "(a,(+,a,1))",
	} {
		out, err := EvalLine(input, env)
		if err != nil {
			t.Fatal(err)
		}
		if out != want {
			t.Fatalf("eval %q: expected %q, got %q", input, want, out)
		}
	}
}

func TestEvalCallableOutsideCall(t *testing.T) {
	for _, x := range []Expr{
		NativeFunc("+", nativeAdd),
		LambdaFunc("a", Symbol("a")),
	} {
		_, err := Eval(x, DefaultEnv())
		if !errors.Is(err, ErrUnexpectedCallable) {
			t.Fatalf("eval %s: expected %v, got %v", x.KindName(), ErrUnexpectedCallable, err)
		}
	}
}

// --- Arithmetic ---

func TestEvalNested(t *testing.T) {
	testEval(t, "(+ (+ 1 1) (* 2 2))", Number(6))
	testEval(t, "(+ (+ 1 1) (*  2 2))", Number(6))
	testEval(t, "(* (+ 1 2) (- 10 4))", Number(18))
}

func TestEvalArithmetic(t *testing.T) {
	testEval(t, "(+ 52 13)", Number(65))
	testEval(t, "(- 52 13)", Number(39))
	testEval(t, "(sub 10 1 2)", Number(7))
	testEval(t, "(* 52 13)", Number(676))
	testEval(t, "(mul 2 3 4)", Number(24))
	testEval(t, "(/ 52 13)", Number(4))
	testEval(t, "(div 1 4)", Number(0.25))
	testEval(t, "(% 52 13)", Number(0))
	testEval(t, "(mod 7 3)", Number(1))
	testEval(t, "(% -7 3)", Number(-1))
	testEval(t, "(+ 5)", Number(5))
	testEval(t, "(+)", Number(0))
}

func TestEvalDivideByZero(t *testing.T) {
	val, err := EvalString("(/ 1 0)", DefaultEnv())
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(val.Num, 1) || val.String() != "inf" {
		t.Fatalf("expected inf, got %s", val)
	}
}

func TestEvalPermissiveArithmetic(t *testing.T) {
	// Non-numbers are skipped; one in first position leaves the seed at 0.
	testEval(t, "(+ 1 true 2)", Number(3))
	testEval(t, "(+ true 5)", Number(5))
	testEval(t, "(- true 5)", Number(-5))
	testEval(t, "(* false 5)", Number(0))
}

// --- Comparison ---

func TestEvalComparators(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  bool
	}{
		{"(< 1 2)", true},
		{"(< 2 1)", false},
		{"(> 2 1)", true},
		{"(= 3 3)", true},
		{"(== 3 4)", false},
		{"(<= 6 5)", false},
		{"(<= 5 5)", true},
		{"(>= 3 5)", false},
		{"(>= 5 3)", true},
		{"(< 1 2 3)", true},
		{"(< 1 3 2)", false},
		{"(< 3 1 2)", true}, // last comparison wins
		{"(< 1)", false},
		{"(<)", false},
		{"(< 1 true)", false},
	} {
		testEval(t, tc.input, Bool(tc.want))
	}
}

// --- Trig ---

func TestEvalTrig(t *testing.T) {
	testEval(t, "(sin 0)", Number(0))
	testEval(t, "(cos 0)", Number(1))
	testEval(t, "(tan 0)", Number(0))
	testEval(t, "(sin)", Number(0))
	testEval(t, "(cos true)", Number(0))
	testEval(t, "(sin 0 99)", Number(0))
}

// --- if ---

func TestEvalIf(t *testing.T) {
	testEval(t, "(if (< 1 0) 1 2)", Number(2))
	testEval(t, "(if (< 0 1) 1 2)", Number(1))
	testEval(t, "(if true 1 2)", Number(1))
	testEval(t, "(if 5 1 2)", Number(1))
	testEval(t, "(if 0 1 2)", Number(2))
	testEval(t, "(if -1 1 2)", Number(2))
}

func TestEvalIfOnlyEvaluatesTakenBranch(t *testing.T) {
	env := DefaultEnv()
	if _, err := EvalString("(if true 1 (def x 9))", env); err != nil {
		t.Fatal(err)
	}
	if _, ok := env.Get("x"); ok {
		t.Fatal("untaken branch should not run")
	}
	testEval(t, "(if false nope 3)", Number(3))
}

func TestEvalIfErrors(t *testing.T) {
	testEvalError(t, nil, "(if true 1)", ErrArity)
	testEvalError(t, nil, "(if true 1 2 3)", ErrArity)
	testEvalError(t, nil, "(if)", ErrArity)
	testEvalError(t, nil, "(if nope 1 2)", ErrUnboundSymbol)
}

func TestEvalIfInvalidCondition(t *testing.T) {
	env := DefaultEnv()
	env.Set("s", Symbol("hello"))
	testEvalError(t, env, "(if s 1 2)", ErrInvalidCondition)

	_, err := EvalString("(if s 1 2)", env)
	if err.Error() != "if: condition must be Bool or Number, got Symbol" {
		t.Fatalf("unexpected reason: %q", err.Error())
	}
}

// --- def ---

func TestEvalDef(t *testing.T) {
	env := DefaultEnv()
	val, err := EvalString("(def a 1)", env)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(val, Number(1)) {
		t.Fatalf("def should return the bound value, got %s", val)
	}
	val, err = EvalString("(+ a 1)", env)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(val, Number(2)) {
		t.Fatalf("expected 2, got %s", val)
	}
}

func TestEvalDefOverwrite(t *testing.T) {
	env := DefaultEnv()
	for _, line := range []string{"(def a 1)", "(def a (+ a 10))"} {
		if _, err := EvalString(line, env); err != nil {
			t.Fatal(err)
		}
	}
	a, _ := env.Get("a")
	if !Equal(a, Number(11)) {
		t.Fatalf("expected 11, got %s", a)
	}
}

func TestEvalDefNameIsRendered(t *testing.T) {
	env := DefaultEnv()
	if _, err := EvalString("(def 5 1)", env); err != nil {
		t.Fatal(err)
	}
	if _, ok := env.Get("5"); !ok {
		t.Fatal("expected binding under \"5\"")
	}
}

func TestEvalDefErrors(t *testing.T) {
	testEvalError(t, nil, "(def a)", ErrArity)
	testEvalError(t, nil, "(def a 1 2)", ErrArity)

	env := DefaultEnv()
	testEvalError(t, env, "(def a nope)", ErrUnboundSymbol)
	if _, ok := env.Get("a"); ok {
		t.Fatal("failed def should not bind")
	}
}

// --- fn and lambda calls ---

func TestEvalFn(t *testing.T) {
	env := DefaultEnv()
	val, err := EvalString("(fn add-fn a (+ a 1))", env)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(val, Bool(true)) {
		t.Fatalf("fn should return true, got %s", val)
	}
	val, err = EvalString("(add-fn 1)", env)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(val, Number(2)) {
		t.Fatalf("expected 2, got %s", val)
	}

	testEvalError(t, env, "(add-fn)", ErrArity)
	testEvalError(t, env, "(add-fn 1 2)", ErrArity)

	_, err = EvalString("(add-fn 1 2)", env)
	if err.Error() != "call: expected 1 arg (add-fn), got 2" {
		t.Fatalf("unexpected reason: %q", err.Error())
	}
}

func TestEvalFnArity(t *testing.T) {
	testEvalError(t, nil, "(fn f a)", ErrArity)
	testEvalError(t, nil, "(fn f a b c)", ErrArity)
}

func TestEvalLambdaScopeIsolation(t *testing.T) {
	env := DefaultEnv()
	for _, line := range []string{
		"(fn leak a ((def inner 5) + a inner))",
		"(def r (leak 1))",
	} {
		if _, err := EvalString(line, env); err != nil {
			t.Fatalf("eval %q: %v", line, err)
		}
	}
	r, _ := env.Get("r")
	if !Equal(r, Number(6)) {
		t.Fatalf("expected 6, got %s", r)
	}
	if _, ok := env.Get("inner"); ok {
		t.Fatal("def inside a lambda body leaked into the caller")
	}
	if _, ok := env.Get("a"); ok {
		t.Fatal("parameter leaked into the caller")
	}
}

func TestEvalLambdaSeesCallerBindings(t *testing.T) {
	env := DefaultEnv()
	for _, line := range []string{
		"(fn addk a (+ a k))",
		"(def k 10)",
	} {
		if _, err := EvalString(line, env); err != nil {
			t.Fatal(err)
		}
	}
	val, err := EvalString("(addk 1)", env)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(val, Number(11)) {
		t.Fatalf("expected 11, got %s", val)
	}
}

func TestEvalRecursion(t *testing.T) {
	env := DefaultEnv()
	if _, err := EvalString("(fn fact n (if (<= n 1) 1 (* n (fact (- n 1)))))", env); err != nil {
		t.Fatal(err)
	}
	val, err := EvalString("(fact 5)", env)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(val, Number(120)) {
		t.Fatalf("expected 120, got %s", val)
	}
}

func TestEvalLambdaArgEvaluatedInCaller(t *testing.T) {
	env := DefaultEnv()
	for _, line := range []string{"(fn id a a)", "(def x 3)"} {
		if _, err := EvalString(line, env); err != nil {
			t.Fatal(err)
		}
	}
	val, err := EvalString("(id (+ x 1))", env)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(val, Number(4)) {
		t.Fatalf("expected 4, got %s", val)
	}
}

// --- Call errors ---

func TestEvalEmptyList(t *testing.T) {
	testEvalError(t, nil, "()", ErrEmptyExpression)
}

func TestEvalUnknownOperator(t *testing.T) {
	testEvalError(t, nil, "(frobnicate 1)", ErrUnknownOperator)
}

func TestEvalNotCallable(t *testing.T) {
	testEvalError(t, nil, "(pi 1)", ErrNotCallable)
}

func TestEvalInvalidCallHead(t *testing.T) {
	testEvalError(t, nil, "(1 2 3)", ErrInvalidCallHead)
	testEvalError(t, nil, "(true 1)", ErrInvalidCallHead)
}

func TestEvalArgumentErrorShortCircuits(t *testing.T) {
	env := DefaultEnv()
	testEvalError(t, env, "(+ nope (def y 1))", ErrUnboundSymbol)
	if _, ok := env.Get("y"); ok {
		t.Fatal("arguments after a failing one should not be evaluated")
	}
}

// --- Sequencing ---

func TestEvalSequencingList(t *testing.T) {
	env := DefaultEnv()
	val, err := EvalString("((def a 1) + a 1)", env)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(val, Number(2)) {
		t.Fatalf("expected 2, got %s", val)
	}
	if _, ok := env.Get("a"); !ok {
		t.Fatal("head of a sequencing list should bind in env")
	}
}

func TestEvalSequencingListNestedTail(t *testing.T) {
	// The tail is evaluated as a call whose head is the list (+ a 1).
	env := DefaultEnv()
	testEvalError(t, env, "((def a 1) (+ a 1))", ErrEmptyExpression)
	if _, ok := env.Get("a"); !ok {
		t.Fatal("head should have run before the tail failed")
	}
}

func TestEvalReasonIsDisplayText(t *testing.T) {
	_, err := EvalString("(frobnicate 1)", DefaultEnv())
	var le *Error
	if !errors.As(err, &le) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if le.Reason != "unknown function: frobnicate" || err.Error() != le.Reason {
		t.Fatalf("unexpected reason: %q", le.Reason)
	}
}
