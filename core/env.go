package lisper

import (
	"math"
	"sort"
)

// Env maps symbol names to expressions. Lambda calls evaluate their body in
// a Clone, so nothing a body defines is visible to the caller.
type Env struct {
	data map[string]Expr
}

func NewEnv() *Env {
	return &Env{data: make(map[string]Expr)}
}

// DefaultEnv returns a root environment seeded with the native operations
// and constants.
func DefaultEnv() *Env {
	env := NewEnv()
	for name, fn := range Natives() {
		env.Set(name, NativeFunc(name, fn))
	}
	env.Set("pi", Number(math.Pi))
	env.Set("two_pi", Number(math.Pi*2))
	env.Set("e", Number(math.E))
	return env
}

func (env *Env) Get(name string) (Expr, bool) {
	x, ok := env.data[name]
	return x, ok
}

// Set inserts or overwrites a binding.
func (env *Env) Set(name string, value Expr) {
	env.data[name] = value
}

func (env *Env) Clone() *Env {
	cp := make(map[string]Expr, len(env.data))
	for k, v := range env.data {
		cp[k] = v
	}
	return &Env{data: cp}
}

func (env *Env) Names() []string {
	names := make([]string, 0, len(env.data))
	for name := range env.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (env *Env) Len() int { return len(env.data) }

// Natives returns the native operation table keyed by the name each is
// bound under. Aliases share an implementation.
func Natives() map[string]NativeFn {
	return map[string]NativeFn{
		// Arithmetic
		"+":   nativeAdd,
		"-":   nativeSub,
		"sub": nativeSub,
		"*":   nativeMul,
		"mul": nativeMul,
		"/":   nativeDiv,
		"div": nativeDiv,
		"%":   nativeMod,
		"mod": nativeMod,
		// Comparison
		"<":  nativeLt,
		">":  nativeGt,
		"=":  nativeEq,
		"==": nativeEq,
		"<=": nativeLe,
		">=": nativeGe,
		// Trig
		"sin": nativeSin,
		"cos": nativeCos,
		"tan": nativeTan,
	}
}

// --- Arithmetic ---

// fold applies op left to right. The entry at index 0 seeds the
// accumulator; entries that are not numbers are skipped, so a non-number in
// first position leaves the seed at 0.
func fold(args Expr, op func(acc, n float64) float64) Expr {
	acc := 0.0
	for i, arg := range args.List {
		if arg.Kind != ExprNumber {
			continue
		}
		if i == 0 {
			acc = arg.Num
		} else {
			acc = op(acc, arg.Num)
		}
	}
	return Number(acc)
}

func nativeAdd(args Expr) Expr {
	return fold(args, func(acc, n float64) float64 { return acc + n })
}

func nativeSub(args Expr) Expr {
	return fold(args, func(acc, n float64) float64 { return acc - n })
}

func nativeMul(args Expr) Expr {
	return fold(args, func(acc, n float64) float64 { return acc * n })
}

func nativeDiv(args Expr) Expr {
	return fold(args, func(acc, n float64) float64 { return acc / n })
}

func nativeMod(args Expr) Expr {
	return fold(args, math.Mod)
}

// --- Comparison ---

// chain compares each number with the one before it and returns the last
// comparison. Fewer than two numbers compare false.
func chain(args Expr, cmp func(prev, n float64) bool) Expr {
	prev := 0.0
	res := false
	seen := 0
	for i, arg := range args.List {
		if arg.Kind != ExprNumber {
			continue
		}
		seen++
		if i == 0 {
			prev = arg.Num
			continue
		}
		res = cmp(prev, arg.Num)
		prev = arg.Num
	}
	if seen < 2 {
		return Bool(false)
	}
	return Bool(res)
}

func nativeLt(args Expr) Expr {
	return chain(args, func(prev, n float64) bool { return prev < n })
}

func nativeGt(args Expr) Expr {
	return chain(args, func(prev, n float64) bool { return prev > n })
}

func nativeEq(args Expr) Expr {
	return chain(args, func(prev, n float64) bool { return prev == n })
}

func nativeLe(args Expr) Expr {
	return chain(args, func(prev, n float64) bool { return prev <= n })
}

func nativeGe(args Expr) Expr {
	return chain(args, func(prev, n float64) bool { return prev >= n })
}

// --- Trig ---

func unary(args Expr, f func(float64) float64) Expr {
	if len(args.List) == 0 || args.List[0].Kind != ExprNumber {
		return Number(0)
	}
	return Number(f(args.List[0].Num))
}

func nativeSin(args Expr) Expr { return unary(args, math.Sin) }
func nativeCos(args Expr) Expr { return unary(args, math.Cos) }
func nativeTan(args Expr) Expr { return unary(args, math.Tan) }
