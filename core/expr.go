package lisper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type ExprKind int

const (
	ExprSymbol ExprKind = iota
	ExprNumber
	ExprBool
	ExprList
	ExprNative
	ExprLambda
)

// NativeFn is a host function installed in the environment. It receives the
// evaluated arguments packed into a single List and must not fail.
type NativeFn func(args Expr) Expr

type Native struct {
	Name string
	Fn   NativeFn
}

// Lambda is a single-parameter user function created by the fn form.
type Lambda struct {
	Param string
	Body  Expr
}

// Expr is both the syntax tree and the runtime value. Exactly one payload
// field is meaningful, selected by Kind.
type Expr struct {
	Kind   ExprKind
	Str    string
	Num    float64
	Bool   bool
	List   []Expr
	Native *Native
	Lambda *Lambda
}

func Symbol(name string) Expr { return Expr{Kind: ExprSymbol, Str: name} }
func Number(f float64) Expr   { return Expr{Kind: ExprNumber, Num: f} }
func Bool(b bool) Expr        { return Expr{Kind: ExprBool, Bool: b} }
func List(items ...Expr) Expr {
	if items == nil {
		items = []Expr{}
	}
	return Expr{Kind: ExprList, List: items}
}
func NativeFunc(name string, fn NativeFn) Expr {
	return Expr{Kind: ExprNative, Native: &Native{Name: name, Fn: fn}}
}
func LambdaFunc(param string, body Expr) Expr {
	return Expr{Kind: ExprLambda, Lambda: &Lambda{Param: param, Body: body}}
}

// nativePlaceholder is how every native function renders.
const nativePlaceholder = "Function"

func (x Expr) String() string {
	switch x.Kind {
	case ExprSymbol:
		return x.Str
	case ExprNumber:
		return formatNumber(x.Num)
	case ExprBool:
		if x.Bool {
			return "true"
		}
		return "false"
	case ExprList:
		return joinItems(x.List)
	case ExprLambda:
		return joinItems([]Expr{Symbol(x.Lambda.Param), x.Lambda.Body})
	case ExprNative:
		return nativePlaceholder
	default:
		return fmt.Sprintf("<unknown:%d>", x.Kind)
	}
}

func joinItems(items []Expr) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// formatNumber prints the shortest decimal that round-trips, never using
// exponent notation, so 4.0 prints as "4" and 1e-7 as "0.0000001".
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (x Expr) KindName() string {
	switch x.Kind {
	case ExprSymbol:
		return "Symbol"
	case ExprNumber:
		return "Number"
	case ExprBool:
		return "Bool"
	case ExprList:
		return "List"
	case ExprNative:
		return "NativeFunction"
	case ExprLambda:
		return "Lambda"
	default:
		return "Unknown"
	}
}

// IsCallable reports whether x may only appear at the head of a call.
func (x Expr) IsCallable() bool {
	return x.Kind == ExprNative || x.Kind == ExprLambda
}

// Equal compares two expressions for deep equality. Natives compare by name
// since Go functions are not comparable.
func Equal(a, b Expr) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ExprSymbol:
		return a.Str == b.Str
	case ExprNumber:
		return a.Num == b.Num || (math.IsNaN(a.Num) && math.IsNaN(b.Num))
	case ExprBool:
		return a.Bool == b.Bool
	case ExprList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case ExprNative:
		return a.Native.Name == b.Native.Name
	case ExprLambda:
		return a.Lambda.Param == b.Lambda.Param && Equal(a.Lambda.Body, b.Lambda.Body)
	}
	return false
}
