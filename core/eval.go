package lisper

// Eval evaluates expr against env. Only def, fn, and the head of a
// sequencing list mutate env; a lambda body runs in a clone.
func Eval(expr Expr, env *Env) (Expr, error) {
	switch expr.Kind {
	case ExprNumber, ExprBool:
		return expr, nil
	case ExprSymbol:
		val, ok := env.Get(expr.Str)
		if !ok {
			return Expr{}, reasonf(ErrUnboundSymbol, "unbound symbol: %s", expr.Str)
		}
		return val, nil
	case ExprNative, ExprLambda:
		return Expr{}, reasonf(ErrUnexpectedCallable, "unexpected %s outside a call", expr.KindName())
	case ExprList:
		return evalList(expr.List, env)
	default:
		return Expr{}, reasonf(ErrInvalidCallHead, "unknown expression kind: %d", expr.Kind)
	}
}

func evalList(items []Expr, env *Env) (Expr, error) {
	if len(items) == 0 {
		return Expr{}, reasonf(ErrEmptyExpression, "cannot eval empty list")
	}

	head, args := items[0], items[1:]
	if head.Kind == ExprList {
		// ((def a 1) (+ a 1)): run the head for its effects, then the rest
		// as a fresh call.
		if _, err := Eval(head, env); err != nil {
			return Expr{}, err
		}
		return Eval(List(args...), env)
	}
	if head.Kind != ExprSymbol {
		return Expr{}, reasonf(ErrInvalidCallHead, "cannot call %s value", head.KindName())
	}

	// Special forms
	switch head.Str {
	case "if":
		return evalIf(args, env)
	case "def":
		return evalDef(args, env)
	case "fn":
		return evalFn(args, env)
	}

	fn, ok := env.Get(head.Str)
	if !ok {
		return Expr{}, reasonf(ErrUnknownOperator, "unknown function: %s", head.Str)
	}
	switch fn.Kind {
	case ExprNative:
		return callNative(fn.Native, args, env)
	case ExprLambda:
		return callLambda(head.Str, fn.Lambda, args, env)
	default:
		return Expr{}, reasonf(ErrNotCallable, "cannot call %s: not a function (%s)", head.Str, fn.KindName())
	}
}

// evalIf: (if cond then else). Bools branch on themselves, numbers on n > 0.
func evalIf(args []Expr, env *Env) (Expr, error) {
	if len(args) != 3 {
		return Expr{}, arityError("if", 3, len(args), "cond then else")
	}
	cond, err := Eval(args[0], env)
	if err != nil {
		return Expr{}, err
	}
	var branch bool
	switch cond.Kind {
	case ExprBool:
		branch = cond.Bool
	case ExprNumber:
		branch = cond.Num > 0
	default:
		return Expr{}, reasonf(ErrInvalidCondition, "if: condition must be Bool or Number, got %s", cond.KindName())
	}
	if branch {
		return Eval(args[1], env)
	}
	return Eval(args[2], env)
}

// evalDef: (def name expr). The name is taken as rendered, unevaluated.
func evalDef(args []Expr, env *Env) (Expr, error) {
	if len(args) != 2 {
		return Expr{}, arityError("def", 2, len(args), "name expr")
	}
	val, err := Eval(args[1], env)
	if err != nil {
		return Expr{}, err
	}
	env.Set(args[0].String(), val)
	return val, nil
}

// evalFn: (fn name param body). Binds a lambda under name and returns true.
func evalFn(args []Expr, env *Env) (Expr, error) {
	if len(args) != 3 {
		return Expr{}, arityError("fn", 3, len(args), "name param body")
	}
	env.Set(args[0].String(), LambdaFunc(args[1].String(), args[2]))
	return Bool(true), nil
}

func callNative(fn *Native, argExprs []Expr, env *Env) (Expr, error) {
	vals := make([]Expr, len(argExprs))
	for i, arg := range argExprs {
		val, err := Eval(arg, env)
		if err != nil {
			return Expr{}, err
		}
		vals[i] = val
	}
	return fn.Fn(List(vals...)), nil
}

// callLambda evaluates the single argument in the caller's env, then the
// body in a full copy of it with the parameter bound.
func callLambda(name string, fn *Lambda, argExprs []Expr, env *Env) (Expr, error) {
	if len(argExprs) != 1 {
		return Expr{}, arityError("call", 1, len(argExprs), name)
	}
	arg, err := Eval(argExprs[0], env)
	if err != nil {
		return Expr{}, err
	}
	scope := env.Clone()
	scope.Set(fn.Param, arg)
	return Eval(fn.Body, scope)
}
