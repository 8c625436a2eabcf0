package lisper

import (
	"errors"
	"strconv"
	"strings"
)

// Tokenize pads parens with whitespace and splits on whitespace runs.
// ")(" with nothing between them stays one token.
func Tokenize(text string) []string {
	text = strings.ReplaceAll(text, "(", "( ")
	text = strings.ReplaceAll(text, ")", " )")
	return strings.Fields(text)
}

// Parse reads one expression from the front of tokens and returns it along
// with the tokens it did not consume.
func Parse(tokens []string) (Expr, []string, error) {
	if len(tokens) == 0 {
		return Expr{}, nil, reasonf(ErrEmptyInput, "parse: no tokens")
	}
	first, rest := tokens[0], tokens[1:]
	switch first {
	case "(":
		return parseList(rest)
	case ")":
		return Expr{}, nil, reasonf(ErrUnexpectedCloseParen, "parse: unexpected )")
	default:
		return parseAtom(first), rest, nil
	}
}

func parseList(tokens []string) (Expr, []string, error) {
	items := []Expr{}
	for {
		if len(tokens) == 0 {
			return Expr{}, nil, reasonf(ErrUnterminatedList, "parse: unclosed list, missing )")
		}
		if tokens[0] == ")" {
			return List(items...), tokens[1:], nil
		}
		item, rest, err := Parse(tokens)
		if err != nil {
			return Expr{}, nil, err
		}
		items = append(items, item)
		tokens = rest
	}
}

func parseAtom(token string) Expr {
	switch token {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if f, ok := parseNumber(token); ok {
		return Number(f)
	}
	return Symbol(token)
}

// parseNumber accepts decimal floats only. strconv also takes hex mantissas
// and digit separators, which are symbols here.
func parseNumber(token string) (float64, bool) {
	if strings.ContainsAny(token, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		var numErr *strconv.NumError
		// Out of range saturates to ±inf rather than failing.
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}

// ParseAll parses every top-level expression in tokens.
func ParseAll(tokens []string) ([]Expr, error) {
	var exprs []Expr
	for len(tokens) > 0 {
		expr, rest, err := Parse(tokens)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		tokens = rest
	}
	return exprs, nil
}

// ParseString tokenizes text and parses its first expression. Anything
// after the first complete form is ignored.
func ParseString(text string) (Expr, error) {
	expr, _, err := Parse(Tokenize(text))
	return expr, err
}
