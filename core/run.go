package lisper

import "strings"

const Version = "0.3.0"

// EvalString tokenizes and parses the first expression in line, then
// evaluates it against env.
func EvalString(line string, env *Env) (Expr, error) {
	expr, err := ParseString(line)
	if err != nil {
		return Expr{}, err
	}
	return Eval(expr, env)
}

// EvalLine is EvalString with the result rendered for display.
func EvalLine(line string, env *Env) (string, error) {
	val, err := EvalString(line, env)
	if err != nil {
		return "", err
	}
	return val.String(), nil
}

// LineResult is the outcome of one line of a batch.
type LineResult struct {
	Input  string
	Output string // rendered value, or the error text when Err is set
	Err    error
}

// RunLines evaluates each line of text against env in order. A failing line
// does not stop the ones after it.
func RunLines(text string, env *Env) []LineResult {
	lines := splitLines(text)
	results := make([]LineResult, len(lines))
	for i, line := range lines {
		out, err := EvalLine(line, env)
		if err != nil {
			out = err.Error()
		}
		results[i] = LineResult{Input: line, Output: out, Err: err}
	}
	return results
}

// Run is the embedding entry point: it evaluates every line and returns the
// output of the last one, which is its error text if it failed.
func Run(text string, env *Env) string {
	results := RunLines(text, env)
	if len(results) == 0 {
		return ""
	}
	return results[len(results)-1].Output
}

// splitLines splits on "\n", trims a trailing "\r" from each line, and does
// not produce an empty final line for text ending in a newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
