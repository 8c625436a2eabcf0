package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	lisper "github.com/rphilander/lisper/core"
)

const (
	historyFile = ".lisper_history"
	promptMain  = "lisper> "
	promptCont  = "...> "
)

var banner = fmt.Sprintf("lisper %s\nCtrl+C cancels input, Ctrl+D exits. Type exit or :quit to exit.", lisper.Version)

func red(s string) string { return "\x1b[31m" + s + "\x1b[0m" }

// prompter is the part of *liner.State the read loop needs.
type prompter interface {
	Prompt(prompt string) (string, error)
}

func main() {
	var evalStr string
	var quiet bool
	flag.StringVar(&evalStr, "e", "", "Evaluate the given expression and exit")
	flag.BoolVar(&quiet, "q", false, "Do not print the banner")
	flag.Parse()

	switch {
	case evalStr != "":
		out, err := lisper.EvalLine(evalStr, lisper.DefaultEnv())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(out)
	case flag.NArg() > 0:
		os.Exit(cmdRun(flag.Arg(0), os.Stdout))
	case !isTerminal(os.Stdin):
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read stdin: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(lisper.Run(string(data), lisper.DefaultEnv()))
	default:
		os.Exit(cmdRepl(quiet))
	}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// cmdRun evaluates a file as a batch and prints the last line's output.
func cmdRun(path string, w io.Writer) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lisper: cannot read %s: %v\n", path, err)
		return 1
	}
	fmt.Fprintln(w, lisper.Run(string(src), lisper.DefaultEnv()))
	return 0
}

func cmdRepl(quiet bool) int {
	if !quiet {
		fmt.Println(banner)
	}

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	env := lisper.DefaultEnv()
	repl(ln, env, os.Stdout, os.Stderr, func(src string) {
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
	})
	return 0
}

// repl reads inputs until EOF or an exit command, printing each result to
// out and each error to errOut. remember is called with every evaluated
// input.
func repl(p prompter, env *lisper.Env, out, errOut io.Writer, remember func(string)) {
	for {
		src, ok := readInput(p, promptMain, promptCont)
		if !ok {
			fmt.Fprintln(out)
			return
		}

		trimmed := strings.TrimSpace(src)
		switch trimmed {
		case "":
			continue
		case "exit", ":quit":
			return
		}

		if remember != nil {
			remember(src)
		}
		val, err := lisper.EvalLine(src, env)
		if err != nil {
			fmt.Fprintln(errOut, red(err.Error()))
			continue
		}
		fmt.Fprintln(out, val)
	}
}

// readInput keeps prompting with cont while the input so far is an
// unterminated list. The second result is false on EOF.
func readInput(p prompter, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = p.Prompt(prompt)
		} else {
			line, err = p.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl+C drops the pending input.
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if _, err := lisper.ParseString(src); errors.Is(err, lisper.ErrUnterminatedList) {
			continue
		}
		return src, true
	}
}
