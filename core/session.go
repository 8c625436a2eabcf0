package lisper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Session owns a root environment and persists every input line that can
// change it, so a restarted session replays back to the same bindings.
type Session struct {
	env     *Env
	dir     string
	logFile *os.File
}

func (s *Session) logPath() string {
	return filepath.Join(s.dir, "session.lisp")
}

// NewSession opens (or creates) the session log in dir and replays it into
// a fresh default environment.
func NewSession(dir string) (*Session, error) {
	s := &Session{env: DefaultEnv(), dir: dir}

	if err := s.replay(); err != nil {
		return nil, fmt.Errorf("replay session: %w", err)
	}

	f, err := os.OpenFile(s.logPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	s.logFile = f
	return s, nil
}

func (s *Session) Env() *Env { return s.env }

// Eval evaluates one line and logs it when it defines something.
func (s *Session) Eval(line string) (Expr, error) {
	val, err := EvalString(line, s.env)
	if logErr := s.record(line); logErr != nil {
		return Expr{}, fmt.Errorf("write log: %w", logErr)
	}
	return val, err
}

// Run evaluates a batch with the same semantics as the package-level Run and
// logs each defining line.
func (s *Session) Run(text string) ([]LineResult, error) {
	results := RunLines(text, s.env)
	for _, r := range results {
		if err := s.record(r.Input); err != nil {
			return results, fmt.Errorf("write log: %w", err)
		}
	}
	return results, nil
}

// record appends line to the log if it parses and contains def or fn. Lines
// that failed part-way are kept too: whatever they defined before failing
// is still bound, and replaying them fails the same way.
func (s *Session) record(line string) error {
	expr, err := ParseString(line)
	if err != nil || !definesBindings(expr) {
		return nil
	}
	return s.appendLog(logEntry(line))
}

// logEntry folds every whitespace run in line to one space. Entries are
// separated by blank lines, so an entry must not contain one; the tokenizer
// does not distinguish whitespace kinds.
func logEntry(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

func definesBindings(expr Expr) bool {
	if expr.Kind != ExprList || len(expr.List) == 0 {
		return false
	}
	head := expr.List[0]
	if head.Kind == ExprSymbol && (head.Str == "def" || head.Str == "fn") {
		return true
	}
	for _, item := range expr.List {
		if definesBindings(item) {
			return true
		}
	}
	return false
}

// Reset truncates the log and restores the default environment.
func (s *Session) Reset() error {
	if s.logFile != nil {
		s.logFile.Close()
		s.logFile = nil
	}

	if err := os.Remove(s.logPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reset: remove log: %w", err)
	}

	s.env = DefaultEnv()

	f, err := os.OpenFile(s.logPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("reset: reopen log: %w", err)
	}
	s.logFile = f
	return nil
}

func (s *Session) Close() error {
	if s.logFile != nil {
		return s.logFile.Close()
	}
	return nil
}

// --- Log ---

func (s *Session) replay() error {
	data, err := os.ReadFile(s.logPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range splitLogEntries(string(data)) {
		expr, err := ParseString(entry)
		if err != nil {
			return fmt.Errorf("replaying %q: %w", entry, err)
		}
		// Evaluation errors were already seen when the entry was first run.
		Eval(expr, s.env)
	}
	return nil
}

func (s *Session) appendLog(entry string) error {
	_, err := fmt.Fprintf(s.logFile, "%s\n\n", entry)
	return err
}

func splitLogEntries(data string) []string {
	raw := strings.Split(data, "\n\n")
	var entries []string
	for _, e := range raw {
		e = strings.TrimSpace(e)
		if e != "" {
			entries = append(entries, e)
		}
	}
	return entries
}
