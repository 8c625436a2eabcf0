package lisper

// Trace captures one request handled by a Core: the source it was given,
// what it produced, and when.
type Trace struct {
	Op        string // "eval" or "run"
	Entry     string // source text
	Result    string // rendered result; for run, the last line's output
	Error     string // non-empty on error
	Timestamp string // ISO 8601
}

// ToMap converts a Trace to the JSON-friendly form served by the traces op.
func (t *Trace) ToMap() map[string]any {
	m := map[string]any{
		"op":        t.Op,
		"entry":     t.Entry,
		"result":    t.Result,
		"timestamp": t.Timestamp,
	}
	if t.Error != "" {
		m["error"] = t.Error
	} else {
		m["error"] = nil
	}
	return m
}

// HistoryEntry is one evaluation as kept by a HistoryStore.
type HistoryEntry struct {
	Op        string
	Input     string
	Output    string
	OK        bool
	CreatedAt string
}

// HistoryStore persists evaluations beyond the in-memory trace ring.
type HistoryStore interface {
	Append(e HistoryEntry) error
	// Recent returns up to n entries, oldest first.
	Recent(n int) ([]HistoryEntry, error)
	Close() error
}

func (t *Trace) historyEntry() HistoryEntry {
	out := t.Result
	if t.Error != "" {
		out = t.Error
	}
	return HistoryEntry{
		Op:        t.Op,
		Input:     t.Entry,
		Output:    out,
		OK:        t.Error == "",
		CreatedAt: t.Timestamp,
	}
}
