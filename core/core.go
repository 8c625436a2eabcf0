package lisper

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"
)

// Core serves a Session over a unix socket. A single actor goroutine owns
// the session, so requests from concurrent connections are evaluated one at
// a time against the same environment.
type Core struct {
	session   *Session
	history   HistoryStore // optional
	requests  chan coreRequest
	listener  net.Listener
	traces    []Trace
	maxTraces int

	done      chan struct{}  // closed by Shutdown
	actor     sync.WaitGroup // the running actorLoop, if any
	closeOnce sync.Once
}

type coreRequest struct {
	msg      map[string]any
	response chan map[string]any
}

// NewCore opens the session in dir and listens on sockPath. history may be
// nil.
func NewCore(dir, sockPath string, history HistoryStore) (*Core, error) {
	// Clean up a stale socket
	os.Remove(sockPath)

	session, err := NewSession(dir)
	if err != nil {
		return nil, fmt.Errorf("init session: %w", err)
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("listen: %w", err)
	}

	c := newCore(session, history)
	c.listener = listener
	return c, nil
}

func newCore(session *Session, history HistoryStore) *Core {
	return &Core{
		session:   session,
		history:   history,
		requests:  make(chan coreRequest, 64),
		maxTraces: 1000,
		done:      make(chan struct{}),
	}
}

// Run starts the actor goroutine and accepts connections. Blocks until
// the listener is closed.
func (c *Core) Run() {
	c.startActor()
	c.acceptClients()
}

func (c *Core) startActor() {
	c.actor.Add(1)
	go func() {
		defer c.actor.Done()
		c.actorLoop()
	}()
}

func (c *Core) acceptClients() {
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			return
		}
		go c.handleClientConnection(conn)
	}
}

// Shutdown stops accepting, waits for the request in flight, and closes the
// session. Connections still open get closed on their next request. Safe to
// call more than once.
func (c *Core) Shutdown() {
	c.closeOnce.Do(func() {
		if c.listener != nil {
			c.listener.Close()
		}
		close(c.done)
		c.actor.Wait()
		c.session.Close()
		if c.history != nil {
			c.history.Close()
		}
	})
}

// actorLoop is the single goroutine that owns session state.
func (c *Core) actorLoop() {
	for {
		select {
		case req := <-c.requests:
			req.response <- c.handleRequest(req.msg)
		case <-c.done:
			return
		}
	}
}

// sendToActor sends a request to the core actor and waits for the response.
// It reports false once the core is shutting down.
func (c *Core) sendToActor(msg map[string]any) (map[string]any, bool) {
	resp := make(chan map[string]any, 1)
	select {
	case c.requests <- coreRequest{msg: msg, response: resp}:
	case <-c.done:
		return nil, false
	}
	select {
	case r := <-resp:
		return r, true
	case <-c.done:
		return nil, false
	}
}

func (c *Core) handleRequest(msg map[string]any) map[string]any {
	id, _ := msg["id"].(string)

	op, _ := msg["op"].(string)
	switch op {
	case "":
		return c.coreManual(id)
	case "eval":
		return c.handleEval(id, msg)
	case "run":
		return c.handleRun(id, msg)
	case "bindings":
		return c.handleBindings(id)
	case "reset":
		return c.handleReset(id)
	case "traces":
		return c.handleTraces(id, msg)
	case "history":
		return c.handleHistory(id, msg)
	default:
		return errorResponse(id, fmt.Sprintf("unknown op: %s", op))
	}
}

func (c *Core) coreManual(id string) map[string]any {
	return map[string]any{
		"id": id,
		"ok": true,
		"value": map[string]any{
			"name":    "lisper-core",
			"version": Version,
			"ops": map[string]any{
				"eval":     "Evaluate one expression. Params: expr (string)",
				"run":      "Evaluate newline-separated expressions in a fresh environment, returning the last output. Params: text (string), session (bool, optional: use the shared session instead)",
				"bindings": "List every bound name in the session environment.",
				"reset":    "Truncate the session log and restore the default environment.",
				"traces":   "Return recent requests. Params: n (int, optional)",
				"history":  "Return persisted evaluations. Params: n (int, optional)",
			},
			"forms": []any{"if", "def", "fn"},
		},
	}
}

func (c *Core) handleEval(id string, msg map[string]any) map[string]any {
	expr, ok := msg["expr"].(string)
	if !ok {
		return errorResponse(id, "eval: missing 'expr' string")
	}

	trace := &Trace{
		Op:        "eval",
		Entry:     expr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	val, err := c.session.Eval(expr)
	if err != nil {
		trace.Error = err.Error()
		c.appendTrace(trace)
		return errorResponse(id, err.Error())
	}

	trace.Result = val.String()
	c.appendTrace(trace)
	return map[string]any{"id": id, "ok": true, "value": trace.Result}
}

// handleRun evaluates text in a fresh default environment, the way an
// embedding host runs a whole buffer on every edit. With "session": true it
// runs against the shared session instead and logs definitions. Evaluation
// failures are never errors: failed lines contribute their error text as
// output.
func (c *Core) handleRun(id string, msg map[string]any) map[string]any {
	text, ok := msg["text"].(string)
	if !ok {
		return errorResponse(id, "run: missing 'text' string")
	}
	inSession, _ := msg["session"].(bool)

	trace := &Trace{
		Op:        "run",
		Entry:     text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	var results []LineResult
	if inSession {
		var err error
		results, err = c.session.Run(text)
		if err != nil {
			trace.Error = err.Error()
			c.appendTrace(trace)
			return errorResponse(id, err.Error())
		}
	} else {
		results = RunLines(text, DefaultEnv())
	}

	lines := make([]any, len(results))
	for i, r := range results {
		lines[i] = r.Output
	}
	if len(results) > 0 {
		trace.Result = results[len(results)-1].Output
	}
	c.appendTrace(trace)
	return map[string]any{"id": id, "ok": true, "value": trace.Result, "lines": lines}
}

func (c *Core) handleBindings(id string) map[string]any {
	names := c.session.Env().Names()
	result := make([]any, len(names))
	for i, n := range names {
		result[i] = n
	}
	return map[string]any{"id": id, "ok": true, "value": result}
}

func (c *Core) handleReset(id string) map[string]any {
	if err := c.session.Reset(); err != nil {
		return errorResponse(id, err.Error())
	}
	c.traces = nil
	return map[string]any{"id": id, "ok": true, "value": "reset"}
}

// handleTraces: {"op": "traces"} or {"op": "traces", "n": N} returns the last N traces.
func (c *Core) handleTraces(id string, msg map[string]any) map[string]any {
	n := len(c.traces)
	if raw, exists := msg["n"]; exists {
		limit, ok := raw.(float64)
		if !ok || limit < 0 {
			return errorResponse(id, "traces: 'n' must be a non-negative number")
		}
		if int(limit) < n {
			n = int(limit)
		}
	}

	start := len(c.traces) - n
	result := make([]any, n)
	for i := 0; i < n; i++ {
		result[i] = c.traces[start+i].ToMap()
	}
	return map[string]any{"id": id, "ok": true, "value": result}
}

func (c *Core) handleHistory(id string, msg map[string]any) map[string]any {
	if c.history == nil {
		return errorResponse(id, "history: no history store configured")
	}
	n := 50
	if raw, exists := msg["n"]; exists {
		limit, ok := raw.(float64)
		if !ok || limit < 0 {
			return errorResponse(id, "history: 'n' must be a non-negative number")
		}
		n = int(limit)
	}
	entries, err := c.history.Recent(n)
	if err != nil {
		return errorResponse(id, fmt.Sprintf("history: %s", err))
	}
	result := make([]any, len(entries))
	for i, e := range entries {
		result[i] = map[string]any{
			"op":         e.Op,
			"input":      e.Input,
			"output":     e.Output,
			"ok":         e.OK,
			"created_at": e.CreatedAt,
		}
	}
	return map[string]any{"id": id, "ok": true, "value": result}
}

func errorResponse(id, errMsg string) map[string]any {
	return map[string]any{"id": id, "ok": false, "error": errMsg}
}

// appendTrace adds a trace, enforces the maxTraces cap, and forwards it to
// the history store.
func (c *Core) appendTrace(t *Trace) {
	c.traces = append(c.traces, *t)
	if len(c.traces) > c.maxTraces {
		// Drop oldest traces
		excess := len(c.traces) - c.maxTraces
		c.traces = c.traces[excess:]
	}
	if c.history != nil {
		if err := c.history.Append(t.historyEntry()); err != nil {
			log.Printf("append history: %v", err)
		}
	}
}

// --- Connection handling ---

func (c *Core) handleClientConnection(conn net.Conn) {
	defer conn.Close()

	for {
		msg, err := ReadMsg(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("read client message: %v", err)
			}
			return
		}

		resp, ok := c.sendToActor(msg)
		if !ok {
			return
		}
		if err := WriteMsg(conn, resp); err != nil {
			log.Printf("write client response: %v", err)
			return
		}
	}
}
