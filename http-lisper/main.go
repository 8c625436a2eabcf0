package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	lisper "github.com/rphilander/lisper/core"
)

const maxBody = 1 << 20

func newUUID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		log.Fatalf("generate uuid: %v", err)
	}
	buf[6] = (buf[6] & 0x0f) | 0x40 // version 4
	buf[8] = (buf[8] & 0x3f) | 0x80 // variant 2
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		buf[0:4], buf[4:6], buf[6:8], buf[8:10], buf[10:16])
}

// --- core client ---

type coreResult struct {
	resp map[string]any
	err  error
}

// Host serves HTTP requests by forwarding them to a lisper core over one
// socket connection.
type Host struct {
	conn    net.Conn
	connMu  sync.Mutex // one request in flight on conn
	timeout time.Duration
}

func (h *Host) send(req map[string]any) (map[string]any, error) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if err := lisper.WriteMsg(h.conn, req); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	resp, err := lisper.ReadMsg(h.conn)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return resp, nil
}

// call sends req and waits up to h.timeout for the answer.
func (h *Host) call(ctx context.Context, req map[string]any) (map[string]any, error) {
	ch := make(chan coreResult, 1)
	go func() {
		resp, err := h.send(req)
		ch <- coreResult{resp, err}
	}()

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.resp, r.err
	case <-timer.C:
		return nil, fmt.Errorf("core timeout")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// --- handlers ---

func (h *Host) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /run", h.handleRun)
	mux.HandleFunc("POST /eval", h.handleEval)
	mux.HandleFunc("GET /bindings", h.handleBindings)
	mux.HandleFunc("POST /reset", h.handleReset)
	return logRequests(mux)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := newUUID()
		w.Header().Set("X-Request-Id", reqID)
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s (%s)", reqID, r.Method, r.URL.Path, time.Since(start))
	})
}

func readBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return "", false
	}
	return string(body), true
}

// handleRun evaluates the body as a batch in a fresh environment and writes
// the last line's output as plain text, the way an embedding host shows it.
func (h *Host) handleRun(w http.ResponseWriter, r *http.Request) {
	text, ok := readBody(w, r)
	if !ok {
		return
	}
	resp, err := h.call(r.Context(), map[string]any{"id": lisper.NextID(), "op": "run", "text": text})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if ok, _ := resp["ok"].(bool); !ok {
		errMsg, _ := resp["error"].(string)
		http.Error(w, errMsg, http.StatusBadGateway)
		return
	}
	out, _ := resp["value"].(string)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, out)
}

type evalRequest struct {
	Expr string `json:"expr"`
}

type evalResponse struct {
	OK    bool   `json:"ok"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

func (h *Host) handleEval(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req evalRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		writeJSON(w, http.StatusBadRequest, evalResponse{Error: fmt.Sprintf("parse JSON: %v", err)})
		return
	}
	resp, err := h.call(r.Context(), map[string]any{"id": lisper.NextID(), "op": "eval", "expr": req.Expr})
	if err != nil {
		writeJSON(w, http.StatusBadGateway, evalResponse{Error: err.Error()})
		return
	}
	if ok, _ := resp["ok"].(bool); !ok {
		errMsg, _ := resp["error"].(string)
		// Evaluation failures are a normal outcome, not a gateway error.
		writeJSON(w, http.StatusOK, evalResponse{Error: errMsg})
		return
	}
	val, _ := resp["value"].(string)
	writeJSON(w, http.StatusOK, evalResponse{OK: true, Value: val})
}

func (h *Host) handleBindings(w http.ResponseWriter, r *http.Request) {
	h.forwardJSON(w, r, "bindings")
}

func (h *Host) handleReset(w http.ResponseWriter, r *http.Request) {
	h.forwardJSON(w, r, "reset")
}

func (h *Host) forwardJSON(w http.ResponseWriter, r *http.Request, op string) {
	resp, err := h.call(r.Context(), map[string]any{"id": lisper.NextID(), "op": op})
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	delete(resp, "id")
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	sockPath := envOr("LISPER_SOCK", "/tmp/lisper.sock")
	addr := envOr("LISPER_HTTP_ADDR", ":8080")

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		log.Fatalf("connect to core socket: %v", err)
	}
	defer conn.Close()
	log.Printf("connected to lisper core: %s", sockPath)

	h := &Host{conn: conn, timeout: 30 * time.Second}
	srv := &http.Server{Addr: addr, Handler: h.Handler()}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("http server: %v", err)
	}
}
