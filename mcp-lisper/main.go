package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	lisper "github.com/rphilander/lisper/core"
)

// client forwards tool calls to the lisper core over its socket. Requests
// are serialized on the one connection.
type client struct {
	conn net.Conn
	mu   sync.Mutex
}

// send sends a request to the lisper core and returns the response.
func (c *client) send(req map[string]any) (map[string]any, error) {
	req["id"] = lisper.NextID()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := lisper.WriteMsg(c.conn, req); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	resp, err := lisper.ReadMsg(c.conn)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return resp, nil
}

// formatResult turns a core response into an MCP tool result. String values
// are returned as is; anything else is indented JSON.
func formatResult(resp map[string]any) (*mcp.CallToolResult, error) {
	ok, _ := resp["ok"].(bool)
	if !ok {
		errMsg, _ := resp["error"].(string)
		if errMsg == "" {
			errMsg = "unknown error"
		}
		return mcp.NewToolResultError(errMsg), nil
	}
	if s, isString := resp["value"].(string); isString {
		return mcp.NewToolResultText(s), nil
	}
	out, err := json.MarshalIndent(resp["value"], "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (c *client) forward(req map[string]any) (*mcp.CallToolResult, error) {
	resp, err := c.send(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func (c *client) handleEval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := request.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.forward(map[string]any{"op": "eval", "expr": expr})
}

func (c *client) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req := map[string]any{"op": "run", "text": text}
	if request.GetBool("session", false) {
		req["session"] = true
	}
	resp, err := c.send(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if request.GetBool("lines", false) {
		if ok, _ := resp["ok"].(bool); ok {
			resp["value"] = resp["lines"]
		}
	}
	return formatResult(resp)
}

func (c *client) handleBindings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.forward(map[string]any{"op": "bindings"})
}

func (c *client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.forward(map[string]any{"op": "reset"})
}

func (c *client) handleTraces(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := map[string]any{"op": "traces"}
	if n := request.GetFloat("n", -1); n >= 0 {
		req["n"] = n
	}
	return c.forward(req)
}

func newServer(c *client) *server.MCPServer {
	s := server.NewMCPServer(
		"lisper",
		lisper.Version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(
		mcp.NewTool("lisper_eval",
			mcp.WithDescription("Evaluate one lisper expression in the shared session. Returns the rendered result."),
			mcp.WithString("expr",
				mcp.Required(),
				mcp.Description("Expression to evaluate, e.g. (+ (+ 1 1) (* 2 2))"),
			),
		),
		c.handleEval,
	)

	s.AddTool(
		mcp.NewTool("lisper_run",
			mcp.WithDescription("Evaluate newline-separated expressions in order, in a fresh environment unless session is set. A failing line does not stop the rest; its error text becomes its output."),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Program text, one expression per line"),
			),
			mcp.WithBoolean("lines",
				mcp.Description("If true, return every line's output instead of only the last"),
			),
			mcp.WithBoolean("session",
				mcp.Description("If true, run in the shared session so definitions persist"),
			),
		),
		c.handleRun,
	)

	s.AddTool(
		mcp.NewTool("lisper_bindings",
			mcp.WithDescription("List every name bound in the session environment, natives included."),
		),
		c.handleBindings,
	)

	s.AddTool(
		mcp.NewTool("lisper_reset",
			mcp.WithDescription("Reset the session: truncate the log, restore the default environment, clear traces."),
		),
		c.handleReset,
	)

	s.AddTool(
		mcp.NewTool("lisper_traces",
			mcp.WithDescription("Return recent eval and run requests with their results or errors."),
			mcp.WithNumber("n",
				mcp.Description("Number of most recent traces to return (default all)"),
			),
		),
		c.handleTraces,
	)

	return s
}

func main() {
	sockPath := os.Getenv("LISPER_SOCK")
	if sockPath == "" {
		sockPath = "/tmp/lisper.sock"
	}

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		log.Fatalf("connect to %s: %v", sockPath, err)
	}
	defer conn.Close()
	log.Printf("connected to lisper core: %s", sockPath)

	if err := server.ServeStdio(newServer(&client{conn: conn})); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
