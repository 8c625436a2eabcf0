package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"

	lisper "github.com/rphilander/lisper/core"
)

const usage = `usage:
  lisper-cli eval <expr>
  lisper-cli run <file>
  lisper-cli < request.json`

// buildRequest turns the command line (or stdin when there are no
// arguments) into a core request.
func buildRequest(args []string, stdin io.Reader) (map[string]any, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
		return msg, nil
	}

	switch args[0] {
	case "eval":
		if len(args) != 2 {
			return nil, fmt.Errorf("eval takes one expression\n%s", usage)
		}
		return map[string]any{"op": "eval", "expr": args[1]}, nil
	case "run":
		if len(args) != 2 {
			return nil, fmt.Errorf("run takes one file\n%s", usage)
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", args[1], err)
		}
		return map[string]any{"op": "run", "text": string(data)}, nil
	case "bindings", "reset", "traces", "history":
		return map[string]any{"op": args[0]}, nil
	default:
		return nil, fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func main() {
	sockPath := os.Getenv("LISPER_SOCK")
	if sockPath == "" {
		sockPath = "/tmp/lisper.sock"
	}

	msg, err := buildRequest(os.Args[1:], os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Add id if missing
	if _, ok := msg["id"]; !ok {
		msg["id"] = lisper.NextID()
	}

	// Connect to core
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := lisper.WriteMsg(conn, msg); err != nil {
		fmt.Fprintf(os.Stderr, "send: %v\n", err)
		os.Exit(1)
	}

	resp, err := lisper.ReadMsg(conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "receive: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "format response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
	if ok, _ := resp["ok"].(bool); !ok {
		os.Exit(1)
	}
}
