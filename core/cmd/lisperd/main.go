package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	lisper "github.com/rphilander/lisper/core"
	"github.com/rphilander/lisper/history"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	sockPath := envOr("LISPER_SOCK", "/tmp/lisper.sock")
	dir := envOr("LISPER_DIR", ".")
	historyPath := os.Getenv("LISPER_HISTORY_DB")

	var store lisper.HistoryStore
	if historyPath != "" {
		s, err := history.Open(historyPath)
		if err != nil {
			log.Fatalf("failed to open history: %v", err)
		}
		store = s
	}

	core, err := lisper.NewCore(dir, sockPath, store)
	if err != nil {
		log.Fatalf("failed to start core: %v", err)
	}

	// Handle shutdown signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Println("shutting down...")
		core.Shutdown()
		os.Exit(0)
	}()

	log.Printf("lisper core %s listening (socket: %s, log dir: %s, history: %q)", lisper.Version, sockPath, dir, historyPath)
	core.Run()
}
