// Standalone mock availability server for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/agentcheck serve --poll -c example/config.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
)

func main() {
	fmt.Println("Mock availability server starting on :9999")
	fmt.Println("  GET  /ready          current agent count")
	fmt.Println("  POST /agents?n=<n>   set the agent count")
	fmt.Println("  POST /down           respond 503 until the next /agents")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu     sync.Mutex
		agents = 3
		down   bool
	)

	http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		n, isDown := agents, down
		mu.Unlock()

		if isDown {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{"GP_Bosch_Rexroth_Chat_DC_VAG": n})
	})

	http.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(r.URL.Query().Get("n"))
		if err != nil || n < 0 {
			http.Error(w, "n must be a non-negative integer", http.StatusBadRequest)
			return
		}
		mu.Lock()
		agents, down = n, false
		mu.Unlock()
		slog.Info("agent count set", "agents", n)
		w.WriteHeader(http.StatusNoContent)
	})

	http.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		down = true
		mu.Unlock()
		slog.Info("endpoint down")
		w.WriteHeader(http.StatusNoContent)
	})

	if err := http.ListenAndServe(":9999", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
