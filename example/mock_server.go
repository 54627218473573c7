package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// mockState tracks the agent count served by the mock endpoint.
type mockState struct {
	agents       int
	nextChangeAt time.Time
}

// StartMockAvailabilityServer runs a mock availability endpoint whose agent
// count drifts every few seconds. Roughly one response in ten is broken
// (a 503 or a non-JSON body) so failures show up in the log.
// Call this in a goroutine before starting the checker.
func StartMockAvailabilityServer(addr, apiName string) {
	var mu sync.Mutex
	state := &mockState{agents: 3, nextChangeAt: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		// simulate small latency variance
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		switch rand.Intn(20) {
		case 0:
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		case 1:
			_, _ = w.Write([]byte("<html>maintenance</html>"))
			return
		}

		mu.Lock()
		if time.Now().After(state.nextChangeAt) {
			old := state.agents
			state.agents = max(0, state.agents+rand.Intn(5)-2)
			state.nextChangeAt = time.Now().Add(time.Duration(5+rand.Intn(10)) * time.Second)
			slog.Info("agent count change", "from", old, "to", state.agents)
		}
		agents := state.agents
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]int{apiName: agents}); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
