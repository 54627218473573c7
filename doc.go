// Package agentcheck polls an agent-availability endpoint and keeps an
// append-only CSV log of the results.
//
// Each check issues one HTTP GET with a bounded timeout, reads a named
// integer field from the JSON response and appends a single row:
//
//	Timestamp,APIName,AvailableAgents
//	2024-05-01 10:00:00,GP_Bosch_Rexroth_Chat_DC_VAG,5
//	2024-05-01 10:15:00,GP_Bosch_Rexroth_Chat_DC_VAG,Connection Error
//
// Failures never escape a check. They are recorded in the AvailableAgents
// column as one of the sentinel strings ([SentinelConnectionError],
// [SentinelInvalidJSON], [SentinelUnknownError]) so every invocation
// produces exactly one row.
//
// # Quick Start
//
//	checker, err := agentcheck.New(
//	    agentcheck.WithURL("https://example.com/agents-ready"),
//	    agentcheck.WithAPIName("Chat_DC"),
//	    agentcheck.WithCSVFile("agents.csv"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer checker.Close()
//
//	rec := checker.Check(context.Background())
//	fmt.Println(rec.Value)
//
// For continuous monitoring without an external scheduler, use
// [Checker.Run] with an interval.
//
// # Standalone Binary
//
// The cmd/agentcheck binary performs one check per invocation, suitable for
// cron or CI triggers, and can also watch in a loop or serve the collected
// log:
//
//	agentcheck                       # one check with built-in defaults
//	agentcheck check -c agentcheck.yaml
//	agentcheck watch -c agentcheck.yaml
//	agentcheck serve -c agentcheck.yaml
package agentcheck
