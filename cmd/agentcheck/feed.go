package main

import (
	"context"

	"github.com/jpalmerr/agentcheck"
	"github.com/jpalmerr/agentcheck/internal/csvlog"
	"github.com/jpalmerr/agentcheck/internal/store"
)

// recordFromCheck converts a freshly checked record for the dashboard store.
func recordFromCheck(rec agentcheck.Record) store.Record {
	ts, apiName, value := rec.Fields()
	return store.Record{
		Timestamp:       ts,
		APIName:         apiName,
		AvailableAgents: value,
		Failed:          rec.Value.IsSentinel(),
	}
}

// recordFromRow converts a row read back from the CSV log.
func recordFromRow(row csvlog.Row) store.Record {
	return store.Record{
		Timestamp:       row.Timestamp,
		APIName:         row.APIName,
		AvailableAgents: row.AvailableAgents,
		Failed:          agentcheck.ParseValue(row.AvailableAgents).IsSentinel(),
	}
}

// forwardRows adds every row received on rows to st until rows is closed
// or ctx is cancelled.
func forwardRows(ctx context.Context, rows <-chan csvlog.Row, st store.Store) {
	for {
		select {
		case <-ctx.Done():
			return
		case row, ok := <-rows:
			if !ok {
				return
			}
			st.Add(recordFromRow(row))
		}
	}
}
