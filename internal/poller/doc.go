// Package poller provides the HTTP fetch and interval scheduling used by
// agentcheck.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with per-request timeouts, a status code
//     check and a response size limit
//   - [Scheduler]: runs a job immediately and then on a fixed interval
//   - [RunResult]: outcome of a single scheduled run
//
// Users of the agentcheck library should not need to interact with this
// package directly. Configuration is done through the agentcheck package.
package poller
