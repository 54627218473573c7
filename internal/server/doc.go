// Package server provides the HTTP server behind `agentcheck serve`.
//
// It exposes the collected availability log in three forms (raw CSV, JSON
// and a Server-Sent Events stream of new rows) plus an embedded dashboard
// page that renders them.
package server
