package agentcheck

import (
	"errors"
	"strconv"
	"time"
)

// Sentinel values written in place of the agent count when a check fails.
// They keep the AvailableAgents column a single field regardless of outcome.
const (
	// SentinelConnectionError is recorded when the request could not be
	// completed: connection refused, timeout, or a non-2xx response.
	SentinelConnectionError = "Connection Error"

	// SentinelInvalidJSON is recorded when the response body is not valid JSON.
	SentinelInvalidJSON = "Invalid JSON Response"

	// SentinelUnknownError is recorded for every other failure.
	SentinelUnknownError = "Unknown Error"
)

var (
	// ErrConnection marks failures at the network layer.
	ErrConnection = errors.New("connection error")

	// ErrInvalidJSON marks a response body that could not be decoded as JSON.
	ErrInvalidJSON = errors.New("invalid JSON response")

	// ErrUnexpectedValue marks a decoded body whose shape does not yield an
	// integer count, e.g. a top-level array or a non-numeric field.
	ErrUnexpectedValue = errors.New("unexpected response value")
)

// Value is the AvailableAgents column of a [Record]: either a count or one
// of the sentinel strings.
//
// The zero Value is a count of 0.
type Value struct {
	count    int
	sentinel string
}

// Count returns a Value holding the agent count n.
func Count(n int) Value {
	return Value{count: n}
}

// Sentinel returns a Value holding one of the sentinel strings.
func Sentinel(s string) Value {
	return Value{sentinel: s}
}

// IsSentinel reports whether v records a failure rather than a count.
func (v Value) IsSentinel() bool {
	return v.sentinel != ""
}

// Int returns the count and true, or 0 and false for a sentinel.
func (v Value) Int() (int, bool) {
	if v.IsSentinel() {
		return 0, false
	}
	return v.count, true
}

// String renders the value as it appears in the CSV file.
func (v Value) String() string {
	if v.IsSentinel() {
		return v.sentinel
	}
	return strconv.Itoa(v.count)
}

// ParseValue is the inverse of [Value.String]. Anything that is not an
// integer is kept verbatim as a sentinel.
func ParseValue(s string) Value {
	if n, err := strconv.Atoi(s); err == nil {
		return Count(n)
	}
	return Sentinel(s)
}

// ValueForError maps a check error onto the sentinel it is recorded as.
// A nil error has no sentinel and maps to a count of 0.
func ValueForError(err error) Value {
	switch {
	case err == nil:
		return Count(0)
	case errors.Is(err, ErrConnection):
		return Sentinel(SentinelConnectionError)
	case errors.Is(err, ErrInvalidJSON):
		return Sentinel(SentinelInvalidJSON)
	default:
		return Sentinel(SentinelUnknownError)
	}
}

// TimestampLayout is the format of the Timestamp column (YYYY-MM-DD HH:MM:SS).
const TimestampLayout = "2006-01-02 15:04:05"

// Record is one row of the availability log.
//
// A Record is created and appended exactly once per check and never
// modified afterwards.
type Record struct {
	// Timestamp is the local time the row was written.
	Timestamp time.Time

	// APIName identifies the counter that was read.
	APIName string

	// Value is the agent count or the failure sentinel.
	Value Value
}

// Fields returns the record as the three CSV columns.
func (r Record) Fields() (timestamp, apiName, value string) {
	return r.Timestamp.Format(TimestampLayout), r.APIName, r.Value.String()
}
