package agentcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/agentcheck/internal/csvlog"
	"github.com/jpalmerr/agentcheck/internal/poller"
)

const (
	// DefaultURL is the availability endpoint polled when no URL is configured.
	DefaultURL = "https://cx.bosch-so.com/rexroth-chat-DC-ready"

	// DefaultAPIName is the counter read from the response and recorded in
	// the APIName column.
	DefaultAPIName = "GP_Bosch_Rexroth_Chat_DC_VAG"

	// DefaultCSVFile is the log file appended to when no writer is configured.
	DefaultCSVFile = "agent_availability_log.csv"

	// DefaultTimeout bounds each availability request.
	DefaultTimeout = 30 * time.Second

	// DefaultInterval is the time between checks in loop mode.
	DefaultInterval = 15 * time.Minute
)

// RecordWriter persists records. Implementations must append; a record,
// once written, is never rewritten.
type RecordWriter interface {
	Append(rec Record) error
}

// Checker polls the availability endpoint and appends one [Record] per
// check.
//
// A Checker holds no state between checks beyond its configuration; each
// [Checker.Check] is an independent transaction. Create one with [New]:
//
//	checker, err := agentcheck.New(
//	    agentcheck.WithCSVFile("/var/log/agents.csv"),
//	    agentcheck.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	checker.Check(ctx)
type Checker struct {
	url       string
	apiName   string
	timeout   time.Duration
	headers   map[string]string
	extractor CountExtractor
	writer    RecordWriter
	client    *poller.Client
	logger    *slog.Logger
	now       func() time.Time
	callbacks []func(Record)
}

// New creates a [Checker] with the given options.
//
// Without options the checker polls [DefaultURL] for [DefaultAPIName] with
// a [DefaultTimeout] and appends to [DefaultCSVFile].
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Checker, error) {
	cfg := &checkerConfig{
		url:     DefaultURL,
		apiName: DefaultAPIName,
		timeout: DefaultTimeout,
		headers: map[string]string{},
		csvFile: DefaultCSVFile,
		now:     time.Now,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	extractor := cfg.extractor
	if extractor == nil {
		if cfg.field != "" {
			extractor = JSONFieldExtractor(cfg.field)
		} else {
			// the API name is a literal key, dots included
			extractor = JSONKeyExtractor(cfg.apiName)
		}
	}

	writer := cfg.writer
	if writer == nil {
		writer = &csvRecordWriter{w: csvlog.NewWriter(cfg.csvFile), logger: logger}
	}

	return &Checker{
		url:       cfg.url,
		apiName:   cfg.apiName,
		timeout:   cfg.timeout,
		headers:   copyMap(cfg.headers),
		extractor: extractor,
		writer:    writer,
		client:    poller.NewClient(),
		logger:    logger,
		now:       cfg.now,
		callbacks: cfg.callbacks,
	}, nil
}

// URL returns the polled endpoint.
func (c *Checker) URL() string { return c.url }

// APIName returns the counter name recorded in each row.
func (c *Checker) APIName() string { return c.apiName }

// Timeout returns the per-request timeout.
func (c *Checker) Timeout() time.Duration { return c.timeout }

// Check performs one availability check and appends its record.
//
// The outcome is always recorded, never returned as an error:
//   - a count read from the response (0 if the key is absent)
//   - [SentinelConnectionError] for connection failures, timeouts and non-2xx responses
//   - [SentinelInvalidJSON] for bodies that are not JSON
//   - [SentinelUnknownError] for everything else
//
// Check blocks for at most the configured timeout plus the time to append.
// The returned Record is the one handed to the writer.
func (c *Checker) Check(ctx context.Context) Record {
	logger := c.logger.With("check_id", uuid.NewString(), "api_name", c.apiName)
	logger.Info("running agent availability check", "url", c.url)

	value, err := c.fetchValue(ctx, logger)
	switch {
	case err == nil:
		logger.Info("fetched agent availability", "available_agents", value.String())
	case errors.Is(err, ErrConnection):
		logger.Error("could not connect to the API", "error", err.Error(), "recorded", value.String())
	case errors.Is(err, ErrInvalidJSON):
		logger.Error("could not parse the API response", "error", err.Error(), "recorded", value.String())
	default:
		logger.Error("unexpected error during check", "error", err.Error(), "recorded", value.String())
	}

	return c.appendRecord(logger, c.apiName, value)
}

// Append writes a record for apiName with value, stamped with the current
// time. A write failure is logged and swallowed.
func (c *Checker) Append(apiName string, value Value) Record {
	return c.appendRecord(c.logger.With("api_name", apiName), apiName, value)
}

// Run checks immediately and then once per interval until ctx is
// cancelled. It returns nil on cancellation.
func (c *Checker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}

	job := func(ctx context.Context) error {
		c.Check(ctx)
		return nil
	}

	scheduler := poller.NewScheduler(job, interval, c.logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	c.logger.Info("continuous monitoring started", "interval", interval.String())

	// results closes once ctx is cancelled and the in-flight check finishes
	for result := range scheduler.Results() {
		if result.Error != nil {
			c.logger.Warn("check cycle failed", "run_id", result.RunID, "error", result.Error.Error())
			continue
		}
		c.logger.Info("check cycle completed",
			"run_id", result.RunID,
			"duration_ms", result.Duration.Milliseconds(),
			"next_check_in", interval.String(),
		)
	}

	c.logger.Info("continuous monitoring stopped")
	return nil
}

// Close releases idle HTTP connections.
func (c *Checker) Close() {
	c.client.Close()
}

// fetchValue performs the request and extracts the count.
// On failure the returned Value is the sentinel for the returned error.
func (c *Checker) fetchValue(ctx context.Context, logger *slog.Logger) (Value, error) {
	resp := c.client.Fetch(ctx, http.MethodGet, c.url, c.headers, c.timeout)
	if resp.Error != nil {
		err := fmt.Errorf("%w: %w", ErrConnection, resp.Error)
		return ValueForError(err), err
	}

	logger.Debug("response received",
		"status_code", resp.StatusCode,
		"latency_ms", resp.Latency.Milliseconds(),
	)

	n, err := c.safeExtract(resp.Body, logger)
	if err != nil {
		return ValueForError(err), err
	}
	return Count(n), nil
}

// safeExtract calls the extractor with panic recovery.
// A panic is logged with a correlation ID and reported as an unknown error.
func (c *Checker) safeExtract(body []byte, logger *slog.Logger) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			logger.Error("extractor panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			n = 0
			err = fmt.Errorf("extractor panic (correlation_id: %s)", correlationID)
		}
	}()
	return c.extractor(body)
}

// appendRecord stamps, writes and announces one record.
func (c *Checker) appendRecord(logger *slog.Logger, apiName string, value Value) Record {
	rec := Record{
		Timestamp: c.now(),
		APIName:   apiName,
		Value:     value,
	}

	if err := c.writer.Append(rec); err != nil {
		logger.Error("could not write record", "error", err.Error())
	}

	for _, cb := range c.callbacks {
		invokeCallbackSafe(cb, rec, logger)
	}
	return rec
}

// invokeCallbackSafe calls a record callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Record), rec Record, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("record callback panicked", "panic", r)
		}
	}()
	cb(rec)
}

// csvRecordWriter adapts csvlog.Writer to [RecordWriter].
type csvRecordWriter struct {
	w      *csvlog.Writer
	logger *slog.Logger
}

func (cw *csvRecordWriter) Append(rec Record) error {
	ts, apiName, value := rec.Fields()
	created, err := cw.w.Append(csvlog.Row{Timestamp: ts, APIName: apiName, AvailableAgents: value})
	if created {
		cw.logger.Info("created new log file", "path", cw.w.Path())
	}
	return err
}

// copyMap returns a shallow copy of m, or nil if m is nil.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
