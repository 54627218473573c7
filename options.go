package agentcheck

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// checkerConfig holds mutable state during Checker construction.
type checkerConfig struct {
	url       string
	apiName   string
	field     string
	timeout   time.Duration
	headers   map[string]string
	csvFile   string
	writer    RecordWriter
	extractor CountExtractor
	logger    *slog.Logger
	now       func() time.Time
	callbacks []func(Record)
}

// Option is a function that configures a [Checker] during construction.
//
// Options return an error if validation fails.
type Option func(*checkerConfig) error

// WithURL sets the availability endpoint. Only http and https URLs are
// accepted. Defaults to [DefaultURL].
func WithURL(rawURL string) Option {
	return func(cfg *checkerConfig) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return errors.New("url must have a host")
		}
		cfg.url = rawURL
		return nil
	}
}

// WithAPIName sets the counter name recorded in the APIName column.
// Unless [WithField] is also given, it is also the top-level JSON key read
// from the response, matched literally. Defaults to [DefaultAPIName].
func WithAPIName(name string) Option {
	return func(cfg *checkerConfig) error {
		if name == "" {
			return errors.New("api name cannot be empty")
		}
		cfg.apiName = name
		return nil
	}
}

// WithField sets the JSON path (dot notation) read from the response when
// it differs from the API name.
//
// Example:
//
//	checker, err := agentcheck.New(
//	    agentcheck.WithAPIName("chat-dc"),
//	    agentcheck.WithField("queues.chat_dc.available"),
//	)
func WithField(path string) Option {
	return func(cfg *checkerConfig) error {
		cfg.field = path
		return nil
	}
}

// WithTimeout sets the per-request timeout. Defaults to [DefaultTimeout].
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *checkerConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithHeaders adds HTTP headers sent with every request.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	agentcheck.WithHeaders("Authorization", "Bearer "+token)
func WithHeaders(keyValues ...string) Option {
	return func(cfg *checkerConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithCSVFile sets the CSV log file. Defaults to [DefaultCSVFile].
// Ignored if [WithRecordWriter] is given.
func WithCSVFile(path string) Option {
	return func(cfg *checkerConfig) error {
		if path == "" {
			return errors.New("csv file path cannot be empty")
		}
		cfg.csvFile = path
		return nil
	}
}

// WithRecordWriter replaces the CSV file with a custom [RecordWriter].
func WithRecordWriter(w RecordWriter) Option {
	return func(cfg *checkerConfig) error {
		if w == nil {
			return errors.New("record writer cannot be nil")
		}
		cfg.writer = w
		return nil
	}
}

// WithExtractor replaces the JSON field lookup with a custom [CountExtractor].
func WithExtractor(extractor CountExtractor) Option {
	return func(cfg *checkerConfig) error {
		if extractor == nil {
			return errors.New("extractor cannot be nil")
		}
		cfg.extractor = extractor
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *checkerConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithClock sets the function used to timestamp records. Defaults to
// [time.Now].
func WithClock(now func() time.Time) Option {
	return func(cfg *checkerConfig) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.now = now
		return nil
	}
}

// WithRecordCallback registers a function called with every record after
// it has been handed to the writer, including records whose write failed.
//
// Callbacks run synchronously on the checking goroutine, in registration
// order. Panics are recovered and logged. Nil callbacks are ignored.
func WithRecordCallback(cb func(Record)) Option {
	return func(cfg *checkerConfig) error {
		if cb == nil {
			return nil
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}
