package config

import (
	"log/slog"
	"sort"

	"github.com/jpalmerr/agentcheck"
)

// BuildOptions converts parsed configuration into checker options.
//
// The logger is passed through [agentcheck.WithLogger] when non-nil.
// Additional options are appended last so they take precedence.
func BuildOptions(cfg *Config, logger *slog.Logger, extra ...agentcheck.Option) []agentcheck.Option {
	opts := []agentcheck.Option{
		agentcheck.WithURL(cfg.URL),
		agentcheck.WithAPIName(cfg.APIName),
		agentcheck.WithCSVFile(cfg.CSVFile),
		agentcheck.WithTimeout(cfg.Timeout.Duration()),
	}

	if cfg.Field != "" {
		opts = append(opts, agentcheck.WithField(cfg.Field))
	}

	if len(cfg.Headers) > 0 {
		opts = append(opts, agentcheck.WithHeaders(mapToKeyValuePairs(cfg.Headers)...))
	}

	if logger != nil {
		opts = append(opts, agentcheck.WithLogger(logger))
	}

	return append(opts, extra...)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
