package agentcheck

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// CountExtractor determines the agent count from a response body.
//
// Extractors return [ErrInvalidJSON] for undecodable bodies and
// [ErrUnexpectedValue] when the body decodes but does not hold a usable
// count. Any other error is recorded as [SentinelUnknownError].
//
// # Panic Safety
//
// Extractors are called within a panic recovery boundary. A panicking
// extractor produces an [SentinelUnknownError] row and a log entry carrying
// a correlation ID.
type CountExtractor func(body []byte) (int, error)

// JSONFieldExtractor returns a [CountExtractor] that reads an integer from a
// JSON object using dot notation to navigate nested objects.
//
// The path "GP_Bosch_Rexroth_Chat_DC_VAG" reads a top-level key;
// "queues.chat.available" navigates {"queues": {"chat": {"available": 3}}}.
//
// Rules:
//   - a missing key (at any depth) yields 0
//   - a body that is not valid JSON yields [ErrInvalidJSON]
//   - a body that is valid JSON but not an object yields [ErrUnexpectedValue]
//   - integral numbers and numeric strings are accepted; null counts as missing
//   - anything else (fractions, booleans, objects, numbers outside the int
//     range) yields [ErrUnexpectedValue]
func JSONFieldExtractor(path string) CountExtractor {
	return jsonPathExtractor(strings.Split(path, "."))
}

// JSONKeyExtractor returns a [CountExtractor] that reads a single top-level
// key taken literally, so "Chat.DC" matches {"Chat.DC": 5}. Otherwise it
// follows the same rules as [JSONFieldExtractor].
func JSONKeyExtractor(key string) CountExtractor {
	return jsonPathExtractor([]string{key})
}

func jsonPathExtractor(parts []string) CountExtractor {
	return func(body []byte) (int, error) {
		data, err := decodeJSON(body)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}

		if _, ok := data.(map[string]interface{}); !ok {
			return 0, fmt.Errorf("%w: body is not a JSON object", ErrUnexpectedValue)
		}

		value, found := extractJSONPath(data, parts)
		if !found || value == nil {
			return 0, nil
		}

		return toCount(value)
	}
}

// decodeJSON decodes a single JSON value keeping numbers as [json.Number]
// so large integers survive exactly.
func decodeJSON(body []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var data interface{}
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return data, nil
}

// extractJSONPath walks a JSON structure using dot notation parts.
// found is false when any segment is missing or a non-object is traversed.
func extractJSONPath(data interface{}, parts []string) (value interface{}, found bool) {
	current := data
	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}

		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// toCount converts a decoded JSON value to an integer count.
func toCount(v interface{}) (int, error) {
	switch n := v.(type) {
	case json.Number:
		return parseCount(n.String())
	case string:
		return parseCount(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrUnexpectedValue, v)
	}
}

// parseCount parses an integer written in any JSON number form ("5",
// "5.0", "1e2"), rejecting fractions and values that do not fit in an int.
func parseCount(s string) (int, error) {
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrUnexpectedValue, s)
	}
	if !r.IsInt() {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrUnexpectedValue, s)
	}

	num := r.Num()
	if !num.IsInt64() || num.Int64() > math.MaxInt || num.Int64() < math.MinInt {
		return 0, fmt.Errorf("%w: %s is out of range", ErrUnexpectedValue, s)
	}
	return int(num.Int64()), nil
}
