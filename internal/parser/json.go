package parser

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

// JSONParser parses a JSON object. Top-level key order is preserved and
// numbers decode to int64 when integral, float64 otherwise.
type JSONParser struct {
	name string
}

// NewJSONParser creates a JSON parser.
func NewJSONParser(name string) *JSONParser {
	return &JSONParser{name: name}
}

// Name implements Parser.
func (p *JSONParser) Name() string { return p.name }

// Parse implements Parser. Anything other than a single JSON object is a non-match.
func (p *JSONParser) Parse(text string) (connector.Fields, bool, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, false, nil
	}
	if delim, isDelim := tok.(json.Delim); !isDelim || delim != '{' {
		return nil, false, nil
	}

	var fields connector.Fields
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, false, nil
		}
		key, _ := keyTok.(string)

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, false, nil
		}
		fields.Set(key, normalizeJSON(value))
	}

	// closing brace, then nothing but whitespace
	if _, err := dec.Token(); err != nil {
		return nil, false, nil
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false, nil
	}

	if fields == nil {
		fields = connector.Fields{}
	}
	return fields, true, nil
}

func normalizeJSON(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]interface{}:
		for k, nested := range val {
			val[k] = normalizeJSON(nested)
		}
		return val
	case []interface{}:
		for i, nested := range val {
			val[i] = normalizeJSON(nested)
		}
		return val
	default:
		return v
	}
}
