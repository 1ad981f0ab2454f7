package parser

import (
	"strings"

	"github.com/go-logfmt/logfmt"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

// LogfmtParser parses key=value pairs in logfmt syntax.
// Bare keys decode to true. Text is only considered logfmt when at least
// one key carries an explicit value, so free-form prose is a non-match.
type LogfmtParser struct {
	name string
}

// NewLogfmtParser creates a logfmt parser.
func NewLogfmtParser(name string) *LogfmtParser {
	return &LogfmtParser{name: name}
}

// Name implements Parser.
func (p *LogfmtParser) Name() string { return p.name }

// Parse implements Parser. Only the first line of text is considered.
func (p *LogfmtParser) Parse(text string) (connector.Fields, bool, error) {
	dec := logfmt.NewDecoder(strings.NewReader(text))
	if !dec.ScanRecord() {
		return nil, false, nil
	}

	var fields connector.Fields
	withValue := 0
	for dec.ScanKeyval() {
		key := string(dec.Key())
		if value := dec.Value(); value != nil {
			fields.Set(key, string(value))
			withValue++
			continue
		}
		fields.Set(key, true)
	}
	if dec.Err() != nil || withValue == 0 {
		return nil, false, nil
	}
	return fields, true, nil
}
