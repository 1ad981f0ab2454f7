package parser

import (
	"strings"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

// LTSVParser parses Labeled Tab-separated Values: label:value pairs
// separated by tabs.
type LTSVParser struct {
	name string
}

// NewLTSVParser creates an LTSV parser.
func NewLTSVParser(name string) *LTSVParser {
	return &LTSVParser{name: name}
}

// Name implements Parser.
func (p *LTSVParser) Name() string { return p.name }

// Parse implements Parser. A segment without a label separator makes the
// whole text a non-match.
func (p *LTSVParser) Parse(text string) (connector.Fields, bool, error) {
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return nil, false, nil
	}

	segments := strings.Split(text, "\t")
	fields := make(connector.Fields, 0, len(segments))
	for _, seg := range segments {
		label, value, found := strings.Cut(seg, ":")
		if !found || label == "" {
			return nil, false, nil
		}
		fields.Set(label, value)
	}
	return fields, true, nil
}
