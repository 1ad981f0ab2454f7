// Package parser turns raw text into structured fields.
//
// # Overview
//
// A Parser converts one text value into ordered fields. Parsers are built from
// connector.ParserDefinition values by format constructors registered by name,
// collected into a Registry that owns them, and referenced by filters through a
// Chain, which tries its parsers in order and keeps the first success.
//
// # Adding a New Format
//
// Implement Parser and register a constructor in an init() function:
//
//	func init() {
//	    parser.RegisterFormat("csv", func(def connector.ParserDefinition) (parser.Parser, error) {
//	        return newCSVParser(def)
//	    })
//	}
//
// Built-in formats are json, regex, logfmt, ltsv, expr and script.
package parser

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

// Parser converts raw text into structured fields.
//
// Parse returns ok=false with a nil error when the text does not match the
// parser's format. A non-nil error means the parser itself failed (for example
// a script exception or a regex timeout); callers treat it as a non-match.
// Implementations must be safe for concurrent use.
type Parser interface {
	Name() string
	Parse(text string) (fields connector.Fields, ok bool, err error)
}

// Configuration errors returned when building parsers.
var (
	ErrEmptyName     = errors.New("parser name is required")
	ErrUnknownFormat = errors.New("unknown parser format")
	ErrDuplicateName = errors.New("duplicate parser name")
	ErrInvalidOption = errors.New("invalid parser option")
)

// FormatConstructor builds a parser from its definition.
// Definitions reaching a constructor always have a non-empty name.
type FormatConstructor func(def connector.ParserDefinition) (Parser, error)

var (
	formatMu       sync.RWMutex
	formatRegistry = make(map[string]FormatConstructor)
)

// RegisterFormat registers a format constructor. Registering an existing
// format overwrites the previous constructor.
func RegisterFormat(format string, constructor FormatConstructor) {
	formatMu.Lock()
	defer formatMu.Unlock()
	formatRegistry[format] = constructor
}

// GetFormatConstructor returns the constructor for format, or nil.
func GetFormatConstructor(format string) FormatConstructor {
	formatMu.RLock()
	defer formatMu.RUnlock()
	return formatRegistry[format]
}

// ListFormats returns the registered format names in sorted order.
func ListFormats() []string {
	formatMu.RLock()
	defer formatMu.RUnlock()
	formats := make([]string, 0, len(formatRegistry))
	for f := range formatRegistry {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// New builds a parser from a definition. Type decoding and the literal
// prefilter are layered on top of the format parser when configured.
func New(def connector.ParserDefinition) (Parser, error) {
	if def.Name == "" {
		return nil, ErrEmptyName
	}

	constructor := GetFormatConstructor(def.Format)
	if constructor == nil {
		return nil, fmt.Errorf("%w %q for parser %q", ErrUnknownFormat, def.Format, def.Name)
	}

	p, err := constructor(def)
	if err != nil {
		return nil, fmt.Errorf("parser %q: %w", def.Name, err)
	}

	if len(def.Types) > 0 {
		p, err = withTypes(p, def.Types)
		if err != nil {
			return nil, fmt.Errorf("parser %q: %w", def.Name, err)
		}
	}

	if len(def.Prefilter) > 0 {
		p, err = withPrefilter(p, def.Prefilter, def.PrefilterCaseInsensitive)
		if err != nil {
			return nil, fmt.Errorf("parser %q: %w", def.Name, err)
		}
	}

	return p, nil
}
