package parser

import (
	"log/slog"

	"github.com/marulkan/fluent-bit/internal/logger"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

// Chain is an ordered, immutable list of parser references.
// TryParse may be called from any number of goroutines.
type Chain struct {
	parsers []Parser
}

// NewChain creates a chain that tries parsers in the given order.
func NewChain(parsers ...Parser) *Chain {
	c := &Chain{parsers: make([]Parser, len(parsers))}
	copy(c.parsers, parsers)
	return c
}

// TryParse runs text through the parsers in order and returns the fields of
// the first one that succeeds. Later parsers are not invoked. A parser error
// counts as a non-match. When nothing matches it returns (nil, false).
func (c *Chain) TryParse(text string) (connector.Fields, bool) {
	for _, p := range c.parsers {
		fields, ok, err := p.Parse(text)
		if err != nil {
			logger.Debug("parser failed; trying next",
				slog.String("parser", p.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok {
			return fields, true
		}
	}
	return nil, false
}

// Len returns the number of parsers in the chain.
func (c *Chain) Len() int {
	return len(c.parsers)
}

// Names returns the parser names in try order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.parsers))
	for i, p := range c.parsers {
		names[i] = p.Name()
	}
	return names
}
