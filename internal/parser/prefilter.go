package parser

import (
	"fmt"

	ac "github.com/petar-dambovaliev/aho-corasick"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

// prefiltered skips the wrapped parser when the text contains none of the
// configured literals, scanning for all of them in one Aho-Corasick pass.
type prefiltered struct {
	Parser
	automaton ac.AhoCorasick
}

func withPrefilter(p Parser, literals []string, caseInsensitive bool) (Parser, error) {
	patterns := make([]string, 0, len(literals))
	for _, l := range literals {
		if l == "" {
			return nil, fmt.Errorf("%w: empty prefilter literal", ErrInvalidOption)
		}
		patterns = append(patterns, l)
	}

	builder := ac.NewAhoCorasickBuilder(ac.Opts{
		AsciiCaseInsensitive: caseInsensitive,
		MatchKind:            ac.LeftMostLongestMatch,
	})
	return &prefiltered{Parser: p, automaton: builder.Build(patterns)}, nil
}

// Parse implements Parser.
func (p *prefiltered) Parse(text string) (connector.Fields, bool, error) {
	if len(p.automaton.FindAll(text)) == 0 {
		return nil, false, nil
	}
	return p.Parser.Parse(text)
}
