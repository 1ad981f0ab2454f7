package parser

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

// DefaultRegexTimeout bounds a single regex match.
const DefaultRegexTimeout = 500 * time.Millisecond

// RegexParser extracts named capture groups. Patterns use Onigmo-style
// syntax: (?<name>...) groups, lookarounds and backreferences all work.
type RegexParser struct {
	name   string
	re     *regexp2.Regexp
	groups []string
}

// NewRegexParser compiles pattern. The pattern must declare at least one
// named group.
func NewRegexParser(name, pattern string) (*RegexParser, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: 'regex' is required for the regex format", ErrInvalidOption)
	}

	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling regex: %v", ErrInvalidOption, err)
	}
	re.MatchTimeout = DefaultRegexTimeout

	var groups []string
	for _, g := range re.GetGroupNames() {
		if _, numeric := strconv.Atoi(g); numeric == nil {
			continue
		}
		groups = append(groups, g)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: regex has no named groups", ErrInvalidOption)
	}

	return &RegexParser{name: name, re: re, groups: groups}, nil
}

// Name implements Parser.
func (p *RegexParser) Name() string { return p.name }

// Parse implements Parser. Groups that did not participate in the match are
// left out. A match timeout is reported as an error.
func (p *RegexParser) Parse(text string) (connector.Fields, bool, error) {
	m, err := p.re.FindStringMatch(text)
	if err != nil {
		return nil, false, fmt.Errorf("regex match: %w", err)
	}
	if m == nil {
		return nil, false, nil
	}

	fields := make(connector.Fields, 0, len(p.groups))
	for _, name := range p.groups {
		g := m.GroupByName(name)
		if g == nil || len(g.Captures) == 0 {
			continue
		}
		fields.Set(name, g.String())
	}
	return fields, true, nil
}
