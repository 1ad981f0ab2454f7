package parser

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

// ExprParser evaluates an expr-lang expression with the raw value bound to
// the variable "text". The expression returns a map of fields, or nil/false
// when the text does not match, e.g.:
//
//	text startsWith "ERR " ? {"level": "error", "message": trimPrefix(text, "ERR ")} : nil
//
// Fields from the returned map are emitted in key order.
type ExprParser struct {
	name    string
	program *vm.Program
}

// NewExprParser compiles expression once; the program is shared by all calls.
func NewExprParser(name, expression string) (*ExprParser, error) {
	if expression == "" {
		return nil, fmt.Errorf("%w: 'expression' is required for the expr format", ErrInvalidOption)
	}

	program, err := expr.Compile(expression, expr.Env(map[string]interface{}{"text": ""}))
	if err != nil {
		return nil, fmt.Errorf("%w: compiling expression: %v", ErrInvalidOption, err)
	}
	return &ExprParser{name: name, program: program}, nil
}

// Name implements Parser.
func (p *ExprParser) Name() string { return p.name }

// Parse implements Parser.
func (p *ExprParser) Parse(text string) (connector.Fields, bool, error) {
	out, err := expr.Run(p.program, map[string]interface{}{"text": text})
	if err != nil {
		return nil, false, fmt.Errorf("evaluating expression: %w", err)
	}

	switch result := out.(type) {
	case nil:
		return nil, false, nil
	case bool:
		if !result {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("expression returned true; expected a map or nil")
	case map[string]interface{}:
		return sortedFields(result), true, nil
	case map[string]string:
		m := make(map[string]interface{}, len(result))
		for k, v := range result {
			m[k] = v
		}
		return sortedFields(m), true, nil
	default:
		return nil, false, fmt.Errorf("expression returned %T; expected a map or nil", out)
	}
}

func sortedFields(m map[string]interface{}) connector.Fields {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make(connector.Fields, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, connector.Field{Key: k, Value: m[k]})
	}
	return fields
}
