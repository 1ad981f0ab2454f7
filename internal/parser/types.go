package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

// Field type names accepted in ParserDefinition.Types.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeBool    = "bool"
	TypeHex     = "hex"
)

type decodeFunc func(string) (interface{}, error)

var decoders = map[string]decodeFunc{
	TypeString: func(s string) (interface{}, error) { return s, nil },
	TypeInteger: func(s string) (interface{}, error) {
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	},
	TypeFloat: func(s string) (interface{}, error) {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	},
	TypeBool: func(s string) (interface{}, error) {
		return strconv.ParseBool(strings.TrimSpace(s))
	},
	TypeHex: func(s string) (interface{}, error) {
		s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
		return strconv.ParseUint(s, 16, 64)
	},
}

// typed decodes selected text fields of the wrapped parser's output.
// A value that fails to decode stays text.
type typed struct {
	Parser
	types map[string]decodeFunc
}

func withTypes(p Parser, types map[string]string) (Parser, error) {
	t := &typed{Parser: p, types: make(map[string]decodeFunc, len(types))}
	for field, typeName := range types {
		decode, ok := decoders[typeName]
		if !ok {
			return nil, fmt.Errorf("%w: unknown type %q for field %q", ErrInvalidOption, typeName, field)
		}
		t.types[field] = decode
	}
	return t, nil
}

// Parse implements Parser.
func (t *typed) Parse(text string) (connector.Fields, bool, error) {
	fields, ok, err := t.Parser.Parse(text)
	if !ok || err != nil {
		return fields, ok, err
	}
	for i := range fields {
		decode, has := t.types[fields[i].Key]
		if !has {
			continue
		}
		s, isText := fields[i].Value.(string)
		if !isText {
			continue
		}
		if v, decErr := decode(s); decErr == nil {
			fields[i].Value = v
		}
	}
	return fields, true, nil
}
