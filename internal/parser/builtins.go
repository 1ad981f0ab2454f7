package parser

import "github.com/marulkan/fluent-bit/pkg/connector"

// Built-in format names.
const (
	FormatJSON   = "json"
	FormatRegex  = "regex"
	FormatLogfmt = "logfmt"
	FormatLTSV   = "ltsv"
	FormatExpr   = "expr"
	FormatScript = "script"
)

func init() {
	RegisterFormat(FormatJSON, func(def connector.ParserDefinition) (Parser, error) {
		return NewJSONParser(def.Name), nil
	})
	RegisterFormat(FormatRegex, func(def connector.ParserDefinition) (Parser, error) {
		return NewRegexParser(def.Name, def.Regex)
	})
	RegisterFormat(FormatLogfmt, func(def connector.ParserDefinition) (Parser, error) {
		return NewLogfmtParser(def.Name), nil
	})
	RegisterFormat(FormatLTSV, func(def connector.ParserDefinition) (Parser, error) {
		return NewLTSVParser(def.Name), nil
	})
	RegisterFormat(FormatExpr, func(def connector.ParserDefinition) (Parser, error) {
		return NewExprParser(def.Name, def.Expression)
	})
	RegisterFormat(FormatScript, func(def connector.ParserDefinition) (Parser, error) {
		return NewScriptParser(def.Name, def.Script)
	})
}
