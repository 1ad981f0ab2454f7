package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported configuration formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ParseFile reads a JSON or YAML file. An empty format selects one from the
// file extension, falling back to the content.
func ParseFile(filepath, format string) *ParseResult {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return &ParseResult{
			FilePath: filepath,
			Format:   format,
			Errors: []ParseError{{
				Path:    filepath,
				Message: fmt.Sprintf("failed to read file: %v", err),
				Type:    ErrorTypeIO,
			}},
		}
	}

	if format == "" {
		format = DetectFormat(filepath)
	}
	result := ParseString(string(content), format)
	result.FilePath = filepath
	for i := range result.Errors {
		if result.Errors[i].Path == "" {
			result.Errors[i].Path = filepath
		}
	}
	return result
}

// ParseString decodes configuration content. An empty format is detected
// from the content.
func ParseString(content, format string) *ParseResult {
	if format == "" {
		switch {
		case IsJSON(content):
			format = FormatJSON
		case IsYAML(content):
			format = FormatYAML
		default:
			return &ParseResult{Errors: []ParseError{{
				Message: "unable to detect configuration format: not valid JSON or YAML",
				Type:    ErrorTypeFormat,
			}}}
		}
	}

	result := &ParseResult{Format: format}

	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, ParseError{
			Message: fmt.Sprintf("empty content: expected %s document", strings.ToUpper(format)),
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	var (
		data interface{}
		err  error
	)
	switch format {
	case FormatJSON:
		if err = json.Unmarshal([]byte(content), &data); err != nil {
			result.Errors = append(result.Errors, jsonParseError(err, content))
			return result
		}
	case FormatYAML:
		if err = yaml.Unmarshal([]byte(content), &data); err != nil {
			result.Errors = append(result.Errors, yamlParseError(err))
			return result
		}
	default:
		result.Errors = append(result.Errors, ParseError{
			Message: fmt.Sprintf("unsupported format: %s", format),
			Type:    ErrorTypeFormat,
		})
		return result
	}

	// null document or comments only
	if data == nil {
		return result
	}

	dataMap, ok := data.(map[string]interface{})
	if !ok {
		result.Errors = append(result.Errors, ParseError{
			Message: fmt.Sprintf("invalid configuration: expected an object at the top level, got %T", data),
			Type:    ErrorTypeFormat,
		})
		return result
	}
	result.Data = dataMap
	return result
}

// ParseConfig parses a configuration file and validates it against the
// pipeline schema.
func ParseConfig(filepath string) *Result {
	return validated(ParseFile(filepath, ""))
}

// ParseConfigString parses configuration content and validates it.
// If format is empty, it is detected from the content.
func ParseConfigString(content, format string) *Result {
	return validated(ParseString(content, format))
}

func validated(pr *ParseResult) *Result {
	result := &Result{
		Data:        pr.Data,
		ParseErrors: pr.Errors,
		FilePath:    pr.FilePath,
		Format:      pr.Format,
	}
	if !pr.IsValid() {
		return result
	}
	result.ValidationErrors = ValidateConfig(pr.Data).Errors
	return result
}

// DetectFormat returns the format implied by the file extension, or "".
func DetectFormat(filepath string) string {
	switch strings.ToLower(path.Ext(filepath)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// IsJSON reports whether content looks like a JSON object or array.
func IsJSON(content string) bool {
	content = strings.TrimSpace(content)
	return strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[")
}

// IsYAML reports whether content decodes as a non-null YAML document.
// JSON is also valid YAML.
func IsYAML(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	var data interface{}
	return yaml.Unmarshal([]byte(content), &data) == nil && data != nil
}

func jsonParseError(err error, content string) ParseError {
	pe := ParseError{Message: err.Error(), Type: ErrorTypeSyntax}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		pe.Offset = syntaxErr.Offset
		pe.Message = fmt.Sprintf("JSON syntax error at offset %d: %s", syntaxErr.Offset, syntaxErr.Error())
	case errors.As(err, &typeErr):
		pe.Offset = typeErr.Offset
		pe.Message = fmt.Sprintf("type error at field '%s': expected %s, got %s",
			typeErr.Field, typeErr.Type.String(), typeErr.Value)
	}
	if pe.Offset > 0 {
		pe.Line, pe.Column = offsetToLineColumn(content, pe.Offset)
	}
	return pe
}

// offsetToLineColumn converts a byte offset to 1-based line and column numbers.
func offsetToLineColumn(content string, offset int64) (line, column int) {
	line, column = 1, 1
	for i := int64(0); i < offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

func yamlParseError(err error) ParseError {
	pe := ParseError{Message: err.Error(), Type: ErrorTypeSyntax}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		pe.Message = fmt.Sprintf("YAML type error: %s", strings.Join(typeErr.Errors, "; "))
	}

	// yaml.v3 reports positions as "yaml: line N: ..."
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		pe.Line = line
	}
	return pe
}
