package cli

import (
	"fmt"

	"github.com/marulkan/fluent-bit/internal/config"
)

// PrintParseErrors prints configuration syntax errors.
func (p *Printer) PrintParseErrors(errs []config.ParseError) {
	fmt.Fprintln(p.Err, "✗ Parse errors:")
	for _, err := range errs {
		if location := formatErrorLocation(err.Path, err.Line, err.Column); location != "" {
			fmt.Fprintf(p.Err, "  %s: %s\n", location, err.Message)
		} else {
			fmt.Fprintf(p.Err, "  %s\n", err.Message)
		}
		if p.Verbose && err.Type != "" {
			fmt.Fprintf(p.Err, "    Type: %s\n", err.Type)
		}
	}
}

// formatErrorLocation formats path:line:column, omitting unknown parts.
func formatErrorLocation(path string, line, column int) string {
	if path == "" {
		return ""
	}
	location := path
	if line > 0 {
		location += fmt.Sprintf(":%d", line)
		if column > 0 {
			location += fmt.Sprintf(":%d", column)
		}
	}
	return location
}

// PrintValidationErrors prints schema violations, one per line unless verbose.
func (p *Printer) PrintValidationErrors(errs []config.ValidationError) {
	fmt.Fprintln(p.Err, "✗ Validation errors:")
	for _, err := range errs {
		path := err.Path
		if path == "" {
			path = "/"
		}

		if p.Verbose {
			fmt.Fprintf(p.Err, "  %s:\n", path)
			fmt.Fprintf(p.Err, "    Message: %s\n", err.Message)
			if err.Type != "" {
				fmt.Fprintf(p.Err, "    Type: %s\n", err.Type)
			}
			continue
		}

		msg := err.Message
		if len(msg) > 80 {
			msg = msg[:77] + "..."
		}
		fmt.Fprintf(p.Err, "  %s: %s\n", path, msg)
	}

	if !p.Quiet && !p.Verbose {
		fmt.Fprintln(p.Err, "")
		fmt.Fprintln(p.Err, "Hint: Use --verbose for detailed error information")
	}
}

// PrintError prints a single failure line.
func (p *Printer) PrintError(format string, args ...interface{}) {
	fmt.Fprintf(p.Err, "✗ "+format+"\n", args...)
}
