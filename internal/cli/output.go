// Package cli provides CLI output formatting and display functions.
//
// Status and diagnostics go to Err so that Out stays usable for records and
// parsed fields.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

// maxPreviewLinesCompact bounds the dry-run preview unless verbose.
const maxPreviewLinesCompact = 10

// Printer writes CLI output.
type Printer struct {
	Out     io.Writer
	Err     io.Writer
	Verbose bool
	Quiet   bool
}

// Status prints a progress line on Err unless quiet.
func (p *Printer) Status(format string, args ...interface{}) {
	if p.Quiet {
		return
	}
	fmt.Fprintf(p.Err, format+"\n", args...)
}

// PrintExecutionResult displays the pipeline execution result.
func (p *Printer) PrintExecutionResult(result *connector.ExecutionResult, err error, dryRun bool) {
	if result == nil {
		fmt.Fprintln(p.Err, "✗ No execution result available")
		return
	}

	if err != nil {
		fmt.Fprintln(p.Err, "✗ Pipeline execution failed")
		if result.Error != nil {
			fmt.Fprintf(p.Err, "  Code: %s\n", result.Error.Code)
			if result.Error.Module != "" {
				fmt.Fprintf(p.Err, "  Module: %s\n", result.Error.Module)
			}
			fmt.Fprintf(p.Err, "  Error: %s\n", result.Error.Message)
		}
		return
	}

	if p.Quiet {
		return
	}
	fmt.Fprintln(p.Err, "✓ Pipeline executed successfully")
	fmt.Fprintf(p.Err, "  Records processed: %d\n", result.RecordsProcessed)
	if result.RecordsFailed > 0 {
		fmt.Fprintf(p.Err, "  Records failed: %d\n", result.RecordsFailed)
	}
	if p.Verbose {
		fmt.Fprintf(p.Err, "  Duration: %v\n", result.CompletedAt.Sub(result.StartedAt))
	}
	if dryRun {
		p.PrintDryRunPreview(result.Preview, result.RecordsProcessed)
	}
}

// PrintDryRunPreview shows the records that would have been sent.
func (p *Printer) PrintDryRunPreview(preview []*connector.Record, total int) {
	fmt.Fprintln(p.Err)
	fmt.Fprintln(p.Err, "Dry-run preview (records that would have been sent):")

	lines := make([]string, 0, len(preview))
	for _, rec := range preview {
		if rec == nil {
			continue
		}
		data, err := json.Marshal(rec)
		if err != nil {
			lines = append(lines, fmt.Sprintf("[unencodable record: %v]", err))
			continue
		}
		lines = append(lines, string(data))
	}

	shown := lines
	if !p.Verbose && len(shown) > maxPreviewLinesCompact {
		shown = shown[:maxPreviewLinesCompact]
	}
	for _, line := range shown {
		fmt.Fprintf(p.Err, "  %s\n", line)
	}
	if remaining := total - len(shown); remaining > 0 {
		fmt.Fprintf(p.Err, "  ... (%d more records)\n", remaining)
	}

	fmt.Fprintln(p.Err)
	fmt.Fprintln(p.Err, "No data was sent to the output (dry-run mode)")
}

// PrintFields prints parsed fields as one JSON line on Out.
func (p *Printer) PrintFields(fields connector.Fields) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	fmt.Fprintln(p.Out, string(data))
	return nil
}

// PrintNoMatch reports text that no parser accepted.
func (p *Printer) PrintNoMatch(text string) {
	fmt.Fprintf(p.Out, "no match: %q\n", text)
}

// PrintPipelineSummary prints name, version and parser names in definition order.
func (p *Printer) PrintPipelineSummary(pipeline *connector.Pipeline, parserNames []string) {
	fmt.Fprintf(p.Out, "  Pipeline: %s (v%s)\n", pipeline.Name, pipeline.Version)
	if pipeline.Description != "" {
		fmt.Fprintf(p.Out, "  Description: %s\n", pipeline.Description)
	}
	fmt.Fprintf(p.Out, "  Parsers: %s\n", strings.Join(parserNames, ", "))
	fmt.Fprintf(p.Out, "  Filters: %d\n", len(pipeline.Filters))
}
