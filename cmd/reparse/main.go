// Package main provides the CLI entry point for the reparse runtime.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marulkan/fluent-bit/internal/cli"
	"github.com/marulkan/fluent-bit/internal/config"
	"github.com/marulkan/fluent-bit/internal/factory"
	"github.com/marulkan/fluent-bit/internal/logger"
	"github.com/marulkan/fluent-bit/internal/parser"
	"github.com/marulkan/fluent-bit/internal/runtime"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
	ExitNoMatch         = 4
)

// Build information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// exitError carries a process exit code through cobra's RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

// app holds flag values and the streams commands write to.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	verbose   bool
	quiet     bool
	logFormat string

	dryRun  bool
	parsers []string

	printer *cli.Printer
}

// execute runs the CLI with args and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := c.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra usage errors (unknown flag, wrong arg count)
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitValidationError
}

func (c *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "reparse",
		Short: "reparse - record field reparsing pipelines",
		Long: `reparse reads records, re-parses the text stored in one of their fields
with an ordered chain of named parsers, and writes the enriched records.

Pipelines are declared in JSON or YAML and follow the Input → Filter → Output pattern.

Examples:
  # Validate a configuration file
  reparse validate pipeline.yaml

  # Run a pipeline
  reparse run pipeline.yaml

  # Try the configured parsers against one line
  reparse try pipeline.yaml 'level=info status=200'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if c.verbose {
				level = slog.LevelDebug
			} else if c.quiet {
				level = slog.LevelError
			}
			logger.SetOutput(c.stderr, level, logger.ParseFormat(c.logFormat))
			c.printer = &cli.Printer{Out: c.stdout, Err: c.stderr, Verbose: c.verbose, Quiet: c.quiet}
		},
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().BoolVarP(&c.quiet, "quiet", "q", false, "Suppress non-error output")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "json", "Log format: json or text")

	validate := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a pipeline configuration file",
		Long: `Validate a pipeline configuration file against the schema.

Supports both JSON and YAML formats. The format is auto-detected
based on file extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Configuration is valid
  1 - Validation errors (schema violations, invalid parser definitions)
  2 - Parse errors (invalid JSON/YAML syntax)`,
		Args: cobra.ExactArgs(1),
		RunE: c.runValidate,
	}

	run := &cobra.Command{
		Use:   "run <config-file>",
		Short: "Run a pipeline from configuration file",
		Long: `Run a pipeline defined in the configuration file.

The configuration file is first validated against the schema.
If validation fails, the pipeline will not be executed.

Exit codes:
  0 - Pipeline executed successfully
  1 - Validation errors
  2 - Parse errors
  3 - Runtime errors`,
		Args: cobra.ExactArgs(1),
		RunE: c.runPipeline,
	}
	run.Flags().BoolVar(&c.dryRun, "dry-run", false, "Read and filter records without sending them to the output")

	try := &cobra.Command{
		Use:   "try <config-file> [text...]",
		Short: "Run the configured parsers over sample text",
		Long: `Run a chain of the configuration's parsers over each text argument,
or over each line of stdin when no text is given, and print the parsed
fields as JSON. Text no parser accepts is reported as "no match".

Exit codes:
  0 - Every text matched
  1 - Validation errors
  2 - Parse errors
  4 - At least one text did not match`,
		Args: cobra.MinimumNArgs(1),
		RunE: c.runTry,
	}
	try.Flags().StringArrayVarP(&c.parsers, "parser", "p", nil, "Parser name to try, in order (repeatable; default all)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version, commit hash, and build date information.",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(c.stdout, "Version: %s\n", version)
			fmt.Fprintf(c.stdout, "Commit: %s\n", commit)
			fmt.Fprintf(c.stdout, "Build Date: %s\n", buildDate)
		},
	}

	root.AddCommand(validate, run, try, versionCmd)
	return root
}

// loadPipeline parses, validates and converts a configuration file.
// Errors are already printed and carry the matching exit code.
func (c *app) loadPipeline(path string) (*connector.Pipeline, *config.Result, error) {
	result := config.ParseConfig(path)

	if len(result.ParseErrors) > 0 {
		c.printer.PrintParseErrors(result.ParseErrors)
		return nil, result, exitWith(ExitParseError, result.Err())
	}
	if len(result.ValidationErrors) > 0 {
		c.printer.PrintValidationErrors(result.ValidationErrors)
		return nil, result, exitWith(ExitValidationError, result.Err())
	}

	pipeline, err := config.ConvertToPipeline(result.Data)
	if err != nil {
		c.printer.PrintError("Failed to convert configuration: %v", err)
		return nil, result, exitWith(ExitValidationError, err)
	}
	return pipeline, result, nil
}

func (c *app) runValidate(_ *cobra.Command, args []string) error {
	configPath := args[0]

	if !c.quiet {
		fmt.Fprintf(c.stdout, "Validating configuration: %s\n", configPath)
	}

	pipeline, result, err := c.loadPipeline(configPath)
	if err != nil {
		return err
	}

	// schema validation cannot compile regexes or scripts
	parsers, err := factory.CreateParserRegistry(pipeline.Parsers)
	if err != nil {
		c.printer.PrintError("%v", err)
		return exitWith(ExitValidationError, err)
	}

	if !c.quiet {
		fmt.Fprintf(c.stdout, "✓ Configuration is valid (format: %s)\n", result.Format)
		if c.verbose {
			c.printer.PrintPipelineSummary(pipeline, parsers.Names())
		}
	}
	return nil
}

func (c *app) runPipeline(cmd *cobra.Command, args []string) error {
	configPath := args[0]

	c.printer.Status("Loading pipeline configuration: %s", configPath)

	pipeline, _, err := c.loadPipeline(configPath)
	if err != nil {
		return err
	}

	if c.dryRun && pipeline.Output != nil {
		// never open the destination in dry-run mode
		pipeline.Output = nil
	}

	modules, err := factory.Build(pipeline)
	if err != nil {
		c.printer.PrintError("Failed to create modules: %v", err)
		return exitWith(ExitValidationError, err)
	}

	executor := runtime.NewExecutorWithModules(modules.Input, modules.Filters, modules.Output, c.dryRun)

	if c.dryRun {
		c.printer.Status("Executing pipeline (dry-run mode - output will not be sent)...")
	} else {
		c.printer.Status("Executing pipeline...")
	}

	result, err := executor.ExecuteWithContext(cmd.Context(), pipeline)
	c.printer.PrintExecutionResult(result, err, c.dryRun)
	if err != nil {
		return exitWith(ExitRuntimeError, err)
	}
	return nil
}

func (c *app) runTry(_ *cobra.Command, args []string) error {
	pipeline, _, err := c.loadPipeline(args[0])
	if err != nil {
		return err
	}

	registry, err := factory.CreateParserRegistry(pipeline.Parsers)
	if err != nil {
		c.printer.PrintError("%v", err)
		return exitWith(ExitValidationError, err)
	}

	names := c.parsers
	if len(names) == 0 {
		for _, def := range pipeline.Parsers {
			names = append(names, def.Name)
		}
	}
	chain, missing := registry.Chain(names)
	if len(missing) > 0 {
		err := fmt.Errorf("unknown parsers: %s", strings.Join(missing, ", "))
		c.printer.PrintError("%v", err)
		return exitWith(ExitValidationError, err)
	}
	if chain.Len() == 0 {
		err := errors.New("no parsers defined")
		c.printer.PrintError("%v", err)
		return exitWith(ExitValidationError, err)
	}

	texts := args[1:]
	if len(texts) == 0 {
		scanner := bufio.NewScanner(c.stdin)
		for scanner.Scan() {
			texts = append(texts, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return exitWith(ExitRuntimeError, err)
		}
	}

	misses := 0
	for _, text := range texts {
		if !c.tryOne(chain, text) {
			misses++
		}
	}
	if misses > 0 {
		return exitWith(ExitNoMatch, fmt.Errorf("%d of %d texts did not match", misses, len(texts)))
	}
	return nil
}

func (c *app) tryOne(chain *parser.Chain, text string) bool {
	fields, ok := chain.TryParse(text)
	if !ok {
		c.printer.PrintNoMatch(text)
		return false
	}
	if err := c.printer.PrintFields(fields); err != nil {
		c.printer.PrintError("encoding fields: %v", err)
		return false
	}
	return true
}
