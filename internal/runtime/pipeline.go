// Package runtime provides the pipeline execution engine.
// It orchestrates the execution of Input, Filter, and Output modules.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marulkan/fluent-bit/internal/errhandling"
	"github.com/marulkan/fluent-bit/internal/logger"
	"github.com/marulkan/fluent-bit/internal/modules/filter"
	"github.com/marulkan/fluent-bit/internal/modules/input"
	"github.com/marulkan/fluent-bit/internal/modules/output"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

// Error codes for pipeline execution errors
const (
	ErrCodeInputFailed  = "INPUT_FAILED"
	ErrCodeFilterFailed = "FILTER_FAILED"
	ErrCodeOutputFailed = "OUTPUT_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// Execution status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// PreviewLimit is the number of records kept in a dry-run result.
const PreviewLimit = 50

// Common errors
var (
	// ErrNilPipeline is returned when pipeline configuration is nil
	ErrNilPipeline = errors.New("pipeline configuration is nil")

	// ErrNilInputModule is returned when input module is nil
	ErrNilInputModule = errors.New("input module is nil")

	// ErrNilOutputModule is returned when output module is nil
	ErrNilOutputModule = errors.New("output module is nil")
)

// Executor runs one pipeline: Input → Filters → Output.
//
// The Executor only sees modules through their interfaces, so any registered
// module type can be plugged in.
type Executor struct {
	inputModule   input.Module
	filterModules []filter.Module
	outputModule  output.Module
	dryRun        bool
}

// NewExecutorWithModules creates a pipeline executor.
//
// Parameters:
//   - inputModule: the record source
//   - filterModules: filters applied in order (can be nil)
//   - outputModule: the record destination; may be nil in dry-run mode
//   - dryRun: if true, records are filtered but never sent
func NewExecutorWithModules(
	inputModule input.Module,
	filterModules []filter.Module,
	outputModule output.Module,
	dryRun bool,
) *Executor {
	return &Executor{
		inputModule:   inputModule,
		filterModules: filterModules,
		outputModule:  outputModule,
		dryRun:        dryRun,
	}
}

// Execute runs the pipeline with a background context.
func (e *Executor) Execute(pipeline *connector.Pipeline) (*connector.ExecutionResult, error) {
	return e.ExecuteWithContext(context.Background(), pipeline)
}

// ExecuteWithContext runs the pipeline with the given context.
//
// The input module is closed as soon as its records are fetched; the output
// module is closed when execution returns. Both a result and an error are
// returned on failure.
func (e *Executor) ExecuteWithContext(ctx context.Context, pipeline *connector.Pipeline) (*connector.ExecutionResult, error) {
	startedAt := time.Now()
	result := newErrorResult(startedAt)

	if pipeline == nil {
		return fail(result, ErrCodeInvalidInput, "", ErrNilPipeline)
	}
	result.PipelineID = pipeline.ID
	if e.inputModule == nil {
		return fail(result, ErrCodeInvalidInput, "input", ErrNilInputModule)
	}
	if e.outputModule == nil && !e.dryRun {
		return fail(result, ErrCodeInvalidInput, "output", ErrNilOutputModule)
	}

	execCtx := e.executionContext(pipeline, "")
	logger.LogExecutionStart(execCtx)

	if e.outputModule != nil {
		defer closeModule(pipeline.ID, "output", e.outputModule)
	}

	records, err := e.executeInput(ctx, pipeline, result)
	closeModule(pipeline.ID, "input", e.inputModule)
	if err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, 0, time.Since(startedAt))
		return result, err
	}

	if err := e.process(ctx, pipeline, records, result); err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, result.RecordsProcessed, time.Since(startedAt))
		return result, err
	}

	logger.LogExecutionEnd(execCtx, StatusSuccess, result.RecordsProcessed, time.Since(startedAt))
	return result, nil
}

// ExecuteWithRecords runs the filters and output over records supplied by the
// caller. The input module is neither used nor closed.
func (e *Executor) ExecuteWithRecords(ctx context.Context, pipeline *connector.Pipeline, records []*connector.Record) (*connector.ExecutionResult, error) {
	startedAt := time.Now()
	result := newErrorResult(startedAt)

	if pipeline == nil {
		return fail(result, ErrCodeInvalidInput, "", ErrNilPipeline)
	}
	result.PipelineID = pipeline.ID
	if e.outputModule == nil && !e.dryRun {
		return fail(result, ErrCodeInvalidInput, "output", ErrNilOutputModule)
	}

	execCtx := e.executionContext(pipeline, "")
	logger.LogExecutionStart(execCtx)

	if e.outputModule != nil {
		defer closeModule(pipeline.ID, "output", e.outputModule)
	}

	if err := e.process(ctx, pipeline, records, result); err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, result.RecordsProcessed, time.Since(startedAt))
		return result, err
	}

	logger.LogExecutionEnd(execCtx, StatusSuccess, result.RecordsProcessed, time.Since(startedAt))
	return result, nil
}

// process runs the filter and output stages and finalizes result.
func (e *Executor) process(ctx context.Context, pipeline *connector.Pipeline, records []*connector.Record, result *connector.ExecutionResult) error {
	filtered, err := e.executeFilters(ctx, pipeline, records, result)
	if err != nil {
		return err
	}
	if err := e.executeOutput(ctx, pipeline, filtered, result); err != nil {
		return err
	}
	result.Status = StatusSuccess
	result.CompletedAt = time.Now()
	result.Error = nil
	return nil
}

func (e *Executor) executionContext(pipeline *connector.Pipeline, stage string) logger.ExecutionContext {
	return logger.ExecutionContext{
		PipelineID:   pipeline.ID,
		PipelineName: pipeline.Name,
		Stage:        stage,
		DryRun:       e.dryRun,
		FilterIndex:  -1,
	}
}

func (e *Executor) executeInput(ctx context.Context, pipeline *connector.Pipeline, result *connector.ExecutionResult) ([]*connector.Record, error) {
	stageCtx := e.executionContext(pipeline, "input")

	start := time.Now()
	records, err := e.inputModule.Fetch(ctx)
	duration := time.Since(start)

	if err != nil {
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(ErrCodeInputFailed, "input", err)
		logger.LogStageEnd(stageCtx, 0, duration, err)
		return nil, fmt.Errorf("executing input module: %w", err)
	}

	logger.LogStageEnd(stageCtx, len(records), duration, nil)
	return records, nil
}

// executeFilters runs all filter modules in sequence.
func (e *Executor) executeFilters(ctx context.Context, pipeline *connector.Pipeline, records []*connector.Record, result *connector.ExecutionResult) ([]*connector.Record, error) {
	current := records
	for i, module := range e.filterModules {
		stageCtx := e.executionContext(pipeline, "filter")
		stageCtx.FilterIndex = i

		if module == nil {
			logger.Warn("nil filter module encountered; skipping",
				slog.String("pipeline_id", pipeline.ID),
				slog.Int("filter_index", i),
			)
			continue
		}

		start := time.Now()
		out, err := module.Process(ctx, current)
		duration := time.Since(start)

		if err != nil {
			result.CompletedAt = time.Now()
			result.Error = buildExecutionError(ErrCodeFilterFailed, "filter", err)
			result.Error.Message = fmt.Sprintf("filter module %d failed: %v", i, err)
			result.Error.Details = map[string]interface{}{"filterIndex": i}
			logger.LogStageEnd(stageCtx, len(current), duration, err)
			return nil, fmt.Errorf("executing filter module %d: %w", i, err)
		}

		logger.LogStageEnd(stageCtx, len(out), duration, nil)
		current = out
	}
	return current, nil
}

// executeOutput sends records to the output module.
// In dry-run mode nothing is sent and every record counts as processed.
func (e *Executor) executeOutput(ctx context.Context, pipeline *connector.Pipeline, records []*connector.Record, result *connector.ExecutionResult) error {
	stageCtx := e.executionContext(pipeline, "output")

	if e.dryRun {
		logger.Debug("dry-run mode: skipping output module",
			slog.String("pipeline_id", pipeline.ID),
			slog.Int("records_would_send", len(records)),
		)
		result.RecordsProcessed = len(records)
		n := len(records)
		if n > PreviewLimit {
			n = PreviewLimit
		}
		result.Preview = records[:n:n]
		return nil
	}

	start := time.Now()
	sent, err := e.outputModule.Send(ctx, records)
	duration := time.Since(start)

	result.RecordsProcessed = sent
	if err != nil {
		result.CompletedAt = time.Now()
		result.RecordsFailed = len(records) - sent
		result.Error = buildExecutionError(ErrCodeOutputFailed, "output", err)
		logger.LogStageEnd(stageCtx, sent, duration, err)
		return fmt.Errorf("executing output module: %w", err)
	}

	logger.LogStageEnd(stageCtx, sent, duration, nil)
	return nil
}

func newErrorResult(startedAt time.Time) *connector.ExecutionResult {
	return &connector.ExecutionResult{
		StartedAt: startedAt,
		Status:    StatusError,
	}
}

func fail(result *connector.ExecutionResult, code, module string, err error) (*connector.ExecutionResult, error) {
	logger.Error("pipeline execution failed",
		slog.String("pipeline_id", result.PipelineID),
		slog.String("code", code),
		slog.String("error", err.Error()),
	)
	result.CompletedAt = time.Now()
	result.Error = buildExecutionError(code, module, err)
	return result, err
}

// buildExecutionError creates an ExecutionError with a classified category.
func buildExecutionError(code, module string, err error) *connector.ExecutionError {
	return &connector.ExecutionError{
		Code:     code,
		Message:  err.Error(),
		Module:   module,
		Category: string(errhandling.ClassifyError(err).Category),
	}
}

// closeModule closes a module and logs any error.
func closeModule(pipelineID, moduleName string, m interface{ Close() error }) {
	if err := m.Close(); err != nil {
		logger.Warn("failed to close module",
			slog.String("pipeline_id", pipelineID),
			slog.String("module", moduleName),
			slog.String("error", err.Error()),
		)
	}
}
