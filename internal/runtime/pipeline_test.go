package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/marulkan/fluent-bit/internal/errhandling"
	"github.com/marulkan/fluent-bit/internal/logger"
	"github.com/marulkan/fluent-bit/internal/modules/filter"
	"github.com/marulkan/fluent-bit/internal/modules/input"
	"github.com/marulkan/fluent-bit/internal/modules/output"
	"github.com/marulkan/fluent-bit/internal/parser"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

// =============================================================================
// Mock Implementations for Testing
// =============================================================================

// MockInputModule is a test mock for input.Module interface
type MockInputModule struct {
	data        []*connector.Record
	err         error
	fetchCalled bool
	closed      bool
}

func NewMockInputModule(data []*connector.Record, err error) *MockInputModule {
	return &MockInputModule{data: data, err: err}
}

func (m *MockInputModule) Fetch(_ context.Context) ([]*connector.Record, error) {
	m.fetchCalled = true
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

func (m *MockInputModule) Close() error {
	m.closed = true
	return nil
}

var _ input.Module = (*MockInputModule)(nil)

// MockFilterModule is a test mock for filter.Module interface
type MockFilterModule struct {
	transformer     func([]*connector.Record) []*connector.Record
	err             error
	processCalled   bool
	recordsReceived []*connector.Record
}

func NewMockFilterModule(transformer func([]*connector.Record) []*connector.Record) *MockFilterModule {
	return &MockFilterModule{transformer: transformer}
}

func NewMockFilterModuleWithError(err error) *MockFilterModule {
	return &MockFilterModule{err: err}
}

func (m *MockFilterModule) Process(_ context.Context, records []*connector.Record) ([]*connector.Record, error) {
	m.processCalled = true
	m.recordsReceived = records
	if m.err != nil {
		return nil, m.err
	}
	if m.transformer != nil {
		return m.transformer(records), nil
	}
	return records, nil
}

var _ filter.Module = (*MockFilterModule)(nil)

// MockOutputModule is a test mock for output.Module interface
type MockOutputModule struct {
	sentRecords []*connector.Record
	sent        int
	err         error
	sendCalled  bool
	closed      bool
}

func NewMockOutputModule(err error) *MockOutputModule {
	return &MockOutputModule{err: err}
}

func (m *MockOutputModule) Send(_ context.Context, records []*connector.Record) (int, error) {
	m.sendCalled = true
	if m.err != nil {
		return m.sent, m.err
	}
	m.sentRecords = records
	return len(records), nil
}

func (m *MockOutputModule) Close() error {
	m.closed = true
	return nil
}

var _ output.Module = (*MockOutputModule)(nil)

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func logRecords(lines ...string) []*connector.Record {
	records := make([]*connector.Record, len(lines))
	for i, line := range lines {
		records[i] = connector.NewRecord(testTime, connector.Field{Key: "log", Value: line})
	}
	return records
}

func testPipeline() *connector.Pipeline {
	return &connector.Pipeline{ID: "test-pipeline", Name: "Test Pipeline", Version: "1.0.0"}
}

// captureLogs swaps the default logger for one writing JSON into a buffer.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := logger.Logger
	logger.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	t.Cleanup(func() { logger.Logger = original })
	return &buf
}

func logEntries(t *testing.T, buf *bytes.Buffer, msg string) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry["msg"] == msg {
			entries = append(entries, entry)
		}
	}
	return entries
}

// =============================================================================
// Unit Tests for Pipeline Execution
// =============================================================================

func TestExecutor_Execute_Success(t *testing.T) {
	mockInput := NewMockInputModule(logRecords("a=1", "b=2"), nil)
	mockOutput := NewMockOutputModule(nil)

	executor := NewExecutorWithModules(mockInput, nil, mockOutput, false)
	result, err := executor.Execute(testPipeline())

	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", result.Status, StatusSuccess)
	}
	if result.PipelineID != "test-pipeline" {
		t.Errorf("PipelineID = %q, want test-pipeline", result.PipelineID)
	}
	if result.RecordsProcessed != 2 {
		t.Errorf("RecordsProcessed = %d, want 2", result.RecordsProcessed)
	}
	if result.Error != nil {
		t.Errorf("Error = %+v, want nil", result.Error)
	}
	if result.CompletedAt.Before(result.StartedAt) {
		t.Error("CompletedAt should not be before StartedAt")
	}
	if !mockInput.closed || !mockOutput.closed {
		t.Error("input and output modules should be closed")
	}
}

func TestExecutor_Execute_ParserFilterIntegration(t *testing.T) {
	parsers, err := parser.NewRegistryFromDefinitions([]connector.ParserDefinition{
		{Name: "json", Format: parser.FormatJSON},
		{Name: "kv", Format: parser.FormatLogfmt, Types: map[string]string{"status": parser.TypeInteger}},
	})
	if err != nil {
		t.Fatalf("NewRegistryFromDefinitions() error = %v", err)
	}
	reparse, err := filter.NewParserFromConfig(filter.ParserConfig{
		KeyName:     "log",
		Parsers:     []string{"json", "kv"},
		ReserveData: true,
	}, parsers)
	if err != nil {
		t.Fatalf("NewParserFromConfig() error = %v", err)
	}

	records := logRecords(`{"user":"ana"}`, "status=200 path=/", "free text")
	records[0].Fields.Set("host", "web-1")

	mockOutput := NewMockOutputModule(nil)
	executor := NewExecutorWithModules(NewMockInputModule(records, nil), []filter.Module{reparse}, mockOutput, false)

	result, err := executor.Execute(testPipeline())
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}
	if result.RecordsProcessed != 3 {
		t.Fatalf("RecordsProcessed = %d, want 3", result.RecordsProcessed)
	}

	got := mockOutput.sentRecords
	if keys := strings.Join(got[0].Fields.Keys(), ","); keys != "host,user" {
		t.Errorf("record 0 keys = %s, want host,user", keys)
	}
	if v, _ := got[1].Fields.Get("status"); v != int64(200) {
		t.Errorf("record 1 status = %#v, want int64(200)", v)
	}
	if got[2] != records[2] {
		t.Error("unparsable record should be passed through unchanged")
	}
}

func TestExecutor_Execute_MultipleFiltersSequence(t *testing.T) {
	var order []string
	first := NewMockFilterModule(func(r []*connector.Record) []*connector.Record {
		order = append(order, "first")
		return r[:1]
	})
	second := NewMockFilterModule(func(r []*connector.Record) []*connector.Record {
		order = append(order, "second")
		return r
	})

	mockOutput := NewMockOutputModule(nil)
	executor := NewExecutorWithModules(NewMockInputModule(logRecords("x", "y"), nil), []filter.Module{first, second}, mockOutput, false)

	if _, err := executor.Execute(testPipeline()); err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}
	if strings.Join(order, ",") != "first,second" {
		t.Errorf("filter order = %v", order)
	}
	if len(second.recordsReceived) != 1 {
		t.Errorf("second filter received %d records, want 1", len(second.recordsReceived))
	}
	if len(mockOutput.sentRecords) != 1 {
		t.Errorf("output received %d records, want 1", len(mockOutput.sentRecords))
	}
}

func TestExecutor_Execute_NilFilterSkipped(t *testing.T) {
	mockOutput := NewMockOutputModule(nil)
	executor := NewExecutorWithModules(NewMockInputModule(logRecords("x"), nil), []filter.Module{nil}, mockOutput, false)

	result, err := executor.Execute(testPipeline())
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}
	if result.RecordsProcessed != 1 {
		t.Errorf("RecordsProcessed = %d, want 1", result.RecordsProcessed)
	}
}

func TestExecutor_Execute_EmptyInputData(t *testing.T) {
	mockOutput := NewMockOutputModule(nil)
	executor := NewExecutorWithModules(NewMockInputModule(nil, nil), nil, mockOutput, false)

	result, err := executor.Execute(testPipeline())
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}
	if result.Status != StatusSuccess || result.RecordsProcessed != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestExecutor_Execute_InputError(t *testing.T) {
	inputErr := errhandling.NewIOError(errhandling.CodeReadFailed, "reading app.log", errors.New("permission denied"))
	mockInput := NewMockInputModule(nil, inputErr)
	mockOutput := NewMockOutputModule(nil)
	mockFilter := NewMockFilterModule(nil)

	executor := NewExecutorWithModules(mockInput, []filter.Module{mockFilter}, mockOutput, false)
	result, err := executor.Execute(testPipeline())

	if !errors.Is(err, inputErr) {
		t.Fatalf("expected wrapped input error, got %v", err)
	}
	if result.Status != StatusError {
		t.Errorf("Status = %q, want %q", result.Status, StatusError)
	}
	if result.Error == nil || result.Error.Code != ErrCodeInputFailed {
		t.Fatalf("Error = %+v, want code %s", result.Error, ErrCodeInputFailed)
	}
	if result.Error.Category != string(errhandling.CategoryIO) {
		t.Errorf("Category = %q, want io", result.Error.Category)
	}
	if mockFilter.processCalled || mockOutput.sendCalled {
		t.Error("filters and output must not run after an input failure")
	}
	if !mockInput.closed || !mockOutput.closed {
		t.Error("modules should be closed on input error")
	}
}

func TestExecutor_Execute_FilterError(t *testing.T) {
	filterErr := errors.New("filter exploded")
	second := NewMockFilterModule(nil)
	mockOutput := NewMockOutputModule(nil)

	executor := NewExecutorWithModules(
		NewMockInputModule(logRecords("x"), nil),
		[]filter.Module{NewMockFilterModule(nil), NewMockFilterModuleWithError(filterErr), second},
		mockOutput,
		false,
	)
	result, err := executor.Execute(testPipeline())

	if !errors.Is(err, filterErr) {
		t.Fatalf("expected wrapped filter error, got %v", err)
	}
	if result.Error == nil || result.Error.Code != ErrCodeFilterFailed {
		t.Fatalf("Error = %+v, want code %s", result.Error, ErrCodeFilterFailed)
	}
	if idx, _ := result.Error.Details["filterIndex"].(int); idx != 1 {
		t.Errorf("filterIndex = %v, want 1", result.Error.Details["filterIndex"])
	}
	if !strings.Contains(result.Error.Message, "filter module 1 failed") {
		t.Errorf("Message = %q", result.Error.Message)
	}
	if second.processCalled || mockOutput.sendCalled {
		t.Error("execution must stop at the failing filter")
	}
	if !mockOutput.closed {
		t.Error("output should be closed on filter error")
	}
}

func TestExecutor_Execute_FilterCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reparse, err := filter.NewParserFromConfig(filter.ParserConfig{KeyName: "log", Parsers: []string{"json"}}, jsonRegistry(t))
	if err != nil {
		t.Fatalf("NewParserFromConfig() error = %v", err)
	}

	records := logRecords(make([]string, 500)...)
	executor := NewExecutorWithModules(NewMockInputModule(records, nil), []filter.Module{reparse}, NewMockOutputModule(nil), false)

	result, err := executor.ExecuteWithContext(ctx, testPipeline())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Error.Category != string(errhandling.CategoryCanceled) {
		t.Errorf("Category = %q, want canceled", result.Error.Category)
	}
}

func TestExecutor_Execute_OutputError(t *testing.T) {
	outputErr := errors.New("disk full")
	mockOutput := NewMockOutputModule(outputErr)
	mockOutput.sent = 1

	executor := NewExecutorWithModules(NewMockInputModule(logRecords("a", "b", "c"), nil), nil, mockOutput, false)
	result, err := executor.Execute(testPipeline())

	if !errors.Is(err, outputErr) {
		t.Fatalf("expected wrapped output error, got %v", err)
	}
	if result.Error == nil || result.Error.Code != ErrCodeOutputFailed {
		t.Fatalf("Error = %+v, want code %s", result.Error, ErrCodeOutputFailed)
	}
	if result.RecordsProcessed != 1 || result.RecordsFailed != 2 {
		t.Errorf("processed/failed = %d/%d, want 1/2", result.RecordsProcessed, result.RecordsFailed)
	}
	if !mockOutput.closed {
		t.Error("output should be closed on output error")
	}
}

func TestExecutor_Execute_NilPipeline(t *testing.T) {
	executor := NewExecutorWithModules(NewMockInputModule(nil, nil), nil, NewMockOutputModule(nil), false)
	result, err := executor.Execute(nil)

	if !errors.Is(err, ErrNilPipeline) {
		t.Fatalf("expected ErrNilPipeline, got %v", err)
	}
	if result.Error == nil || result.Error.Code != ErrCodeInvalidInput {
		t.Errorf("Error = %+v, want code %s", result.Error, ErrCodeInvalidInput)
	}
}

func TestExecutor_Execute_NilModules(t *testing.T) {
	_, err := NewExecutorWithModules(nil, nil, NewMockOutputModule(nil), false).Execute(testPipeline())
	if !errors.Is(err, ErrNilInputModule) {
		t.Errorf("expected ErrNilInputModule, got %v", err)
	}

	_, err = NewExecutorWithModules(NewMockInputModule(nil, nil), nil, nil, false).Execute(testPipeline())
	if !errors.Is(err, ErrNilOutputModule) {
		t.Errorf("expected ErrNilOutputModule, got %v", err)
	}
}

func TestExecutor_DryRun(t *testing.T) {
	mockFilter := NewMockFilterModule(nil)
	mockOutput := NewMockOutputModule(nil)

	executor := NewExecutorWithModules(NewMockInputModule(logRecords("a", "b"), nil), []filter.Module{mockFilter}, mockOutput, true)
	result, err := executor.Execute(testPipeline())

	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}
	if !mockFilter.processCalled {
		t.Error("filters must run in dry-run mode")
	}
	if mockOutput.sendCalled {
		t.Error("output must not be called in dry-run mode")
	}
	if result.RecordsProcessed != 2 {
		t.Errorf("RecordsProcessed = %d, want 2", result.RecordsProcessed)
	}
	if len(result.Preview) != 2 {
		t.Errorf("Preview has %d records, want 2", len(result.Preview))
	}
}

func TestExecutor_DryRun_PreviewLimit(t *testing.T) {
	lines := make([]string, PreviewLimit+5)
	executor := NewExecutorWithModules(NewMockInputModule(logRecords(lines...), nil), nil, nil, true)

	result, err := executor.Execute(testPipeline())
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}
	if len(result.Preview) != PreviewLimit {
		t.Errorf("Preview has %d records, want %d", len(result.Preview), PreviewLimit)
	}
	if result.RecordsProcessed != PreviewLimit+5 {
		t.Errorf("RecordsProcessed = %d, want %d", result.RecordsProcessed, PreviewLimit+5)
	}
}

func TestExecutor_DryRun_NilOutputAllowed(t *testing.T) {
	executor := NewExecutorWithModules(NewMockInputModule(logRecords("a"), nil), nil, nil, true)
	result, err := executor.Execute(testPipeline())
	if err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Errorf("Status = %q, want success", result.Status)
	}
}

func TestExecutor_ExecuteWithRecords(t *testing.T) {
	mockInput := NewMockInputModule(nil, nil)
	mockOutput := NewMockOutputModule(nil)

	executor := NewExecutorWithModules(mockInput, nil, mockOutput, false)
	result, err := executor.ExecuteWithRecords(context.Background(), testPipeline(), logRecords("a", "b", "c"))

	if err != nil {
		t.Fatalf("ExecuteWithRecords() returned unexpected error: %v", err)
	}
	if result.RecordsProcessed != 3 {
		t.Errorf("RecordsProcessed = %d, want 3", result.RecordsProcessed)
	}
	if mockInput.fetchCalled || mockInput.closed {
		t.Error("input module must not be used")
	}
	if !mockOutput.closed {
		t.Error("output should be closed")
	}
}

// =============================================================================
// Execution Logging Tests
// =============================================================================

func TestExecutor_Execute_LogsExecutionStartAndEnd(t *testing.T) {
	buf := captureLogs(t)

	executor := NewExecutorWithModules(NewMockInputModule(logRecords("a"), nil), nil, NewMockOutputModule(nil), false)
	if _, err := executor.Execute(testPipeline()); err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	starts := logEntries(t, buf, "execution started")
	if len(starts) != 1 {
		t.Fatalf("expected 1 'execution started' entry, got %d", len(starts))
	}
	if starts[0]["pipeline_name"] != "Test Pipeline" {
		t.Errorf("pipeline_name = %v", starts[0]["pipeline_name"])
	}
	if _, has := starts[0]["filter_index"]; has {
		t.Error("filter_index should only be logged for filter stages")
	}

	ends := logEntries(t, buf, "execution completed")
	if len(ends) != 1 {
		t.Fatalf("expected 1 'execution completed' entry, got %d", len(ends))
	}
	if ends[0]["status"] != StatusSuccess {
		t.Errorf("status = %v, want success", ends[0]["status"])
	}
	if ends[0]["records_processed"] != float64(1) {
		t.Errorf("records_processed = %v, want 1", ends[0]["records_processed"])
	}
}

func TestExecutor_Execute_LogsStages(t *testing.T) {
	buf := captureLogs(t)

	executor := NewExecutorWithModules(
		NewMockInputModule(logRecords("a"), nil),
		[]filter.Module{NewMockFilterModule(nil)},
		NewMockOutputModule(nil),
		false,
	)
	if _, err := executor.Execute(testPipeline()); err != nil {
		t.Fatalf("Execute() returned unexpected error: %v", err)
	}

	stages := make(map[string]map[string]interface{})
	for _, entry := range logEntries(t, buf, "stage completed") {
		stage, _ := entry["stage"].(string)
		stages[stage] = entry
	}
	for _, want := range []string{"input", "filter", "output"} {
		if _, ok := stages[want]; !ok {
			t.Errorf("missing 'stage completed' entry for %s", want)
		}
	}
	if stages["filter"]["filter_index"] != float64(0) {
		t.Errorf("filter stage filter_index = %v, want 0", stages["filter"]["filter_index"])
	}
}

func TestExecutor_Execute_LogsStageFailure(t *testing.T) {
	buf := captureLogs(t)

	wrapped := errors.New("root cause")
	executor := NewExecutorWithModules(
		NewMockInputModule(logRecords("a"), nil),
		[]filter.Module{NewMockFilterModuleWithError(errhandling.NewIOError(errhandling.CodeReadFailed, "lookup", wrapped))},
		NewMockOutputModule(nil),
		false,
	)
	_, _ = executor.Execute(testPipeline())

	failures := logEntries(t, buf, "stage failed")
	if len(failures) != 1 {
		t.Fatalf("expected 1 'stage failed' entry, got %d", len(failures))
	}
	chain, _ := failures[0]["error_chain"].(string)
	if !strings.Contains(chain, "root cause") {
		t.Errorf("error_chain = %q, want it to include the root cause", chain)
	}

	ends := logEntries(t, buf, "execution completed")
	if len(ends) != 1 || ends[0]["status"] != StatusError {
		t.Errorf("expected an error 'execution completed' entry, got %v", ends)
	}
}

func jsonRegistry(t *testing.T) *parser.Registry {
	t.Helper()
	r := parser.NewRegistry()
	if err := r.Register(parser.NewJSONParser("json")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return r
}
