package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/marulkan/fluent-bit/internal/errhandling"
	"github.com/marulkan/fluent-bit/internal/logger"
	"github.com/marulkan/fluent-bit/internal/parser"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

// Line formats understood by the file input.
const (
	LineFormatText = "text"
	LineFormatJSON = "json"
)

const (
	// StdinPath selects standard input instead of a file.
	StdinPath = "-"

	defaultKey          = "log"
	defaultMaxLineBytes = 1 << 20
)

// Errors returned by the file input.
var (
	ErrMissingPath   = errors.New("'path' is required in file input configuration")
	ErrInvalidFormat = errors.New("'format' must be \"text\" or \"json\"")
)

// FileConfig is the configuration of the file input.
type FileConfig struct {
	// Path of the file to read, or "-" for stdin
	Path string
	// Format is "text" (each line becomes {Key: line}) or "json" (one object per line)
	Format string
	// Key is the field that holds a text line
	Key string
	// TimeKey names a JSON field holding the record timestamp
	TimeKey string
	// KeepTimeKey leaves TimeKey in the record after lifting the timestamp
	KeepTimeKey bool
	// MaxLineBytes bounds a single line
	MaxLineBytes int
}

// File reads newline-delimited records from a file or stdin.
type File struct {
	config FileConfig
	json   *parser.JSONParser
	stdin  io.Reader
	now    func() time.Time
}

// NewFileFromConfig creates a file input module from configuration.
//
// Required config fields:
//   - path: file path, or "-" for stdin
//
// Optional config fields:
//   - format: "text" (default) or "json"
//   - key: field name for text lines (default "log")
//   - time_key: JSON field with an RFC3339 or epoch-seconds timestamp
//   - keep_time_key: keep time_key in the record (default false)
//   - max_line_bytes: longest accepted line (default 1 MiB)
func NewFileFromConfig(config *connector.ModuleConfig) (*File, error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	cfg := FileConfig{
		Format:       LineFormatText,
		Key:          defaultKey,
		MaxLineBytes: defaultMaxLineBytes,
	}

	path, ok := config.Config["path"].(string)
	if !ok || path == "" {
		return nil, ErrMissingPath
	}
	cfg.Path = path

	if format, ok := config.Config["format"].(string); ok && format != "" {
		cfg.Format = strings.ToLower(format)
	}
	if cfg.Format != LineFormatText && cfg.Format != LineFormatJSON {
		return nil, fmt.Errorf("%w, got %q", ErrInvalidFormat, cfg.Format)
	}
	if key, ok := config.Config["key"].(string); ok && key != "" {
		cfg.Key = key
	}
	if timeKey, ok := config.Config["time_key"].(string); ok {
		cfg.TimeKey = timeKey
	}
	if keep, ok := config.Config["keep_time_key"].(bool); ok {
		cfg.KeepTimeKey = keep
	}
	switch n := config.Config["max_line_bytes"].(type) {
	case float64:
		cfg.MaxLineBytes = int(n)
	case int:
		cfg.MaxLineBytes = n
	}
	if cfg.MaxLineBytes <= 0 {
		return nil, fmt.Errorf("'max_line_bytes' must be positive, got %d", cfg.MaxLineBytes)
	}

	logger.Debug("file input module initialized",
		"path", cfg.Path,
		"format", cfg.Format,
		"key", cfg.Key,
		"time_key", cfg.TimeKey,
	)

	return &File{
		config: cfg,
		json:   parser.NewJSONParser("file-input"),
		stdin:  os.Stdin,
		now:    time.Now,
	}, nil
}

// Fetch reads every line of the source. Blank lines are skipped.
func (f *File) Fetch(ctx context.Context) ([]*connector.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r, closeFn, err := f.open()
	if err != nil {
		return nil, err
	}
	defer closeFn()

	bufSize := 64 * 1024
	if f.config.MaxLineBytes < bufSize {
		bufSize = f.config.MaxLineBytes
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufSize), f.config.MaxLineBytes)

	var records []*connector.Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, f.decodeLine(line, lineNo))
	}
	if err := scanner.Err(); err != nil {
		return nil, errhandling.NewIOError(errhandling.CodeReadFailed,
			fmt.Sprintf("reading %s at line %d", f.config.Path, lineNo+1), err)
	}

	logger.Debug("file input fetched records",
		"path", f.config.Path,
		"lines", lineNo,
		"records", len(records),
	)
	return records, nil
}

func (f *File) open() (io.Reader, func(), error) {
	if f.config.Path == StdinPath {
		return f.stdin, func() {}, nil
	}
	file, err := os.Open(f.config.Path)
	if err != nil {
		return nil, nil, errhandling.NewIOError(errhandling.CodeReadFailed,
			"opening "+f.config.Path, err)
	}
	return file, func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("failed to close input file", "path", f.config.Path, "error", closeErr.Error())
		}
	}, nil
}

// decodeLine turns one line into a record. In json mode a line that is not
// a JSON object is kept as text under Key.
func (f *File) decodeLine(line string, lineNo int) *connector.Record {
	if f.config.Format == LineFormatJSON {
		fields, ok, _ := f.json.Parse(line)
		if ok {
			t := f.recordTime(&fields)
			return connector.NewRecord(t, fields...)
		}
		logger.Warn("file input: line is not a JSON object, keeping it as text",
			"path", f.config.Path,
			"line", lineNo,
			"key", f.config.Key,
		)
	}
	return connector.NewRecord(f.now(), connector.Field{Key: f.config.Key, Value: line})
}

func (f *File) recordTime(fields *connector.Fields) time.Time {
	if f.config.TimeKey == "" {
		return f.now()
	}
	raw, ok := fields.Get(f.config.TimeKey)
	if !ok {
		return f.now()
	}
	t, ok := toTime(raw)
	if !ok {
		return f.now()
	}
	if !f.config.KeepTimeKey {
		fields.Delete(f.config.TimeKey)
	}
	return t
}

// toTime accepts RFC3339 strings and epoch seconds.
func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	case int64:
		return time.Unix(t, 0).UTC(), true
	case float64:
		sec, frac := math.Modf(t)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	default:
		return time.Time{}, false
	}
}

// Close implements input.Module. Files are opened per Fetch.
func (f *File) Close() error {
	return nil
}

var _ Module = (*File)(nil)
