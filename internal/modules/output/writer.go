package output

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/marulkan/fluent-bit/internal/errhandling"
	"github.com/marulkan/fluent-bit/internal/logger"
	"github.com/marulkan/fluent-bit/pkg/connector"
)

// ErrMissingPath is returned when the file output has no path.
var ErrMissingPath = errors.New("'path' is required in file output configuration")

// Writer writes records as newline-delimited JSON.
// Each line is {"time": ..., "record": {...}} with fields in record order,
// or only the fields when fieldsOnly is set.
type Writer struct {
	mu         sync.Mutex
	name       string
	w          io.Writer
	closer     io.Closer
	fieldsOnly bool
}

// NewWriter returns an NDJSON output over w. The writer is not closed by Close.
func NewWriter(name string, w io.Writer, fieldsOnly bool) *Writer {
	return &Writer{name: name, w: w, fieldsOnly: fieldsOnly}
}

// NewStdoutFromConfig creates the stdout output.
//
// Optional config fields:
//   - fieldsOnly: omit the time wrapper (default false)
func NewStdoutFromConfig(cfg *connector.ModuleConfig) (*Writer, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	fieldsOnly, _ := cfg.Config["fieldsOnly"].(bool)
	return NewWriter("stdout", os.Stdout, fieldsOnly), nil
}

// NewFileFromConfig creates the file output.
//
// Required config fields:
//   - path: destination file
//
// Optional config fields:
//   - append: append instead of truncating (default false)
//   - fieldsOnly: omit the time wrapper (default false)
func NewFileFromConfig(cfg *connector.ModuleConfig) (*Writer, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	path, ok := cfg.Config["path"].(string)
	if !ok || path == "" {
		return nil, ErrMissingPath
	}
	appendMode, _ := cfg.Config["append"].(bool)
	fieldsOnly, _ := cfg.Config["fieldsOnly"].(bool)

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, errhandling.NewIOError(errhandling.CodeWriteFailed, "opening output file "+path, err)
	}

	logger.Debug("file output module initialized", "path", path, "append", appendMode)

	w := NewWriter(path, f, fieldsOnly)
	w.closer = f
	return w, nil
}

// Send implements output.Module. Nil records are skipped.
func (o *Writer) Send(ctx context.Context, records []*connector.Record) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	bw := bufio.NewWriter(o.w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	sent := 0
	for i, rec := range records {
		if i > 0 && i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return sent, err
			}
		}
		if rec == nil {
			continue
		}

		var err error
		if o.fieldsOnly {
			err = enc.Encode(rec.Fields)
		} else {
			err = enc.Encode(rec)
		}
		if err != nil {
			return sent, errhandling.NewIOError(errhandling.CodeWriteFailed,
				fmt.Sprintf("encoding record %d for %s", i, o.name), err)
		}
		sent++
	}

	if err := bw.Flush(); err != nil {
		return 0, errhandling.NewIOError(errhandling.CodeWriteFailed, "writing to "+o.name, err)
	}
	return sent, nil
}

// Close closes the underlying file, if the output owns one.
func (o *Writer) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

var _ Module = (*Writer)(nil)
