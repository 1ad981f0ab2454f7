package output

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

func TestWriter_Send(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter("buffer", &buf, false)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*connector.Record{
		connector.NewRecord(ts, connector.Field{Key: "z", Value: "x y"}, connector.Field{Key: "a", Value: int64(1)}),
		nil,
		connector.NewRecord(ts),
	}

	sent, err := w.Send(context.Background(), records)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if sent != 2 {
		t.Errorf("sent = %d, want 2", sent)
	}

	want := `{"time":"2024-01-01T00:00:00Z","record":{"z":"x y","a":1}}` + "\n" +
		`{"time":"2024-01-01T00:00:00Z","record":{}}` + "\n"
	if buf.String() != want {
		t.Errorf("output =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriter_FieldsOnly(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter("buffer", &buf, true)

	_, err := w.Send(context.Background(), []*connector.Record{
		connector.NewRecord(time.Now(), connector.Field{Key: "msg", Value: "hi"}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if buf.String() != `{"msg":"hi"}`+"\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndjson")
	cfg := &connector.ModuleConfig{Type: "file", Config: map[string]interface{}{"path": path, "fieldsOnly": true}}

	rec := []*connector.Record{connector.NewRecord(time.Now(), connector.Field{Key: "n", Value: int64(1)})}

	w, err := NewFileFromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Send(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	cfg.Config["append"] = true
	w, err = NewFileFromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Send(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	_ = w.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Errorf("lines = %d, want 2 (content %q)", got, data)
	}
}

func TestFileOutput_Errors(t *testing.T) {
	if _, err := NewFileFromConfig(nil); !errors.Is(err, ErrNilConfig) {
		t.Errorf("error = %v, want ErrNilConfig", err)
	}
	if _, err := NewFileFromConfig(&connector.ModuleConfig{Config: map[string]interface{}{}}); !errors.Is(err, ErrMissingPath) {
		t.Errorf("error = %v, want ErrMissingPath", err)
	}
	bad := filepath.Join(t.TempDir(), "missing-dir", "out.ndjson")
	if _, err := NewFileFromConfig(&connector.ModuleConfig{Config: map[string]interface{}{"path": bad}}); err == nil {
		t.Error("expected error for unwritable path")
	}
}

func TestStdoutOutput(t *testing.T) {
	w, err := NewStdoutFromConfig(&connector.ModuleConfig{Type: "stdout", Config: map[string]interface{}{}})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() = %v, stdout must not be closed", err)
	}
}
