package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFile_YAML(t *testing.T) {
	result := ParseFile("testdata/valid-pipeline.yaml", "")

	if !result.IsValid() {
		t.Fatalf("expected valid result, got errors: %v", result.Errors)
	}
	if result.Format != FormatYAML {
		t.Errorf("Format = %q, want yaml", result.Format)
	}
	section, ok := result.Data["pipeline"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected pipeline section, got %T", result.Data["pipeline"])
	}
	if section["name"] != "app-logs" {
		t.Errorf("pipeline.name = %v", section["name"])
	}
}

func TestParseFile_JSON(t *testing.T) {
	result := ParseFile("testdata/valid-pipeline.json", "")

	if !result.IsValid() {
		t.Fatalf("expected valid result, got errors: %v", result.Errors)
	}
	if result.Format != FormatJSON {
		t.Errorf("Format = %q, want json", result.Format)
	}
	if result.FilePath != "testdata/valid-pipeline.json" {
		t.Errorf("FilePath = %q", result.FilePath)
	}
}

func TestParseFile_InvalidJSON(t *testing.T) {
	result := ParseFile("testdata/invalid-json.json", "")

	if result.IsValid() {
		t.Fatal("expected parsing to fail")
	}
	pe := result.Errors[0]
	if pe.Type != ErrorTypeSyntax {
		t.Errorf("Type = %q, want %q", pe.Type, ErrorTypeSyntax)
	}
	if pe.Path != "testdata/invalid-json.json" {
		t.Errorf("Path = %q", pe.Path)
	}
}

func TestParseFile_InvalidYAML(t *testing.T) {
	result := ParseFile("testdata/invalid-yaml.yaml", "")

	if result.IsValid() {
		t.Fatal("expected parsing to fail")
	}
	if result.Errors[0].Line == 0 {
		t.Errorf("expected a line number, got error %v", result.Errors[0])
	}
}

func TestParseFile_Empty(t *testing.T) {
	result := ParseFile("testdata/empty.json", "")
	if result.IsValid() {
		t.Fatal("expected empty file to fail")
	}
	if !strings.Contains(result.Errors[0].Message, "empty content") {
		t.Errorf("Message = %q", result.Errors[0].Message)
	}
}

func TestParseFile_NotFound(t *testing.T) {
	result := ParseFile("testdata/does-not-exist.yaml", "")
	if result.IsValid() {
		t.Fatal("expected error for missing file")
	}
	if result.Errors[0].Type != ErrorTypeIO {
		t.Errorf("Type = %q, want io", result.Errors[0].Type)
	}
}

func TestParseFile_UnknownExtensionDetectsContent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "pipeline.conf")
	if err := os.WriteFile(p, []byte("schemaVersion: \"1.0.0\"\npipeline: {name: x}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	result := ParseFile(p, "")
	if !result.IsValid() {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Format != FormatYAML {
		t.Errorf("Format = %q, want yaml", result.Format)
	}
}

func TestParseString(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		format    string
		wantValid bool
		wantData  bool
		wantType  string
	}{
		{name: "json object", content: `{"a": 1}`, format: FormatJSON, wantValid: true, wantData: true},
		{name: "yaml mapping", content: "a: 1\n", format: FormatYAML, wantValid: true, wantData: true},
		{name: "auto json", content: `{"a": 1}`, wantValid: true, wantData: true},
		{name: "auto yaml", content: "a: 1\n", wantValid: true, wantData: true},
		{name: "json array", content: `[1, 2]`, format: FormatJSON, wantType: ErrorTypeFormat},
		{name: "yaml scalar", content: "just text", format: FormatYAML, wantType: ErrorTypeFormat},
		{name: "json null", content: `null`, format: FormatJSON, wantValid: true},
		{name: "yaml comments only", content: "# nothing\n", format: FormatYAML, wantValid: true},
		{name: "empty", content: "  ", format: FormatJSON, wantType: ErrorTypeSyntax},
		{name: "undetectable", content: "", wantType: ErrorTypeFormat},
		{name: "unsupported", content: "a = 1", format: "toml", wantType: ErrorTypeFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseString(tt.content, tt.format)
			if result.IsValid() != tt.wantValid {
				t.Fatalf("IsValid() = %v, errors: %v", result.IsValid(), result.Errors)
			}
			if (result.Data != nil) != tt.wantData {
				t.Errorf("Data = %v", result.Data)
			}
			if tt.wantType != "" && result.Errors[0].Type != tt.wantType {
				t.Errorf("error type = %q, want %q", result.Errors[0].Type, tt.wantType)
			}
		})
	}
}

func TestParseString_JSONSyntaxPosition(t *testing.T) {
	result := ParseString("{\n  \"a\": 1,\n  \"b\": ,\n}", FormatJSON)
	if result.IsValid() {
		t.Fatal("expected syntax error")
	}
	if result.Errors[0].Line != 3 {
		t.Errorf("Line = %d, want 3 (%v)", result.Errors[0].Line, result.Errors[0])
	}
}

func TestParseString_YAML12Booleans(t *testing.T) {
	// yaml.v3 follows YAML 1.2: "on" stays a string
	result := ParseString("a: on\nb: true\n", FormatYAML)
	if !result.IsValid() {
		t.Fatal(result.Errors)
	}
	if result.Data["a"] != "on" {
		t.Errorf("a = %#v, want \"on\"", result.Data["a"])
	}
	if result.Data["b"] != true {
		t.Errorf("b = %#v, want true", result.Data["b"])
	}
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]string{
		"a.json":       FormatJSON,
		"a.JSON":       FormatJSON,
		"a.yaml":       FormatYAML,
		"dir/a.yml":    FormatYAML,
		"a.conf":       "",
		"no-extension": "",
	}
	for path, want := range tests {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestIsJSONAndIsYAML(t *testing.T) {
	if !IsJSON(` {"a":1}`) || !IsJSON(`[1]`) || IsJSON(`a: 1`) || IsJSON(``) {
		t.Error("IsJSON misclassified input")
	}
	if !IsYAML("a: 1") || IsYAML("") || IsYAML("a: [") {
		t.Error("IsYAML misclassified input")
	}
}

func TestParseConfig_Valid(t *testing.T) {
	for _, path := range []string{"testdata/valid-pipeline.yaml", "testdata/valid-pipeline.json"} {
		t.Run(path, func(t *testing.T) {
			result := ParseConfig(path)
			if !result.IsValid() {
				t.Fatalf("unexpected errors: %v", result.AllErrors())
			}
			if result.Err() != nil {
				t.Errorf("Err() = %v, want nil", result.Err())
			}
		})
	}
}

func TestParseConfig_SkipsValidationOnParseError(t *testing.T) {
	result := ParseConfig("testdata/invalid-json.json")
	if len(result.ParseErrors) == 0 {
		t.Fatal("expected parse errors")
	}
	if len(result.ValidationErrors) != 0 {
		t.Errorf("validation should not run, got %v", result.ValidationErrors)
	}
}

func TestResult_AllErrors(t *testing.T) {
	r := &Result{
		ParseErrors:      []ParseError{{Message: "p"}},
		ValidationErrors: []ValidationError{{Path: "/x", Message: "v"}},
	}
	errs := r.AllErrors()
	if len(errs) != 2 {
		t.Fatalf("len = %d, want 2", len(errs))
	}
	if errs[0].Error() != "p" || errs[1].Error() != "/x: v" {
		t.Errorf("errors = %v", errs)
	}
	if r.Err() == nil {
		t.Error("Err() = nil, want joined error")
	}
}

func TestParseError_Error(t *testing.T) {
	e := ParseError{Path: "p.json", Line: 2, Column: 5, Message: "boom"}
	if got := e.Error(); got != "p.json: line 2, column 5: boom" {
		t.Errorf("Error() = %q", got)
	}
}
