package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"

	"github.com/dop251/goja"

	"github.com/marulkan/fluent-bit/internal/logger"
)

// Console limits for script parsers.
const (
	// MaxLogMessageLength is the maximum length of a single console message (8KB)
	MaxLogMessageLength = 8 * 1024
	// MaxObjectDepth is the maximum depth printed for nested values
	MaxObjectDepth = 10
)

const (
	placeholderCircular = "[Circular]"
	placeholderObject   = "[Object]"
)

// installConsole exposes console.log/info/warn/error/debug to a script,
// routed to the structured logger under the parser's name.
func installConsole(rt *goja.Runtime, parserName string) error {
	console := rt.NewObject()
	levels := map[string]slog.Level{
		"log":   slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"debug": slog.LevelDebug,
	}
	for name, level := range levels {
		level := level
		fn := func(call goja.FunctionCall) goja.Value {
			consoleLog(parserName, level, call.Arguments)
			return goja.Undefined()
		}
		if err := console.Set(name, fn); err != nil {
			return fmt.Errorf("console.Set(%q): %w", name, err)
		}
	}
	if err := rt.Set("console", console); err != nil {
		return fmt.Errorf("runtime.Set(console): %w", err)
	}
	return nil
}

func consoleLog(parserName string, level slog.Level, args []goja.Value) {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, formatJSValue(arg))
	}
	message := strings.Join(parts, " ")
	if len(message) > MaxLogMessageLength {
		message = message[:MaxLogMessageLength-3] + "..."
	}

	attrs := []any{
		slog.String("source", "javascript"),
		slog.String("parser", parserName),
	}
	switch level {
	case slog.LevelDebug:
		logger.Debug(message, attrs...)
	case slog.LevelWarn:
		logger.Warn(message, attrs...)
	case slog.LevelError:
		logger.Error(message, attrs...)
	default:
		logger.Info(message, attrs...)
	}
}

func formatJSValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if s, ok := v.Export().(string); ok {
		return s
	}
	return formatGoValue(v.Export(), 0, make(map[uintptr]bool))
}

// formatGoValue prints an exported script value as compact JSON-like text.
// Map keys are sorted; cycles and deep nesting are replaced by placeholders.
func formatGoValue(v interface{}, depth int, seen map[uintptr]bool) string {
	if depth > MaxObjectDepth {
		return placeholderObject
	}
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		data, _ := json.Marshal(x)
		return string(data)
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", x)
	case []interface{}:
		ptr := reflect.ValueOf(x).Pointer()
		if len(x) > 0 && seen[ptr] {
			return placeholderCircular
		}
		seen[ptr] = true
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, formatGoValue(item, depth+1, seen))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]interface{}:
		ptr := reflect.ValueOf(x).Pointer()
		if seen[ptr] {
			return placeholderCircular
		}
		seen[ptr] = true
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			key, _ := json.Marshal(k)
			parts = append(parts, string(key)+": "+formatGoValue(x[k], depth+1, seen))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("[Object %T]", v)
		}
		return string(data)
	}
}
