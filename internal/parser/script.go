package parser

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

// Script limits.
const (
	// MaxScriptLength is the maximum allowed script length in bytes (100KB)
	MaxScriptLength = 100 * 1024
	// DefaultScriptTimeout bounds a single parse(text) call
	DefaultScriptTimeout = time.Second
)

// ErrMissingParseFunc is returned when a script does not define parse(text).
var ErrMissingParseFunc = errors.New("script must define a parse(text) function")

// ScriptParser runs a JavaScript parse(text) function using goja.
// The function returns an object whose own properties become fields, or
// null/undefined when the text does not match. A thrown exception is a
// parser error.
//
// A goja runtime is not goroutine-safe, so runtimes are pooled; the compiled
// program is shared. Scripts may call console.log and friends, which write
// to the structured logger.
type ScriptParser struct {
	name    string
	program *goja.Program
	timeout time.Duration
	pool    sync.Pool
}

type scriptVM struct {
	rt    *goja.Runtime
	parse goja.Callable
}

// NewScriptParser compiles source and verifies that it defines parse.
func NewScriptParser(name, source string) (*ScriptParser, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: 'script' is required for the script format", ErrInvalidOption)
	}
	if len(source) > MaxScriptLength {
		return nil, fmt.Errorf("%w: script exceeds maximum length: %d bytes exceeds maximum %d bytes",
			ErrInvalidOption, len(source), MaxScriptLength)
	}

	program, err := goja.Compile(name, source, false)
	if err != nil {
		return nil, fmt.Errorf("%w: script compilation failed: %v", ErrInvalidOption, err)
	}

	p := &ScriptParser{name: name, program: program, timeout: DefaultScriptTimeout}

	first, err := p.newVM()
	if err != nil {
		return nil, err
	}
	p.pool.Put(first)
	return p, nil
}

func (p *ScriptParser) newVM() (*scriptVM, error) {
	rt := goja.New()
	if err := installConsole(rt, p.name); err != nil {
		return nil, err
	}
	if _, err := rt.RunProgram(p.program); err != nil {
		return nil, fmt.Errorf("%w: running script: %v", ErrInvalidOption, err)
	}
	fn, ok := goja.AssertFunction(rt.Get("parse"))
	if !ok {
		return nil, ErrMissingParseFunc
	}
	return &scriptVM{rt: rt, parse: fn}, nil
}

func (p *ScriptParser) acquire() (*scriptVM, error) {
	if v, ok := p.pool.Get().(*scriptVM); ok {
		return v, nil
	}
	return p.newVM()
}

// Name implements Parser.
func (p *ScriptParser) Name() string { return p.name }

// Parse implements Parser.
func (p *ScriptParser) Parse(text string) (connector.Fields, bool, error) {
	v, err := p.acquire()
	if err != nil {
		return nil, false, err
	}

	fired := make(chan struct{})
	timer := time.AfterFunc(p.timeout, func() {
		v.rt.Interrupt("parse timeout")
		close(fired)
	})
	res, callErr := v.parse(goja.Undefined(), v.rt.ToValue(text))
	if !timer.Stop() {
		<-fired
	}
	v.rt.ClearInterrupt()

	if callErr != nil {
		p.pool.Put(v)
		return nil, false, fmt.Errorf("script parse: %w", callErr)
	}

	fields, ok, err := export(res)
	p.pool.Put(v)
	return fields, ok, err
}

func export(res goja.Value) (connector.Fields, bool, error) {
	if res == nil || goja.IsUndefined(res) || goja.IsNull(res) {
		return nil, false, nil
	}
	if b, isBool := res.Export().(bool); isBool {
		if !b {
			return nil, false, nil
		}
		return nil, false, errors.New("parse returned true; expected an object or null")
	}

	obj, isObj := res.(*goja.Object)
	if !isObj {
		return nil, false, fmt.Errorf("parse returned %s; expected an object or null", res.ExportType())
	}

	keys := obj.Keys()
	fields := make(connector.Fields, 0, len(keys))
	for _, k := range keys {
		fields.Set(k, obj.Get(k).Export())
	}
	return fields, true, nil
}
