// Package modules_test verifies module boundary compliance.
package modules_test

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"
)

const modulePath = "github.com/marulkan/fluent-bit/"

// forbidden maps a package to the packages it must not import.
// Modules and parsers only see each other through interfaces; wiring lives
// in registry, factory and runtime.
var forbidden = map[string][]string{
	"internal/modules/input": {
		"internal/runtime", "internal/factory", "internal/registry", "internal/cli",
		"internal/modules/filter", "internal/modules/output",
	},
	"internal/modules/filter": {
		"internal/runtime", "internal/factory", "internal/registry", "internal/cli",
		"internal/modules/input", "internal/modules/output",
	},
	"internal/modules/output": {
		"internal/runtime", "internal/factory", "internal/registry", "internal/cli",
		"internal/modules/input", "internal/modules/filter",
	},
	"internal/parser": {
		"internal/runtime", "internal/factory", "internal/registry", "internal/cli",
		"internal/modules/input", "internal/modules/filter", "internal/modules/output",
	},
}

func TestModuleBoundaryCompliance(t *testing.T) {
	for pkgPath, denied := range forbidden {
		pkgPath, denied := pkgPath, denied
		t.Run(pkgPath, func(t *testing.T) {
			matches, err := filepath.Glob(filepath.Join("..", "..", pkgPath, "*.go"))
			if err != nil {
				t.Fatalf("failed to glob package %s: %v", pkgPath, err)
			}
			if len(matches) == 0 {
				t.Fatalf("no Go files found for %s", pkgPath)
			}

			for _, file := range matches {
				// tests may wire real dependencies
				if strings.HasSuffix(file, "_test.go") {
					continue
				}

				f, err := parser.ParseFile(token.NewFileSet(), file, nil, parser.ImportsOnly)
				if err != nil {
					t.Fatalf("failed to parse file %s: %v", file, err)
				}

				for _, imp := range f.Imports {
					importPath := strings.Trim(imp.Path.Value, `"`)
					for _, d := range denied {
						if importPath == modulePath+d {
							t.Errorf("BOUNDARY VIOLATION: %s imports %s", filepath.Base(file), importPath)
						}
					}
				}
			}
		})
	}
}
