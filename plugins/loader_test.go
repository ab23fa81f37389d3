package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/funcbridge/extension"
)

const registerSource = `package main

import "github.com/kingrea/funcbridge/extension"

func Register(r *extension.Registry) {
	r.Function("add", "Add two numbers", func(args map[string]any, ctx *extension.Context) (any, error) {
		a, _ := args["a"].(float64)
		b, _ := args["b"].(float64)
		return a + b, nil
	})
	r.Assertion("equals", "", func(params map[string]any, ctx *extension.Context) (any, error) {
		return params["actual"] == params["expected"], nil
	})
	r.Hook("before_all", func(ctx *extension.Context) error {
		ctx.Set("ready", true)
		return nil
	})
}
`

const containerSource = `package main

import "github.com/kingrea/funcbridge/extension"

var Functions = map[string]extension.Function{
	"double": func(args map[string]any, ctx *extension.Context) (any, error) {
		n, _ := args["n"].(float64)
		return n * 2, nil
	},
}

var Assertions = map[string]extension.Assertion{
	"is_empty": func(params map[string]any, ctx *extension.Context) (any, error) {
		s, _ := params["value"].(string)
		return s == "", nil
	},
}

var Hooks = map[string]extension.Hook{
	"after_all": func(ctx *extension.Context) error {
		ctx.Clear("*")
		return nil
	},
}
`

const overlapSource = `package main

import "github.com/kingrea/funcbridge/extension"

func Register(r *extension.Registry) {
	r.Function("answer", "from Register", func(args map[string]any, ctx *extension.Context) (any, error) {
		return "register", nil
	})
}

var Functions = map[string]extension.Function{
	"answer": func(args map[string]any, ctx *extension.Context) (any, error) {
		return "container", nil
	},
}
`

const bareSource = `package main

var unexported = 42
`

func writeModule(t *testing.T, name, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write module: %v", err)
	}
	return path
}

func TestLoadFileRegister(t *testing.T) {
	registry, err := LoadFile(writeModule(t, "register.go", registerSource))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	ctx := extension.NewContext()
	result, err := registry.CallFunction("add", map[string]any{"a": float64(2), "b": float64(3)}, ctx)
	if err != nil {
		t.Fatalf("call add: %v", err)
	}
	if result != float64(5) {
		t.Fatalf("expected 5, got %v", result)
	}

	outcome := registry.CallAssertion("equals", map[string]any{"actual": "x", "expected": "x"}, ctx)
	if !outcome.Success {
		t.Fatalf("expected passing assertion, got %+v", outcome)
	}

	if err := registry.CallHook("before_all", ctx); err != nil {
		t.Fatalf("run hook: %v", err)
	}
	if _, ok := ctx.Get("ready"); !ok {
		t.Fatalf("expected hook to touch context")
	}
}

func TestLoadFileContainers(t *testing.T) {
	registry, err := LoadFile(writeModule(t, "containers.go", containerSource))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	ctx := extension.NewContext()
	result, err := registry.CallFunction("double", map[string]any{"n": float64(21)}, ctx)
	if err != nil {
		t.Fatalf("call double: %v", err)
	}
	if result != float64(42) {
		t.Fatalf("expected 42, got %v", result)
	}

	outcome := registry.CallAssertion("is_empty", map[string]any{"value": "x"}, ctx)
	if outcome.Success {
		t.Fatalf("expected failing assertion, got %+v", outcome)
	}

	ctx.Set("leftover", 1)
	if err := registry.CallHook("after_all", ctx); err != nil {
		t.Fatalf("run hook: %v", err)
	}
	if ctx.Len() != 0 {
		t.Fatalf("expected hook to clear context")
	}
}

func TestLoadFileContainersOverrideRegister(t *testing.T) {
	registry, err := LoadFile(writeModule(t, "overlap.go", overlapSource))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	result, err := registry.CallFunction("answer", nil, extension.NewContext())
	if err != nil {
		t.Fatalf("call answer: %v", err)
	}
	if result != "container" {
		t.Fatalf("expected container entry to win, got %v", result)
	}
}

func TestLoadFileNoContributionsIsFine(t *testing.T) {
	registry, err := LoadFile(writeModule(t, "bare.go", bareSource))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if names := registry.FunctionNames(); len(names) != 0 {
		t.Fatalf("expected empty registry, got %v", names)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.go"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestLoadBrokenSource(t *testing.T) {
	_, err := LoadFile(writeModule(t, "broken.go", "package main\n\nfunc Register( {"))
	if err == nil {
		t.Fatalf("expected interpret error")
	}
}

func TestLoadDirMergesLexically(t *testing.T) {
	dir := t.TempDir()
	first := `package main

import "github.com/kingrea/funcbridge/extension"

var Functions = map[string]extension.Function{
	"who": func(args map[string]any, ctx *extension.Context) (any, error) { return "first", nil },
	"only_first": func(args map[string]any, ctx *extension.Context) (any, error) { return 1, nil },
}
`
	second := `package main

import "github.com/kingrea/funcbridge/extension"

var Functions = map[string]extension.Function{
	"who": func(args map[string]any, ctx *extension.Context) (any, error) { return "second", nil },
}
`
	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte(first), 0o644); err != nil {
		t.Fatalf("write a.go: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.go"), []byte(second), 0o644); err != nil {
		t.Fatalf("write b.go: %v", err)
	}

	registry, err := Load(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	result, err := registry.CallFunction("who", nil, extension.NewContext())
	if err != nil {
		t.Fatalf("call who: %v", err)
	}
	if result != "second" {
		t.Fatalf("expected later file to win, got %v", result)
	}
	if _, err := registry.CallFunction("only_first", nil, extension.NewContext()); err != nil {
		t.Fatalf("expected earlier registrations to survive: %v", err)
	}
}

func TestLoadDirWithoutSources(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "no extension sources") {
		t.Fatalf("expected empty-dir error, got %v", err)
	}
}

func TestLoadExampleModule(t *testing.T) {
	registry, err := Load(filepath.Join("..", "testdata", "registry.go"))
	if err != nil {
		t.Fatalf("load example module: %v", err)
	}
	for _, name := range []string{"add", "greet", "store_and_retrieve", "multiply"} {
		found := false
		for _, got := range registry.FunctionNames() {
			if got == name {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected function %s, have %v", name, registry.FunctionNames())
		}
	}
	result, err := registry.CallFunction("greet", map[string]any{"name": "Ada"}, extension.NewContext())
	if err != nil {
		t.Fatalf("call greet: %v", err)
	}
	if result != "Hello, Ada!" {
		t.Fatalf("unexpected greeting: %v", result)
	}
}
