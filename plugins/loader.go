// Package plugins loads user extension modules with yaegi and harvests
// their callables into an extension.Registry.
//
// An extension module is plain Go source (package main by convention) that
// contributes callables in either or both of two shapes, applied in order:
//
//  1. an exported Register(r *extension.Registry) function, called with the
//     loader's registry for explicit registration;
//  2. exported Functions / Assertions / Hooks containers (name→callable
//     maps) merged on top, overwriting earlier names.
//
// A module exposing neither contributes nothing, which is not an error; a
// module that fails to interpret is a fatal load error.
package plugins

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kingrea/funcbridge/extension"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const (
	registerFuncName    = "Register"
	functionsSymbolName = "Functions"
	assertionsSymbol    = "Assertions"
	hooksSymbolName     = "Hooks"
)

// Load resolves path to a single extension file or a directory of them and
// returns the harvested registry.
func Load(path string) (*extension.Registry, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("plugin: extension module not found: %s", path)
		}
		return nil, fmt.Errorf("plugin: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// LoadFile interprets one extension source file and returns its registry.
func LoadFile(path string) (*extension.Registry, error) {
	registry := extension.NewRegistry()
	if err := loadInto(registry, path); err != nil {
		return nil, err
	}
	return registry, nil
}

// LoadDir interprets every .go file in dir (lexical order) into a single
// registry. Later files overwrite earlier registrations for the same name.
func LoadDir(dir string) (*extension.Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".go" {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("plugin: no extension sources in %s", dir)
	}
	sort.Strings(paths)
	registry := extension.NewRegistry()
	for _, path := range paths {
		if err := loadInto(registry, path); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func loadInto(registry *extension.Registry, path string) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("plugin: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return fmt.Errorf("plugin: %s is empty", path)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("plugin: inject stdlib: %w", err)
	}
	if err := i.Use(Symbols); err != nil {
		return fmt.Errorf("plugin: inject extension API: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return fmt.Errorf("plugin: interpret %s: %w", path, err)
	}

	// Explicit registration first, then declarative containers on top.
	if value, err := i.Eval(registerFuncName); err == nil {
		if err := invokeRegister(value.Interface(), registry); err != nil {
			return fmt.Errorf("plugin: %s: %w", path, err)
		}
	}
	if value, err := i.Eval(functionsSymbolName); err == nil {
		if err := mergeFunctions(registry, value.Interface()); err != nil {
			return fmt.Errorf("plugin: %s: %w", path, err)
		}
	}
	if value, err := i.Eval(assertionsSymbol); err == nil {
		if err := mergeAssertions(registry, value.Interface()); err != nil {
			return fmt.Errorf("plugin: %s: %w", path, err)
		}
	}
	if value, err := i.Eval(hooksSymbolName); err == nil {
		if err := mergeHooks(registry, value.Interface()); err != nil {
			return fmt.Errorf("plugin: %s: %w", path, err)
		}
	}
	return nil
}

func invokeRegister(value any, registry *extension.Registry) error {
	switch fn := value.(type) {
	case func(*extension.Registry):
		fn(registry)
		return nil
	case func(*extension.Registry) error:
		return fn(registry)
	default:
		return fmt.Errorf("%s must be func(*extension.Registry) or func(*extension.Registry) error, got %T", registerFuncName, value)
	}
}
