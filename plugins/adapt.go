package plugins

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/kingrea/funcbridge/extension"
)

// The adapters below turn whatever shape a module exported into the narrow
// callable interfaces the registry understands. New source shapes get added
// here, not in the dispatcher.

func mergeFunctions(registry *extension.Registry, container any) error {
	return eachEntry(functionsSymbolName, container, func(name string, value any) error {
		fn, err := adaptFunction(value)
		if err != nil {
			return fmt.Errorf("%s[%s]: %w", functionsSymbolName, name, err)
		}
		registry.Function(name, "", fn)
		return nil
	})
}

func mergeAssertions(registry *extension.Registry, container any) error {
	return eachEntry(assertionsSymbol, container, func(name string, value any) error {
		fn, err := adaptAssertion(value)
		if err != nil {
			return fmt.Errorf("%s[%s]: %w", assertionsSymbol, name, err)
		}
		registry.Assertion(name, "", fn)
		return nil
	})
}

func mergeHooks(registry *extension.Registry, container any) error {
	return eachEntry(hooksSymbolName, container, func(name string, value any) error {
		fn, err := adaptHook(value)
		if err != nil {
			return fmt.Errorf("%s[%s]: %w", hooksSymbolName, name, err)
		}
		registry.Hook(name, fn)
		return nil
	})
}

func adaptFunction(value any) (extension.Function, error) {
	switch fn := value.(type) {
	case extension.Function:
		return fn, nil
	case func(map[string]any, *extension.Context) (any, error):
		return fn, nil
	case func(map[string]any, *extension.Context) any:
		return func(args map[string]any, ctx *extension.Context) (any, error) {
			return fn(args, ctx), nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported function shape %T", value)
	}
}

func adaptAssertion(value any) (extension.Assertion, error) {
	switch fn := value.(type) {
	case extension.Assertion:
		return fn, nil
	case func(map[string]any, *extension.Context) (any, error):
		return fn, nil
	case func(map[string]any, *extension.Context) any:
		return func(params map[string]any, ctx *extension.Context) (any, error) {
			return fn(params, ctx), nil
		}, nil
	case func(map[string]any, *extension.Context) extension.AssertionResult:
		return func(params map[string]any, ctx *extension.Context) (any, error) {
			return fn(params, ctx), nil
		}, nil
	case func(map[string]any, *extension.Context) bool:
		return func(params map[string]any, ctx *extension.Context) (any, error) {
			return fn(params, ctx), nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported assertion shape %T", value)
	}
}

func adaptHook(value any) (extension.Hook, error) {
	switch fn := value.(type) {
	case extension.Hook:
		return fn, nil
	case func(*extension.Context) error:
		return fn, nil
	case func(*extension.Context):
		return func(ctx *extension.Context) error {
			fn(ctx)
			return nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported hook shape %T", value)
	}
}

// eachEntry walks any string-keyed map in sorted key order so merges stay
// deterministic across runs.
func eachEntry(label string, container any, visit func(name string, value any) error) error {
	if container == nil {
		return nil
	}
	rv := reflect.ValueOf(container)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("%s must be a string-keyed map, got %T", label, container)
	}
	keys := make([]string, 0, rv.Len())
	for _, key := range rv.MapKeys() {
		keys = append(keys, key.String())
	}
	sort.Strings(keys)
	for _, key := range keys {
		entry := rv.MapIndex(reflect.ValueOf(key))
		if err := visit(key, entry.Interface()); err != nil {
			return err
		}
	}
	return nil
}
