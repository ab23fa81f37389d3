// Example extension module for funcbridge. Load it with:
//
//	funcbridge --registry testdata/registry.go
//
// An extension module is interpreted at runtime, so it never needs to be
// compiled into the bridge. It can register callables explicitly through
// Register, declaratively through the Functions/Assertions/Hooks
// containers, or both.
package main

import (
	"fmt"

	"github.com/kingrea/funcbridge/extension"
)

// Register is called by the loader with the bridge's registry.
func Register(r *extension.Registry) {
	r.Function("add", "Add two numbers", func(args map[string]any, ctx *extension.Context) (any, error) {
		a, _ := args["a"].(float64)
		b, _ := args["b"].(float64)
		return a + b, nil
	})

	r.Function("greet", "Generate a greeting message", func(args map[string]any, ctx *extension.Context) (any, error) {
		name, _ := args["name"].(string)
		if name == "" {
			name = "World"
		}
		return fmt.Sprintf("Hello, %s!", name), nil
	})

	r.Function("store_and_retrieve", "Store a value in context and return it", func(args map[string]any, ctx *extension.Context) (any, error) {
		key, _ := args["key"].(string)
		ctx.Set(key, args["value"])
		value, _ := ctx.Get(key)
		return value, nil
	})

	r.Assertion("equals", "Assert two values are equal", func(params map[string]any, ctx *extension.Context) (any, error) {
		actual := params["actual"]
		expected := params["expected"]
		if fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected) {
			return extension.Passed(""), nil
		}
		return extension.Failed(fmt.Sprintf("expected %v, got %v", expected, actual), actual, expected), nil
	})
}

// Functions declared as a container are merged after Register runs.
var Functions = map[string]extension.Function{
	"multiply": func(args map[string]any, ctx *extension.Context) (any, error) {
		a, _ := args["a"].(float64)
		b, _ := args["b"].(float64)
		return a * b, nil
	},
}

var Assertions = map[string]extension.Assertion{
	"is_positive": func(params map[string]any, ctx *extension.Context) (any, error) {
		value, _ := params["value"].(float64)
		if value > 0 {
			return true, nil
		}
		return extension.Failed("value must be positive", value, "> 0"), nil
	},
}

var Hooks = map[string]extension.Hook{
	"before_all": func(ctx *extension.Context) error {
		ctx.Set("setup_complete", true)
		return nil
	},
	"after_all": func(ctx *extension.Context) error {
		ctx.Clear("*")
		return nil
	},
}
