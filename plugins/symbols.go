package plugins

import (
	"reflect"

	"github.com/kingrea/funcbridge/extension"
	"github.com/traefik/yaegi/interp"
)

// Symbols exposes the funcbridge extension API to interpreted modules so
// they can `import "github.com/kingrea/funcbridge/extension"` and share the
// host's Context, Registry, and AssertionResult types across the
// interpreter boundary.
var Symbols = interp.Exports{
	"github.com/kingrea/funcbridge/extension/extension": {
		"NewContext":               reflect.ValueOf(extension.NewContext),
		"NewRegistry":              reflect.ValueOf(extension.NewRegistry),
		"Passed":                   reflect.ValueOf(extension.Passed),
		"Failed":                   reflect.ValueOf(extension.Failed),
		"NormalizeAssertionResult": reflect.ValueOf(extension.NormalizeAssertionResult),

		"Assertion":       reflect.ValueOf((*extension.Assertion)(nil)),
		"AssertionResult": reflect.ValueOf((*extension.AssertionResult)(nil)),
		"ClockState":      reflect.ValueOf((*extension.ClockState)(nil)),
		"Context":         reflect.ValueOf((*extension.Context)(nil)),
		"Function":        reflect.ValueOf((*extension.Function)(nil)),
		"FunctionInfo":    reflect.ValueOf((*extension.FunctionInfo)(nil)),
		"Hook":            reflect.ValueOf((*extension.Hook)(nil)),
		"Registry":        reflect.ValueOf((*extension.Registry)(nil)),
	},
}
