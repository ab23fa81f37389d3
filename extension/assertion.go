package extension

import "reflect"

// AssertionResult is the tagged outcome of a custom assertion. It is
// returned as data, never raised: the dispatcher reports it inside a normal
// success envelope so the orchestrator can distinguish "assertion failed"
// from "protocol broke".
type AssertionResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Actual   any    `json:"actual,omitempty"`
	Expected any    `json:"expected,omitempty"`
}

// Passed returns a successful result with an optional message.
func Passed(message string) AssertionResult {
	return AssertionResult{Success: true, Message: message}
}

// Failed returns a failed result carrying the observed and expected values.
func Failed(message string, actual, expected any) AssertionResult {
	return AssertionResult{Success: false, Message: message, Actual: actual, Expected: expected}
}

// NormalizeAssertionResult adapts an arbitrary assertion return value into a
// tagged result: an AssertionResult passes through, a map is read by its
// "success"/"message"/"actual"/"expected" keys, a bool becomes the success
// flag, and anything else is judged by truthiness.
func NormalizeAssertionResult(value any) AssertionResult {
	switch v := value.(type) {
	case AssertionResult:
		return v
	case *AssertionResult:
		if v == nil {
			return AssertionResult{Success: false}
		}
		return *v
	case map[string]any:
		result := AssertionResult{Success: true}
		if success, ok := v["success"].(bool); ok {
			result.Success = success
		}
		if message, ok := v["message"].(string); ok {
			result.Message = message
		}
		result.Actual = v["actual"]
		result.Expected = v["expected"]
		return result
	case bool:
		return AssertionResult{Success: v}
	default:
		return AssertionResult{Success: truthy(value)}
	}
}

// truthy mirrors the loose success interpretation of the reference bridge:
// nil, zero numbers, empty strings and empty collections fail, everything
// else passes.
func truthy(value any) bool {
	if value == nil {
		return false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() != 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}
