package extension

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a user-registered callable invoked with the request arguments
// and the shared execution context.
type Function func(args map[string]any, ctx *Context) (any, error)

// Assertion is a user-registered check. Its return value is normalized into
// an AssertionResult by NormalizeAssertionResult, so it may return an
// AssertionResult, a bool, a map with a "success" key, or anything truthy.
type Assertion func(params map[string]any, ctx *Context) (any, error)

// Hook is a zero-return lifecycle callable identified by convention
// (before_all, after_each, ...). It only receives the execution context.
type Hook func(ctx *Context) error

// FunctionInfo describes one registered entry for introspection responses.
type FunctionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry holds the three independent name→callable tables harvested from
// the extension module. Names are unique within a table (last registration
// wins); the tables share no namespace. The registry is built during the
// load phase and treated as immutable once serving begins.
type Registry struct {
	mu            sync.RWMutex
	functions     map[string]Function
	functionInfo  map[string]FunctionInfo
	assertions    map[string]Assertion
	assertionInfo map[string]FunctionInfo
	hooks         map[string]Hook
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		functions:     map[string]Function{},
		functionInfo:  map[string]FunctionInfo{},
		assertions:    map[string]Assertion{},
		assertionInfo: map[string]FunctionInfo{},
		hooks:         map[string]Hook{},
	}
}

// Function registers a callable under name. Registering an existing name
// overwrites the previous entry.
func (r *Registry) Function(name, description string, fn Function) {
	if name == "" || fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[name] = fn
	r.functionInfo[name] = FunctionInfo{Name: name, Description: description}
}

// Assertion registers an assertion under name.
func (r *Registry) Assertion(name, description string, fn Assertion) {
	if name == "" || fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assertions[name] = fn
	r.assertionInfo[name] = FunctionInfo{Name: name, Description: description}
}

// Hook registers a lifecycle hook under name.
func (r *Registry) Hook(name string, fn Hook) {
	if name == "" || fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = fn
}

// CallFunction invokes the named function with args and the shared context.
// An unknown name yields an error listing the registered names. A panic in
// user code is recovered and returned as an error so one bad call never
// takes down the serve loop.
func (r *Registry) CallFunction(name string, args map[string]any, ctx *Context) (result any, err error) {
	r.mu.RLock()
	fn, ok := r.functions[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("Function not found: %s. Available: %s", name, strings.Join(r.FunctionNames(), ", "))
	}
	if args == nil {
		args = map[string]any{}
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("function %s panicked: %v", name, rec)
		}
	}()
	return fn(args, ctx)
}

// CallAssertion invokes the named assertion and normalizes its outcome.
// Assertion failure is data, not a protocol fault: an unknown name, a user
// error, or a panic all come back as a failed AssertionResult.
func (r *Registry) CallAssertion(name string, params map[string]any, ctx *Context) AssertionResult {
	r.mu.RLock()
	fn, ok := r.assertions[name]
	r.mu.RUnlock()
	if !ok {
		return AssertionResult{
			Success: false,
			Message: fmt.Sprintf("Assertion not found: %s. Available: %s", name, strings.Join(r.AssertionNames(), ", ")),
		}
	}
	if params == nil {
		params = map[string]any{}
	}
	return runAssertion(fn, params, ctx)
}

func runAssertion(fn Assertion, params map[string]any, ctx *Context) (result AssertionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = AssertionResult{Success: false, Message: fmt.Sprintf("%v", rec)}
		}
	}()
	value, err := fn(params, ctx)
	if err != nil {
		return AssertionResult{Success: false, Message: err.Error()}
	}
	return NormalizeAssertionResult(value)
}

// CallHook invokes the named hook with the shared context, discarding any
// return value. An unregistered hook is a silent no-op.
func (r *Registry) CallHook(name string, ctx *Context) (err error) {
	r.mu.RLock()
	fn, ok := r.hooks[name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("hook %s panicked: %v", name, rec)
		}
	}()
	return fn(ctx)
}

// Functions returns introspection info for every registered function,
// sorted by name.
func (r *Registry) Functions() []FunctionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedInfo(r.functionInfo)
}

// Assertions returns introspection info for every registered assertion,
// sorted by name.
func (r *Registry) Assertions() []FunctionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedInfo(r.assertionInfo)
}

// FunctionNames returns the sorted registered function names.
func (r *Registry) FunctionNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.functions)
}

// AssertionNames returns the sorted registered assertion names.
func (r *Registry) AssertionNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.assertions)
}

// HookNames returns the sorted registered hook names.
func (r *Registry) HookNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.hooks)
}

func sortedInfo(infos map[string]FunctionInfo) []FunctionInfo {
	out := make([]FunctionInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedKeys[M map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
