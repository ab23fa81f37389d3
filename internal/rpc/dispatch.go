package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kingrea/funcbridge/extension"
)

// Method names understood by the dispatcher.
const (
	MethodFnCall           = "fn.call"
	MethodCtxGet           = "ctx.get"
	MethodCtxSet           = "ctx.set"
	MethodCtxClear         = "ctx.clear"
	MethodSetExecutionInfo = "ctx.setExecutionInfo"
	MethodSyncStepOutputs  = "ctx.syncStepOutputs"
	MethodHookCall         = "hook.call"
	MethodAssertCustom     = "assert.custom"
	MethodListFunctions    = "list_functions"
	MethodListAssertions   = "list_assertions"
	MethodClockSync        = "clock.sync"
)

type handler func(params json.RawMessage) (any, error)

// Dispatcher maps protocol method names onto the registry and the shared
// execution context. It is a pure lookup-and-invoke table: no queuing, no
// retries, each request handled to completion.
type Dispatcher struct {
	registry *extension.Registry
	context  *extension.Context
	methods  map[string]handler
}

// NewDispatcher wires a method table over the given registry and context.
func NewDispatcher(registry *extension.Registry, context *extension.Context) *Dispatcher {
	d := &Dispatcher{registry: registry, context: context}
	d.methods = map[string]handler{
		MethodFnCall:           d.fnCall,
		MethodCtxGet:           d.ctxGet,
		MethodCtxSet:           d.ctxSet,
		MethodCtxClear:         d.ctxClear,
		MethodSetExecutionInfo: d.setExecutionInfo,
		MethodSyncStepOutputs:  d.syncStepOutputs,
		MethodHookCall:         d.hookCall,
		MethodAssertCustom:     d.assertCustom,
		MethodListFunctions:    d.listFunctions,
		MethodListAssertions:   d.listAssertions,
		MethodClockSync:        d.clockSync,
	}
	return d
}

// Dispatch resolves req.Method and returns exactly one response envelope.
// Coded errors keep their code; anything else becomes a handler error.
func (d *Dispatcher) Dispatch(req Request) Response {
	fn, ok := d.methods[req.Method]
	if !ok {
		return Failure(req.ID, CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
	result, err := fn(req.Params)
	if err != nil {
		var coded *Error
		if errors.As(err, &coded) {
			return Failure(req.ID, coded.Code, coded.Message)
		}
		return Failure(req.ID, CodeHandlerError, err.Error())
	}
	return Success(req.ID, result)
}

func (d *Dispatcher) fnCall(params json.RawMessage) (any, error) {
	var p struct {
		Name string         `json:"name"`
		Args map[string]any `json:"args"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	result, err := d.registry.CallFunction(p.Name, p.Args, d.context)
	if err != nil {
		return nil, err
	}
	return map[string]any{"result": result}, nil
}

func (d *Dispatcher) ctxGet(params json.RawMessage) (any, error) {
	var p struct {
		Key string `json:"key"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	// An absent key serializes as null; Go callables see the difference
	// through Context.Get's ok flag, the wire does not.
	value, _ := d.context.Get(p.Key)
	return map[string]any{"value": value}, nil
}

func (d *Dispatcher) ctxSet(params json.RawMessage) (any, error) {
	var p struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	d.context.Set(p.Key, p.Value)
	return map[string]any{}, nil
}

func (d *Dispatcher) ctxClear(params json.RawMessage) (any, error) {
	var p struct {
		Pattern string `json:"pattern"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Pattern == "" {
		p.Pattern = "*"
	}
	return map[string]any{"cleared": d.context.Clear(p.Pattern)}, nil
}

func (d *Dispatcher) setExecutionInfo(params json.RawMessage) (any, error) {
	var p struct {
		RunID    string `json:"runId"`
		JobName  string `json:"jobName"`
		StepName string `json:"stepName"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	d.context.SetExecutionInfo(p.RunID, p.JobName, p.StepName)
	return map[string]any{}, nil
}

func (d *Dispatcher) syncStepOutputs(params json.RawMessage) (any, error) {
	var p struct {
		StepID  string            `json:"stepId"`
		Outputs map[string]string `json:"outputs"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	d.context.SyncStepOutputs(p.StepID, p.Outputs)
	return map[string]any{}, nil
}

func (d *Dispatcher) hookCall(params json.RawMessage) (any, error) {
	var p struct {
		Hook string `json:"hook"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := d.registry.CallHook(p.Hook, d.context); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

func (d *Dispatcher) assertCustom(params json.RawMessage) (any, error) {
	var p struct {
		Name   string         `json:"name"`
		Params map[string]any `json:"params"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	// Assertion outcomes travel as results, never as protocol errors.
	return d.registry.CallAssertion(p.Name, p.Params, d.context), nil
}

func (d *Dispatcher) listFunctions(json.RawMessage) (any, error) {
	return map[string]any{"functions": d.registry.Functions()}, nil
}

func (d *Dispatcher) listAssertions(json.RawMessage) (any, error) {
	return map[string]any{"assertions": d.registry.Assertions()}, nil
}

func (d *Dispatcher) clockSync(params json.RawMessage) (any, error) {
	var state extension.ClockState
	if err := decodeParams(params, &state); err != nil {
		return nil, err
	}
	d.context.SyncClock(&state)
	return map[string]any{}, nil
}

func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return Errorf(CodeInvalidParams, "Invalid params: %v", err)
	}
	return nil
}
