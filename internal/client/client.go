// Package client is the orchestrator side of the bridge protocol: it spawns
// (or attaches to) a funcbridge process and exposes one typed helper per
// protocol method. One request is in flight at a time, matching the
// bridge's strictly sequential serve loop.
package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/kingrea/funcbridge/extension"
)

// RPCError is an error envelope returned by the bridge.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// Client speaks newline-delimited JSON-RPC over a pair of byte streams.
type Client struct {
	mu      sync.Mutex
	nextID  int64
	out     io.Writer
	scanner *bufio.Scanner

	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// New wires a client over existing streams: responses are read from in,
// requests written to out.
func New(in io.Reader, out io.Writer) *Client {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	return &Client{out: out, scanner: scanner}
}

// Spawn starts a bridge subprocess with piped stdin/stdout. The child's
// stderr is passed through so bridge diagnostics stay visible.
func Spawn(binary string, args ...string) (*Client, error) {
	cmd := exec.Command(binary, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("client: pipe stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("client: pipe stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("client: spawn %s: %w", binary, err)
	}
	c := New(stdout, stdin)
	c.cmd = cmd
	c.stdin = stdin
	return c, nil
}

// Close shuts the request stream and, for spawned bridges, waits for the
// process to exit.
func (c *Client) Close() error {
	if c.stdin != nil {
		_ = c.stdin.Close()
	} else if closer, ok := c.out.(io.Closer); ok {
		_ = closer.Close()
	}
	if c.cmd != nil {
		return c.cmd.Wait()
	}
	return nil
}

// Call sends one request and reads its response. The bridge answers in
// order, so the next line must carry our id; anything else is a protocol
// violation.
func (c *Client) Call(method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	payload, err := json.Marshal(request{JSONRPC: "2.0", ID: c.nextID, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("client: encode %s request: %w", method, err)
	}
	if _, err := c.out.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("client: send %s request: %w", method, err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return nil, fmt.Errorf("client: read %s response: %w", method, err)
		}
		return nil, fmt.Errorf("client: bridge closed before answering %s", method)
	}
	var resp response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("client: decode %s response: %w", method, err)
	}
	if id, ok := resp.ID.(float64); !ok || int64(id) != c.nextID {
		return nil, fmt.Errorf("client: response id %v does not match request id %d", resp.ID, c.nextID)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// CallFunction invokes a registered function and returns its raw result.
func (c *Client) CallFunction(name string, args map[string]any) (json.RawMessage, error) {
	result, err := c.Call("fn.call", map[string]any{"name": name, "args": args})
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return nil, fmt.Errorf("client: decode fn.call result: %w", err)
	}
	return wrapped.Result, nil
}

// CtxGet reads a context key. The second return is false when the key is
// absent (the wire reports absent as null).
func (c *Client) CtxGet(key string) (json.RawMessage, bool, error) {
	result, err := c.Call("ctx.get", map[string]any{"key": key})
	if err != nil {
		return nil, false, err
	}
	var wrapped struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return nil, false, fmt.Errorf("client: decode ctx.get result: %w", err)
	}
	if len(wrapped.Value) == 0 || string(wrapped.Value) == "null" {
		return nil, false, nil
	}
	return wrapped.Value, true, nil
}

// CtxSet stores a context value.
func (c *Client) CtxSet(key string, value any) error {
	_, err := c.Call("ctx.set", map[string]any{"key": key, "value": value})
	return err
}

// CtxClear removes keys matching pattern and returns the count cleared.
func (c *Client) CtxClear(pattern string) (int, error) {
	result, err := c.Call("ctx.clear", map[string]any{"pattern": pattern})
	if err != nil {
		return 0, err
	}
	var wrapped struct {
		Cleared int `json:"cleared"`
	}
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return 0, fmt.Errorf("client: decode ctx.clear result: %w", err)
	}
	return wrapped.Cleared, nil
}

// SetExecutionInfo overwrites the bridge's run identity.
func (c *Client) SetExecutionInfo(runID, jobName, stepName string) error {
	_, err := c.Call("ctx.setExecutionInfo", map[string]any{
		"runId":    runID,
		"jobName":  jobName,
		"stepName": stepName,
	})
	return err
}

// SyncStepOutputs merges step outputs into the bridge context.
func (c *Client) SyncStepOutputs(stepID string, outputs map[string]string) error {
	_, err := c.Call("ctx.syncStepOutputs", map[string]any{"stepId": stepID, "outputs": outputs})
	return err
}

// CallHook fires a lifecycle hook; unknown hooks are a no-op on the bridge.
func (c *Client) CallHook(hook string) error {
	_, err := c.Call("hook.call", map[string]any{"hook": hook})
	return err
}

// AssertCustom runs a custom assertion and returns its normalized outcome.
func (c *Client) AssertCustom(name string, params map[string]any) (extension.AssertionResult, error) {
	result, err := c.Call("assert.custom", map[string]any{"name": name, "params": params})
	if err != nil {
		return extension.AssertionResult{}, err
	}
	var outcome extension.AssertionResult
	if err := json.Unmarshal(result, &outcome); err != nil {
		return extension.AssertionResult{}, fmt.Errorf("client: decode assert.custom result: %w", err)
	}
	return outcome, nil
}

// ListFunctions returns the bridge's registered functions.
func (c *Client) ListFunctions() ([]extension.FunctionInfo, error) {
	return c.listInfo("list_functions", "functions")
}

// ListAssertions returns the bridge's registered assertions.
func (c *Client) ListAssertions() ([]extension.FunctionInfo, error) {
	return c.listInfo("list_assertions", "assertions")
}

func (c *Client) listInfo(method, key string) ([]extension.FunctionInfo, error) {
	result, err := c.Call(method, map[string]any{})
	if err != nil {
		return nil, err
	}
	var wrapped map[string][]extension.FunctionInfo
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return nil, fmt.Errorf("client: decode %s result: %w", method, err)
	}
	return wrapped[key], nil
}

// SyncClock replaces the bridge's virtual clock override.
func (c *Client) SyncClock(state extension.ClockState) error {
	_, err := c.Call("clock.sync", state)
	return err
}
