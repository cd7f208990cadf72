// Package toolregistry discovers, validates, and dispatches tools by
// name, and exposes their metadata to the agent runtime.
package toolregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

const (
	MaxToolNameLength = 256
	MaxArgsSize       = 10 << 20
)

// Handler is the uniform invocation contract every concrete tool
// implements: Docker, HTTP, shell, and MCP-bridged tools all satisfy
// this regardless of transport.
type Handler interface {
	Invoke(ctx context.Context, args json.RawMessage) (Outcome, error)
}

// Outcome is the normalized result of a tool invocation.
type Outcome struct {
	Status   string // "success" or "error"
	Data     string
	Metadata map[string]any
}

type entry struct {
	spec    orchtypes.ToolSpec
	handler Handler
	schema  *jsonschema.Schema
}

// Registry holds the live set of tools available to the agent runtime.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]entry
	timeout time.Duration
}

// New builds an empty Registry. timeout bounds every Invoke call; zero
// disables the deadline (not recommended outside tests).
func New(timeout time.Duration) *Registry {
	return &Registry{tools: make(map[string]entry), timeout: timeout}
}

// Register adds or replaces a tool. Tools registered after startup
// (IsDynamic) always start red regardless of their declared risk, per
// the registry's dynamic-tool distrust policy.
func (r *Registry) Register(spec orchtypes.ToolSpec, handler Handler, isDynamic bool) error {
	if isDynamic {
		spec.Risk = orchtypes.RiskRed
	}
	var compiled *jsonschema.Schema
	if len(spec.InputSchema) > 0 {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(spec.Name, bytes.NewReader(spec.InputSchema)); err != nil {
			return fmt.Errorf("toolregistry: invalid schema for %s: %w", spec.Name, err)
		}
		sch, err := c.Compile(spec.Name)
		if err != nil {
			return fmt.Errorf("toolregistry: compiling schema for %s: %w", spec.Name, err)
		}
		compiled = sch
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[spec.Name] = entry{spec: spec, handler: handler, schema: compiled}
	return nil
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Lookup returns a tool's spec by name.
func (r *Registry) Lookup(name string) (orchtypes.ToolSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e.spec, ok
}

// List returns every registered tool's spec, optionally filtered by a
// predicate (pass nil for no filter).
func (r *Registry) List(filter func(orchtypes.ToolSpec) bool) []orchtypes.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]orchtypes.ToolSpec, 0, len(r.tools))
	for _, e := range r.tools {
		if filter == nil || filter(e.spec) {
			out = append(out, e.spec)
		}
	}
	return out
}

// ErrUnknownTool is returned by Validate/Invoke for an unregistered name.
var ErrUnknownTool = fmt.Errorf("toolregistry: unknown tool")

// Validate checks name exists and args conform to its declared schema,
// the gate the Agent Runtime applies before calling Governance.
func (r *Registry) Validate(name string, args json.RawMessage) (orchtypes.ToolSpec, error) {
	if len(name) > MaxToolNameLength {
		return orchtypes.ToolSpec{}, fmt.Errorf("toolregistry: tool name exceeds %d chars", MaxToolNameLength)
	}
	if len(args) > MaxArgsSize {
		return orchtypes.ToolSpec{}, fmt.Errorf("toolregistry: args exceed %d bytes", MaxArgsSize)
	}
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return orchtypes.ToolSpec{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if e.schema != nil {
		var v any
		if err := json.Unmarshal(args, &v); err != nil {
			return e.spec, fmt.Errorf("toolregistry: args not valid JSON: %w", err)
		}
		if err := e.schema.Validate(v); err != nil {
			return e.spec, fmt.Errorf("toolregistry: args failed schema validation: %w", err)
		}
	}
	return e.spec, nil
}

// Invoke runs the named tool's handler under a wall-clock deadline.
// Callers must call Validate (and pass the result through Governance)
// before Invoke; Invoke itself does not re-check risk.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (Outcome, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	type result struct {
		out Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := e.handler.Invoke(ctx, args)
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		return Outcome{Status: "error", Data: "timeout"}, ctx.Err()
	case res := <-done:
		return res.out, res.err
	}
}
