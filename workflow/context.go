// Copyright (c) ProcurementFlow Authors.
// Licensed under the MIT License.

package workflow

import (
	"encoding/json"
	"fmt"
)

// variableKeySep separates node id and port name in variable store keys.
const variableKeySep = "::"

// VariableKey builds the variable store key for a node's output port.
func VariableKey(nodeID, port string) string {
	return nodeID + variableKeySep + port
}

// ExecutionContext is the per-instance variable store view handed to node
// executors. Values are keyed "{nodeId}::{port}" and survive JSON
// round-trips through persistence, so numeric reads tolerate every shape
// a decoder may produce.
type ExecutionContext struct {
	vars map[string]any
}

// NewExecutionContext wraps an instance's variable map. The map is shared,
// not copied: writes through the context mutate the instance's store.
func NewExecutionContext(vars map[string]any) *ExecutionContext {
	if vars == nil {
		vars = make(map[string]any)
	}
	return &ExecutionContext{vars: vars}
}

// Variables exposes the underlying map for persistence.
func (c *ExecutionContext) Variables() map[string]any {
	return c.vars
}

// Set writes a node output port value.
func (c *ExecutionContext) Set(nodeID, port string, value any) {
	c.vars[VariableKey(nodeID, port)] = value
}

// Get reads a node output port value.
func (c *ExecutionContext) Get(nodeID, port string) (any, bool) {
	v, ok := c.vars[VariableKey(nodeID, port)]
	return v, ok
}

// Number reads a port value as float64. Fails on missing or non-numeric
// values; executors rely on this for the IF node's type check.
func (c *ExecutionContext) Number(nodeID, port string) (float64, error) {
	v, ok := c.Get(nodeID, port)
	if !ok {
		return 0, fmt.Errorf("variable %s not set", VariableKey(nodeID, port))
	}
	return toNumber(v)
}

// String reads a port value as string.
func (c *ExecutionContext) String(nodeID, port string) (string, error) {
	v, ok := c.Get(nodeID, port)
	if !ok {
		return "", fmt.Errorf("variable %s not set", VariableKey(nodeID, port))
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("variable %s is %T, not a string", VariableKey(nodeID, port), v)
	}
	return s, nil
}

// Bool reads a port value as bool.
func (c *ExecutionContext) Bool(nodeID, port string) (bool, error) {
	v, ok := c.Get(nodeID, port)
	if !ok {
		return false, fmt.Errorf("variable %s not set", VariableKey(nodeID, port))
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("variable %s is %T, not a bool", VariableKey(nodeID, port), v)
	}
	return b, nil
}

// ResolveInput reads the value feeding a node through its unique incoming
// edge: the upstream node's output at the edge's source handle.
func (c *ExecutionContext) ResolveInput(def *Definition, nodeID string) (any, bool) {
	incoming := def.IncomingEdges(nodeID)
	if len(incoming) == 0 {
		return nil, false
	}
	e := incoming[0]
	handle := e.SourceHandle
	if handle == "" {
		handle = PortDefault
	}
	return c.Get(e.Source, handle)
}

// BranchOutcome derives the boolean result of a completed branch feeding a
// join. An approval branch wrote "approved"; a join or condition wrote
// "default" or "result". A branch that wrote no boolean at all is a
// pass-through and counts as approving.
func (c *ExecutionContext) BranchOutcome(nodeID string) bool {
	for _, port := range []string{PortApproved, PortResult, PortDefault} {
		if v, ok := c.Get(nodeID, port); ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
	}
	return true
}

// toNumber coerces the numeric shapes a JSON decoder or caller may hand us.
func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("value is %T, not a number", v)
	}
}
