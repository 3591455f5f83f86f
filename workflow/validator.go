// Copyright (c) ProcurementFlow Authors.
// Licensed under the MIT License.

package workflow

import "fmt"

// ValidationResult carries every problem found in one pass. Valid is true
// iff the error list is empty; warnings never block a save.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate checks a candidate definition graph. Pure, no side effects, no
// I/O. All checks accumulate so a caller sees every problem at once.
func Validate(def *Definition) ValidationResult {
	v := &validation{def: def}

	v.checkEntry()
	v.checkTerminals()
	v.checkEdgeEndpoints()
	v.checkOrphans()
	v.checkCycles()
	v.checkReachability()
	v.checkNodeConfigs()
	v.checkPortCompatibility()
	v.checkForkJoinBalance()

	return ValidationResult{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
}

type validation struct {
	def      *Definition
	errors   []string
	warnings []string
}

func (v *validation) errorf(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validation) warnf(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// checkEntry enforces exactly one REQUEST_INTAKE node with no incoming edges.
func (v *validation) checkEntry() {
	entries := v.def.NodesOfType(NodeTypeRequestIntake)
	switch len(entries) {
	case 0:
		v.errorf("workflow must have exactly one REQUEST_INTAKE entry node, found none")
	case 1:
		if in := v.def.IncomingEdges(entries[0].ID); len(in) > 0 {
			v.errorf("entry node %s must not have incoming edges", entries[0].ID)
		}
	default:
		v.errorf("workflow must have exactly one REQUEST_INTAKE entry node, found %d", len(entries))
	}
}

// checkTerminals requires at least one APPROVE or REJECT node.
func (v *validation) checkTerminals() {
	for i := range v.def.Nodes {
		if v.def.Nodes[i].Type.Terminal() {
			return
		}
	}
	v.errorf("workflow must have at least one terminal node (APPROVE or REJECT)")
}

// checkEdgeEndpoints verifies every edge references existing nodes.
func (v *validation) checkEdgeEndpoints() {
	ids := make(map[string]bool, len(v.def.Nodes))
	for i := range v.def.Nodes {
		ids[v.def.Nodes[i].ID] = true
	}
	for _, e := range v.def.Edges {
		if !ids[e.Source] {
			v.errorf("edge %s references unknown source node %s", e.ID, e.Source)
		}
		if !ids[e.Target] {
			v.errorf("edge %s references unknown target node %s", e.ID, e.Target)
		}
	}
}

// checkOrphans names every non-entry node without an incoming edge.
func (v *validation) checkOrphans() {
	hasIncoming := make(map[string]bool)
	for _, e := range v.def.Edges {
		hasIncoming[e.Target] = true
	}
	for i := range v.def.Nodes {
		n := &v.def.Nodes[i]
		if n.Type == NodeTypeRequestIntake {
			continue
		}
		if !hasIncoming[n.ID] {
			v.errorf("node %s has no incoming edges", n.ID)
		}
	}
}

// checkCycles runs depth-first search with a recursion stack; a back-edge
// into a node currently on the stack is a cycle.
func (v *validation) checkCycles() {
	adjacency := make(map[string][]string)
	for _, e := range v.def.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, next := range adjacency[id] {
			if onStack[next] {
				return true
			}
			if !visited[next] && visit(next) {
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for i := range v.def.Nodes {
		id := v.def.Nodes[i].ID
		if !visited[id] && visit(id) {
			v.errorf("cycle detected in workflow graph")
			return
		}
	}
}

// checkReachability walks breadth-first from the entry node and names every
// node the walk never reaches.
func (v *validation) checkReachability() {
	entry, ok := v.def.EntryNode()
	if !ok {
		return // already an error from checkEntry
	}

	adjacency := make(map[string][]string)
	for _, e := range v.def.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	reached := map[string]bool{entry.ID: true}
	queue := []string{entry.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[id] {
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}

	for i := range v.def.Nodes {
		if !reached[v.def.Nodes[i].ID] {
			v.errorf("node %s is unreachable from the entry node", v.def.Nodes[i].ID)
		}
	}
}

// checkNodeConfigs enforces per-type config completeness.
func (v *validation) checkNodeConfigs() {
	for i := range v.def.Nodes {
		n := &v.def.Nodes[i]
		switch n.Type {
		case NodeTypeConditionIf:
			cfg := n.Config.If
			if cfg == nil {
				v.errorf("node %s (CONDITION_IF) is missing its condition config", n.ID)
				continue
			}
			if !cfg.Operator.Valid() {
				v.errorf("node %s (CONDITION_IF) has invalid operator %q", n.ID, cfg.Operator)
			}
		case NodeTypeConditionSwitch:
			cfg := n.Config.Switch
			if cfg == nil || len(cfg.Cases) == 0 {
				v.errorf("node %s (CONDITION_SWITCH) must declare a non-empty case list", n.ID)
			}
		case NodeTypeParallelJoin:
			cfg := n.Config.Join
			if cfg == nil {
				v.errorf("node %s (PARALLEL_JOIN) is missing its join config", n.ID)
				continue
			}
			if !cfg.Strategy.Valid() {
				v.errorf("node %s (PARALLEL_JOIN) has invalid strategy %q", n.ID, cfg.Strategy)
			}
			if cfg.InputCount < 2 {
				v.errorf("node %s (PARALLEL_JOIN) must expect at least 2 inputs", n.ID)
			}
		case NodeTypePersonApproval:
			if n.Config.PersonApproval == nil || n.Config.PersonApproval.ApproverID == "" {
				v.errorf("node %s (PERSON_APPROVAL) must reference an approver", n.ID)
			}
		case NodeTypeDepartmentApproval:
			if n.Config.DepartmentApproval == nil || n.Config.DepartmentApproval.DepartmentID == "" {
				v.errorf("node %s (DEPARTMENT_APPROVAL) must reference a department", n.ID)
			}
		case NodeTypeNotification:
			if n.Config.Notification == nil || n.Config.Notification.Target == "" {
				v.errorf("node %s (NOTIFICATION) must declare a target", n.ID)
			}
		case NodeTypeRequestIntake, NodeTypeParallelFork, NodeTypeApprove, NodeTypeReject:
			// no required config
		default:
			v.errorf("node %s has unknown type %q", n.ID, n.Type)
		}
	}
}

// checkPortCompatibility flags edges whose declared type does not match the
// ports on either end. Advisory only: the port type system serves tooling,
// executors re-check types at evaluation time.
func (v *validation) checkPortCompatibility() {
	for _, e := range v.def.Edges {
		src, okS := v.def.FindNode(e.Source)
		tgt, okT := v.def.FindNode(e.Target)
		if !okS || !okT {
			continue // endpoint errors already reported
		}

		outPorts := OutputPorts(src, v.def.OutgoingEdges(src.ID))
		inPorts := InputPorts(tgt, v.def.IncomingEdges(tgt.ID))

		srcHandle := e.SourceHandle
		if srcHandle == "" {
			srcHandle = PortDefault
		}
		tgtHandle := e.TargetHandle
		if tgtHandle == "" {
			tgtHandle = PortDefault
		}

		srcType, okS := outPorts[srcHandle]
		tgtType, okT := inPorts[tgtHandle]
		if !okS {
			v.warnf("edge %s uses undeclared output port %s on node %s", e.ID, srcHandle, src.ID)
			continue
		}
		if !okT {
			v.warnf("edge %s uses undeclared input port %s on node %s", e.ID, tgtHandle, tgt.ID)
			continue
		}
		if !srcType.Compatible(tgtType) {
			v.warnf("edge %s connects incompatible ports: %s::%s (%s) -> %s::%s (%s)",
				e.ID, src.ID, srcHandle, srcType, tgt.ID, tgtHandle, tgtType)
		}
	}

	// The join declares one input per incoming edge; everyone else consumes
	// a single value, so extra fan-in is suspicious.
	for i := range v.def.Nodes {
		n := &v.def.Nodes[i]
		if n.Type == NodeTypeParallelJoin || n.Type == NodeTypeRequestIntake {
			continue
		}
		incoming := v.def.IncomingEdges(n.ID)
		if len(incoming) > len(InputPorts(n, incoming)) {
			v.warnf("node %s has more incoming edges than declared input ports", n.ID)
		}
	}
}

// checkForkJoinBalance is a heuristic: unbalanced fork/join counts usually
// mean a forgotten join, not a structural guarantee.
func (v *validation) checkForkJoinBalance() {
	forks := len(v.def.NodesOfType(NodeTypeParallelFork))
	joins := len(v.def.NodesOfType(NodeTypeParallelJoin))
	if forks != joins {
		v.warnf("workflow has %d PARALLEL_FORK nodes but %d PARALLEL_JOIN nodes", forks, joins)
	}
}
