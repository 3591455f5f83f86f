// Copyright (c) ProcurementFlow Authors.
// Licensed under the MIT License.

package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResultStatus is the outcome class of one node execution
type ResultStatus string

const (
	// ResultCompleted advances the branch to the result's Next nodes
	ResultCompleted ResultStatus = "completed"
	// ResultWaiting suspends the branch until an external event arrives
	ResultWaiting ResultStatus = "waiting"
	// ResultFailed halts the whole instance permanently
	ResultFailed ResultStatus = "failed"
)

// Result is what a node executor hands back to the engine.
type Result struct {
	Status ResultStatus
	// Output maps port name → value, merged into the variable store
	Output map[string]any
	// Next lists the node ids the branch advances to; more than one
	// realizes a fork
	Next []string
	// Halt, when set, transitions the whole instance to that status
	Halt InstanceStatus
	Err  error
}

func completed(output map[string]any, next ...string) Result {
	return Result{Status: ResultCompleted, Output: output, Next: next}
}

func failed(format string, args ...any) Result {
	return Result{Status: ResultFailed, Err: fmt.Errorf(format, args...)}
}

// executeNode dispatches to the type-specific executor.
func (e *Engine) executeNode(ctx context.Context, def *Definition, inst *Instance, node *Node, ec *ExecutionContext) Result {
	switch node.Type {
	case NodeTypeRequestIntake:
		return e.executeIntake(ctx, def, inst, node)
	case NodeTypeConditionIf:
		return e.executeIf(def, node, ec)
	case NodeTypeConditionSwitch:
		return e.executeSwitch(def, node, ec)
	case NodeTypeParallelFork:
		return e.executeFork(def, node, ec)
	case NodeTypeParallelJoin:
		return e.executeJoin(ctx, def, inst, node, ec)
	case NodeTypePersonApproval, NodeTypeDepartmentApproval:
		return e.executeApproval(ctx, inst, node)
	case NodeTypeNotification:
		return e.executeNotification(def, inst, node, ec)
	case NodeTypeApprove:
		return Result{Status: ResultCompleted, Halt: InstanceCompleted}
	case NodeTypeReject:
		return Result{Status: ResultCompleted, Halt: InstanceRejected}
	default:
		return failed("node %s has unknown type %q", node.ID, node.Type)
	}
}

// executeIntake reads the subject record's facts once and emits them on the
// intake node's output ports.
func (e *Engine) executeIntake(ctx context.Context, def *Definition, inst *Instance, node *Node) Result {
	facts, err := e.subjects.Facts(ctx, inst.SubjectRecordID)
	if err != nil {
		return failed("read subject record %s: %w", inst.SubjectRecordID, err)
	}

	output := map[string]any{
		PortTotalPrice: facts.TotalPrice,
		PortUnitPrice:  facts.UnitPrice,
		PortQuantity:   facts.Quantity,
		PortCategory:   facts.Category,
		PortUrgency:    facts.Urgency,
	}
	return completed(output, edgeTargets(def.OutgoingEdges(node.ID))...)
}

// executeIf evaluates operator(value, threshold) over the numeric input and
// routes through the yes or no handle.
func (e *Engine) executeIf(def *Definition, node *Node, ec *ExecutionContext) Result {
	cfg := node.Config.If
	if cfg == nil {
		return failed("node %s has no condition config", node.ID)
	}

	raw, ok := ec.ResolveInput(def, node.ID)
	if !ok {
		return failed("node %s has no input value", node.ID)
	}
	value, err := toNumber(raw)
	if err != nil {
		return failed("node %s input: %w", node.ID, err)
	}

	match, err := cfg.Operator.Apply(value, cfg.Threshold)
	if err != nil {
		return failed("node %s: %w", node.ID, err)
	}

	handle := PortNo
	if match {
		handle = PortYes
	}
	output := map[string]any{PortYes: match, PortNo: !match}
	return completed(output, edgeTargets(def.EdgesFromHandle(node.ID, handle))...)
}

// executeSwitch routes through the first case handle whose label equals the
// string input, or through default.
func (e *Engine) executeSwitch(def *Definition, node *Node, ec *ExecutionContext) Result {
	cfg := node.Config.Switch
	if cfg == nil {
		return failed("node %s has no switch config", node.ID)
	}

	raw, ok := ec.ResolveInput(def, node.ID)
	if !ok {
		return failed("node %s has no input value", node.ID)
	}
	value, ok := raw.(string)
	if !ok {
		return failed("node %s input is %T, not a string", node.ID, raw)
	}

	handle := PortDefault
	for i, label := range cfg.Cases {
		if label == value {
			handle = CaseHandle(i)
			break
		}
	}
	output := map[string]any{handle: true}
	return completed(output, edgeTargets(def.EdgesFromHandle(node.ID, handle))...)
}

// executeFork passes the trigger through every outgoing handle; each target
// becomes an independent branch.
func (e *Engine) executeFork(def *Definition, node *Node, ec *ExecutionContext) Result {
	trigger, _ := ec.ResolveInput(def, node.ID)
	if trigger == nil {
		trigger = true
	}

	outgoing := def.OutgoingEdges(node.ID)
	output := make(map[string]any, len(outgoing))
	for _, edge := range outgoing {
		h := edge.SourceHandle
		if h == "" {
			h = PortDefault
		}
		output[h] = trigger
	}
	return completed(output, edgeTargets(outgoing)...)
}

// executeJoin re-derives sibling completion from persisted execution
// records: branches resolve across separate external calls in any order, so
// an in-memory counter cannot be trusted. Waits until every incoming source
// has a COMPLETED record, then reconciles the branch outcomes under the
// configured strategy.
func (e *Engine) executeJoin(ctx context.Context, def *Definition, inst *Instance, node *Node, ec *ExecutionContext) Result {
	cfg := node.Config.Join
	if cfg == nil {
		return failed("node %s has no join config", node.ID)
	}

	sources := incomingSources(def, node.ID)
	if len(sources) == 0 {
		return failed("node %s has no incoming branches", node.ID)
	}

	done, err := e.store.CompletedNodeIDs(ctx, inst.ID, sources)
	if err != nil {
		return failed("node %s: query sibling completion: %w", node.ID, err)
	}
	if len(done) < len(sources) {
		e.logger.Debug("join waiting on siblings",
			zap.String("instance_id", inst.ID),
			zap.String("node_id", node.ID),
			zap.Int("completed", len(done)),
			zap.Int("expected", len(sources)))
		return Result{Status: ResultWaiting}
	}

	proceed := cfg.Strategy == JoinAll
	for _, src := range sources {
		outcome := ec.BranchOutcome(src)
		if cfg.Strategy == JoinAll && !outcome {
			proceed = false
			break
		}
		if cfg.Strategy == JoinAny && outcome {
			proceed = true
			break
		}
	}

	output := map[string]any{PortDefault: proceed}
	if proceed {
		var next []string
		for _, edge := range def.OutgoingEdges(node.ID) {
			if edge.SourceHandle != PortRejected {
				next = append(next, edge.Target)
			}
		}
		return completed(output, next...)
	}

	// Not-proceed routes through the join's rejected handle when the graph
	// declares one; otherwise the instance is rejected outright rather
	// than stranded.
	if rejectedEdges := def.EdgesFromHandle(node.ID, PortRejected); len(rejectedEdges) > 0 {
		return completed(output, edgeTargets(rejectedEdges)...)
	}
	return Result{Status: ResultCompleted, Output: output, Halt: InstanceRejected}
}

// executeApproval resolves the approver, files a PENDING approval request
// and suspends the branch. Suspension is purely persisted state; nothing
// blocks in memory while the approver takes days to respond.
func (e *Engine) executeApproval(ctx context.Context, inst *Instance, node *Node) Result {
	approverID, err := e.resolveApprover(ctx, node)
	if err != nil {
		return Result{Status: ResultFailed, Err: err}
	}

	// Re-entry while a request is already pending must not file a second one.
	existing, err := e.store.PendingApprovalByNode(ctx, inst.ID, node.ID)
	if err != nil {
		return failed("node %s: query pending approval: %w", node.ID, err)
	}
	if existing != nil {
		return Result{Status: ResultWaiting}
	}

	req := &ApprovalRequest{
		ID:          uuid.NewString(),
		InstanceID:  inst.ID,
		NodeID:      node.ID,
		ApproverID:  approverID,
		Status:      ApprovalPending,
		RequestedAt: time.Now(),
	}
	if err := e.store.CreateApproval(ctx, req); err != nil {
		return failed("node %s: create approval request: %w", node.ID, err)
	}

	e.metrics.ApprovalRequested()
	e.logger.Info("approval requested",
		zap.String("instance_id", inst.ID),
		zap.String("node_id", node.ID),
		zap.String("approver_id", approverID))
	return Result{Status: ResultWaiting}
}

// resolveApprover maps the node's config to a concrete user id.
func (e *Engine) resolveApprover(ctx context.Context, node *Node) (string, error) {
	switch node.Type {
	case NodeTypePersonApproval:
		cfg := node.Config.PersonApproval
		if cfg == nil || cfg.ApproverID == "" {
			return "", fmt.Errorf("node %s has no approver configured", node.ID)
		}
		return cfg.ApproverID, nil
	case NodeTypeDepartmentApproval:
		cfg := node.Config.DepartmentApproval
		if cfg == nil || cfg.DepartmentID == "" {
			return "", fmt.Errorf("node %s has no department configured", node.ID)
		}
		managerID, err := e.departments.ManagerID(ctx, cfg.DepartmentID)
		if err != nil {
			return "", fmt.Errorf("node %s: resolve manager of department %s: %w", node.ID, cfg.DepartmentID, err)
		}
		return managerID, nil
	default:
		return "", fmt.Errorf("node %s is not an approval node", node.ID)
	}
}

// executeNotification dispatches the notification as a logged side effect
// and passes the trigger through.
func (e *Engine) executeNotification(def *Definition, inst *Instance, node *Node, ec *ExecutionContext) Result {
	cfg := node.Config.Notification
	if cfg == nil || cfg.Target == "" {
		return failed("node %s has no notification target", node.ID)
	}

	e.logger.Info("notification dispatched",
		zap.String("instance_id", inst.ID),
		zap.String("node_id", node.ID),
		zap.String("target", cfg.Target),
		zap.String("subject", cfg.Subject))

	trigger, _ := ec.ResolveInput(def, node.ID)
	if trigger == nil {
		trigger = true
	}
	output := map[string]any{PortDefault: trigger}
	return completed(output, edgeTargets(def.OutgoingEdges(node.ID))...)
}

// edgeTargets collects the distinct targets of a set of edges.
func edgeTargets(edges []Edge) []string {
	var out []string
	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		if !seen[e.Target] {
			seen[e.Target] = true
			out = append(out, e.Target)
		}
	}
	return out
}

// incomingSources collects the distinct source node ids feeding a node.
func incomingSources(def *Definition, nodeID string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range def.IncomingEdges(nodeID) {
		if !seen[e.Source] {
			seen[e.Source] = true
			out = append(out, e.Source)
		}
	}
	return out
}
