// Copyright (c) ProcurementFlow Authors.
// Licensed under the MIT License.

package workflow

import (
	"context"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wideshreck/procurementflow-backend/types"
)

// Store is the persistence boundary the engine drives. Absent rows are
// reported as (nil, nil); errors are reserved for infrastructure failures.
type Store interface {
	// GetDefinition loads a full definition graph.
	GetDefinition(ctx context.Context, id string) (*Definition, error)

	// CreateInstance persists a freshly started instance.
	CreateInstance(ctx context.Context, inst *Instance) error
	// GetInstance loads an instance or (nil, nil).
	GetInstance(ctx context.Context, id string) (*Instance, error)
	// SaveInstance persists the instance's mutable state.
	SaveInstance(ctx context.Context, inst *Instance) error
	// HasInstanceForSubject reports whether the subject record already has
	// an instance of this definition.
	HasInstanceForSubject(ctx context.Context, definitionID, subjectRecordID string) (bool, error)

	// OpenExecution opens (or, for a suspended node, reuses) the execution
	// record for one node visit.
	OpenExecution(ctx context.Context, instanceID, nodeID string) (*ExecutionRecord, error)
	// CloseExecution persists the record's final state.
	CloseExecution(ctx context.Context, rec *ExecutionRecord) error
	// CompletedNodeIDs reports which of the given nodes have a COMPLETED
	// record for this instance.
	CompletedNodeIDs(ctx context.Context, instanceID string, nodeIDs []string) (map[string]bool, error)

	// CreateApproval files a new approval request.
	CreateApproval(ctx context.Context, req *ApprovalRequest) error
	// PendingApprovalByNode finds the PENDING request for (instance, node),
	// or (nil, nil).
	PendingApprovalByNode(ctx context.Context, instanceID, nodeID string) (*ApprovalRequest, error)
	// PendingApproval finds the PENDING request for (instance, node,
	// approver), or (nil, nil).
	PendingApproval(ctx context.Context, instanceID, nodeID, approverID string) (*ApprovalRequest, error)
	// SaveApproval persists a resolved request.
	SaveApproval(ctx context.Context, req *ApprovalRequest) error
	// PendingApprovalsForApprover lists an approver's open requests.
	PendingApprovalsForApprover(ctx context.Context, approverID string) ([]ApprovalRequest, error)
}

// SubjectRecords supplies the procurement request facts the intake node
// reads. Owned by an external collaborator.
type SubjectRecords interface {
	Facts(ctx context.Context, subjectRecordID string) (Facts, error)
}

// Departments resolves a department to its manager for department
// approvals. Owned by an external collaborator.
type Departments interface {
	ManagerID(ctx context.Context, departmentID string) (string, error)
}

// MetricsRecorder receives engine-level counters. A nil recorder is
// replaced by a no-op.
type MetricsRecorder interface {
	InstanceStarted(definitionID string)
	InstanceFinished(status InstanceStatus)
	NodeExecuted(nodeType NodeType, status ResultStatus)
	DecisionSubmitted(decision Decision)
	ApprovalRequested()
}

type noopMetrics struct{}

func (noopMetrics) InstanceStarted(string)              {}
func (noopMetrics) InstanceFinished(InstanceStatus)     {}
func (noopMetrics) NodeExecuted(NodeType, ResultStatus) {}
func (noopMetrics) DecisionSubmitted(Decision)          {}
func (noopMetrics) ApprovalRequested()                  {}

// Engine drives workflow instances. All progress happens synchronously
// inside StartInstance or SubmitDecision; there is no background scheduler.
type Engine struct {
	store       Store
	subjects    SubjectRecords
	departments Departments
	metrics     MetricsRecorder
	logger      *zap.Logger
	locks       *keyedMutex
	maxSteps    int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMaxSteps bounds how many nodes one external call may advance through.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// WithLockStripes sets the size of the per-instance lock table.
func WithLockStripes(n int) Option {
	return func(e *Engine) { e.locks = newKeyedMutex(n) }
}

// NewEngine wires an engine over its collaborators.
func NewEngine(store Store, subjects SubjectRecords, departments Departments, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		subjects:    subjects,
		departments: departments,
		metrics:     noopMetrics{},
		logger:      zap.NewNop(),
		locks:       newKeyedMutex(64),
		maxSteps:    1000,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "engine"))
	return e
}

// StartInstance creates and advances a new instance of the definition
// against a subject record, running synchronously until every branch
// reaches a terminal node or suspends.
func (e *Engine) StartInstance(ctx context.Context, definitionID, subjectRecordID string) (string, error) {
	def, err := e.store.GetDefinition(ctx, definitionID)
	if err != nil {
		return "", err
	}
	if def == nil {
		return "", types.NewError(types.ErrDefinitionNotFound, "workflow definition not found").
			WithHTTPStatus(http.StatusNotFound)
	}
	if !def.Active {
		return "", types.NewError(types.ErrDefinitionInvalid, "workflow definition is not active").
			WithHTTPStatus(http.StatusUnprocessableEntity)
	}
	entry, ok := def.EntryNode()
	if !ok {
		return "", types.NewError(types.ErrDefinitionInvalid, "workflow definition has no entry node").
			WithHTTPStatus(http.StatusUnprocessableEntity)
	}

	exists, err := e.store.HasInstanceForSubject(ctx, definitionID, subjectRecordID)
	if err != nil {
		return "", err
	}
	if exists {
		return "", types.NewError(types.ErrInstanceExists, "subject record already has an instance of this workflow").
			WithHTTPStatus(http.StatusConflict)
	}

	now := time.Now()
	inst := &Instance{
		ID:              uuid.NewString(),
		DefinitionID:    definitionID,
		SubjectRecordID: subjectRecordID,
		Status:          InstanceInProgress,
		ActiveNodeIDs:   []string{entry.ID},
		Variables:       make(map[string]any),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.store.CreateInstance(ctx, inst); err != nil {
		return "", err
	}

	e.metrics.InstanceStarted(definitionID)
	e.logger.Info("instance started",
		zap.String("instance_id", inst.ID),
		zap.String("definition_id", definitionID),
		zap.String("subject_record_id", subjectRecordID))

	unlock := e.locks.Lock(inst.ID)
	defer unlock()
	if err := e.run(ctx, def, inst, []string{entry.ID}); err != nil {
		return "", err
	}
	return inst.ID, nil
}

// SubmitDecision resolves a pending approval and resumes the suspended
// branch. The caller's result reflects only their own step; failures
// further down the graph are recorded against the instance and visible
// through GetInstance.
func (e *Engine) SubmitDecision(ctx context.Context, instanceID, nodeID, approverID string, decision Decision, comments string) error {
	if !decision.Valid() {
		return types.NewError(types.ErrInvalidRequest, "decision must be APPROVE or REJECT").
			WithHTTPStatus(http.StatusBadRequest)
	}

	// Serializing the whole resolve-and-resume per instance closes the
	// race where two sibling branches complete concurrently and both see
	// the join as ready.
	unlock := e.locks.Lock(instanceID)
	defer unlock()

	req, err := e.store.PendingApproval(ctx, instanceID, nodeID, approverID)
	if err != nil {
		return err
	}
	if req == nil {
		return types.NewError(types.ErrApprovalNotFound, "no pending approval request for this node and approver").
			WithHTTPStatus(http.StatusNotFound)
	}

	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	if inst == nil {
		return types.NewError(types.ErrInstanceNotFound, "workflow instance not found").
			WithHTTPStatus(http.StatusNotFound)
	}
	if inst.Status.Terminal() {
		return types.NewError(types.ErrInstanceTerminal, "workflow instance is no longer in progress").
			WithHTTPStatus(http.StatusConflict)
	}
	def, err := e.store.GetDefinition(ctx, inst.DefinitionID)
	if err != nil {
		return err
	}
	if def == nil {
		return types.NewError(types.ErrDefinitionNotFound, "workflow definition not found").
			WithHTTPStatus(http.StatusNotFound)
	}

	now := time.Now()
	approved := decision == DecisionApprove
	if approved {
		req.Status = ApprovalApproved
	} else {
		req.Status = ApprovalRejected
	}
	req.RespondedAt = &now
	req.Comments = comments
	if err := e.store.SaveApproval(ctx, req); err != nil {
		return err
	}

	ec := NewExecutionContext(inst.Variables)
	ec.Set(nodeID, PortApproved, approved)
	ec.Set(nodeID, PortRejected, !approved)
	inst.Variables = ec.Variables()

	// The approval node's suspended execution record closes here: the join
	// derives sibling completion from COMPLETED records, so leaving it
	// PENDING would wedge every join downstream.
	rec, err := e.store.OpenExecution(ctx, instanceID, nodeID)
	if err != nil {
		return err
	}
	rec.Status = ExecutionCompleted
	rec.Output = map[string]any{PortApproved: approved, PortRejected: !approved}
	rec.CompletedAt = &now
	if err := e.store.CloseExecution(ctx, rec); err != nil {
		return err
	}

	inst.History = append(inst.History, HistoryEntry{NodeID: nodeID, EnteredAt: rec.StartedAt, Result: string(ResultCompleted)})
	inst.RemoveActive(nodeID)

	handle := PortRejected
	if approved {
		handle = PortApproved
	}
	next := edgeTargets(def.EdgesFromHandle(nodeID, handle))
	if len(next) == 0 {
		// No edge for this outcome: when the node feeds a join, the join
		// pulls completion rather than being pushed it, so re-invoke it.
		for _, edge := range def.OutgoingEdges(nodeID) {
			if target, ok := def.FindNode(edge.Target); ok && target.Type == NodeTypeParallelJoin {
				next = append(next, target.ID)
			}
		}
	}

	e.metrics.DecisionSubmitted(decision)
	e.logger.Info("decision submitted",
		zap.String("instance_id", instanceID),
		zap.String("node_id", nodeID),
		zap.String("approver_id", approverID),
		zap.String("decision", string(decision)))

	return e.run(ctx, def, inst, next)
}

// GetInstance returns a read-only projection of an instance.
func (e *Engine) GetInstance(ctx context.Context, instanceID string) (*Instance, error) {
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, types.NewError(types.ErrInstanceNotFound, "workflow instance not found").
			WithHTTPStatus(http.StatusNotFound)
	}
	return inst, nil
}

// ListPendingApprovals returns the approver's open decision requests.
func (e *Engine) ListPendingApprovals(ctx context.Context, approverID string) ([]ApprovalRequest, error) {
	return e.store.PendingApprovalsForApprover(ctx, approverID)
}

// run is the step loop: an explicit iterative work-list rather than
// recursion, so wide fan-outs cannot grow the stack and "advance all ready
// branches" stays testable in isolation. Executor failures are recorded on
// the instance, not returned; the error return is for infrastructure only.
func (e *Engine) run(ctx context.Context, def *Definition, inst *Instance, start []string) error {
	queue := append([]string(nil), start...)
	steps := 0

	for len(queue) > 0 && !inst.Status.Terminal() {
		steps++
		if steps > e.maxSteps {
			e.failInstance(inst, "", "step budget exceeded, graph may be runaway")
			break
		}

		nodeID := queue[0]
		queue = queue[1:]

		node, ok := def.FindNode(nodeID)
		if !ok {
			e.failInstance(inst, nodeID, "node not found in definition")
			break
		}

		rec, err := e.store.OpenExecution(ctx, inst.ID, nodeID)
		if err != nil {
			return err
		}

		ec := NewExecutionContext(inst.Variables)
		res := e.executeNode(ctx, def, inst, node, ec)
		inst.Variables = ec.Variables()
		e.metrics.NodeExecuted(node.Type, res.Status)
		now := time.Now()

		switch res.Status {
		case ResultCompleted:
			for port, value := range res.Output {
				inst.Variables[VariableKey(nodeID, port)] = value
			}
			rec.Status = ExecutionCompleted
			rec.Output = res.Output
			rec.CompletedAt = &now
			if err := e.store.CloseExecution(ctx, rec); err != nil {
				return err
			}
			inst.History = append(inst.History, HistoryEntry{NodeID: nodeID, EnteredAt: rec.StartedAt, Result: string(ResultCompleted)})
			inst.RemoveActive(nodeID)
			for _, next := range res.Next {
				inst.AddActive(next)
			}
			queue = append(queue, res.Next...)

			if res.Halt != "" {
				inst.Status = res.Halt
				inst.ActiveNodeIDs = nil
				e.metrics.InstanceFinished(res.Halt)
				e.logger.Info("instance finished",
					zap.String("instance_id", inst.ID),
					zap.String("status", string(res.Halt)))
			}

		case ResultWaiting:
			rec.Status = ExecutionPending
			if err := e.store.CloseExecution(ctx, rec); err != nil {
				return err
			}
			inst.AddActive(nodeID)

		case ResultFailed:
			rec.Status = ExecutionFailed
			rec.Error = res.Err.Error()
			rec.CompletedAt = &now
			if err := e.store.CloseExecution(ctx, rec); err != nil {
				return err
			}
			inst.History = append(inst.History, HistoryEntry{NodeID: nodeID, EnteredAt: rec.StartedAt, Result: string(ResultFailed)})
			e.failInstance(inst, nodeID, res.Err.Error())
		}

		inst.UpdatedAt = time.Now()
		if err := e.store.SaveInstance(ctx, inst); err != nil {
			return err
		}
	}

	inst.UpdatedAt = time.Now()
	return e.store.SaveInstance(ctx, inst)
}

// failInstance halts the instance permanently. No automatic retry exists:
// runtime failures are configuration or type errors, which retrying cannot
// fix.
func (e *Engine) failInstance(inst *Instance, nodeID, reason string) {
	inst.Status = InstanceFailed
	inst.Error = reason
	inst.ActiveNodeIDs = nil
	e.metrics.InstanceFinished(InstanceFailed)
	e.logger.Error("instance failed",
		zap.String("instance_id", inst.ID),
		zap.String("node_id", nodeID),
		zap.String("reason", reason))
}

// keyedMutex is a striped lock table: instances hash onto a fixed set of
// mutexes, giving per-instance mutual exclusion without unbounded growth.
type keyedMutex struct {
	stripes []sync.Mutex
}

func newKeyedMutex(n int) *keyedMutex {
	if n <= 0 {
		n = 64
	}
	return &keyedMutex{stripes: make([]sync.Mutex, n)}
}

// Lock acquires the stripe for key and returns its unlock.
func (m *keyedMutex) Lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &m.stripes[h.Sum32()%uint32(len(m.stripes))]
	mu.Lock()
	return mu.Unlock
}
