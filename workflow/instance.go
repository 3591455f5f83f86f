// Copyright (c) ProcurementFlow Authors.
// Licensed under the MIT License.

package workflow

import "time"

// InstanceStatus is the lifecycle state of a workflow instance
type InstanceStatus string

const (
	InstanceInProgress InstanceStatus = "IN_PROGRESS"
	InstanceCompleted  InstanceStatus = "COMPLETED"
	InstanceRejected   InstanceStatus = "REJECTED"
	InstanceFailed     InstanceStatus = "FAILED"
)

// Terminal reports whether the status admits no further execution.
func (s InstanceStatus) Terminal() bool {
	return s != InstanceInProgress
}

// Instance is a live execution of one definition against one subject record.
type Instance struct {
	ID              string         `json:"id"`
	DefinitionID    string         `json:"definitionId"`
	SubjectRecordID string         `json:"subjectRecordId"`
	Status          InstanceStatus `json:"status"`
	ActiveNodeIDs   []string       `json:"activeNodeIds"`
	Variables       map[string]any `json:"variables"`
	History         []HistoryEntry `json:"history"`
	Error           string         `json:"error,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// HistoryEntry is one row of the append-only instance audit log.
type HistoryEntry struct {
	NodeID    string    `json:"nodeId"`
	EnteredAt time.Time `json:"enteredAt"`
	Result    string    `json:"result"`
}

// AddActive inserts a node into the active set.
func (i *Instance) AddActive(nodeID string) {
	for _, id := range i.ActiveNodeIDs {
		if id == nodeID {
			return
		}
	}
	i.ActiveNodeIDs = append(i.ActiveNodeIDs, nodeID)
}

// RemoveActive drops a node from the active set.
func (i *Instance) RemoveActive(nodeID string) {
	out := i.ActiveNodeIDs[:0]
	for _, id := range i.ActiveNodeIDs {
		if id != nodeID {
			out = append(out, id)
		}
	}
	i.ActiveNodeIDs = out
}

// ExecutionStatus is the state of one node visit
type ExecutionStatus string

const (
	ExecutionInProgress ExecutionStatus = "IN_PROGRESS"
	ExecutionCompleted  ExecutionStatus = "COMPLETED"
	// ExecutionPending marks a suspended node awaiting an external event
	ExecutionPending ExecutionStatus = "PENDING"
	ExecutionFailed  ExecutionStatus = "FAILED"
)

// ExecutionRecord is one row per node visited per instance.
type ExecutionRecord struct {
	ID          string          `json:"id"`
	InstanceID  string          `json:"instanceId"`
	NodeID      string          `json:"nodeId"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Output      map[string]any  `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// ApprovalStatus is the state of a human decision request
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Decision is a human approver's verdict
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// ApprovalRequest is a pending or resolved human decision. At most one
// PENDING request exists per (instance, node) at a time, and it resolves
// exactly once.
type ApprovalRequest struct {
	ID          string         `json:"id"`
	InstanceID  string         `json:"instanceId"`
	NodeID      string         `json:"nodeId"`
	ApproverID  string         `json:"approverId"`
	Status      ApprovalStatus `json:"status"`
	RequestedAt time.Time      `json:"requestedAt"`
	RespondedAt *time.Time     `json:"respondedAt,omitempty"`
	Comments    string         `json:"comments,omitempty"`
}

// Facts are the subject record values the intake node emits.
type Facts struct {
	TotalPrice float64 `json:"totalPrice"`
	UnitPrice  float64 `json:"unitPrice"`
	Quantity   float64 `json:"quantity"`
	Category   string  `json:"category"`
	Urgency    string  `json:"urgency"`
}
