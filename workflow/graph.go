// Copyright (c) ProcurementFlow Authors.
// Licensed under the MIT License.

package workflow

import "time"

// NodeType defines the type of a workflow node
type NodeType string

const (
	// NodeTypeRequestIntake is the single entry node reading subject record facts
	NodeTypeRequestIntake NodeType = "REQUEST_INTAKE"
	// NodeTypeConditionIf branches on a numeric comparison
	NodeTypeConditionIf NodeType = "CONDITION_IF"
	// NodeTypeConditionSwitch branches on string case labels
	NodeTypeConditionSwitch NodeType = "CONDITION_SWITCH"
	// NodeTypeParallelFork splits execution into independent branches
	NodeTypeParallelFork NodeType = "PARALLEL_FORK"
	// NodeTypeParallelJoin reconciles branches under an ALL/ANY strategy
	NodeTypeParallelJoin NodeType = "PARALLEL_JOIN"
	// NodeTypePersonApproval suspends awaiting a named approver's decision
	NodeTypePersonApproval NodeType = "PERSON_APPROVAL"
	// NodeTypeDepartmentApproval suspends awaiting the department manager's decision
	NodeTypeDepartmentApproval NodeType = "DEPARTMENT_APPROVAL"
	// NodeTypeNotification dispatches a notification and passes through
	NodeTypeNotification NodeType = "NOTIFICATION"
	// NodeTypeApprove terminates the instance as COMPLETED
	NodeTypeApprove NodeType = "APPROVE"
	// NodeTypeReject terminates the instance as REJECTED
	NodeTypeReject NodeType = "REJECT"
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeRequestIntake, NodeTypeConditionIf, NodeTypeConditionSwitch,
		NodeTypeParallelFork, NodeTypeParallelJoin,
		NodeTypePersonApproval, NodeTypeDepartmentApproval,
		NodeTypeNotification, NodeTypeApprove, NodeTypeReject:
		return true
	}
	return false
}

// Terminal reports whether t ends an instance.
func (t NodeType) Terminal() bool {
	return t == NodeTypeApprove || t == NodeTypeReject
}

// Approval reports whether t suspends awaiting a human decision.
func (t NodeType) Approval() bool {
	return t == NodeTypePersonApproval || t == NodeTypeDepartmentApproval
}

// DataType is the declared type of a value flowing along an edge
type DataType string

const (
	DataTypeNumber  DataType = "NUMBER"
	DataTypeString  DataType = "STRING"
	DataTypeBoolean DataType = "BOOLEAN"
	DataTypeAny     DataType = "ANY"
)

// Compatible applies the port-compatibility rule: ANY on either side
// matches everything, otherwise the types must be equal.
func (d DataType) Compatible(other DataType) bool {
	return d == DataTypeAny || other == DataTypeAny || d == other
}

// Position is pass-through UI metadata with no execution semantics.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a typed step in a workflow definition graph.
type Node struct {
	ID       string     `json:"id"`
	Type     NodeType   `json:"type"`
	Label    string     `json:"label,omitempty"`
	Position Position   `json:"position,omitempty"`
	Config   NodeConfig `json:"config,omitempty"`
}

// Edge is a directed, typed connection between a named output handle of one
// node and a named input handle of another.
type Edge struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	SourceHandle string   `json:"sourceHandle"`
	Target       string   `json:"target"`
	TargetHandle string   `json:"targetHandle"`
	DataType     DataType `json:"dataType"`
}

// Definition is an immutable-once-published workflow graph.
type Definition struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Version      int       `json:"version"`
	Active       bool      `json:"active"`
	DepartmentID string    `json:"departmentId,omitempty"`
	Nodes        []Node    `json:"nodes"`
	Edges        []Edge    `json:"edges"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// FindNode returns the node with the given id.
func (d *Definition) FindNode(id string) (*Node, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// NodesOfType returns all nodes with the given type, in definition order.
func (d *Definition) NodesOfType(t NodeType) []*Node {
	var out []*Node
	for i := range d.Nodes {
		if d.Nodes[i].Type == t {
			out = append(out, &d.Nodes[i])
		}
	}
	return out
}

// EntryNode returns the REQUEST_INTAKE node, if present.
func (d *Definition) EntryNode() (*Node, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].Type == NodeTypeRequestIntake {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// OutgoingEdges returns all edges whose source is the given node.
func (d *Definition) OutgoingEdges(nodeID string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// IncomingEdges returns all edges whose target is the given node.
func (d *Definition) IncomingEdges(nodeID string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.Target == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// EdgesFromHandle returns the outgoing edges of a node whose source handle
// matches. Routing through a branch outcome resolves targets this way.
func (d *Definition) EdgesFromHandle(nodeID, handle string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.Source == nodeID && e.SourceHandle == handle {
			out = append(out, e)
		}
	}
	return out
}
