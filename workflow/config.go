// Copyright (c) ProcurementFlow Authors.
// Licensed under the MIT License.

package workflow

import "fmt"

// Operator is a numeric comparison operator for CONDITION_IF nodes
type Operator string

const (
	OperatorGT  Operator = ">"
	OperatorLT  Operator = "<"
	OperatorEQ  Operator = "="
	OperatorGTE Operator = ">="
	OperatorLTE Operator = "<="
	OperatorNEQ Operator = "!="
)

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case OperatorGT, OperatorLT, OperatorEQ, OperatorGTE, OperatorLTE, OperatorNEQ:
		return true
	}
	return false
}

// Apply evaluates the comparison against a threshold.
func (op Operator) Apply(value, threshold float64) (bool, error) {
	switch op {
	case OperatorGT:
		return value > threshold, nil
	case OperatorLT:
		return value < threshold, nil
	case OperatorEQ:
		return value == threshold, nil
	case OperatorGTE:
		return value >= threshold, nil
	case OperatorLTE:
		return value <= threshold, nil
	case OperatorNEQ:
		return value != threshold, nil
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}

// JoinStrategy decides how a PARALLEL_JOIN reconciles branch outcomes
type JoinStrategy string

const (
	// JoinAll requires every branch outcome to be true
	JoinAll JoinStrategy = "ALL"
	// JoinAny requires at least one branch outcome to be true
	JoinAny JoinStrategy = "ANY"
)

// Valid reports whether s is a known join strategy.
func (s JoinStrategy) Valid() bool {
	return s == JoinAll || s == JoinAny
}

// NodeConfig is a tagged union over the node-type enum: exactly the variant
// matching the node's type is set, the rest stay nil. Types without
// configuration (intake, fork) carry an empty NodeConfig.
type NodeConfig struct {
	If                 *IfConfig                 `json:"if,omitempty"`
	Switch             *SwitchConfig             `json:"switch,omitempty"`
	Join               *JoinConfig               `json:"join,omitempty"`
	PersonApproval     *PersonApprovalConfig     `json:"personApproval,omitempty"`
	DepartmentApproval *DepartmentApprovalConfig `json:"departmentApproval,omitempty"`
	Notification       *NotificationConfig       `json:"notification,omitempty"`
	Approve            *ApproveConfig            `json:"approve,omitempty"`
	Reject             *RejectConfig             `json:"reject,omitempty"`
}

// IfConfig configures a CONDITION_IF node.
type IfConfig struct {
	// Field is the intake fact the condition reads, advisory for tooling;
	// the runtime input is resolved through the incoming edge.
	Field     string   `json:"field,omitempty"`
	Operator  Operator `json:"operator"`
	Threshold float64  `json:"threshold"`
}

// SwitchConfig configures a CONDITION_SWITCH node.
type SwitchConfig struct {
	Field string   `json:"field,omitempty"`
	Cases []string `json:"cases"`
}

// JoinConfig configures a PARALLEL_JOIN node.
type JoinConfig struct {
	Strategy   JoinStrategy `json:"strategy"`
	InputCount int          `json:"inputCount"`
}

// PersonApprovalConfig names the approver directly.
type PersonApprovalConfig struct {
	ApproverID string `json:"approverId"`
}

// DepartmentApprovalConfig names a department whose manager approves.
type DepartmentApprovalConfig struct {
	DepartmentID string `json:"departmentId"`
}

// NotificationConfig configures a NOTIFICATION side-effect node.
type NotificationConfig struct {
	Target   string `json:"target"`
	Subject  string `json:"subject,omitempty"`
	Template string `json:"template,omitempty"`
}

// ApproveConfig configures an APPROVE terminal node.
type ApproveConfig struct {
	Message string `json:"message,omitempty"`
}

// RejectConfig configures a REJECT terminal node.
type RejectConfig struct {
	Reason string `json:"reason,omitempty"`
}

// =============================================================================
// Port catalog
// =============================================================================

// Intake fact port names. The intake node emits the subject record's facts
// on these output ports.
const (
	PortTotalPrice = "totalPrice"
	PortUnitPrice  = "unitPrice"
	PortQuantity   = "quantity"
	PortCategory   = "category"
	PortUrgency    = "urgency"
)

// Common handle names.
const (
	PortDefault  = "default"
	PortYes      = "yes"
	PortNo       = "no"
	PortApproved = "approved"
	PortRejected = "rejected"
	PortResult   = "result"
)

// CaseHandle returns the output handle for the i-th switch case.
func CaseHandle(i int) string {
	return fmt.Sprintf("case-%d", i)
}

// InputPorts returns the declared input ports of a node: name → data type.
// The entry node has none; a join declares one boolean input per incoming
// edge; everything else consumes a single trigger value.
func InputPorts(n *Node, incoming []Edge) map[string]DataType {
	switch n.Type {
	case NodeTypeRequestIntake:
		return nil
	case NodeTypeConditionIf:
		return map[string]DataType{PortDefault: DataTypeNumber}
	case NodeTypeConditionSwitch:
		return map[string]DataType{PortDefault: DataTypeString}
	case NodeTypeParallelJoin:
		ports := make(map[string]DataType, len(incoming))
		for _, e := range incoming {
			h := e.TargetHandle
			if h == "" {
				h = PortDefault
			}
			ports[h] = DataTypeBoolean
		}
		if len(ports) == 0 {
			ports[PortDefault] = DataTypeBoolean
		}
		return ports
	default:
		return map[string]DataType{PortDefault: DataTypeAny}
	}
}

// OutputPorts returns the declared output ports of a node: name → data type,
// derived from type + config. Fork outputs mirror the outgoing edges.
func OutputPorts(n *Node, outgoing []Edge) map[string]DataType {
	switch n.Type {
	case NodeTypeRequestIntake:
		return map[string]DataType{
			PortTotalPrice: DataTypeNumber,
			PortUnitPrice:  DataTypeNumber,
			PortQuantity:   DataTypeNumber,
			PortCategory:   DataTypeString,
			PortUrgency:    DataTypeString,
		}
	case NodeTypeConditionIf:
		return map[string]DataType{
			PortYes: DataTypeBoolean,
			PortNo:  DataTypeBoolean,
		}
	case NodeTypeConditionSwitch:
		ports := map[string]DataType{PortDefault: DataTypeBoolean}
		if n.Config.Switch != nil {
			for i := range n.Config.Switch.Cases {
				ports[CaseHandle(i)] = DataTypeBoolean
			}
		}
		return ports
	case NodeTypeParallelFork:
		ports := make(map[string]DataType, len(outgoing))
		for _, e := range outgoing {
			h := e.SourceHandle
			if h == "" {
				h = PortDefault
			}
			ports[h] = DataTypeAny
		}
		if len(ports) == 0 {
			ports[PortDefault] = DataTypeAny
		}
		return ports
	case NodeTypeParallelJoin:
		return map[string]DataType{PortDefault: DataTypeBoolean}
	case NodeTypePersonApproval, NodeTypeDepartmentApproval:
		return map[string]DataType{
			PortApproved: DataTypeBoolean,
			PortRejected: DataTypeBoolean,
		}
	case NodeTypeNotification:
		return map[string]DataType{PortDefault: DataTypeAny}
	case NodeTypeApprove, NodeTypeReject:
		return nil
	default:
		return nil
	}
}
