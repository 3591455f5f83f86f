package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDefinition() *Definition {
	return &Definition{
		ID:      "def-valid",
		Name:    "valid",
		Version: 1,
		Nodes: []Node{
			{ID: "intake", Type: NodeTypeRequestIntake},
			{ID: "check", Type: NodeTypeConditionIf, Config: NodeConfig{
				If: &IfConfig{Operator: OperatorGT, Threshold: 10000},
			}},
			{ID: "accept", Type: NodeTypeApprove},
			{ID: "deny", Type: NodeTypeReject},
		},
		Edges: []Edge{
			{ID: "e1", Source: "intake", SourceHandle: PortTotalPrice, Target: "check", TargetHandle: PortDefault, DataType: DataTypeNumber},
			{ID: "e2", Source: "check", SourceHandle: PortYes, Target: "accept", TargetHandle: PortDefault, DataType: DataTypeBoolean},
			{ID: "e3", Source: "check", SourceHandle: PortNo, Target: "deny", TargetHandle: PortDefault, DataType: DataTypeBoolean},
		},
	}
}

func TestValidateAcceptsWellFormedGraph(t *testing.T) {
	res := Validate(validDefinition())
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestValidateMissingEntryNode(t *testing.T) {
	def := validDefinition()
	def.Nodes = def.Nodes[1:]
	def.Edges = def.Edges[1:]

	res := Validate(def)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], "REQUEST_INTAKE")
}

func TestValidateDuplicateEntryNodes(t *testing.T) {
	def := validDefinition()
	def.Nodes = append(def.Nodes, Node{ID: "intake2", Type: NodeTypeRequestIntake})

	res := Validate(def)
	assert.False(t, res.Valid)
	assertContainsSubstring(t, res.Errors, "exactly one REQUEST_INTAKE")
}

func TestValidateEntryWithIncomingEdge(t *testing.T) {
	def := validDefinition()
	def.Edges = append(def.Edges, Edge{ID: "back", Source: "accept", Target: "intake", DataType: DataTypeAny})

	res := Validate(def)
	assert.False(t, res.Valid)
	assertContainsSubstring(t, res.Errors, "must not have incoming edges")
}

func TestValidateMissingTerminalNode(t *testing.T) {
	def := &Definition{
		Nodes: []Node{
			{ID: "intake", Type: NodeTypeRequestIntake},
			{ID: "notify", Type: NodeTypeNotification, Config: NodeConfig{
				Notification: &NotificationConfig{Target: "ops"},
			}},
		},
		Edges: []Edge{
			{ID: "e1", Source: "intake", SourceHandle: PortTotalPrice, Target: "notify", TargetHandle: PortDefault, DataType: DataTypeAny},
		},
	}

	res := Validate(def)
	assert.False(t, res.Valid)
	assertContainsSubstring(t, res.Errors, "terminal node")
}

func TestValidateNamesEveryOrphan(t *testing.T) {
	def := validDefinition()
	def.Nodes = append(def.Nodes,
		Node{ID: "lost-1", Type: NodeTypeNotification, Config: NodeConfig{Notification: &NotificationConfig{Target: "x"}}},
		Node{ID: "lost-2", Type: NodeTypeApprove},
	)

	res := Validate(def)
	assert.False(t, res.Valid)
	assertContainsSubstring(t, res.Errors, "lost-1")
	assertContainsSubstring(t, res.Errors, "lost-2")
}

func TestValidateEdgeEndpointExistence(t *testing.T) {
	def := validDefinition()
	def.Edges = append(def.Edges, Edge{ID: "dangling", Source: "check", SourceHandle: PortYes, Target: "ghost", DataType: DataTypeBoolean})

	res := Validate(def)
	assert.False(t, res.Valid)
	assertContainsSubstring(t, res.Errors, "ghost")
}

func TestValidateRejectsCycle(t *testing.T) {
	def := &Definition{
		Nodes: []Node{
			{ID: "intake", Type: NodeTypeRequestIntake},
			{ID: "a", Type: NodeTypeNotification, Config: NodeConfig{Notification: &NotificationConfig{Target: "x"}}},
			{ID: "b", Type: NodeTypeNotification, Config: NodeConfig{Notification: &NotificationConfig{Target: "x"}}},
			{ID: "c", Type: NodeTypeNotification, Config: NodeConfig{Notification: &NotificationConfig{Target: "x"}}},
			{ID: "accept", Type: NodeTypeApprove},
		},
		Edges: []Edge{
			{ID: "e1", Source: "intake", SourceHandle: PortTotalPrice, Target: "a", TargetHandle: PortDefault, DataType: DataTypeAny},
			{ID: "e2", Source: "a", SourceHandle: PortDefault, Target: "b", TargetHandle: PortDefault, DataType: DataTypeAny},
			{ID: "e3", Source: "b", SourceHandle: PortDefault, Target: "c", TargetHandle: PortDefault, DataType: DataTypeAny},
			{ID: "e4", Source: "c", SourceHandle: PortDefault, Target: "a", TargetHandle: PortDefault, DataType: DataTypeAny},
			{ID: "e5", Source: "c", SourceHandle: PortDefault, Target: "accept", TargetHandle: PortDefault, DataType: DataTypeAny},
		},
	}

	res := Validate(def)
	assert.False(t, res.Valid)
	assertContainsSubstring(t, res.Errors, "cycle")
}

func TestValidateAcceptsDiamondShape(t *testing.T) {
	// a shared sub-path is not a cycle: A→B, A→C, B→D, C→D
	def := &Definition{
		Nodes: []Node{
			{ID: "intake", Type: NodeTypeRequestIntake},
			{ID: "fork", Type: NodeTypeParallelFork},
			{ID: "b", Type: NodeTypeNotification, Config: NodeConfig{Notification: &NotificationConfig{Target: "x"}}},
			{ID: "c", Type: NodeTypeNotification, Config: NodeConfig{Notification: &NotificationConfig{Target: "x"}}},
			{ID: "join", Type: NodeTypeParallelJoin, Config: NodeConfig{Join: &JoinConfig{Strategy: JoinAll, InputCount: 2}}},
			{ID: "accept", Type: NodeTypeApprove},
		},
		Edges: []Edge{
			{ID: "e1", Source: "intake", SourceHandle: PortTotalPrice, Target: "fork", TargetHandle: PortDefault, DataType: DataTypeAny},
			{ID: "e2", Source: "fork", SourceHandle: "branch-a", Target: "b", TargetHandle: PortDefault, DataType: DataTypeAny},
			{ID: "e3", Source: "fork", SourceHandle: "branch-b", Target: "c", TargetHandle: PortDefault, DataType: DataTypeAny},
			{ID: "e4", Source: "b", SourceHandle: PortDefault, Target: "join", TargetHandle: "in-a", DataType: DataTypeAny},
			{ID: "e5", Source: "c", SourceHandle: PortDefault, Target: "join", TargetHandle: "in-b", DataType: DataTypeAny},
			{ID: "e6", Source: "join", SourceHandle: PortDefault, Target: "accept", TargetHandle: PortDefault, DataType: DataTypeBoolean},
		},
	}

	res := Validate(def)
	assert.True(t, res.Valid, "errors: %v", res.Errors)
}

func TestValidateUnreachableNode(t *testing.T) {
	def := validDefinition()
	// island: two nodes feeding each other's incoming-edge check but cut
	// off from the entry
	def.Nodes = append(def.Nodes,
		Node{ID: "isl-1", Type: NodeTypeNotification, Config: NodeConfig{Notification: &NotificationConfig{Target: "x"}}},
		Node{ID: "isl-2", Type: NodeTypeApprove},
	)
	def.Edges = append(def.Edges,
		Edge{ID: "e-isl", Source: "isl-1", SourceHandle: PortDefault, Target: "isl-2", TargetHandle: PortDefault, DataType: DataTypeAny},
	)

	res := Validate(def)
	assert.False(t, res.Valid)
	assertContainsSubstring(t, res.Errors, "unreachable")
}

func TestValidateConfigCompleteness(t *testing.T) {
	cases := []struct {
		name string
		node Node
		want string
	}{
		{"if without config", Node{ID: "n", Type: NodeTypeConditionIf}, "condition config"},
		{"if with bad operator", Node{ID: "n", Type: NodeTypeConditionIf, Config: NodeConfig{If: &IfConfig{Operator: "~"}}}, "invalid operator"},
		{"switch without cases", Node{ID: "n", Type: NodeTypeConditionSwitch, Config: NodeConfig{Switch: &SwitchConfig{}}}, "case list"},
		{"join without config", Node{ID: "n", Type: NodeTypeParallelJoin}, "join config"},
		{"join with one input", Node{ID: "n", Type: NodeTypeParallelJoin, Config: NodeConfig{Join: &JoinConfig{Strategy: JoinAll, InputCount: 1}}}, "at least 2"},
		{"person approval without approver", Node{ID: "n", Type: NodeTypePersonApproval}, "approver"},
		{"department approval without department", Node{ID: "n", Type: NodeTypeDepartmentApproval}, "department"},
		{"notification without target", Node{ID: "n", Type: NodeTypeNotification}, "target"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := validDefinition()
			def.Nodes = append(def.Nodes, tc.node)
			def.Edges = append(def.Edges, Edge{ID: "e-n", Source: "check", SourceHandle: PortYes, Target: "n", TargetHandle: PortDefault, DataType: DataTypeAny})

			res := Validate(def)
			require.False(t, res.Valid)
			assertContainsSubstring(t, res.Errors, tc.want)
		})
	}
}

func TestValidatePortIncompatibilityIsWarning(t *testing.T) {
	def := validDefinition()
	// category is a STRING output wired into the IF node's NUMBER input
	def.Edges[0].SourceHandle = PortCategory

	res := Validate(def)
	assert.True(t, res.Valid)
	assertContainsSubstring(t, res.Warnings, "incompatible")
}

func TestValidateUndeclaredPortIsWarning(t *testing.T) {
	def := validDefinition()
	def.Edges[0].SourceHandle = "no-such-port"

	res := Validate(def)
	assert.True(t, res.Valid)
	assertContainsSubstring(t, res.Warnings, "undeclared output port")
}

func TestValidateForkJoinBalanceWarning(t *testing.T) {
	def := validDefinition()
	def.Nodes = append(def.Nodes, Node{ID: "fork", Type: NodeTypeParallelFork})
	def.Edges = append(def.Edges, Edge{ID: "e-f", Source: "check", SourceHandle: PortYes, Target: "fork", TargetHandle: PortDefault, DataType: DataTypeAny})

	res := Validate(def)
	assertContainsSubstring(t, res.Warnings, "PARALLEL_FORK")
}

func assertContainsSubstring(t *testing.T, haystack []string, want string) {
	t.Helper()
	for _, s := range haystack {
		if strings.Contains(s, want) {
			return
		}
	}
	t.Errorf("no entry containing %q in %v", want, haystack)
}
