// =============================================================================
// 📦 ProcurementFlow 持久化模型
// =============================================================================
// 工作流定义 / 实例 / 节点执行记录 / 审批请求的 GORM 表结构
// 图结构（节点、边）按子表行存储；JSON 列通过 serializer:json 序列化
// =============================================================================
package store

import (
	"time"

	"github.com/wideshreck/procurementflow-backend/workflow"
)

// WorkflowDefinitionRow 工作流定义表
type WorkflowDefinitionRow struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"size:200;not null" json:"name"`
	Description  string    `gorm:"size:2000" json:"description"`
	Version      int       `gorm:"default:1" json:"version"`
	Active       bool      `gorm:"default:true;index" json:"active"`
	DepartmentID string    `gorm:"size:36;index" json:"department_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// 关联子表
	Nodes []WorkflowNodeRow `gorm:"foreignKey:DefinitionID;references:ID;constraint:OnDelete:CASCADE" json:"nodes,omitempty"`
	Edges []WorkflowEdgeRow `gorm:"foreignKey:DefinitionID;references:ID;constraint:OnDelete:CASCADE" json:"edges,omitempty"`
}

// TableName 指定表名
func (WorkflowDefinitionRow) TableName() string { return "workflow_definitions" }

// WorkflowNodeRow 工作流节点表（每个定义多行）
type WorkflowNodeRow struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	DefinitionID string              `gorm:"size:36;not null;uniqueIndex:idx_def_node" json:"definition_id"`
	NodeID       string              `gorm:"size:100;not null;uniqueIndex:idx_def_node" json:"node_id"`
	Type         string              `gorm:"size:40;not null" json:"type"`
	Label        string              `gorm:"size:200" json:"label"`
	PositionX    float64             `json:"position_x"` // UI 元数据，无执行语义
	PositionY    float64             `json:"position_y"`
	Config       workflow.NodeConfig `gorm:"serializer:json" json:"config"`
}

// TableName 指定表名
func (WorkflowNodeRow) TableName() string { return "workflow_nodes" }

// WorkflowEdgeRow 工作流边表
type WorkflowEdgeRow struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	DefinitionID string `gorm:"size:36;not null;uniqueIndex:idx_def_edge" json:"definition_id"`
	EdgeID       string `gorm:"size:100;not null;uniqueIndex:idx_def_edge" json:"edge_id"`
	Source       string `gorm:"size:100;not null" json:"source"`
	SourceHandle string `gorm:"size:100" json:"source_handle"`
	Target       string `gorm:"size:100;not null" json:"target"`
	TargetHandle string `gorm:"size:100" json:"target_handle"`
	DataType     string `gorm:"size:20" json:"data_type"`
}

// TableName 指定表名
func (WorkflowEdgeRow) TableName() string { return "workflow_edges" }

// WorkflowInstanceRow 工作流实例表
type WorkflowInstanceRow struct {
	ID              string                  `gorm:"primaryKey;size:36" json:"id"`
	DefinitionID    string                  `gorm:"size:36;not null;index" json:"definition_id"`
	SubjectRecordID string                  `gorm:"size:36;not null;index:idx_inst_subject" json:"subject_record_id"`
	Status          string                  `gorm:"size:20;not null;index" json:"status"`
	ActiveNodeIDs   []string                `gorm:"serializer:json" json:"active_node_ids"`
	Variables       map[string]any          `gorm:"serializer:json" json:"variables"`
	History         []workflow.HistoryEntry `gorm:"serializer:json" json:"history"`
	Error           string                  `gorm:"size:2000" json:"error"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// TableName 指定表名
func (WorkflowInstanceRow) TableName() string { return "workflow_instances" }

// NodeExecutionRow 节点执行记录表（每个实例每次节点访问一行）
type NodeExecutionRow struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	InstanceID  string         `gorm:"size:36;not null;index:idx_exec_instance" json:"instance_id"`
	NodeID      string         `gorm:"size:100;not null;index:idx_exec_instance" json:"node_id"`
	Status      string         `gorm:"size:20;not null;index" json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	Output      map[string]any `gorm:"serializer:json" json:"output"`
	Error       string         `gorm:"size:2000" json:"error"`
}

// TableName 指定表名
func (NodeExecutionRow) TableName() string { return "node_executions" }

// ApprovalRequestRow 审批请求表
type ApprovalRequestRow struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	InstanceID  string     `gorm:"size:36;not null;index:idx_appr_instance" json:"instance_id"`
	NodeID      string     `gorm:"size:100;not null;index:idx_appr_instance" json:"node_id"`
	ApproverID  string     `gorm:"size:36;not null;index" json:"approver_id"`
	Status      string     `gorm:"size:20;not null;index" json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	RespondedAt *time.Time `json:"responded_at"`
	Comments    string     `gorm:"size:2000" json:"comments"`
}

// TableName 指定表名
func (ApprovalRequestRow) TableName() string { return "approval_requests" }

// =============================================================================
// 🔄 领域类型 ↔ 表结构转换
// =============================================================================

func definitionToRow(def *workflow.Definition) *WorkflowDefinitionRow {
	row := &WorkflowDefinitionRow{
		ID:           def.ID,
		Name:         def.Name,
		Description:  def.Description,
		Version:      def.Version,
		Active:       def.Active,
		DepartmentID: def.DepartmentID,
		CreatedAt:    def.CreatedAt,
		UpdatedAt:    def.UpdatedAt,
	}
	for _, n := range def.Nodes {
		row.Nodes = append(row.Nodes, WorkflowNodeRow{
			DefinitionID: def.ID,
			NodeID:       n.ID,
			Type:         string(n.Type),
			Label:        n.Label,
			PositionX:    n.Position.X,
			PositionY:    n.Position.Y,
			Config:       n.Config,
		})
	}
	for _, e := range def.Edges {
		row.Edges = append(row.Edges, WorkflowEdgeRow{
			DefinitionID: def.ID,
			EdgeID:       e.ID,
			Source:       e.Source,
			SourceHandle: e.SourceHandle,
			Target:       e.Target,
			TargetHandle: e.TargetHandle,
			DataType:     string(e.DataType),
		})
	}
	return row
}

func rowToDefinition(row *WorkflowDefinitionRow) *workflow.Definition {
	def := &workflow.Definition{
		ID:           row.ID,
		Name:         row.Name,
		Description:  row.Description,
		Version:      row.Version,
		Active:       row.Active,
		DepartmentID: row.DepartmentID,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	for _, n := range row.Nodes {
		def.Nodes = append(def.Nodes, workflow.Node{
			ID:       n.NodeID,
			Type:     workflow.NodeType(n.Type),
			Label:    n.Label,
			Position: workflow.Position{X: n.PositionX, Y: n.PositionY},
			Config:   n.Config,
		})
	}
	for _, e := range row.Edges {
		def.Edges = append(def.Edges, workflow.Edge{
			ID:           e.EdgeID,
			Source:       e.Source,
			SourceHandle: e.SourceHandle,
			Target:       e.Target,
			TargetHandle: e.TargetHandle,
			DataType:     workflow.DataType(e.DataType),
		})
	}
	return def
}

func instanceToRow(inst *workflow.Instance) *WorkflowInstanceRow {
	return &WorkflowInstanceRow{
		ID:              inst.ID,
		DefinitionID:    inst.DefinitionID,
		SubjectRecordID: inst.SubjectRecordID,
		Status:          string(inst.Status),
		ActiveNodeIDs:   inst.ActiveNodeIDs,
		Variables:       inst.Variables,
		History:         inst.History,
		Error:           inst.Error,
		CreatedAt:       inst.CreatedAt,
		UpdatedAt:       inst.UpdatedAt,
	}
}

func rowToInstance(row *WorkflowInstanceRow) *workflow.Instance {
	return &workflow.Instance{
		ID:              row.ID,
		DefinitionID:    row.DefinitionID,
		SubjectRecordID: row.SubjectRecordID,
		Status:          workflow.InstanceStatus(row.Status),
		ActiveNodeIDs:   row.ActiveNodeIDs,
		Variables:       row.Variables,
		History:         row.History,
		Error:           row.Error,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func executionToRow(rec *workflow.ExecutionRecord) *NodeExecutionRow {
	return &NodeExecutionRow{
		ID:          rec.ID,
		InstanceID:  rec.InstanceID,
		NodeID:      rec.NodeID,
		Status:      string(rec.Status),
		StartedAt:   rec.StartedAt,
		CompletedAt: rec.CompletedAt,
		Output:      rec.Output,
		Error:       rec.Error,
	}
}

func rowToExecution(row *NodeExecutionRow) *workflow.ExecutionRecord {
	return &workflow.ExecutionRecord{
		ID:          row.ID,
		InstanceID:  row.InstanceID,
		NodeID:      row.NodeID,
		Status:      workflow.ExecutionStatus(row.Status),
		StartedAt:   row.StartedAt,
		CompletedAt: row.CompletedAt,
		Output:      row.Output,
		Error:       row.Error,
	}
}

func approvalToRow(req *workflow.ApprovalRequest) *ApprovalRequestRow {
	return &ApprovalRequestRow{
		ID:          req.ID,
		InstanceID:  req.InstanceID,
		NodeID:      req.NodeID,
		ApproverID:  req.ApproverID,
		Status:      string(req.Status),
		RequestedAt: req.RequestedAt,
		RespondedAt: req.RespondedAt,
		Comments:    req.Comments,
	}
}

func rowToApproval(row *ApprovalRequestRow) *workflow.ApprovalRequest {
	return &workflow.ApprovalRequest{
		ID:          row.ID,
		InstanceID:  row.InstanceID,
		NodeID:      row.NodeID,
		ApproverID:  row.ApproverID,
		Status:      workflow.ApprovalStatus(row.Status),
		RequestedAt: row.RequestedAt,
		RespondedAt: row.RespondedAt,
		Comments:    row.Comments,
	}
}
