package api

import (
	"time"

	"github.com/wideshreck/procurementflow-backend/workflow"
)

// =============================================================================
// 工作流管理类型
// =============================================================================

// CreateWorkflowRequest 创建工作流定义请求。
// @Description 创建工作流定义请求结构
type CreateWorkflowRequest struct {
	// 工作流名称
	Name string `json:"name" binding:"required"`
	// 描述
	Description string `json:"description,omitempty"`
	// 所属部门
	DepartmentID string `json:"departmentId,omitempty"`
	// 是否立即激活
	Active bool `json:"active"`
	// 节点列表
	Nodes []workflow.Node `json:"nodes" binding:"required"`
	// 边列表
	Edges []workflow.Edge `json:"edges" binding:"required"`
}

// UpdateWorkflowRequest 更新工作流定义请求。
// @Description 更新工作流定义请求结构
type UpdateWorkflowRequest struct {
	// 工作流名称
	Name string `json:"name,omitempty"`
	// 描述
	Description string `json:"description,omitempty"`
	// 是否激活
	Active *bool `json:"active,omitempty"`
	// 节点列表；为空时保留原图
	Nodes []workflow.Node `json:"nodes,omitempty"`
	// 边列表
	Edges []workflow.Edge `json:"edges,omitempty"`
}

// WorkflowSummary 工作流定义摘要（列表视图）。
type WorkflowSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Version      int       `json:"version"`
	Active       bool      `json:"active"`
	DepartmentID string    `json:"departmentId,omitempty"`
	NodeCount    int       `json:"nodeCount"`
	EdgeCount    int       `json:"edgeCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ValidationView 图校验结果。
// @Description 图校验结果，errors 阻断保存，warnings 仅提示
type ValidationView struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// WorkflowCreatedResponse 创建/更新成功响应，附带非阻断警告。
type WorkflowCreatedResponse struct {
	Workflow *workflow.Definition `json:"workflow"`
	Warnings []string             `json:"warnings,omitempty"`
}

// StatisticsView 单个定义的实例状态统计。
type StatisticsView struct {
	DefinitionID string           `json:"definitionId"`
	Name         string           `json:"name"`
	Counts       map[string]int64 `json:"counts"`
}

// =============================================================================
// 实例与审批类型
// =============================================================================

// StartInstanceRequest 启动审批实例请求。
// @Description 启动审批实例请求结构
type StartInstanceRequest struct {
	// 采购申请（主体记录）ID
	SubjectRecordID string `json:"subjectRecordId" binding:"required"`
}

// StartInstanceResponse 启动审批实例响应。
type StartInstanceResponse struct {
	InstanceID string `json:"instanceId"`
}

// ApproveRequest 提交审批决策请求。
// @Description 提交审批决策请求结构
type ApproveRequest struct {
	// 审批节点 ID
	NodeID string `json:"nodeId" binding:"required"`
	// 决策: APPROVE 或 REJECT
	Decision workflow.Decision `json:"decision" binding:"required"`
	// 审批意见
	Comments string `json:"comments,omitempty"`
}

// ToWorkflowSummary 将完整定义转换为摘要视图
func ToWorkflowSummary(def *workflow.Definition) WorkflowSummary {
	return WorkflowSummary{
		ID:           def.ID,
		Name:         def.Name,
		Description:  def.Description,
		Version:      def.Version,
		Active:       def.Active,
		DepartmentID: def.DepartmentID,
		NodeCount:    len(def.Nodes),
		EdgeCount:    len(def.Edges),
		CreatedAt:    def.CreatedAt,
		UpdatedAt:    def.UpdatedAt,
	}
}
