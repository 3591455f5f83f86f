package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wideshreck/procurementflow-backend/api"
	"github.com/wideshreck/procurementflow-backend/internal/store"
	"github.com/wideshreck/procurementflow-backend/types"
	"github.com/wideshreck/procurementflow-backend/workflow"
)

// =============================================================================
// 📋 工作流定义 Handler
// =============================================================================

// WorkflowHandler 工作流定义管理处理器
type WorkflowHandler struct {
	repo   *store.Repository
	engine *workflow.Engine
	logger *zap.Logger
}

// NewWorkflowHandler 创建工作流处理器
func NewWorkflowHandler(repo *store.Repository, engine *workflow.Engine, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		repo:   repo,
		engine: engine,
		logger: logger,
	}
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleCreateWorkflow 创建工作流定义
// @Summary 创建工作流
// @Description 校验并保存新的工作流定义；校验错误返回 422，警告不阻断
// @Tags workflow
// @Accept json
// @Produce json
// @Param request body api.CreateWorkflowRequest true "定义"
// @Success 200 {object} Response{data=api.WorkflowCreatedResponse}
// @Failure 422 {object} Response "图校验失败"
// @Router /api/v1/workflows [post]
func (h *WorkflowHandler) HandleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req api.CreateWorkflowRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if req.Name == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "name is required", h.logger)
		return
	}

	def := &workflow.Definition{
		Name:         req.Name,
		Description:  req.Description,
		DepartmentID: req.DepartmentID,
		Active:       req.Active,
		Nodes:        req.Nodes,
		Edges:        req.Edges,
	}

	result := workflow.Validate(def)
	if !result.Valid {
		h.writeValidationFailure(w, result)
		return
	}

	if err := h.repo.CreateDefinition(r.Context(), def); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("workflow definition created",
		zap.String("definition_id", def.ID),
		zap.String("name", def.Name),
		zap.Int("warnings", len(result.Warnings)))

	WriteSuccess(w, api.WorkflowCreatedResponse{Workflow: def, Warnings: result.Warnings})
}

// HandleListWorkflows 列出工作流定义
// @Summary 列出工作流
// @Description 按可选的 department 查询参数过滤
// @Tags workflow
// @Produce json
// @Success 200 {object} Response{data=[]api.WorkflowSummary}
// @Router /api/v1/workflows [get]
func (h *WorkflowHandler) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	departmentID := r.URL.Query().Get("department")

	defs, err := h.repo.ListDefinitions(r.Context(), departmentID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	result := make([]api.WorkflowSummary, 0, len(defs))
	for i := range defs {
		result = append(result, api.ToWorkflowSummary(&defs[i]))
	}

	WriteSuccess(w, result)
}

// HandleGetWorkflow 获取单个工作流定义（含节点与边）
// @Summary 获取工作流
// @Tags workflow
// @Produce json
// @Param id path string true "Definition ID"
// @Success 200 {object} Response{data=workflow.Definition}
// @Failure 404 {object} Response
// @Router /api/v1/workflows/{id} [get]
func (h *WorkflowHandler) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "workflow ID is required", h.logger)
		return
	}

	def, err := h.repo.GetDefinition(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if def == nil {
		WriteError(w, types.NewError(types.ErrDefinitionNotFound, "workflow not found"), h.logger)
		return
	}

	WriteSuccess(w, def)
}

// HandleUpdateWorkflow 更新工作流定义
// @Summary 更新工作流
// @Description 合并后重新校验；存在运行中实例时拒绝修改图结构
// @Tags workflow
// @Accept json
// @Produce json
// @Param id path string true "Definition ID"
// @Param request body api.UpdateWorkflowRequest true "变更"
// @Success 200 {object} Response{data=api.WorkflowCreatedResponse}
// @Failure 409 {object} Response "存在运行中实例"
// @Failure 422 {object} Response "图校验失败"
// @Router /api/v1/workflows/{id} [patch]
func (h *WorkflowHandler) HandleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "workflow ID is required", h.logger)
		return
	}

	var req api.UpdateWorkflowRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	def, err := h.repo.GetDefinition(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if def == nil {
		WriteError(w, types.NewError(types.ErrDefinitionNotFound, "workflow not found"), h.logger)
		return
	}

	graphChanged := len(req.Nodes) > 0 || len(req.Edges) > 0
	if graphChanged {
		running, err := h.repo.HasRunningInstances(r.Context(), id)
		if err != nil {
			writeDomainError(w, err, h.logger)
			return
		}
		if running {
			WriteError(w, types.NewError(types.ErrDefinitionInUse,
				"workflow has running instances; graph changes are not allowed"), h.logger)
			return
		}
	}

	if req.Name != "" {
		def.Name = req.Name
	}
	if req.Description != "" {
		def.Description = req.Description
	}
	if req.Active != nil {
		def.Active = *req.Active
	}
	if len(req.Nodes) > 0 {
		def.Nodes = req.Nodes
	}
	if len(req.Edges) > 0 {
		def.Edges = req.Edges
	}

	result := workflow.Validate(def)
	if !result.Valid {
		h.writeValidationFailure(w, result)
		return
	}

	if err := h.repo.UpdateDefinition(r.Context(), def); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("workflow definition updated",
		zap.String("definition_id", def.ID),
		zap.Int("version", def.Version))

	WriteSuccess(w, api.WorkflowCreatedResponse{Workflow: def, Warnings: result.Warnings})
}

// HandleDeleteWorkflow 删除工作流定义
// @Summary 删除工作流
// @Description 存在运行中实例时拒绝删除
// @Tags workflow
// @Produce json
// @Param id path string true "Definition ID"
// @Success 200 {object} Response
// @Failure 409 {object} Response "存在运行中实例"
// @Router /api/v1/workflows/{id} [delete]
func (h *WorkflowHandler) HandleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "workflow ID is required", h.logger)
		return
	}

	def, err := h.repo.GetDefinition(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if def == nil {
		WriteError(w, types.NewError(types.ErrDefinitionNotFound, "workflow not found"), h.logger)
		return
	}

	running, err := h.repo.HasRunningInstances(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if running {
		WriteError(w, types.NewError(types.ErrDefinitionInUse,
			"workflow has running instances and cannot be deleted"), h.logger)
		return
	}

	if err := h.repo.DeleteDefinition(r.Context(), id); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("workflow definition deleted", zap.String("definition_id", id))
	WriteSuccess(w, map[string]string{"id": id})
}

// HandleCloneWorkflow 克隆工作流定义
// @Summary 克隆工作流
// @Description 复制图结构为新的未激活定义
// @Tags workflow
// @Produce json
// @Param id path string true "Definition ID"
// @Success 200 {object} Response{data=workflow.Definition}
// @Router /api/v1/workflows/{id}/clone [post]
func (h *WorkflowHandler) HandleCloneWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "workflow ID is required", h.logger)
		return
	}

	src, err := h.repo.GetDefinition(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if src == nil {
		WriteError(w, types.NewError(types.ErrDefinitionNotFound, "workflow not found"), h.logger)
		return
	}

	clone := &workflow.Definition{
		Name:         src.Name + " (copy)",
		Description:  src.Description,
		DepartmentID: src.DepartmentID,
		Active:       false,
		Nodes:        src.Nodes,
		Edges:        src.Edges,
	}

	if err := h.repo.CreateDefinition(r.Context(), clone); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("workflow definition cloned",
		zap.String("source_id", id),
		zap.String("clone_id", clone.ID))

	WriteSuccess(w, clone)
}

// HandleStatistics 工作流实例统计
// @Summary 实例统计
// @Description 每个定义按实例状态计数
// @Tags workflow
// @Produce json
// @Success 200 {object} Response{data=[]api.StatisticsView}
// @Router /api/v1/workflows/statistics [get]
func (h *WorkflowHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	defs, err := h.repo.ListDefinitions(r.Context(), "")
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	result := make([]api.StatisticsView, 0, len(defs))
	for i := range defs {
		counts, err := h.repo.CountInstancesByStatus(r.Context(), defs[i].ID)
		if err != nil {
			writeDomainError(w, err, h.logger)
			return
		}
		view := api.StatisticsView{
			DefinitionID: defs[i].ID,
			Name:         defs[i].Name,
			Counts:       make(map[string]int64, len(counts)),
		}
		for status, n := range counts {
			view.Counts[string(status)] = n
		}
		result = append(result, view)
	}

	WriteSuccess(w, result)
}

// HandleListInstances 列出定义下的实例
// @Summary 列出实例
// @Tags workflow
// @Produce json
// @Param id path string true "Definition ID"
// @Success 200 {object} Response{data=[]workflow.Instance}
// @Router /api/v1/workflows/{id}/instances [get]
func (h *WorkflowHandler) HandleListInstances(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "workflow ID is required", h.logger)
		return
	}

	instances, err := h.repo.ListInstancesByDefinition(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	WriteSuccess(w, instances)
}

// HandleStartInstance 启动审批实例
// @Summary 启动实例
// @Description 对一条采购申请启动审批流程；重复申请返回 409
// @Tags workflow
// @Accept json
// @Produce json
// @Param id path string true "Definition ID"
// @Param request body api.StartInstanceRequest true "主体记录"
// @Success 200 {object} Response{data=api.StartInstanceResponse}
// @Failure 409 {object} Response "该申请已有实例"
// @Router /api/v1/workflows/{id}/start [post]
func (h *WorkflowHandler) HandleStartInstance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "workflow ID is required", h.logger)
		return
	}

	var req api.StartInstanceRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.SubjectRecordID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "subjectRecordId is required", h.logger)
		return
	}

	instanceID, err := h.engine.StartInstance(r.Context(), id, req.SubjectRecordID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	WriteSuccess(w, api.StartInstanceResponse{InstanceID: instanceID})
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// writeValidationFailure 以 422 返回全部校验错误与警告
func (h *WorkflowHandler) writeValidationFailure(w http.ResponseWriter, result workflow.ValidationResult) {
	WriteJSON(w, http.StatusUnprocessableEntity, Response{
		Success: false,
		Data: api.ValidationView{
			Valid:    false,
			Errors:   result.Errors,
			Warnings: result.Warnings,
		},
		Error: &ErrorInfo{
			Code:    string(types.ErrDefinitionInvalid),
			Message: "workflow graph validation failed",
		},
		Timestamp: time.Now(),
	})
}
