package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/wideshreck/procurementflow-backend/api"
	"github.com/wideshreck/procurementflow-backend/types"
	"github.com/wideshreck/procurementflow-backend/workflow"
)

// =============================================================================
// 📝 审批实例 Handler
// =============================================================================

// InstanceHandler 审批实例与决策处理器
type InstanceHandler struct {
	engine *workflow.Engine
	logger *zap.Logger
}

// NewInstanceHandler 创建实例处理器
func NewInstanceHandler(engine *workflow.Engine, logger *zap.Logger) *InstanceHandler {
	return &InstanceHandler{
		engine: engine,
		logger: logger,
	}
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleGetInstance 获取实例状态
// @Summary 获取实例
// @Description 返回实例状态、活跃节点、变量与审计历史
// @Tags instance
// @Produce json
// @Param instanceId path string true "Instance ID"
// @Success 200 {object} Response{data=workflow.Instance}
// @Failure 404 {object} Response
// @Router /api/v1/instances/{instanceId} [get]
func (h *InstanceHandler) HandleGetInstance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("instanceId")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "instance ID is required", h.logger)
		return
	}

	inst, err := h.engine.GetInstance(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	WriteSuccess(w, inst)
}

// HandleApprove 提交审批决策
// @Summary 提交决策
// @Description 以调用者身份对指定节点提交 APPROVE/REJECT；重复提交返回 404
// @Tags instance
// @Accept json
// @Produce json
// @Param instanceId path string true "Instance ID"
// @Param request body api.ApproveRequest true "决策"
// @Success 200 {object} Response
// @Failure 404 {object} Response "无待处理审批"
// @Router /api/v1/instances/{instanceId}/approve [post]
func (h *InstanceHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("instanceId")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "instance ID is required", h.logger)
		return
	}

	approverID := types.UserID(r.Context())
	if approverID == "" {
		WriteError(w, types.NewError(types.ErrUnauthorized, "caller identity is required"), h.logger)
		return
	}

	var req api.ApproveRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.NodeID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "nodeId is required", h.logger)
		return
	}
	if !req.Decision.Valid() {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"decision must be APPROVE or REJECT", h.logger)
		return
	}

	err := h.engine.SubmitDecision(r.Context(), id, req.NodeID, approverID, req.Decision, req.Comments)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("decision accepted",
		zap.String("instance_id", id),
		zap.String("node_id", req.NodeID),
		zap.String("approver_id", approverID),
		zap.String("decision", string(req.Decision)))

	WriteSuccess(w, map[string]string{
		"instanceId": id,
		"nodeId":     req.NodeID,
		"decision":   string(req.Decision),
	})
}

// HandlePendingApprovals 列出调用者的待审批请求
// @Summary 待审批列表
// @Tags instance
// @Produce json
// @Success 200 {object} Response{data=[]workflow.ApprovalRequest}
// @Router /api/v1/approvals/pending [get]
func (h *InstanceHandler) HandlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	approverID := types.UserID(r.Context())
	if approverID == "" {
		WriteError(w, types.NewError(types.ErrUnauthorized, "caller identity is required"), h.logger)
		return
	}

	approvals, err := h.engine.ListPendingApprovals(r.Context(), approverID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	WriteSuccess(w, approvals)
}
