// =============================================================================
// 🗄️ ProcurementFlow 工作流仓储
// =============================================================================
// 实现引擎的 workflow.Store 边界 + 定义 CRUD / 统计查询
// 约定: 不存在的行返回 (nil, nil)，error 只用于基础设施故障
// =============================================================================
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wideshreck/procurementflow-backend/workflow"
)

// DefinitionCache 定义图的读穿缓存边界（可选，nil 表示直连数据库）
type DefinitionCache interface {
	GetDefinition(ctx context.Context, id string) (*workflow.Definition, bool)
	SetDefinition(ctx context.Context, def *workflow.Definition)
	InvalidateDefinition(ctx context.Context, id string)
}

// Repository 工作流持久化仓储
type Repository struct {
	db     *gorm.DB
	cache  DefinitionCache
	logger *zap.Logger
}

var _ workflow.Store = (*Repository)(nil)

// RepositoryOption 仓储可选项
type RepositoryOption func(*Repository)

// WithCache 启用定义缓存
func WithCache(cache DefinitionCache) RepositoryOption {
	return func(r *Repository) { r.cache = cache }
}

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) RepositoryOption {
	return func(r *Repository) { r.logger = logger }
}

// NewRepository 创建仓储
func NewRepository(db *gorm.DB, opts ...RepositoryOption) *Repository {
	r := &Repository{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "store"))
	return r
}

// AutoMigrate 自动迁移所有工作流表
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&WorkflowDefinitionRow{},
		&WorkflowNodeRow{},
		&WorkflowEdgeRow{},
		&WorkflowInstanceRow{},
		&NodeExecutionRow{},
		&ApprovalRequestRow{},
	); err != nil {
		return fmt.Errorf("failed to auto migrate workflow tables: %w", err)
	}
	return nil
}

// =============================================================================
// 📋 定义 CRUD
// =============================================================================

// CreateDefinition 持久化一个新定义（含节点、边子表行）
func (r *Repository) CreateDefinition(ctx context.Context, def *workflow.Definition) error {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	if def.Version == 0 {
		def.Version = 1
	}
	now := time.Now()
	def.CreatedAt = now
	def.UpdatedAt = now

	row := definitionToRow(def)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("create definition: %w", err)
	}
	return nil
}

// GetDefinition 加载完整定义图；启用缓存时读穿缓存
func (r *Repository) GetDefinition(ctx context.Context, id string) (*workflow.Definition, error) {
	if r.cache != nil {
		if def, ok := r.cache.GetDefinition(ctx, id); ok {
			return def, nil
		}
	}

	var row WorkflowDefinitionRow
	err := r.db.WithContext(ctx).
		Preload("Nodes").
		Preload("Edges").
		First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get definition: %w", err)
	}

	def := rowToDefinition(&row)
	if r.cache != nil {
		r.cache.SetDefinition(ctx, def)
	}
	return def, nil
}

// ListDefinitions 列出定义（departmentID 为空时不过滤）
func (r *Repository) ListDefinitions(ctx context.Context, departmentID string) ([]workflow.Definition, error) {
	q := r.db.WithContext(ctx).Model(&WorkflowDefinitionRow{}).Order("created_at DESC")
	if departmentID != "" {
		q = q.Where("department_id = ?", departmentID)
	}
	var rows []WorkflowDefinitionRow
	if err := q.Preload("Nodes").Preload("Edges").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	out := make([]workflow.Definition, 0, len(rows))
	for i := range rows {
		out = append(out, *rowToDefinition(&rows[i]))
	}
	return out, nil
}

// UpdateDefinition 整图替换更新，版本号 +1
func (r *Repository) UpdateDefinition(ctx context.Context, def *workflow.Definition) error {
	def.Version++
	def.UpdatedAt = time.Now()
	row := definitionToRow(def)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("definition_id = ?", def.ID).Delete(&WorkflowNodeRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("definition_id = ?", def.ID).Delete(&WorkflowEdgeRow{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(row).Error
	})
	if err != nil {
		return fmt.Errorf("update definition: %w", err)
	}

	if r.cache != nil {
		r.cache.InvalidateDefinition(ctx, def.ID)
	}
	return nil
}

// DeleteDefinition 删除定义及其子表行
func (r *Repository) DeleteDefinition(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("definition_id = ?", id).Delete(&WorkflowNodeRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("definition_id = ?", id).Delete(&WorkflowEdgeRow{}).Error; err != nil {
			return err
		}
		return tx.Delete(&WorkflowDefinitionRow{}, "id = ?", id).Error
	})
	if err != nil {
		return fmt.Errorf("delete definition: %w", err)
	}

	if r.cache != nil {
		r.cache.InvalidateDefinition(ctx, id)
	}
	return nil
}

// HasRunningInstances 判断定义是否有进行中的实例（更新/删除前检查）
func (r *Repository) HasRunningInstances(ctx context.Context, definitionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&WorkflowInstanceRow{}).
		Where("definition_id = ? AND status = ?", definitionID, string(workflow.InstanceInProgress)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count running instances: %w", err)
	}
	return count > 0, nil
}

// CountInstancesByStatus 按状态统计定义的实例数
func (r *Repository) CountInstancesByStatus(ctx context.Context, definitionID string) (map[workflow.InstanceStatus]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var rows []statusCount
	err := r.db.WithContext(ctx).Model(&WorkflowInstanceRow{}).
		Select("status, count(*) as count").
		Where("definition_id = ?", definitionID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count instances: %w", err)
	}
	out := make(map[workflow.InstanceStatus]int64, len(rows))
	for _, row := range rows {
		out[workflow.InstanceStatus(row.Status)] = row.Count
	}
	return out, nil
}

// ListInstancesByDefinition 列出定义的全部实例
func (r *Repository) ListInstancesByDefinition(ctx context.Context, definitionID string) ([]workflow.Instance, error) {
	var rows []WorkflowInstanceRow
	err := r.db.WithContext(ctx).
		Where("definition_id = ?", definitionID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	out := make([]workflow.Instance, 0, len(rows))
	for i := range rows {
		out = append(out, *rowToInstance(&rows[i]))
	}
	return out, nil
}

// =============================================================================
// ⚙️ workflow.Store 实现（引擎边界）
// =============================================================================

// CreateInstance 持久化新实例
func (r *Repository) CreateInstance(ctx context.Context, inst *workflow.Instance) error {
	if err := r.db.WithContext(ctx).Create(instanceToRow(inst)).Error; err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	return nil
}

// GetInstance 加载实例
func (r *Repository) GetInstance(ctx context.Context, id string) (*workflow.Instance, error) {
	var row WorkflowInstanceRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	return rowToInstance(&row), nil
}

// SaveInstance 持久化实例可变状态
func (r *Repository) SaveInstance(ctx context.Context, inst *workflow.Instance) error {
	if err := r.db.WithContext(ctx).Save(instanceToRow(inst)).Error; err != nil {
		return fmt.Errorf("save instance: %w", err)
	}
	return nil
}

// HasInstanceForSubject 同一主体记录对同一定义只允许一个实例
func (r *Repository) HasInstanceForSubject(ctx context.Context, definitionID, subjectRecordID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&WorkflowInstanceRow{}).
		Where("definition_id = ? AND subject_record_id = ?", definitionID, subjectRecordID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count instances for subject: %w", err)
	}
	return count > 0, nil
}

// OpenExecution 打开节点执行记录；挂起中的节点复用其 PENDING 记录
func (r *Repository) OpenExecution(ctx context.Context, instanceID, nodeID string) (*workflow.ExecutionRecord, error) {
	var row NodeExecutionRow
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND node_id = ? AND status = ?", instanceID, nodeID, string(workflow.ExecutionPending)).
		First(&row).Error
	if err == nil {
		return rowToExecution(&row), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find pending execution: %w", err)
	}

	rec := &workflow.ExecutionRecord{
		ID:         uuid.NewString(),
		InstanceID: instanceID,
		NodeID:     nodeID,
		Status:     workflow.ExecutionInProgress,
		StartedAt:  time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(executionToRow(rec)).Error; err != nil {
		return nil, fmt.Errorf("create execution record: %w", err)
	}
	return rec, nil
}

// CloseExecution 持久化执行记录的最终状态
func (r *Repository) CloseExecution(ctx context.Context, rec *workflow.ExecutionRecord) error {
	if err := r.db.WithContext(ctx).Save(executionToRow(rec)).Error; err != nil {
		return fmt.Errorf("close execution record: %w", err)
	}
	return nil
}

// CompletedNodeIDs 查询给定节点中已有 COMPLETED 记录的节点
func (r *Repository) CompletedNodeIDs(ctx context.Context, instanceID string, nodeIDs []string) (map[string]bool, error) {
	if len(nodeIDs) == 0 {
		return map[string]bool{}, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&NodeExecutionRow{}).
		Where("instance_id = ? AND node_id IN ? AND status = ?", instanceID, nodeIDs, string(workflow.ExecutionCompleted)).
		Distinct("node_id").
		Pluck("node_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("query completed executions: %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// CreateApproval 创建审批请求
func (r *Repository) CreateApproval(ctx context.Context, req *workflow.ApprovalRequest) error {
	if err := r.db.WithContext(ctx).Create(approvalToRow(req)).Error; err != nil {
		return fmt.Errorf("create approval request: %w", err)
	}
	return nil
}

// PendingApprovalByNode 查找 (instance, node) 的 PENDING 审批请求
func (r *Repository) PendingApprovalByNode(ctx context.Context, instanceID, nodeID string) (*workflow.ApprovalRequest, error) {
	var row ApprovalRequestRow
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND node_id = ? AND status = ?", instanceID, nodeID, string(workflow.ApprovalPending)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pending approval: %w", err)
	}
	return rowToApproval(&row), nil
}

// PendingApproval 查找 (instance, node, approver) 的 PENDING 审批请求
func (r *Repository) PendingApproval(ctx context.Context, instanceID, nodeID, approverID string) (*workflow.ApprovalRequest, error) {
	var row ApprovalRequestRow
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND node_id = ? AND approver_id = ? AND status = ?",
			instanceID, nodeID, approverID, string(workflow.ApprovalPending)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pending approval: %w", err)
	}
	return rowToApproval(&row), nil
}

// SaveApproval 持久化已决审批请求
func (r *Repository) SaveApproval(ctx context.Context, req *workflow.ApprovalRequest) error {
	if err := r.db.WithContext(ctx).Save(approvalToRow(req)).Error; err != nil {
		return fmt.Errorf("save approval request: %w", err)
	}
	return nil
}

// PendingApprovalsForApprover 列出审批人的待办请求
func (r *Repository) PendingApprovalsForApprover(ctx context.Context, approverID string) ([]workflow.ApprovalRequest, error) {
	var rows []ApprovalRequestRow
	err := r.db.WithContext(ctx).
		Where("approver_id = ? AND status = ?", approverID, string(workflow.ApprovalPending)).
		Order("requested_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	out := make([]workflow.ApprovalRequest, 0, len(rows))
	for i := range rows {
		out = append(out, *rowToApproval(&rows[i]))
	}
	return out, nil
}
