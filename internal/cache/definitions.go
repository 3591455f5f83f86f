// 版权所有 2024 ProcurementFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/wideshreck/procurementflow-backend/internal/store"
	"github.com/wideshreck/procurementflow-backend/workflow"
)

// =============================================================================
// 📋 工作流定义缓存
// =============================================================================

// definitionKeyPrefix 工作流定义缓存键前缀
const definitionKeyPrefix = "procurementflow:definition:"

// HitRecorder 接收缓存命中/未命中计数
type HitRecorder interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

// DefinitionCache 基于 Redis 的工作流定义缓存。
// 所有操作均为尽力而为：缓存故障只记录日志，不向调用方传播，
// 仓储层在未命中时回源数据库。
type DefinitionCache struct {
	mgr     *Manager
	metrics HitRecorder
	logger  *zap.Logger
}

var _ store.DefinitionCache = (*DefinitionCache)(nil)

// DefinitionCacheOption 定义缓存选项
type DefinitionCacheOption func(*DefinitionCache)

// WithHitRecorder 设置命中率采集器
func WithHitRecorder(r HitRecorder) DefinitionCacheOption {
	return func(c *DefinitionCache) { c.metrics = r }
}

// NewDefinitionCache 创建工作流定义缓存
func NewDefinitionCache(mgr *Manager, logger *zap.Logger, opts ...DefinitionCacheOption) *DefinitionCache {
	c := &DefinitionCache{
		mgr:    mgr,
		logger: logger.With(zap.String("component", "definition_cache")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetDefinition 读取缓存的工作流定义；未命中或反序列化失败时返回 false
func (c *DefinitionCache) GetDefinition(ctx context.Context, id string) (*workflow.Definition, bool) {
	var def workflow.Definition
	err := c.mgr.GetJSON(ctx, definitionKeyPrefix+id, &def)
	if err != nil {
		if !IsCacheMiss(err) {
			c.logger.Warn("definition cache read failed",
				zap.String("definition_id", id), zap.Error(err))
		}
		if c.metrics != nil {
			c.metrics.RecordCacheMiss("definition")
		}
		return nil, false
	}

	if c.metrics != nil {
		c.metrics.RecordCacheHit("definition")
	}
	return &def, true
}

// SetDefinition 写入工作流定义，使用配置的默认 TTL
func (c *DefinitionCache) SetDefinition(ctx context.Context, def *workflow.Definition) {
	if def == nil || def.ID == "" {
		return
	}
	if err := c.mgr.SetJSON(ctx, definitionKeyPrefix+def.ID, def, 0); err != nil {
		c.logger.Warn("definition cache write failed",
			zap.String("definition_id", def.ID), zap.Error(err))
	}
}

// InvalidateDefinition 删除缓存的工作流定义
func (c *DefinitionCache) InvalidateDefinition(ctx context.Context, id string) {
	if err := c.mgr.Delete(ctx, definitionKeyPrefix+id); err != nil {
		c.logger.Warn("definition cache invalidate failed",
			zap.String("definition_id", id), zap.Error(err))
	}
}
