// 版权所有 2024 ProcurementFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 store 提供工作流定义、实例、节点执行记录与审批请求的 GORM 持久化。

# 概述

本包通过 Repository 实现引擎的 workflow.Store 边界：图结构（节点、边）
以子表行存储，实例的变量表 / 活动节点 / 审计历史以 JSON 列存储。
挂起节点的 PENDING 执行记录由 OpenExecution 复用，保证 join 节点
重新派发时不产生重复记录。

# 核心类型

  - Repository：仓储实现，包含定义 CRUD、实例状态读写、
    执行记录查询与审批请求管理。
  - DefinitionCache：可选的定义读穿缓存边界（由 internal/cache 实现）。

# 约定

不存在的行返回 (nil, nil)；error 只用于基础设施故障。
业务层（引擎、handlers）负责把缺失行翻译为 types.Error。
*/
package store
