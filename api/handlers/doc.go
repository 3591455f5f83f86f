/*
Package handlers 提供 ProcurementFlow HTTP API 的请求处理器实现。

# 概述

handlers 包实现了 ProcurementFlow 所有 HTTP 端点的请求处理逻辑，
包括工作流定义管理、实例启动与审批决策、健康检查以及统一的
响应/错误处理。所有 Handler 均遵循标准 net/http 接口，
通过 Go 1.22 的路由模式变量（r.PathValue）提取路径参数。

# 核心类型

  - WorkflowHandler — 工作流定义管理：创建（含图校验）、查询、
    更新、删除、克隆、统计与实例启动。
  - InstanceHandler — 实例查询、审批决策提交与待审批列表。
  - HealthHandler   — /health、/healthz、/ready、/version 端点，
    支持注册数据库与 Redis 探活检查。

# 错误约定

所有错误经 types.Error 携带错误码，由 mapErrorCodeToHTTPStatus
统一映射到 HTTP 状态码。图校验失败返回 422，响应体携带全部
错误与警告；警告不阻断保存。
*/
package handlers
