// Copyright (c) ProcurementFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 ProcurementFlow 服务端程序入口。

# 概述

cmd/procurementflow 是 ProcurementFlow 审批流引擎的可执行入口，提供
HTTP API 服务、数据库表结构同步、健康检查和版本查询等子命令。程序支持
YAML 配置文件加载、结构化日志（zap）、Prometheus 指标采集以及
OpenTelemetry 链路追踪。

# 核心类型

  - Server           — 主服务器，管理 HTTP、Metrics 双端口及优雅关闭
  - Middleware        — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter    — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve（启动服务）、migrate（表结构同步）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    CORS、RateLimiter（基于 IP）、MetricsMiddleware、OTelTracing、
    JWTAuth（Bearer token，注入审批人身份）
  - 存储装配：gorm 数据库 + 可选 Redis 定义缓存（降级为纯数据库读取）
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 关闭 HTTP → 关闭 Metrics → 关闭缓存/数据库 → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
