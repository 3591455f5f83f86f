// Package config 提供 ProcurementFlow 的统一配置管理。
//
// 支持三层配置来源（优先级从低到高）：
//  1. 内置默认值（DefaultConfig）
//  2. YAML 配置文件
//  3. 环境变量（前缀 PROCUREMENTFLOW_）
package config
