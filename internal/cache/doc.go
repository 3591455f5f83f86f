// 版权所有 2024 ProcurementFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的缓存管理能力，支持连接池管理、
JSON 序列化与工作流定义缓存。

# 概述

本包封装 go-redis 客户端，为上层业务提供统一的缓存读写接口。
Manager 负责连接生命周期管理，包括初始化、连接验证与优雅关闭。
DefinitionCache 在 Manager 之上实现工作流定义的读穿缓存，
供仓储层在 GetDefinition 热路径上使用。

# 核心类型

  - Manager：缓存管理器，持有 Redis 客户端与连接池配置，
    提供 Get/Set/Delete/Exists 等基础操作，
    以及 GetJSON/SetJSON 便捷序列化方法。
  - DefinitionCache：工作流定义缓存，实现 store.DefinitionCache
    接口。所有操作尽力而为：缓存故障不阻断业务，仓储层
    在未命中时回源数据库。

# 错误约定

  - 缓存未命中返回 ErrCacheMiss，通过 IsCacheMiss 判断。
  - DefinitionCache 不向调用方传播缓存错误，仅记录日志。
*/
package cache
