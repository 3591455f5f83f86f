// 版权所有 2024 ProcurementFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库打开与连接池管理。

# 概述

Open 按配置的驱动（postgres / mysql / sqlite）打开 GORM 连接；
Manager 封装连接池配置、后台健康检查、事务执行与瞬态错误重试。

# 核心类型

  - Manager：连接池管理器，提供 DB()、Ping()、GetStats()、Close()。
  - TransactionFunc：事务回调函数类型；WithTransactionRetry 对死锁、
    序列化失败等瞬态错误做指数退避重试。
*/
package database
