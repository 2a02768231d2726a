// 版权所有 2024 ExtrudeFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的连接管理能力，供跨进程共享的任务结果表使用。

# 概述

本包封装 go-redis 客户端，负责连接生命周期管理，包括初始化、
健康检查与优雅关闭，并提供结果表所需的哈希原子操作。
支持可选 TLS 加密连接（internal/tlsutil）。

# 核心类型

  - Manager：连接管理器，持有 Redis 客户端与连接池配置。
  - Config：配置，包含地址、密码、连接池大小、TLS 开关与健康检查间隔。

# 主要能力

  - HashSet：事务内写入多个哈希的同名字段。
  - HashTake：MULTI 内 HGET + HDEL，保证结果只被取走一次。
  - HashAll：读取整个哈希，用于结果摘要。
  - 健康检查：后台定时 Ping，异常时通过 zap 日志告警。
  - 错误语义：ErrMiss / ErrClosed 哨兵错误。
*/
package cache
