// 版权所有 2024 ExtrudeFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package main 提供 ExtrudeFlow 服务端程序入口。

# 概述

cmd/extrudeflow 将图像转换流水线、任务调度器与 HTTP API 组装为一个
可执行程序，提供 serve、health、version 子命令。配置由 YAML 文件与
EXTRUDEFLOW_* 环境变量加载，日志使用 zap，指标通过独立端口暴露。

# 核心类型

  - Server：组装转换流水线、jobs.Manager、API 与 Metrics 双端口，负责优雅关闭
  - Middleware：HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 路由：/job/submit/、/job/current/、/job/complete/、/job/workers/、
    /job/download/、/job/config/、/colouridentify/、/health、/version
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    MetricsMiddleware、RequestLogger、CORS、RateLimiter（基于 IP）、MaxBody
  - /job/config/ 写操作由 APIKeyAuth（X-API-Key）单独保护
  - 配置热重载：config.Watcher 检测文件变更后更新工作池边界
  - 结果表：启用 Redis 时使用 jobs.RedisStore，否则为内存表
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
