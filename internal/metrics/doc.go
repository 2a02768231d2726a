// 版权所有 2024 ExtrudeFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、任务调度、
外部工具与颜色匹配缓存四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制。所有指标按 namespace 隔离，由 /metrics 端口对外暴露。

# 核心类型

  - Collector：指标收集器，同时实现任务调度的观察者接口，
    并提供外部工具钩子与颜色缓存钩子。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 任务指标：提交数（accepted/rejected）、完成数（ok/failed）、
    处理耗时、队列深度与存活 worker 数。
  - 工具指标：convert/potrace/openscad/colorscad 调用次数与耗时。
  - 缓存指标：最近颜色查询的命中与未命中计数。
*/
package metrics
