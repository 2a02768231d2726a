// 版权所有 2024 ExtrudeFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package handlers 提供 ExtrudeFlow HTTP API 的请求处理器实现。

# 核心类型

  - JobHandler：任务提交、排队查询、工作者状态、结果下载与工作池边界
  - ColourHandler：颜色识别，将图像颜色映射到调色板名称
  - HealthHandler：健康检查与版本信息
  - ErrorResponse：统一错误响应（success + error + timestamp）
  - ResponseWriter：包装 http.ResponseWriter 以捕获状态码与字节数

# 主要能力

  - types.ErrorCode → HTTP 状态码映射（VALIDATION → 400，NOT_FOUND → 404 等）
  - DecodeJSONBody 严格模式解码，区分请求体过大
  - 下载 Content-Type 由文件扩展名推断：svg → image/svg+xml，其余 model/{ext}
  - 可插拔健康检查：RegisterCheck 注册 Redis ping 等检查
*/
package handlers
