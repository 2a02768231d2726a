// Copyright (c) ExtrudeFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 ExtrudeFlow 服务的全局共享错误类型。

# 概述

types 是最底层的公共包，不依赖任何内部包。colour、convert、jobs 与
api/handlers 通过同一套 Error / ErrorCode 传递失败原因，HTTP 层据此
映射状态码，作业层据此生成失败摘要。

# 错误码

  - ErrValidation：作业字段缺失或取值非法
  - ErrEmptyInput：颜色通道或图像中没有可打印的区域
  - ErrUnknownType：不支持的输出类型
  - ErrToolFailure：外部矢量化或 CAD 工具执行失败（携带 Tool 名称）
  - ErrInternal：未分类的内部错误
  - ErrNotFound / ErrUnavailable / ErrUnauthorized / ErrRateLimited：传输层错误

# 主要能力

  - 构造：NewError / ValidationError / EmptyInputError / ToolFailureError
  - 链式补充：WithCause / WithTool
  - 判定：GetErrorCode / IsCode / Message（兼容 errors.As 包装链）
*/
package types
