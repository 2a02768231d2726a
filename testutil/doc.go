// Copyright (c) ExtrudeFlow Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 ExtrudeFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，避免重复实现
相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 图像构造: Fill / Solid / Stripes 生成测试图像，PNG / PNGBase64 编码
  - 异步断言: AssertEventuallyTrue / WaitFor / WaitForChannel
  - 数据工具: MustJSON / MustParseJSON

# 子包

  - testutil/mocks: 外部工具的模拟实现，MockTracer（矢量化）与
    MockEngine（几何引擎），记录调用并支持错误注入

# 使用示例

	ctx := testutil.TestContext(t)
	engine := mocks.NewMockEngine().WithOutput(convert.Format3MF, []byte("3mf"))
	data, err := engine.Render(ctx, convert.Render{Format: convert.Format3MF})
*/
package testutil
