// Copyright (c) mediagen Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 mediagen 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout，自动注册 Cleanup
  - 文件辅助: WriteFile / AssertFileNonEmpty / ReadJSON
  - 重试与环境: FastRetryPolicy / EnvMap

# 子包

  - testutil/mocks: MockGenerator（video.Generator）与 MockUploader
    （storage.Uploader），支持 Builder 模式与错误注入

# 使用示例

	ctx := testutil.TestContext(t)
	gen := mocks.NewMockGenerator("fake").WithRate(0.02)
	res, err := gen.Generate(ctx, &video.Request{Prompt: "p", OutputPath: out})
*/
package testutil
