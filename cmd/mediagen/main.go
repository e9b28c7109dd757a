// =============================================================================
// mediagen 主入口
// =============================================================================
// 多提供商视频生成对比工具
//
// 使用方法:
//
//	mediagen compare "a fairy dinosaur"          # 用默认模型对比
//	mediagen compare -m veo-3.1,p-video "prompt" # 指定模型
//	mediagen models                              # 列出模型与预估价格
//	mediagen upload ./out/a.mp4 demo/a.mp4       # 上传到对象存储
//	mediagen ledger spend --since 168h           # 按模型统计花费
//	mediagen version                             # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
