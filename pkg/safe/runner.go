package safe

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"

	"tradepost.com/pkg/logger"
)

// GoCtx 启动后台协程，panic 时记日志而不是拖垮进程。
// ctx 里的 request_id / trace_id 会带进日志。
func GoCtx(ctx context.Context, name string, fn func(ctx context.Context)) {
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		defer Recover(ctx, name)
		fn(ctx)
	}()
}

// Recover 在 defer 里调用
func Recover(ctx context.Context, name string) {
	if r := recover(); r != nil {
		logger.Error(ctx, "goroutine panic recovered",
			zap.String("goroutine", name),
			zap.Any("panic", r),
			zap.ByteString("stack", debug.Stack()),
		)
	}
}
