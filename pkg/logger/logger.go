package logger

import (
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 全局日志实例，默认 Nop，进程启动时由 InitLogger 替换
// 单元测试无需初始化即可安全调用
var Log = zap.NewNop()

// InitLogger 初始化 zap 日志
// debug 模式下输出 console 格式，生产环境输出 JSON
func InitLogger(debug bool) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	var err error
	Log, err = cfg.Build(zap.AddCallerSkip(0))
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
}

// Sync 刷新缓冲区（程序退出前调用）
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
