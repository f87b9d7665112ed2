package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// 定义不同级别的日志记录器
	InfoLogger    *log.Logger
	WarningLogger *log.Logger
	ErrorLogger   *log.Logger

	setupOnce sync.Once
)

// Options 日志配置
type Options struct {
	Dir        string // 日志目录，默认 logs
	MaxSizeMB  int    // 单个文件最大大小
	MaxBackups int    // 保留的旧文件数量
	MaxAgeDays int    // 旧文件保留天数
	Quiet      bool   // 不输出到控制台，只写文件
}

// SetupLogger 使用默认参数初始化日志配置
func SetupLogger() error {
	return SetupLoggerWithOptions(Options{})
}

// SetupLoggerWithOptions 初始化日志配置：同时输出到控制台和按日期命名的滚动文件
func SetupLoggerWithOptions(opts Options) error {
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if opts.MaxSizeMB == 0 {
		opts.MaxSizeMB = 50
	}
	if opts.MaxBackups == 0 {
		opts.MaxBackups = 7
	}
	if opts.MaxAgeDays == 0 {
		opts.MaxAgeDays = 30
	}

	// 创建日志目录
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return fmt.Errorf("创建日志目录失败: %v", err)
	}

	// 生成当前日期的日志文件名
	logFileName := filepath.Join(opts.Dir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))
	rotator := &lumberjack.Logger{
		Filename:   logFileName,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}

	var out io.Writer = rotator
	if !opts.Quiet {
		out = io.MultiWriter(os.Stdout, rotator)
	}
	setWriter(out)
	return nil
}

// setWriter 初始化不同级别的日志记录器
func setWriter(out io.Writer) {
	InfoLogger = log.New(out, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	WarningLogger = log.New(out, "WARNING: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLogger = log.New(out, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
}

// ensure 未调用SetupLogger时（例如单元测试）退回到标准错误输出
func ensure() {
	setupOnce.Do(func() {
		if InfoLogger == nil {
			setWriter(os.Stderr)
		}
	})
}

// Info 记录信息级别的日志
func Info(format string, v ...interface{}) {
	ensure()
	InfoLogger.Output(2, fmt.Sprintf(format, v...))
}

// Warning 记录警告级别的日志
func Warning(format string, v ...interface{}) {
	ensure()
	WarningLogger.Output(2, fmt.Sprintf(format, v...))
}

// Error 记录错误级别的日志
func Error(format string, v ...interface{}) {
	ensure()
	ErrorLogger.Output(2, fmt.Sprintf(format, v...))
}
