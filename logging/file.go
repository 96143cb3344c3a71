package logging

import (
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileAppender writes JSON log lines to a file that is rotated once it grows past MaxSize megabytes.
type FileAppender struct {
	zapcore.Core
	file *lumberjack.Logger
}

// NewFileAppender returns an appender writing to path. Rotated files are compressed and only the three
// newest are kept.
func NewFileAppender(path string) *FileAppender {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 3,
		Compress:   true,
	}
	config := NewLoggerConfig().EncoderConfig
	config.EncodeLevel = zapcore.CapitalLevelEncoder
	return &FileAppender{
		Core: zapcore.NewCore(zapcore.NewJSONEncoder(config), zapcore.AddSync(file), zapcore.DebugLevel),
		file: file,
	}
}

// Close closes the current log file.
func (fa *FileAppender) Close() error {
	return fa.file.Close()
}
