package cli

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the process logger. Console output goes to console when
// it is non-nil; a rotated JSON file is added when file is non-empty.
// The editor passes a nil console because the terminal belongs to the screen.
func newLogger(cfg LogConfig, console zapcore.WriteSyncer, file string) *zap.Logger {
	level := zap.InfoLevel
	if cfg.Debug {
		level = zap.DebugLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")

	var cores []zapcore.Core
	if console != nil {
		consoleConfig := encoderConfig
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleLevel := zap.WarnLevel
		if cfg.Debug {
			consoleLevel = zap.DebugLevel
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), console, consoleLevel))
	}
	if file != "" {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), writer, level))
	}
	if len(cores) == 0 {
		return zap.NewNop()
	}

	options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
	if cfg.Debug {
		options = append(options, zap.AddCaller(), zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), options...).Named("aihub")
}
