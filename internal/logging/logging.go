package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options describes where and how much to log.
type Options struct {
	Level  string
	File   string
	Format string
}

// New builds the server logger: console output, teed into a rotated file
// when File is set.
func New(opts Options) (*zap.Logger, error) {
	return build(opts, os.Stdout)
}

// NewFileOnly builds a logger that never touches the terminal. Without a
// File it discards everything.
func NewFileOnly(opts Options) (*zap.Logger, error) {
	if strings.TrimSpace(opts.File) == "" {
		return zap.NewNop(), nil
	}
	return build(opts, nil)
}

// NewWriter logs JSON lines to w. Tests use it to inspect output.
func NewWriter(opts Options, w io.Writer) (*zap.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(w), level)
	return zap.New(core), nil
}

func build(opts Options, console io.Writer) (*zap.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig())
	var cores []zapcore.Core

	if console != nil {
		consoleEncoder := jsonEncoder
		if strings.EqualFold(opts.Format, "console") {
			consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		}
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(console)), level))
	}

	if file := strings.TrimSpace(opts.File); file != "" {
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.MessageKey = "message"
	cfg.LevelKey = "level"
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func parseLevel(value string) (zapcore.Level, error) {
	if strings.TrimSpace(value) == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(value)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", value, err)
	}
	return level, nil
}
