// Package logging builds the zap logger shared by every searchcore
// component, following the teacher's cmd/agentflow/main.go initLogger (SPEC_FULL.md
// §4.14).
package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shacharon/searchcore/internal/config"
)

// New builds a zap logger from cfg, wrapped in a sampling core so
// high-frequency repeated events (llm_start/llm_end under load) don't
// flood output.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}

	tick := cfg.SampleTick
	if tick <= 0 {
		tick = time.Second
	}
	first := cfg.SampleFirst
	if first <= 0 {
		first = 100
	}
	after := cfg.SampleAfter
	if after <= 0 {
		after = 100
	}
	opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		sampled, _ := zapcore.NewSamplerWithOptions(core, tick, first, after)
		return sampled
	}))

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// SlowCall returns the zap fields of an LLM log line (durationMs in whole
// milliseconds), adding slow=true when d exceeds threshold; Level picks the
// matching Debug/Info level, per §4.1's telemetry rule.
func SlowCall(purpose string, d, threshold time.Duration) []zap.Field {
	fields := []zap.Field{
		zap.String("purpose", purpose),
		zap.Int64("durationMs", d.Milliseconds()),
	}
	if d > threshold {
		fields = append(fields, zap.Bool("slow", true))
	}
	return fields
}

// Level picks the log level a call should be emitted at, given whether it
// exceeded its slow threshold.
func Level(logger *zap.Logger, slow bool) func(string, ...zap.Field) {
	if slow {
		return logger.Info
	}
	return logger.Debug
}
