package obs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level    string
	Pretty   bool
	App      string
	Env      string
	Ver      string
	// Outputs are zap sink paths or URLs ("stderr", "/var/log/x.log"). Empty means stderr.
	Outputs  []string
	// NoCaller drops the caller annotation, for terminal tools.
	NoCaller bool
}

func NewLogger(c LogConfig) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.Pretty {
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	}

	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = c.NoCaller

	if len(c.Outputs) > 0 {
		cfg.OutputPaths = c.Outputs
		cfg.ErrorOutputPaths = c.Outputs
	}

	fields := []zap.Field{zap.String("service", c.App)}
	if c.Env != "" {
		fields = append(fields, zap.String("env", c.Env))
	}
	if c.Ver != "" {
		fields = append(fields, zap.String("version", c.Ver))
	}
	return cfg.Build(zap.Fields(fields...))
}
