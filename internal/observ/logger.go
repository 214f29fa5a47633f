package observ

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a JSON production logger when env is "production" and a
// console development logger otherwise. An unknown level falls back to info.
//
// Why two encoders?
//   - Production output goes to a log shipper, so every line is one JSON
//     object with stable keys (job_id, user_id, error).
//   - Development output is read by a person in a terminal, so it is
//     colourless console text with caller and stack traces on warnings.
//
// Every entry carries service=guardpost so lines from the API and the
// realtime broker can be filtered together when they share a sink.
func NewLogger(env, level string) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	return config.Build(zap.Fields(zap.String("service", "guardpost")))
}
