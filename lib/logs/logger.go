package logs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Logger    zerolog.Logger
	ZapLogger = zap.NewNop()
)

// Config describes where logs go.
//
//	Type:  "stdout"|"file"|"both"|"off"
//	Level: "trace"|"debug"|"info"|"warn"|"error"|"fatal"|"panic"|"off"
//	Path:  file path, required for file/both
//	MaxSize in MB, MaxAge in days
type Config struct {
	Type       string
	Level      string
	Path       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
	Color      bool
}

func parseLevel(level string) (zerolog.Level, zapcore.Level) {
	switch strings.ToLower(level) {
	case "0", "off", "disabled":
		return zerolog.Disabled, zapcore.InvalidLevel
	case "1", "panic", "emergency":
		return zerolog.PanicLevel, zapcore.PanicLevel
	case "2", "fatal", "critical":
		return zerolog.FatalLevel, zapcore.FatalLevel
	case "3", "error", "alert":
		return zerolog.ErrorLevel, zapcore.ErrorLevel
	case "4", "warn", "warning":
		return zerolog.WarnLevel, zapcore.WarnLevel
	case "6", "debug":
		return zerolog.DebugLevel, zapcore.DebugLevel
	case "7", "trace":
		return zerolog.TraceLevel, zapcore.DebugLevel
	default:
		return zerolog.InfoLevel, zapcore.InfoLevel
	}
}

func fileEnabled(path string) bool {
	return path != "" &&
		!strings.EqualFold(path, "off") &&
		!strings.EqualFold(path, "false") &&
		!strings.EqualFold(path, "docker") &&
		path != "/dev/null"
}

// Init initializes the global zerolog logger and the zap logger bridged into it.
func Init(cfg Config) {
	lvl, zapLvl := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(cfg.Type, "off") || lvl == zerolog.Disabled {
		Logger = zerolog.Nop()
		ZapLogger = zap.NewNop()
		return
	}

	var writers []io.Writer
	if strings.EqualFold(cfg.Type, "stdout") || strings.EqualFold(cfg.Type, "both") {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: zerolog.TimeFieldFormat,
			NoColor:    !cfg.Color,
		})
	}
	if (strings.EqualFold(cfg.Type, "file") || strings.EqualFold(cfg.Type, "both")) && fileEnabled(cfg.Path) {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		})
	}
	InitWithWriter(zerolog.MultiLevelWriter(writers...), zapLvl)
}

// InitWithWriter sends every log line to w, tests use it to capture output.
func InitWithWriter(w io.Writer, zapLvl zapcore.Level) {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	Logger = zerolog.New(w).
		With().
		Timestamp().
		CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 1).
		Logger()

	encoderCfg := zapcore.EncoderConfig{
		MessageKey:  "message",
		LevelKey:    "level",
		LineEnding:  zapcore.DefaultLineEnding,
		EncodeLevel: zapcore.CapitalLevelEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(zapAdapter{}), zapLvl)
	ZapLogger = zap.New(core)
	zap.ReplaceGlobals(ZapLogger)
}

func Trace(msg string, v ...interface{}) { Logger.Trace().Msgf(msg, v...) }
func Debug(msg string, v ...interface{}) { Logger.Debug().Msgf(msg, v...) }
func Info(msg string, v ...interface{})  { Logger.Info().Msgf(msg, v...) }
func Warn(msg string, v ...interface{})  { Logger.Warn().Msgf(msg, v...) }
func Error(msg string, v ...interface{}) { Logger.Error().Msgf(msg, v...) }
func Fatal(msg string, v ...interface{}) { Logger.Fatal().Msgf(msg, v...) }

// Printf lets the logger serve as an ants pool logger
func Printf(msg string, v ...interface{}) { Logger.Printf(msg, v...) }

// SetLevel updates the global minimum level
func SetLevel(levelStr string) {
	if lvl, err := zerolog.ParseLevel(strings.ToLower(levelStr)); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
}

// PoolLogger adapts the package to the Printf-only logger interface used by ants.
type PoolLogger struct{}

func (PoolLogger) Printf(format string, args ...interface{}) { Warn(format, args...) }

// zapAdapter re-emits zap console lines ("LEVEL\tmessage\tfields") through zerolog.
type zapAdapter struct{}

func (zapAdapter) Write(p []byte) (n int, err error) {
	s := strings.TrimSuffix(string(p), zapcore.DefaultLineEnding)
	levelStr, msg := "INFO", s
	if parts := strings.SplitN(s, "\t", 2); len(parts) == 2 {
		levelStr, msg = parts[0], parts[1]
	}
	switch levelStr {
	case "DEBUG":
		Logger.Debug().Msg(msg)
	case "WARN", "WARNING":
		Logger.Warn().Msg(msg)
	case "ERROR":
		Logger.Error().Msg(msg)
	case "DPANIC", "PANIC":
		Logger.Panic().Msg(msg)
	case "FATAL":
		Logger.Fatal().Msg(msg)
	default:
		Logger.Info().Msg(msg)
	}
	return len(p), nil
}

func (zapAdapter) Sync() error { return nil }
