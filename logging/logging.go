// Package logging defines the Logger interface used by the consensus engine and its components.
// It also includes functions for setting the global log level and a per-package log level.
package logging

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logLevel      = zapcore.InfoLevel
	packageLevels = make(map[string]zapcore.Level)
	mut           sync.RWMutex
)

// ParseLevel converts a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel, nil
	case "info":
		return zap.InfoLevel, nil
	case "warn":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	case "panic":
		return zap.PanicLevel, nil
	case "fatal":
		return zap.FatalLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("invalid log level '%s'", level)
	}
}

// SetLogLevel sets the global log level.
func SetLogLevel(levelStr string) error {
	level, err := ParseLevel(levelStr)
	if err != nil {
		return err
	}
	mut.Lock()
	logLevel = level
	mut.Unlock()
	return nil
}

// SetPackageLogLevel sets a log level for a package, overriding the global level.
// The package name is matched against the path of the calling source file.
func SetPackageLogLevel(packageName, levelStr string) error {
	level, err := ParseLevel(levelStr)
	if err != nil {
		return err
	}
	mut.Lock()
	packageLevels[packageName] = level
	mut.Unlock()
	return nil
}

// Logger is the logging interface used by the engine. It is based on zap.SugaredLogger.
type Logger interface {
	Debug(args ...any)
	Debugf(template string, args ...any)
	Debugw(msg string, keysAndValues ...any)
	Info(args ...any)
	Infof(template string, args ...any)
	Infow(msg string, keysAndValues ...any)
	Warn(args ...any)
	Warnf(template string, args ...any)
	Warnw(msg string, keysAndValues ...any)
	Error(args ...any)
	Errorf(template string, args ...any)
	Errorw(msg string, keysAndValues ...any)
	// With returns a logger that adds the given key-value pairs to every entry.
	With(keysAndValues ...any) Logger
}

type wrapper struct {
	inner *zap.SugaredLogger
	level zap.AtomicLevel
	mut   *sync.Mutex
}

// apply adjusts the level to the calling package, then logs under the wrapper's lock.
func (wr *wrapper) apply(log func(*zap.SugaredLogger)) {
	wr.mut.Lock()
	defer wr.mut.Unlock()
	wr.updateLevel()
	log(wr.inner)
}

func (wr *wrapper) updateLevel() {
	mut.RLock()
	defer mut.RUnlock()

	if len(packageLevels) > 0 {
		// skip updateLevel, apply and the exported method
		if _, file, _, ok := runtime.Caller(3); ok {
			for k, v := range packageLevels {
				if strings.Contains(file, k) {
					wr.level.SetLevel(v)
					return
				}
			}
		}
	}
	wr.level.SetLevel(logLevel)
}

func (wr *wrapper) Debug(args ...any) {
	wr.apply(func(l *zap.SugaredLogger) { l.Debug(args...) })
}

func (wr *wrapper) Debugf(template string, args ...any) {
	wr.apply(func(l *zap.SugaredLogger) { l.Debugf(template, args...) })
}

func (wr *wrapper) Debugw(msg string, keysAndValues ...any) {
	wr.apply(func(l *zap.SugaredLogger) { l.Debugw(msg, keysAndValues...) })
}

func (wr *wrapper) Info(args ...any) {
	wr.apply(func(l *zap.SugaredLogger) { l.Info(args...) })
}

func (wr *wrapper) Infof(template string, args ...any) {
	wr.apply(func(l *zap.SugaredLogger) { l.Infof(template, args...) })
}

func (wr *wrapper) Infow(msg string, keysAndValues ...any) {
	wr.apply(func(l *zap.SugaredLogger) { l.Infow(msg, keysAndValues...) })
}

func (wr *wrapper) Warn(args ...any) {
	wr.apply(func(l *zap.SugaredLogger) { l.Warn(args...) })
}

func (wr *wrapper) Warnf(template string, args ...any) {
	wr.apply(func(l *zap.SugaredLogger) { l.Warnf(template, args...) })
}

func (wr *wrapper) Warnw(msg string, keysAndValues ...any) {
	wr.apply(func(l *zap.SugaredLogger) { l.Warnw(msg, keysAndValues...) })
}

func (wr *wrapper) Error(args ...any) {
	wr.apply(func(l *zap.SugaredLogger) { l.Error(args...) })
}

func (wr *wrapper) Errorf(template string, args ...any) {
	wr.apply(func(l *zap.SugaredLogger) { l.Errorf(template, args...) })
}

func (wr *wrapper) Errorw(msg string, keysAndValues ...any) {
	wr.apply(func(l *zap.SugaredLogger) { l.Errorw(msg, keysAndValues...) })
}

func (wr *wrapper) With(keysAndValues ...any) Logger {
	return &wrapper{inner: wr.inner.With(keysAndValues...), level: wr.level, mut: wr.mut}
}

// New returns a new logger for stderr with the given name.
// Setting POC_LOG_TYPE=json selects the production JSON encoder.
func New(name string) Logger {
	var config zap.Config
	if strings.ToLower(os.Getenv("POC_LOG_TYPE")) == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}
	mut.RLock()
	config.Level.SetLevel(logLevel)
	mut.RUnlock()
	// skip the closure, apply and the exported method
	l, err := config.Build(zap.AddCallerSkip(3))
	if err != nil {
		panic(err)
	}
	return &wrapper{inner: l.Sugar().Named(name), level: config.Level, mut: new(sync.Mutex)}
}

// NewWithDest returns a new logger for the given destination with the given name.
func NewWithDest(dest io.Writer, name string) Logger {
	mut.RLock()
	atom := zap.NewAtomicLevelAt(logLevel)
	mut.RUnlock()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(dest), atom)
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(3))
	return &wrapper{inner: l.Sugar().Named(name), level: atom, mut: new(sync.Mutex)}
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &wrapper{inner: zap.NewNop().Sugar(), level: zap.NewAtomicLevel(), mut: new(sync.Mutex)}
}
