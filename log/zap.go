// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// DefaultLogger writes info and above to stdout.
	DefaultLogger = NewZap(InfoLevel, os.Stdout)
	// DebugLogger writes every entry to stdout.
	DebugLogger = NewZap(DebugLevel, os.Stdout)
)

// Zap is the Logger backed by a zap sugared logger writing JSON lines with
// ISO8601 timestamps. Its level can be changed at runtime with SetLevel and
// the change applies to every logger derived with With.
type Zap struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

var _ Logger = (*Zap)(nil)

// NewZap creates a Zap writing to writers, stdout when none is given. An
// unknown level logs everything.
func NewZap(level Level, writers ...io.Writer) *Zap {
	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}
	sinks := make([]zapcore.WriteSyncer, len(writers))
	for i, writer := range writers {
		sinks[i] = zapcore.AddSync(writer)
	}

	atomicLevel := zap.NewAtomicLevelAt(zapLevel(level))
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zap.CombineWriteSyncers(sinks...), atomicLevel)
	// skip the Zap method frame so that callers are reported
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.PanicLevel))
	return &Zap{sugar: logger.Sugar(), level: atomicLevel}
}

func (z *Zap) Debug(v ...any)                 { z.sugar.Debug(v...) }
func (z *Zap) Debugf(format string, v ...any) { z.sugar.Debugf(format, v...) }
func (z *Zap) Info(v ...any)                  { z.sugar.Info(v...) }
func (z *Zap) Infof(format string, v ...any)  { z.sugar.Infof(format, v...) }
func (z *Zap) Warn(v ...any)                  { z.sugar.Warn(v...) }
func (z *Zap) Warnf(format string, v ...any)  { z.sugar.Warnf(format, v...) }
func (z *Zap) Error(v ...any)                 { z.sugar.Error(v...) }
func (z *Zap) Errorf(format string, v ...any) { z.sugar.Errorf(format, v...) }
func (z *Zap) Fatal(v ...any)                 { z.sugar.Fatal(v...) }
func (z *Zap) Fatalf(format string, v ...any) { z.sugar.Fatalf(format, v...) }
func (z *Zap) Panic(v ...any)                 { z.sugar.Panic(v...) }
func (z *Zap) Panicf(format string, v ...any) { z.sugar.Panicf(format, v...) }

// LogLevel implements Logger.
func (z *Zap) LogLevel() Level {
	for level := range Level(numLogLevels) {
		if zapLevel(level) == z.level.Level() {
			return level
		}
	}
	return InvalidLevel
}

// SetLevel changes the minimum level written by z and its children.
func (z *Zap) SetLevel(level Level) {
	z.level.SetLevel(zapLevel(level))
}

// With implements Logger.
func (z *Zap) With(keyValues ...any) Logger {
	fields := toFields(keyValues)
	if len(fields) == 0 {
		return z
	}
	return &Zap{sugar: z.sugar.Desugar().With(fields...).Sugar(), level: z.level}
}

// Sync flushes buffered entries.
func (z *Zap) Sync() error {
	return z.sugar.Sync()
}

func toFields(keyValues []any) []zap.Field {
	fields := make([]zap.Field, 0, len(keyValues)/2+1)
	for len(keyValues) > 0 {
		if len(keyValues) == 1 {
			fields = append(fields, zap.Any("_", keyValues[0]))
			break
		}
		if key, ok := keyValues[0].(string); ok {
			fields = append(fields, zap.Any(key, keyValues[1]))
		}
		keyValues = keyValues[2:]
	}
	return fields
}

func encoderConfig() zapcore.EncoderConfig {
	config := zap.NewProductionEncoderConfig()
	config.TimeKey = "ts"
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncodeDuration = zapcore.StringDurationEncoder
	config.EncodeLevel = zapcore.LowercaseLevelEncoder
	return config
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case InfoLevel:
		return zapcore.InfoLevel
	case WarningLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	case PanicLevel:
		return zapcore.PanicLevel
	default:
		return zapcore.DebugLevel
	}
}
