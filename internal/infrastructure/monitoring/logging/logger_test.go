package logging

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/chemindex/pkg/errors"
)

func newObservedLogger(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := NewLogger(LogConfig{Level: "debug", Format: format, OutputPaths: []string{"stdout"}})
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}
}

func TestNewLogger_BadOutputPath(t *testing.T) {
	l, err := NewLogger(LogConfig{OutputPaths: []string{"/nonexistent-dir/sub/chemindex.log"}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"INFO":  zapcore.InfoLevel,
		"":      zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestZapLogger_LevelsAndFields(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	l.Debug("debug msg", String(FieldKind, "molecule"))
	l.Info("info msg", Int("count", 3))
	l.Warn("warn msg", Bool("skipped", true))
	l.Error("error msg", Err(stderrors.New("boom")))

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "molecule", entries[0].ContextMap()[FieldKind])
	assert.Equal(t, int64(3), entries[1].ContextMap()["count"])
	assert.Equal(t, true, entries[2].ContextMap()["skipped"])
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	l, logs := newObservedLogger(zapcore.InfoLevel)

	l.Named("indexing").With(String(FieldIndex, "chem-molecules")).Info("indexed")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "indexing", entries[0].LoggerName)
	assert.Equal(t, "chem-molecules", entries[0].ContextMap()[FieldIndex])
}

func TestErrCode(t *testing.T) {
	ae := errors.New(errors.ErrCodeSanitizationFailed, "empty template")
	assert.Equal(t, Field{Key: "error_code", Value: "REC_003"}, ErrCode(ae))
	assert.Equal(t, Field{Key: "error_code", Value: "UNKNOWN"}, ErrCode(stderrors.New("plain")))
	assert.Equal(t, Field{Key: "error", Value: "<nil>"}, Err(nil))
}

func TestToZapFields_Types(t *testing.T) {
	fields := toZapFields([]Field{
		String("s", "v"),
		Strings("ss", []string{"a"}),
		Int64("i", 1),
		Float64("f", 1.5),
		Duration("d", time.Second),
		Any("e", stderrors.New("x")),
		Any("m", map[string]int{"a": 1}),
	})
	require.Len(t, fields, 7)
	assert.Equal(t, zap.String("s", "v"), fields[0])
	assert.Equal(t, zapcore.DurationType, fields[4].Type)
	assert.Equal(t, zapcore.ErrorType, fields[5].Type)
}

func TestLogOperationDuration(t *testing.T) {
	l, logs := newObservedLogger(zapcore.InfoLevel)

	LogOperationDuration(l, "bulk_index", time.Now())
	LogOperationDuration(l, "export", time.Now().Add(-2*time.Second))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "operation completed", entries[0].Message)
	assert.Equal(t, "slow operation", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "export", entries[1].ContextMap()["operation"])
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Debug("msg")
		l.Info("msg")
		l.Warn("msg")
		l.Error("msg")
		l.Fatal("msg")
	})
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.Named("x"))
	assert.NoError(t, l.Sync())
}

func TestDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	l, _ := newObservedLogger(zapcore.InfoLevel)
	SetDefault(l)
	assert.Equal(t, l, Default())

	SetDefault(nil)
	assert.Equal(t, l, Default())
}

//Personal.AI order the ending
