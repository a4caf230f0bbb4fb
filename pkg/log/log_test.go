package log

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

func TestLoggerInterface(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationTune)
	testLogger.Warn("warning message", "warning_code", "TEST_WARNING")
	testLogger.Error("error message", fmt.Errorf("test error"), ErrorCodeKey, "TEST_ERROR")

	require.NotEmpty(t, buffer.String())
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		assert.True(t, testLogger.ContainsMessage(msg), "missing %q", msg)
	}
	assert.True(t, testLogger.ContainsField("key1", "value1"))
	assert.True(t, testLogger.ContainsField("number", 42.0))
	assert.True(t, testLogger.ContainsField("error", "test error"))
	assert.True(t, testLogger.ContainsField(ErrorCodeKey, "TEST_ERROR"))
}

func TestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	contextLogger := testLogger.With(
		ModelFamilyKey, "xgboost",
		ProblemTypeKey, "regression",
	)
	contextLogger.Info("contextual message", OperationKey, OperationFit)

	assert.True(t, testLogger.ContainsField(ModelFamilyKey, "xgboost"))
	assert.True(t, testLogger.ContainsField(ProblemTypeKey, "regression"))
	assert.True(t, testLogger.ContainsField(OperationKey, OperationFit))
}

func TestLoggerEnabled(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	ctx := context.Background()

	assert.True(t, testLogger.Enabled(ctx, LevelInfo))
	assert.True(t, testLogger.Enabled(ctx, LevelError))
	assert.False(t, testLogger.Enabled(ctx, LevelDebug))

	testLogger.Debug("this should not appear")
	testLogger.Info("this should appear")

	assert.False(t, testLogger.ContainsMessage("this should not appear"))
	assert.True(t, testLogger.ContainsMessage("this should appear"))
}

func TestErrorLoggingCarriesStackAndDetails(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelError)

	testLogger.Error("Tuning failed",
		errors.NewUnsupportedModelError("randomforest"),
		StageKey, "tune",
	)

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "error", entry["level"])
	assert.Contains(t, entry["error"], "randomforest")
	assert.Contains(t, entry[StacktraceKey], "log_test.go")

	details, ok := entry[ErrorDetailsKey].(map[string]interface{})
	require.True(t, ok, "typed error fields should be embedded")
	assert.Equal(t, "UnsupportedModelError", details["type"])
}

func TestLoggerProviderIntegration(t *testing.T) {
	provider, logger := NewTestLoggerProvider(LevelDebug)
	SetProvider(provider)
	defer SetupLoggerTo(&bytes.Buffer{}, "info", false) //nolint:errcheck

	GetLogger().Info("provider test message")
	GetLoggerWithName("intervals").Info("named logger message")

	assert.True(t, logger.ContainsMessage("provider test message"))
	assert.True(t, logger.ContainsField(ComponentKey, "intervals"))
}

func TestSetupLoggerTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupLoggerTo(&buf, "warn", false))
	defer SetupLoggerTo(&bytes.Buffer{}, "info", false) //nolint:errcheck

	logger := GetLoggerWithName("training")
	logger.Info("hidden")
	logger.Warn("shown", SamplesKey, 10)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"message":"shown"`)
	assert.Contains(t, out, `"ml.component":"training"`)

	// Library warnings are routed through the configured logger.
	errors.Warn(errors.NewUndefinedMetricWarning("f1", "no true samples", 0))
	assert.Contains(t, buf.String(), `"metric":"f1"`)
}

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToLogLevel(tt.in)
			if tt.wantErr {
				var cfgErr *errors.ConfigError
				require.True(t, errors.As(err, &cfgErr))
				assert.Equal(t, "LOG_LEVEL", cfgErr.Key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConcurrentLogging(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	const goroutines, perGoroutine = 4, 5
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				testLogger.Info(fmt.Sprintf("goroutine %d message %d", id, j), CandidateKey, j)
			}
		}(i)
	}
	wg.Wait()

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, goroutines*perGoroutine)
}

func TestOddFieldCount(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelInfo)
	testLogger.Info("odd", "key")
	assert.True(t, strings.Contains(buffer.String(), "!BADKEY"))
}

func BenchmarkLogging(b *testing.B) {
	testLogger, _ := NewTestLogger(LevelInfo)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		testLogger.Info("benchmark message",
			IterationKey, i,
			OperationKey, OperationPredict,
			SamplesKey, 1000,
		)
	}
}

func TestSetRunID(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupLoggerTo(&buf, "info", false))
	defer SetupLoggerTo(&bytes.Buffer{}, "info", false) //nolint:errcheck

	SetRunID("run-42")
	GetLoggerWithName("cli").Info("stage started", StageKey, "tune")
	assert.Contains(t, buf.String(), `"pipeline.run_id":"run-42"`)
}
