package common

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	_ "liyu1981.xyz/plant-station-service/pkg/testing"
)

func TestLoggingCapture(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	logger := GetLogger()
	logger.Info("Test log message", zap.String("key", "value"))

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Test log message") {
		t.Errorf("expected log output to contain message, got: %s", logOutput)
	}
}

func TestLoggingCapture_NamedWithCategory(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	GetLoggerWith(LoggerNameLiveHub, zap.String(LoggerFieldCategory, LoggerCategoryRegistry)).
		Info("Session bound")

	out := buf.String()
	assert.Contains(t, out, `"logger":"live_hub"`)
	assert.Contains(t, out, `"category":"registry"`)
}

func TestLoggerConcurrentSwap(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%5 == 0 {
				SetTestLoggerNop()
			}
			GetLoggerWith(LoggerNameStationCore).Debug("concurrent")
		}()
	}
	wg.Wait()
}

func TestEnvBool(t *testing.T) {
	t.Setenv("PLANT_TEST_BOOL", "true")
	assert.True(t, EnvBool("PLANT_TEST_BOOL", false))

	t.Setenv("PLANT_TEST_BOOL", "nope")
	assert.False(t, EnvBool("PLANT_TEST_BOOL", false))

	assert.True(t, EnvBool("PLANT_TEST_BOOL_UNSET", true))
}

func TestMapperReducer(t *testing.T) {
	doubled := Mapper([]int{1, 2, 3}, func(i int) int { return i * 2 })
	assert.Equal(t, []int{2, 4, 6}, doubled)

	sum := Reducer(doubled, func(acc int, i int) int { return acc + i }, 0)
	assert.Equal(t, 12, sum)
}
