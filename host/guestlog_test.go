package host

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/reglet-dev/reglet-abi/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedGuestLog(limit int) (*guestLog, *observer.ObservedLogs) {
	core, observed := observer.New(zapcore.DebugLevel)
	return newGuestLog(zap.New(core), limit), observed
}

func writeString(g *guestLog, module, s string) {
	for i := 0; i < len(s); i++ {
		g.write(module, s[i])
	}
}

func TestGuestLog_Lines(t *testing.T) {
	g, observed := newObservedGuestLog(DefaultMaxLogLineSize)

	writeString(g, "m", "first\nsecond\n")
	g.flush("m")

	entries := observed.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "m", entries[0].ContextMap()["plugin"])
}

func TestGuestLog_FlushDeliversPartialLine(t *testing.T) {
	g, observed := newObservedGuestLog(DefaultMaxLogLineSize)

	writeString(g, "m", "no newline")
	assert.Zero(t, observed.Len())

	g.flush("m")
	require.Equal(t, 1, observed.Len())
	assert.Equal(t, "no newline", observed.All()[0].Message)

	g.flush("m")
	assert.Equal(t, 1, observed.Len(), "empty flush emits nothing")
}

func TestGuestLog_Truncates(t *testing.T) {
	g, observed := newObservedGuestLog(4)

	writeString(g, "m", "abcdefgh\n")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "abcd", entries[0].Message)
	assert.Equal(t, true, entries[0].ContextMap()["truncated"])
}

func TestGuestLog_SeparatesModules(t *testing.T) {
	g, observed := newObservedGuestLog(DefaultMaxLogLineSize)

	writeString(g, "a", "he")
	writeString(g, "b", "wo")
	writeString(g, "a", "llo\n")
	writeString(g, "b", "rld\n")

	entries := observed.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "hello", entries[0].Message)
	assert.Equal(t, "a", entries[0].ContextMap()["plugin"])
	assert.Equal(t, "world", entries[1].Message)
	assert.Equal(t, "b", entries[1].ContextMap()["plugin"])
}

func TestGuestLog_StructuredRecords(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{level: "DEBUG", want: zapcore.DebugLevel},
		{level: "INFO", want: zapcore.InfoLevel},
		{level: "WARN", want: zapcore.WarnLevel},
		{level: "ERROR", want: zapcore.ErrorLevel},
		{level: "ERROR+4", want: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			g, observed := newObservedGuestLog(DefaultMaxLogLineSize)

			line, err := json.Marshal(log.LogMessageWire{
				Timestamp: time.Now(),
				Level:     tt.level,
				Message:   "cache miss",
				Attrs:     []log.LogAttrWire{{Key: "key", Type: "string", Value: "user:42"}},
				Source:    "main.go:12",
			})
			require.NoError(t, err)
			writeString(g, "m", string(line)+"\n")

			entries := observed.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want, entries[0].Level)
			assert.Equal(t, "cache miss", entries[0].Message)

			ctx := entries[0].ContextMap()
			assert.Equal(t, "user:42", ctx["key"])
			assert.Equal(t, "main.go:12", ctx["source"])
		})
	}
}

func TestGuestLog_BraceLineThatIsNotARecord(t *testing.T) {
	g, observed := newObservedGuestLog(DefaultMaxLogLineSize)

	writeString(g, "m", "{not json\n")

	require.Equal(t, 1, observed.Len())
	assert.Equal(t, "{not json", observed.All()[0].Message)
}

func TestGuestLog_Drop(t *testing.T) {
	g, observed := newObservedGuestLog(DefaultMaxLogLineSize)

	writeString(g, "m", "tail")
	g.drop("m")
	g.drop("m")

	require.Equal(t, 1, observed.Len())
	assert.Equal(t, "tail", observed.All()[0].Message)
	assert.Empty(t, g.lines)
}
