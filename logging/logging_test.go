package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStandardLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)
	l.SetLevel(Debug)

	l.Debug("hello %s", "world")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello world", line["msg"])
	require.Equal(t, "debug", line["level"])
}

func TestStandardLoggerDefaultLevelDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	l.Debug("should not appear")
	require.Empty(t, buf.Bytes())

	l.Info("should appear")
	require.NotEmpty(t, buf.Bytes())
}

func TestWithFields(t *testing.T) {
	logger := New().WithFields(map[string]interface{}{"context": "contextvalue"}).(*StandardLogger)
	require.Equal(t, "contextvalue", logger.Fields()["context"])
}

func TestWithFieldsOverrides(t *testing.T) {
	logger := New().
		WithFields(map[string]interface{}{"context": "contextvalue"}).
		WithFields(map[string]interface{}{"context": "changedcontextvalue"}).(*StandardLogger)

	require.Equal(t, "changedcontextvalue", logger.Fields()["context"])
}

func TestWithFieldsMerges(t *testing.T) {
	logger := New().
		WithFields(map[string]interface{}{"context": "contextvalue"}).
		WithFields(map[string]interface{}{"anothercontext": "anothercontextvalue"}).(*StandardLogger)

	require.Equal(t, "contextvalue", logger.Fields()["context"])
	require.Equal(t, "anothercontextvalue", logger.Fields()["anothercontext"])
}

func TestStandardLoggerFieldsInOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	child := l.WithFields(map[string]interface{}{"doc_id": "abc123"})
	child.Info("joined delta")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "abc123", line["doc_id"])
}

func TestStandardLoggerSetGetLevel(t *testing.T) {
	l := New()
	for _, lvl := range []Level{Debug, Info, Warn, Error} {
		l.SetLevel(lvl)
		require.Equal(t, lvl, l.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"debug", Debug},
		{"DEBUG", Debug},
		{"", Info},
		{"info", Info},
		{"warn", Warn},
		{"error", Error},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.in)
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}

	_, err := ParseLevel("nonsense")
	require.Error(t, err)
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NewNoOpLogger()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	l.SetLevel(Error)
	require.Equal(t, Info, l.GetLevel())
	require.Same(t, l, l.WithFields(map[string]interface{}{"k": "v"}))
}
