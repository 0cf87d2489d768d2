package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWriter(t *testing.T) {
	s := NewSimpleLogSink(nil, DEBUG, true)
	assert.Equal(t, os.Stdout, s.writer)
}

func TestEnabled(t *testing.T) {
	s := NewSimpleLogSink(&bytes.Buffer{}, DEBUG, true)
	assert.True(t, s.Enabled(INFO))
	assert.True(t, s.Enabled(DEBUG))
	assert.False(t, s.Enabled(TRACE))
}

func TestInfoLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSimpleLogSink(buf, DEBUG, false)
	s.Info(INFO, "Hello world", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "[INFO] Hello world")
	assert.Contains(t, out, "  key: value")
}

func TestInfoNotLoggedWhenDisabled(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSimpleLogSink(buf, INFO, false)
	s.Info(DEBUG, "This should not be logged", "foo", "bar")
	assert.Zero(t, buf.Len())
}

func TestErrorLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSimpleLogSink(buf, INFO, false)
	s.Error(errors.New("sample error"), "An error occurred", "context", "testing")

	out := buf.String()
	assert.Contains(t, out, "[ERROR] An error occurred")
	assert.Contains(t, out, "context: testing")
	assert.Contains(t, out, "error: sample error")
}

func TestWarnLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	Warn(NewSimpleLogger(buf, INFO, false), "careful", "offset", 12)

	out := buf.String()
	assert.Contains(t, out, "[WARN] careful")
	assert.Contains(t, out, "offset: 12")
	assert.NotContains(t, out, WARN_KEY)
}

func TestChainedWithName(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSimpleLogSink(buf, DEBUG, false)
	chain := s.WithName("A").WithName("B")
	chain.Info(INFO, "Chained name")
	assert.Contains(t, buf.String(), "[A.B] Chained name")
}

func TestWithValuesKeepsSettings(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSimpleLogSink(buf, INFO, false)
	derived := s.WithValues("disk", "a.img").(*SimpleLogSink)

	assert.False(t, derived.useColor)
	assert.Same(t, s.mutex, derived.mutex)

	derived.Info(INFO, "opened")
	assert.Contains(t, buf.String(), "disk: a.img")
	// The parent is unaffected
	assert.Empty(t, s.keyValues)
}

func TestVerbosityThroughLogr(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewSimpleLogger(buf, DEBUG, false)
	log.V(DEBUG).Info("debug line")
	log.V(TRACE).Info("trace line")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] debug line")
	assert.NotContains(t, out, "trace line")
}

func TestNonStringKey(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSimpleLogSink(buf, DEBUG, false)
	s.Info(INFO, "Non-string key", 123, "value")
	assert.Contains(t, buf.String(), "key0: value")
}

func TestInitSetsCallDepth(t *testing.T) {
	s := NewSimpleLogSink(&bytes.Buffer{}, DEBUG, false)
	s.Init(logr.RuntimeInfo{CallDepth: 5})
	assert.Equal(t, 5, s.callDepth)
}

func TestOrDiscard(t *testing.T) {
	var zero logr.Logger
	require.NotPanics(t, func() { OrDiscard(zero).V(TRACE).Info("dropped") })

	buf := &bytes.Buffer{}
	log := NewSimpleLogger(buf, INFO, false)
	OrDiscard(log).Info("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestLevelFromFlags(t *testing.T) {
	assert.Equal(t, INFO, LevelFromFlags(false, false))
	assert.Equal(t, DEBUG, LevelFromFlags(true, false))
	assert.Equal(t, TRACE, LevelFromFlags(true, true))
	assert.Equal(t, TRACE, LevelFromFlags(false, true))
}
