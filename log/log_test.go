// MIT License
//
// Copyright (c) 2024-2026 Gregory Ledenev
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
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelString(t *testing.T) {
	testCases := []struct {
		level    Level
		expected string
	}{
		{InfoLevel, "INFO"},
		{WarningLevel, "WARNING"},
		{ErrorLevel, "ERROR"},
		{FatalLevel, "FATAL"},
		{PanicLevel, "PANIC"},
		{DebugLevel, "DEBUG"},
		{InvalidLevel, ""},
		{Level(127), ""},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, tc.level.String())
	}
}

func TestZapInfo(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := NewZap(InfoLevel, buffer)
	logger.Info("a message")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "a message", entry["msg"])
}

func TestZapDebugSuppressedAtInfoLevel(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := NewZap(InfoLevel, buffer)
	logger.Debug("should not appear")
	assert.Empty(t, buffer.String())
}

func TestZapFormatted(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := NewZap(DebugLevel, buffer)
	logger.Debugf("value=%d", 7)
	assert.True(t, strings.Contains(buffer.String(), "value=7"))
}

func TestZapLevelAndOutputs(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := NewZap(WarningLevel, buffer)
	assert.Equal(t, WarningLevel, logger.LogLevel())
	require.Len(t, logger.LogOutput(), 1)
	assert.Same(t, io.Writer(buffer), logger.LogOutput()[0])
}

func TestDiscardLogger(t *testing.T) {
	DiscardLogger.Info("dropped")
	DiscardLogger.Errorf("dropped %s", "too")
	assert.Equal(t, InvalidLevel, DiscardLogger.LogLevel())
	require.Len(t, DiscardLogger.LogOutput(), 1)
	assert.Equal(t, io.Discard, DiscardLogger.LogOutput()[0])
	assert.Panics(t, func() { DiscardLogger.Panic("boom") })
}
