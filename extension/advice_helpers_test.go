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

package extension

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregory-ledenev/go-class-extension/breaker"
	"github.com/gregory-ledenev/go-class-extension/log"
)

func TestLoggingAdvice(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := log.NewZap(log.InfoLevel, buffer)

	ctx := &AdviceContext{
		Delegate:  Item{name: "Tire"},
		Interface: NewNamedInterface("Shipment"),
		Operation: "ship",
	}

	LoggingBefore(logger)(ctx)
	LoggingAfter(logger)(ctx, "Tire shipped", nil)
	LoggingAfter(logger)(ctx, nil, errors.New("carrier unavailable"))

	lines := bytes.Split(bytes.TrimSpace(buffer.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	for _, line := range lines {
		var record map[string]any
		require.NoError(t, json.Unmarshal(line, &record))
		assert.Contains(t, record["msg"], "Shipment.ship")
	}
}

func TestPropertyLoggingBefore(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := log.NewZap(log.InfoLevel, buffer)

	ctx := &AdviceContext{
		Delegate:  &Book{title: "Refactoring"},
		Interface: NewNamedInterface("Shipment"),
		Operation: "ship",
	}

	PropertyLoggingBefore(logger, "title")(ctx)
	assert.Contains(t, buffer.String(), "Refactoring")

	buffer.Reset()
	PropertyLoggingBefore(logger, "missing.path")(ctx)
	assert.Contains(t, buffer.String(), "cannot evaluate")
}

func TestIsolationAround(t *testing.T) {
	original := map[string]string{"fragile": "yes"}
	ctx := &AdviceContext{Args: []any{original}}

	var handlerArg map[string]string
	result, err := IsolationAround()(ctx, func() (any, error) {
		handlerArg = ctx.Args[0].(map[string]string)
		handlerArg["seen"] = "handler"
		return handlerArg, nil
	})
	require.NoError(t, err)

	assert.NotContains(t, original, "seen", "the handler works on a clone of the argument")

	returned := result.(map[string]string)
	returned["mutated"] = "caller"
	assert.NotContains(t, handlerArg, "mutated", "the caller receives a clone of the result")
}

func TestResilienceAroundRetries(t *testing.T) {
	cb := breaker.New()

	attempts := 0
	advice := ResilienceAround(cb, 5, time.Millisecond, 2*time.Millisecond)
	result, err := advice(&AdviceContext{}, func() (any, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		return "delivered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "delivered", result)
	assert.Equal(t, 3, attempts)
}

func TestResilienceAroundGivesUp(t *testing.T) {
	cb := breaker.New()

	advice := ResilienceAround(cb, 2, time.Millisecond, 2*time.Millisecond)
	_, err := advice(&AdviceContext{}, func() (any, error) {
		return nil, errors.New("permanent")
	})
	require.Error(t, err)
}
