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
	"time"

	"github.com/flowchartsman/retry"

	"github.com/gregory-ledenev/go-class-extension/breaker"
	"github.com/gregory-ledenev/go-class-extension/deepclone"
	"github.com/gregory-ledenev/go-class-extension/expression"
	"github.com/gregory-ledenev/go-class-extension/log"
)

// LoggingBefore returns before advice logging each advised invocation.
func LoggingBefore(logger log.Logger) Before {
	return func(ctx *AdviceContext) {
		logger.Infof("-> %s.%s%v on %T", ctx.Interface.Name(), ctx.Operation, ctx.Args, ctx.Delegate)
	}
}

// LoggingAfter returns after advice logging each advised result or error.
func LoggingAfter(logger log.Logger) After {
	return func(ctx *AdviceContext, result any, err error) {
		if err != nil {
			logger.Warnf("<- %s.%s on %T failed: %v", ctx.Interface.Name(), ctx.Operation, ctx.Delegate, err)
			return
		}
		logger.Infof("<- %s.%s on %T = %v", ctx.Interface.Name(), ctx.Operation, ctx.Delegate, result)
	}
}

// PropertyLoggingBefore returns before advice logging a delegate property
// addressed by a path expression such as "author.name" or
// "chapters[0].title".
func PropertyLoggingBefore(logger log.Logger, path string) Before {
	return func(ctx *AdviceContext) {
		value, err := expression.Evaluate(ctx.Delegate, path)
		if err != nil {
			logger.Warnf("%s.%s: cannot evaluate %q on %T: %v", ctx.Interface.Name(), ctx.Operation, path, ctx.Delegate, err)
			return
		}
		logger.Infof("%s.%s: %s = %v", ctx.Interface.Name(), ctx.Operation, path, value)
	}
}

// IsolationAround returns around advice that deep-clones arguments before
// the invocation and the result after it, so advised operations cannot leak
// shared mutable state.
func IsolationAround() Around {
	return func(ctx *AdviceContext, proceed func() (any, error)) (any, error) {
		for idx, arg := range ctx.Args {
			cloned, err := deepclone.Clone(arg)
			if err != nil {
				return nil, err
			}
			ctx.Args[idx] = cloned
		}
		result, err := proceed()
		if err != nil {
			return result, err
		}
		return deepclone.Clone(result)
	}
}

// ResilienceAround returns around advice running the invocation through a
// circuit breaker with exponential-backoff retries around it.
func ResilienceAround(cb *breaker.CircuitBreaker, attempts int, initialDelay, maxDelay time.Duration) Around {
	return func(ctx *AdviceContext, proceed func() (any, error)) (any, error) {
		var result any
		retrier := retry.NewRetrier(attempts, initialDelay, maxDelay)
		err := retrier.Run(func() error {
			value, err := cb.Run(proceed)
			if err != nil {
				return err
			}
			result = value
			return nil
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}
